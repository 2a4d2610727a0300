package setting

import "github.com/yuanying/epubgen/internal/replace"

// NavigationTemplate is the body of the navigation document generated when
// the setting file declares none. It links the first content document.
const NavigationTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head>
	<title>Table of contents</title>
	<meta charset="UTF-8" />
</head>
<body>
	<nav epub:type="toc">
		<ol>
			<li><a href="{$setting.contents.1.filePath}">First content</a></li>
		</ol>
	</nav>
</body>
</html>
`

func navigationContent() Content {
	return Content{
		Template:      NavigationTemplate,
		Navigation:    true,
		UseNavigation: true,
		Hidden:        true,
		Rules:         []replace.Rule{},
	}
}
