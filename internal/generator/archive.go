package generator

import (
	"archive/zip"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yuanying/epubgen/internal/epub"
)

// writeArchive packs the staging tree rooted at root into dest. The
// mimetype entry comes first and is stored; every other file is deflated
// under its slash-separated path relative to root. dest is truncated first
// and removed again on failure.
func writeArchive(root, dest string) (err error) {
	out, err := os.Create(dest)
	if err != nil {
		return &BuildError{Op: "archive", Path: dest, Err: err}
	}
	defer func() {
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	zw := zip.NewWriter(out)
	if err := addMimetype(zw, filepath.Join(root, epub.MimetypeName)); err != nil {
		_ = zw.Close()
		_ = out.Close()
		return err
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if name == epub.MimetypeName {
			return nil
		}
		return addArchiveFile(zw, path, name)
	})
	if walkErr != nil {
		_ = zw.Close()
		_ = out.Close()
		return &BuildError{Op: "archive", Path: dest, Err: walkErr}
	}

	if err := zw.Close(); err != nil {
		_ = out.Close()
		return &BuildError{Op: "archive", Path: dest, Err: err}
	}
	if err := out.Close(); err != nil {
		return &BuildError{Op: "archive", Path: dest, Err: err}
	}
	return nil
}

// addMimetype writes the mimetype entry with a bare stored header: no extra
// field and no data descriptor, so its content starts at byte offset 38.
func addMimetype(zw *zip.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &BuildError{Op: "archive", Path: path, Err: err}
	}
	size := uint64(len(data))
	w, err := zw.CreateRaw(&zip.FileHeader{
		Name:               epub.MimetypeName,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   size,
		UncompressedSize64: size,
	})
	if err != nil {
		return &BuildError{Op: "archive", Path: path, Err: err}
	}
	if _, err := w.Write(data); err != nil {
		return &BuildError{Op: "archive", Path: path, Err: err}
	}
	return nil
}

func addArchiveFile(zw *zip.Writer, path, name string) error {
	in, err := os.Open(path)
	if err != nil {
		return &BuildError{Op: "archive", Path: path, Err: err}
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return &BuildError{Op: "archive", Path: path, Err: err}
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return &BuildError{Op: "archive", Path: path, Err: err}
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return &BuildError{Op: "archive", Path: path, Err: err}
	}
	if _, err := io.Copy(w, in); err != nil {
		return &BuildError{Op: "archive", Path: path, Err: err}
	}
	return nil
}
