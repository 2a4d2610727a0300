package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Reader provides access to the contents of an EPUB archive
type Reader struct {
	zipReader *zip.ReadCloser
	files     map[string]*zip.File
	names     []string // archive order
	opfPath   string
}

var (
	ErrInvalidMimetype    = errors.New("invalid mimetype: must be 'application/epub+zip'")
	ErrMimetypeCompressed = errors.New("mimetype must not be compressed")
	ErrMimetypeNotFound   = errors.New("mimetype file not found")
	ErrMimetypeNotFirst   = errors.New("mimetype must be the first entry")
	ErrContainerNotFound  = errors.New("META-INF/container.xml not found")
	ErrOPFPathNotFound    = errors.New("OPF path not found in container.xml")
)

// Open opens an EPUB file and validates its container structure
func Open(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open EPUB: %w", err)
	}

	reader := &Reader{
		zipReader: zr,
		files:     make(map[string]*zip.File),
	}

	for _, f := range zr.File {
		name := normalizePath(f.Name)
		reader.files[name] = f
		reader.names = append(reader.names, name)
	}

	if err := reader.validateMimetype(); err != nil {
		zr.Close()
		return nil, err
	}

	if err := reader.parseContainer(); err != nil {
		zr.Close()
		return nil, err
	}

	return reader, nil
}

// Close closes the EPUB reader
func (r *Reader) Close() error {
	return r.zipReader.Close()
}

// OPFPath returns the path to the OPF file
func (r *Reader) OPFPath() string {
	return r.opfPath
}

// Files returns a map of all files in the EPUB
func (r *Reader) Files() map[string]*zip.File {
	return r.files
}

// Names returns the entry names in archive order.
func (r *Reader) Names() []string {
	return r.names
}

// ReadFile reads the contents of a file from the EPUB
func (r *Reader) ReadFile(name string) ([]byte, error) {
	name = normalizePath(name)
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// Package reads and parses the package document named by container.xml.
func (r *Reader) Package() (*OPF, error) {
	data, err := r.ReadFile(r.opfPath)
	if err != nil {
		return nil, err
	}
	dir := path.Dir(r.opfPath)
	if dir == "." {
		dir = ""
	}
	return ParseOPF(data, dir)
}

// validateMimetype checks that the mimetype file comes first, is stored and
// has the expected content
func (r *Reader) validateMimetype() error {
	f, ok := r.files[MimetypeName]
	if !ok {
		return ErrMimetypeNotFound
	}
	if r.names[0] != MimetypeName {
		return ErrMimetypeNotFirst
	}

	if f.Method != zip.Store {
		return ErrMimetypeCompressed
	}

	content, err := r.ReadFile(MimetypeName)
	if err != nil {
		return fmt.Errorf("failed to read mimetype: %w", err)
	}

	if string(content) != MimeType {
		return ErrInvalidMimetype
	}

	return nil
}

// parseContainer parses container.xml to extract OPF path
func (r *Reader) parseContainer() error {
	content, err := r.ReadFile(ContainerPath)
	if err != nil {
		return ErrContainerNotFound
	}

	var c container
	if err := xml.Unmarshal(content, &c); err != nil {
		return fmt.Errorf("failed to parse container.xml: %w", err)
	}

	for _, rf := range c.Rootfiles.Rootfile {
		if rf.MediaType == packageMediaType || rf.MediaType == "" {
			r.opfPath = normalizePath(rf.FullPath)
			return nil
		}
	}

	// If no media-type match, use the first one
	if len(c.Rootfiles.Rootfile) > 0 {
		r.opfPath = normalizePath(c.Rootfiles.Rootfile[0].FullPath)
		return nil
	}

	return ErrOPFPathNotFound
}

// normalizePath normalizes file paths (removes ./ prefix)
func normalizePath(name string) string {
	return strings.TrimPrefix(name, "./")
}
