package compress

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Archive formats accepted for catalog import and offered for export.
const (
	Zip = "zip"
	Tar = "tar"
)

var (
	ErrNoEntry     = errors.New("no matching file in the archive")
	ErrUnsupported = errors.New("unsupported archive type")
)

// NewReader opens the first entry ending in ext of an archive of the given kind.
func NewReader(kind string, r io.ReadCloser, ext string) (io.ReadCloser, error) {
	switch kind {
	case Zip:
		return NewZipReader(r, ext)
	case Tar:
		return NewTarReader(r, ext)
	default:
		r.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, kind)
	}
}

// NewWriter returns a writer that archives its input as fileName. Close must be called to finish the archive.
func NewWriter(kind string, w io.Writer, fileName string) (io.WriteCloser, error) {
	switch kind {
	case Zip:
		return NewZipWriter(w, fileName)
	case Tar:
		return NewTarWriter(w, fileName), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, kind)
	}
}

// ContentType is the MIME type of an archive kind.
func ContentType(kind string) string {
	if kind == Tar {
		return "application/x-tar"
	}
	return "application/zip"
}

func hasExt(name, ext string) bool {
	return ext == "" || strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext))
}
