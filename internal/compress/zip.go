package compress

import (
	"archive/zip"
	"bytes"
	"io"
)

// ZipReader streams the first entry of a ZIP archive that matches an extension.
type ZipReader struct {
	entry io.ReadCloser
	name  string
}

// NewZipReader buffers the archive read from r and opens its first entry ending in ext.
func NewZipReader(r io.ReadCloser, ext string) (*ZipReader, error) {
	defer r.Close()

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		return nil, err
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !hasExt(f.Name, ext) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		return &ZipReader{entry: rc, name: f.Name}, nil
	}

	return nil, ErrNoEntry
}

// Name is the archive path of the entry being read.
func (z *ZipReader) Name() string {
	return z.name
}

func (z *ZipReader) Read(p []byte) (int, error) {
	return z.entry.Read(p)
}

func (z *ZipReader) Close() error {
	return z.entry.Close()
}

// ZipWriter packs everything written to it into one entry of a ZIP archive.
type ZipWriter struct {
	zw    *zip.Writer
	entry io.Writer
}

// NewZipWriter starts a ZIP archive on w holding a single entry called fileName.
func NewZipWriter(w io.Writer, fileName string) (*ZipWriter, error) {
	zw := zip.NewWriter(w)
	entry, err := zw.CreateHeader(&zip.FileHeader{Name: fileName, Method: zip.Deflate})
	if err != nil {
		return nil, err
	}
	return &ZipWriter{zw: zw, entry: entry}, nil
}

func (z *ZipWriter) Write(p []byte) (int, error) {
	return z.entry.Write(p)
}

// Close writes the central directory. The underlying writer is left open.
func (z *ZipWriter) Close() error {
	return z.zw.Close()
}
