package compress

import (
	"archive/tar"
	"bytes"
	"io"
	"time"
)

// TarReader streams the first regular file of a TAR archive that matches an extension.
type TarReader struct {
	entry io.Reader
	name  string
	eof   bool
}

// NewTarReader buffers the archive read from r and positions at its first file ending in ext.
func NewTarReader(r io.ReadCloser, ext string) (*TarReader, error) {
	defer r.Close()

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}

	tr := tar.NewReader(bytes.NewReader(buf.Bytes()))
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Typeflag == tar.TypeReg && hasExt(header.Name, ext) {
			return &TarReader{entry: tr, name: header.Name}, nil
		}
	}

	return nil, ErrNoEntry
}

// Name is the archive path of the entry being read.
func (t *TarReader) Name() string {
	return t.name
}

func (t *TarReader) Read(p []byte) (int, error) {
	if t.eof {
		return 0, io.EOF
	}
	n, err := t.entry.Read(p)
	if err == io.EOF {
		t.eof = true
	}
	return n, err
}

// Close is a no-op: the archive was fully buffered by NewTarReader.
func (t *TarReader) Close() error {
	return nil
}

// TarWriter packs everything written to it into one file of a TAR archive.
// The tar header carries the file size, so data is buffered until Close.
type TarWriter struct {
	w        io.Writer
	fileName string
	modTime  time.Time
	buf      bytes.Buffer
}

// NewTarWriter starts a TAR archive on w holding a single file called fileName.
func NewTarWriter(w io.Writer, fileName string) *TarWriter {
	return &TarWriter{w: w, fileName: fileName, modTime: time.Now()}
}

func (t *TarWriter) Write(p []byte) (int, error) {
	return t.buf.Write(p)
}

// Close writes the header, the buffered file and the archive trailer.
func (t *TarWriter) Close() error {
	tw := tar.NewWriter(t.w)
	err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     t.fileName,
		Mode:     0o644,
		Size:     int64(t.buf.Len()),
		ModTime:  t.modTime,
	})
	if err != nil {
		return err
	}
	if _, err := tw.Write(t.buf.Bytes()); err != nil {
		return err
	}
	return tw.Close()
}
