package compress

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const data = "id,productName,price\n1,Pen,1.5\n"

func pack(t *testing.T, kind, name, content string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(kind, &buf, name)
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf
}

func TestRoundTrip(t *testing.T) {
	for _, kind := range []string{Zip, Tar} {
		t.Run(kind, func(t *testing.T) {
			buf := pack(t, kind, "export/products.CSV", data)

			r, err := NewReader(kind, io.NopCloser(buf), ".csv")
			require.NoError(t, err)
			defer r.Close()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, data, string(got))
		})
	}
}

func TestReaderReportsEntryName(t *testing.T) {
	zr, err := NewZipReader(io.NopCloser(pack(t, Zip, "a.csv", data)), ".csv")
	require.NoError(t, err)
	assert.Equal(t, "a.csv", zr.Name())

	tr, err := NewTarReader(io.NopCloser(pack(t, Tar, "b.csv", data)), ".csv")
	require.NoError(t, err)
	assert.Equal(t, "b.csv", tr.Name())
}

func TestNoMatchingEntry(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("readme.txt")
	require.NoError(t, err)
	f.Write([]byte("nothing here"))
	require.NoError(t, zw.Close())

	_, err = NewZipReader(io.NopCloser(&buf), ".csv")
	assert.ErrorIs(t, err, ErrNoEntry)

	_, err = NewTarReader(io.NopCloser(pack(t, Tar, "products.txt", data)), ".csv")
	assert.ErrorIs(t, err, ErrNoEntry)
}

func TestUnsupportedKind(t *testing.T) {
	_, err := NewReader("rar", io.NopCloser(strings.NewReader("")), ".csv")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = NewWriter("rar", io.Discard, "x.csv")
	assert.ErrorIs(t, err, ErrUnsupported)

	assert.Equal(t, "application/x-tar", ContentType(Tar))
	assert.Equal(t, "application/zip", ContentType(Zip))
}
