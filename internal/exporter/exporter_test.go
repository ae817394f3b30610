package exporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/drstein77/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

func catalog() []models.Product {
	return []models.Product{
		{
			ID: 7, Name: "Lamp, desk", Description: `say "hi"`, Category: "home",
			Price: decimal.RequireFromString("19.99"), Stock: 4, Manufacturer: "Acme", SKU: 1001,
			Image: "https://img/7.png", Thumbnail: "https://img/7t.png",
		},
		{ID: 8, Name: "Mug", Price: decimal.NewFromInt(5)},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, catalog()))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	want := catalog()
	assert.Equal(t, want[0].Name, got[0].Name)
	assert.Equal(t, want[0].Description, got[0].Description)
	assert.True(t, want[0].Price.Equal(got[0].Price))
	assert.Equal(t, want[0].SKU, got[0].SKU)
	assert.Equal(t, want[0].Thumbnail, got[0].Thumbnail)
	assert.Equal(t, 0, got[1].Stock)
}

func TestReadCSVReorderedColumns(t *testing.T) {
	in := "price,productName,id\n2.5,Pen,3\n"
	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].ID)
	assert.Equal(t, "Pen", got[0].Name)
	assert.Equal(t, "2.5", got[0].Price.String())
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("name,price\nx,1\n"))
	assert.ErrorIs(t, err, ErrBadHeader)

	_, err = ReadCSV(strings.NewReader("id,productName,price\nx,Pen,1\n"))
	assert.ErrorContains(t, err, "line 2: invalid id")

	_, err = ReadCSV(strings.NewReader("id,productName,price,stock\n1,Pen,1,-3\n"))
	assert.ErrorContains(t, err, "invalid stock")

	_, err = ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrBadHeader)

	_, err = ReadCSV(strings.NewReader("id,productName,price\n"))
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = ReadCSV(strings.NewReader("id,productName,price,stock\n7,Pen,1,5\n7,Pencil,2,9\n"))
	assert.ErrorContains(t, err, "line 3: duplicate id 7")
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, catalog()))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	assert.Equal(t, "Products", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "productName", sheet.Rows[0].Cells[1].Value)
	assert.Equal(t, "Lamp, desk", sheet.Rows[1].Cells[1].Value)
	assert.Equal(t, "Mug", sheet.Rows[2].Cells[1].Value)
}
