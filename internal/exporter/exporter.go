package exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/drstein77/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
)

// Header is the column order shared by the CSV and XLSX exports and expected by ReadCSV.
var Header = []string{
	"id", "productName", "description", "category", "price",
	"stock", "manufacturer", "sku", "image", "thumbnail",
}

var (
	ErrBadHeader = errors.New("unexpected CSV header")
	ErrNoRows    = errors.New("no products in CSV")
)

// WriteCSV writes products as CSV with a header row.
func WriteCSV(w io.Writer, products []models.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, p := range products {
		if err := cw.Write(record(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses products written by WriteCSV. Columns are matched by header name,
// so reordered columns are accepted; id, productName and price are required.
func ReadCSV(r io.Reader) ([]models.Product, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", ErrBadHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(head))
	for i, name := range head {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{"id", "productName", "price"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrBadHeader, required)
		}
	}

	var products []models.Product
	seen := make(map[int]int)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		p, err := parse(get)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if first, ok := seen[p.ID]; ok {
			return nil, fmt.Errorf("line %d: duplicate id %d (first seen on line %d)", line, p.ID, first)
		}
		seen[p.ID] = line
		products = append(products, p)
	}

	if len(products) == 0 {
		return nil, ErrNoRows
	}
	return products, nil
}

func parse(get func(string) string) (models.Product, error) {
	var p models.Product
	var err error

	if p.ID, err = strconv.Atoi(get("id")); err != nil {
		return p, fmt.Errorf("invalid id: %w", err)
	}
	if p.Price, err = decimal.NewFromString(get("price")); err != nil {
		return p, fmt.Errorf("invalid price: %w", err)
	}
	if s := get("stock"); s != "" {
		if p.Stock, err = strconv.Atoi(s); err != nil {
			return p, fmt.Errorf("invalid stock: %w", err)
		}
		if p.Stock < 0 {
			return p, fmt.Errorf("invalid stock: %d", p.Stock)
		}
	}
	if s := get("sku"); s != "" {
		if p.SKU, err = strconv.ParseInt(s, 10, 64); err != nil {
			return p, fmt.Errorf("invalid sku: %w", err)
		}
	}

	p.Name = get("productName")
	p.Description = get("description")
	p.Category = get("category")
	p.Manufacturer = get("manufacturer")
	p.Image = get("image")
	p.Thumbnail = get("thumbnail")
	return p, nil
}

func record(p models.Product) []string {
	return []string{
		strconv.Itoa(p.ID),
		p.Name,
		p.Description,
		p.Category,
		p.Price.String(),
		strconv.Itoa(p.Stock),
		p.Manufacturer,
		strconv.FormatInt(p.SKU, 10),
		p.Image,
		p.Thumbnail,
	}
}

// WriteXLSX writes products as a single "Products" sheet.
func WriteXLSX(w io.Writer, products []models.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range Header {
		headerRow.AddCell().SetValue(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Description)
		row.AddCell().SetValue(p.Category)
		row.AddCell().SetValue(p.Price.InexactFloat64())
		row.AddCell().SetValue(p.Stock)
		row.AddCell().SetValue(p.Manufacturer)
		row.AddCell().SetValue(p.SKU)
		row.AddCell().SetValue(p.Image)
		row.AddCell().SetValue(p.Thumbnail)
	}

	return file.Write(w)
}
