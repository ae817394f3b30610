package controllers

import (
	"fmt"
	"net/http"

	"github.com/drstein77/storefront/internal/compress"
	"github.com/drstein77/storefront/internal/exporter"
	"go.uber.org/zap"
)

const exportName = "products"

// exportProducts streams the cached catalog as csv, xlsx, or a zip/tar archive holding the csv.
func (h *BaseController) exportProducts(w http.ResponseWriter, r *http.Request) {
	products := h.storage.Products()

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	var err error
	switch format {
	case "csv":
		setAttachment(w, "text/csv; charset=utf-8", exportName+".csv")
		err = exporter.WriteCSV(w, products)
	case "xlsx":
		setAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", exportName+".xlsx")
		err = exporter.WriteXLSX(w, products)
	case compress.Zip, compress.Tar:
		setAttachment(w, compress.ContentType(format), exportName+"."+format)
		aw, werr := compress.NewWriter(format, w, exportName+".csv")
		if werr != nil {
			err = werr
			break
		}
		if err = exporter.WriteCSV(aw, products); err == nil {
			err = aw.Close()
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
		return
	}

	if err != nil {
		// headers are already sent; the client sees a truncated file
		h.log.Error("Failed to export products", zap.String("format", format), zap.Error(err))
	}
}

func setAttachment(w http.ResponseWriter, contentType, fileName string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
}
