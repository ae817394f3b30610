package middleware

import (
	"errors"
	"mime"
	"net/http"

	"github.com/drstein77/storefront/internal/compress"
)

// MaxImportSize caps the request body of an import, archived or not.
var MaxImportSize int64 = 32 << 20

// ArchiveTypeMiddleware replaces an archived request body with the CSV file inside it.
// The archive kind comes from the archiveType query parameter (zip by default);
// bodies sent as text/csv are passed through untouched.
func ArchiveTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxImportSize)

		if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "text/csv" {
			next.ServeHTTP(w, r)
			return
		}

		archiveType := r.URL.Query().Get("archiveType")
		if archiveType != compress.Tar && archiveType != compress.Zip {
			archiveType = compress.Zip
		}

		cr, err := compress.NewReader(archiveType, r.Body, ".csv")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "archive is too large", http.StatusRequestEntityTooLarge)
			return
		}
		if err != nil {
			http.Error(w, "Failed to unpack "+archiveType+" archive: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer cr.Close()

		r.Body = cr
		next.ServeHTTP(w, r)
	})
}
