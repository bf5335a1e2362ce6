package constants

import "strings"

// AllowedExtensions holds the file extensions accepted for invoice uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

const (
	// MaxUploadMBDefault caps a single uploaded document.
	MaxUploadMBDefault = 50
	// MaxBatchFilesDefault caps the number of documents in one batch.
	MaxBatchFilesDefault = 20

	PDFMagic = "%PDF-"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ReportPrefix    = "invoices_export_"
	ReportExt       = ".xlsx"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without the dot) is accepted for upload.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
