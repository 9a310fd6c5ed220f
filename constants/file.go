package constants

import "strings"

// Source formats recognised by the extraction adapter.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	DOCX  = "DOCX"
	HTML  = "HTML"
	TEXT  = "TEXT"
)

// FileTypes holds every format value a status record or export may carry.
var FileTypes = []string{PDF, IMAGE, DOCX, HTML, TEXT}

var extFormats = map[string]string{
	"pdf":  PDF,
	"png":  IMAGE,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"tif":  IMAGE,
	"tiff": IMAGE,
	"bmp":  IMAGE,
	"webp": IMAGE,
	"docx": DOCX,
	"html": HTML,
	"htm":  HTML,
	"txt":  TEXT,
	"md":   TEXT,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the source format for an extension, or "" when unsupported.
func MapExtToFormat(ext string) string {
	return extFormats[NormalizeExt(ext)]
}

// IsSupportedExt reports whether the extraction adapter can handle ext.
func IsSupportedExt(ext string) bool {
	return MapExtToFormat(ext) != ""
}
