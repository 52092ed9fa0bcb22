package constants

import "strings"

// Layouts used for sample timestamps and calendar dates.
const (
	TimestampLayout = "2006-01-02 15:04"
	DateLayout      = "2006-01-02"
	ClockLayout     = "15:04"
)

type ImportKind string

const (
	ImportSamples   ImportKind = "samples"
	ImportPersonnel ImportKind = "personnel"
)

// AllowedExtensions holds the file extensions picked up by the drop-folder importer.
var AllowedExtensions = map[string]struct{}{
	"tsv":  {},
	"txt":  {},
	"xlsx": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func IsSpreadsheetExt(ext string) bool {
	return NormalizeExt(ext) == "xlsx"
}
