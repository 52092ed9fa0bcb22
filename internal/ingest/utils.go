package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/exposure-tracker/constants"
)

// PersonnelDir is the drop-folder directory name whose files import personnel.
const PersonnelDir = "personnel"

// AllowedExt checks if a file extension is one the importer reads.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// KindForPath picks the import kind from the file's location: anything under a
// "personnel" directory imports personnel, everything else imports samples.
func KindForPath(path string) constants.ImportKind {
	dir := filepath.ToSlash(filepath.Dir(path))
	for _, part := range strings.Split(dir, "/") {
		if strings.EqualFold(part, PersonnelDir) {
			return constants.ImportPersonnel
		}
	}
	return constants.ImportSamples
}
