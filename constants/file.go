package constants

import "strings"

// AllowedExtensions holds the document extensions picked up from a folder.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// TableExt is the extension of the per-folder output table.
const TableExt = "xlsx"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (any case, with or without dot) is a document extension.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
