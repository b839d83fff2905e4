package document

import "strings"

var allowedExts = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"bmp":  {},
	"gif":  {},
	"tiff": {},
	"pdf":  {},
}

// AllowedFile reports whether name carries an extension from the allow-list.
// Content is never sniffed; a mislabeled file is accepted here and fails later
// in DecodePages instead.
func AllowedFile(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	_, ok := allowedExts[strings.ToLower(name[i+1:])]
	return ok
}

// IsPDF reports whether name has a .pdf extension.
func IsPDF(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}
