package csv

import "strings"

const utf8BOM = "\uFEFF"

// StripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func StripHeaderBOM(header []string) []string {
	if len(header) == 0 {
		return header
	}
	if strings.HasPrefix(header[0], utf8BOM) {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	return header
}
