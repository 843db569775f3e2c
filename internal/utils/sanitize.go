package utils

import (
	"regexp"
	"strings"
)

var (
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	filenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
)

// SanitizeString removes control characters except newlines and tabs, then trims.
func SanitizeString(input string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(input, ""))
}

// SanitizeFilename removes characters that are unsafe in file names.
func SanitizeFilename(input string) string {
	cleaned := SanitizeString(filenameChars.ReplaceAllString(input, ""))
	cleaned = strings.NewReplacer("\n", "", "\r", "", "\t", "").Replace(cleaned)
	cleaned = strings.Trim(cleaned, ". ")
	return cleaned
}
