package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// illegalNameChars covers characters rejected by at least one of ext4, NTFS, APFS or FAT.
var illegalNameChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFilename makes name safe to use as a single path element.
//
// The result is NFC normalized, has illegal characters replaced with '_', control characters removed
// and no trailing dots or spaces. An empty result becomes "_".
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)
	name = illegalNameChars.Replace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimRight(strings.TrimSpace(name), ". ")

	if name == "" {
		return "_"
	}
	return name
}
