package utils

import "fmt"

// Sprintf applies printf-style token substitution to a display string.
// With no tokens the string is returned untouched, so literal percent
// signs in untokenized UI text are never mangled.
func Sprintf(format string, tokens ...any) string {
	if len(tokens) == 0 {
		return format
	}
	return fmt.Sprintf(format, tokens...)
}
