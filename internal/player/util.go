package player

import (
	"strings"
	"unicode"
)

// ParseArgs splits the configured extra player arguments the way a shell would for simple cases: whitespace
// separates arguments, and single or double quotes group text.  A quote of the other kind inside quotes is kept
// literally.  An unterminated quote runs to the end of the string.
func ParseArgs(argsString string) []string {
	var (
		args    []string
		current strings.Builder
		quote   rune
		started bool // distinguishes an empty quoted argument from no argument
	)

	for _, r := range argsString {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			started = true
		case unicode.IsSpace(r):
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}

	if started {
		args = append(args, current.String())
	}

	return args
}
