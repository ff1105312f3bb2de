// Package shellwords splits a command line into tokens using POSIX shell
// quoting rules: single quotes preserve everything literally, double quotes
// preserve everything except backslash escapes of `"` and `\`, and an
// unquoted backslash escapes the next character. No expansion of any kind
// is performed.
package shellwords

import (
	"errors"
	"strings"
	"unicode"
)

// ErrUnterminatedQuote reports a command line that ends inside a quoted
// region or after a trailing backslash.
var ErrUnterminatedQuote = errors.New("shellwords: unterminated quote")

// Split tokenizes line. An all-whitespace line yields an empty slice.
func Split(line string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		inToken bool
	)

	runes := []rune(line)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
			i++
		case r == '\'':
			inToken = true
			end := indexRune(runes, i+1, '\'')
			if end == -1 {
				return nil, ErrUnterminatedQuote
			}
			current.WriteString(string(runes[i+1 : end]))
			i = end + 1
		case r == '"':
			inToken = true
			i++
			closed := false
			for i < len(runes) {
				c := runes[i]
				if c == '"' {
					closed = true
					i++
					break
				}
				if c == '\\' && i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\\') {
					current.WriteRune(runes[i+1])
					i += 2
					continue
				}
				current.WriteRune(c)
				i++
			}
			if !closed {
				return nil, ErrUnterminatedQuote
			}
		case r == '\\':
			if i+1 >= len(runes) {
				return nil, ErrUnterminatedQuote
			}
			inToken = true
			current.WriteRune(runes[i+1])
			i += 2
		default:
			inToken = true
			current.WriteRune(r)
			i++
		}
	}

	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

func indexRune(runes []rune, from int, want rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == want {
			return i
		}
	}
	return -1
}
