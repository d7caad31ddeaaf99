package parser

import (
	"fmt"
	"strings"
	"unicode"
)

// token is one lexed word of a command. quoted is set when any part of the
// word came from a quoted section, so a quoted "-x" is never taken as a flag.
type token struct {
	text   string
	quoted bool
}

// tokenize splits a command on whitespace. Text inside matching single or
// double quotes is kept together with the delimiters stripped; inside quotes a
// backslash escapes the same quote character.
func tokenize(input string) ([]token, error) {
	var tokens []token
	var current strings.Builder
	var inQuote rune // 0, '"', or '\''
	quoted := false
	inToken := false

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if inQuote != 0 {
			if ch == '\\' && i+1 < len(runes) && runes[i+1] == inQuote {
				current.WriteRune(inQuote)
				i++
				continue
			}
			if ch == inQuote {
				inQuote = 0
				continue
			}
			current.WriteRune(ch)
			continue
		}

		if ch == '"' || ch == '\'' {
			inQuote = ch
			quoted = true
			inToken = true
			continue
		}

		if unicode.IsSpace(ch) {
			if inToken {
				tokens = append(tokens, token{text: current.String(), quoted: quoted})
				current.Reset()
				quoted = false
				inToken = false
			}
			continue
		}

		current.WriteRune(ch)
		inToken = true
	}

	if inQuote != 0 {
		return nil, fmt.Errorf("unclosed quote: %c", inQuote)
	}

	if inToken {
		tokens = append(tokens, token{text: current.String(), quoted: quoted})
	}

	return tokens, nil
}
