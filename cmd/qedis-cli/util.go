package main

import "strings"

// WrapString wraps the input string to the given line length
func WrapString(s string, lineLength int) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return s
	}

	var sb strings.Builder
	current := 0
	for i, word := range words {
		if i > 0 {
			if current+1+len(word) > lineLength {
				sb.WriteString("\n")
				current = 0
			} else {
				sb.WriteString(" ")
				current++
			}
		}
		sb.WriteString(word)
		current += len(word)
	}
	return sb.String()
}
