// Package text formats help text of the sportdb commands.
package text

import (
	"strings"
)

// Indentation prefixes every example line.
const Indentation = `  `

// LongDesc trims the surrounding blank lines of a long description and removes the common
// indentation of a raw string literal.
func LongDesc(s string) string {
	return strings.Join(dedent(s), "\n")
}

// Examples dedents s and indents each line by Indentation, the layout cobra prints examples in.
func Examples(s string) string {
	lines := dedent(s)
	for i, l := range lines {
		if l != "" {
			lines[i] = Indentation + l
		}
	}

	return strings.Join(lines, "\n")
}

func dedent(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	lines := strings.Split(strings.TrimRight(s, " \t\n"), "\n")
	for strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	prefix := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if prefix < 0 || n < prefix {
			prefix = n
		}
	}
	for i, l := range lines {
		if len(l) >= prefix {
			lines[i] = strings.TrimRight(l[prefix:], " \t")
		} else {
			lines[i] = strings.TrimSpace(l)
		}
	}

	return lines
}
