package ocr

import "strings"

// ExtractLines returns the lines of text that start with prefix, in order.
// An empty prefix returns every non-empty line.
func ExtractLines(text, prefix string) []string {
	lines := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if prefix == "" {
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
			continue
		}
		if strings.HasPrefix(line, prefix) {
			lines = append(lines, line)
		}
	}
	return lines
}
