package benchmark

import (
	"regexp"
	"strings"
)

var codeBlockPattern = regexp.MustCompile("(?s)```(?:\\w+)?\\n(.*?)```")

// ExtractCodeBlocks returns the bodies of fenced code blocks in order of appearance.
func ExtractCodeBlocks(text string) []string {
	matches := codeBlockPattern.FindAllStringSubmatch(text, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, m[1])
	}
	return blocks
}

// JoinedCode concatenates every fenced block of text with newlines.
func JoinedCode(text string) string {
	return strings.Join(ExtractCodeBlocks(text), "\n")
}
