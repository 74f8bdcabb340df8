package ui

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
)

// highlight renders file content with terminal syntax colors chosen from
// the file name. Content that is too large, has no matching lexer or
// fails to highlight is returned as plain text.
func highlight(path, content, style string) string {
	content = strings.ReplaceAll(content, "\t", "    ")
	if content == "" || len(content) > HighlightLimit {
		return content
	}
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		return content
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, content, lexer.Config().Name, "terminal256", style); err != nil {
		return content
	}
	return buf.String()
}
