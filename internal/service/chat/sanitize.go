package chat

import (
	"regexp"
	"strings"
)

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	htmlTagRe     = regexp.MustCompile(`<[^>]*>`)
)

// sanitizeContent reduces assistant prose to plain text: complete script and
// style blocks go first, then any remaining tag-like substrings, then the
// result is trimmed. Best-effort reducer, not a hardened HTML sanitizer;
// malformed or deeply nested markup can survive partial stripping.
func sanitizeContent(content string) string {
	out := scriptBlockRe.ReplaceAllString(content, "")
	out = styleBlockRe.ReplaceAllString(out, "")
	out = htmlTagRe.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
