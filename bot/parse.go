package bot

import "strings"

// sanitize strips the command prefix from the front of txt, repeatedly, so ";;;foo"
// and ";foo" both reduce to "foo".
func sanitize(prefix, txt string) string {
	for strings.HasPrefix(txt, prefix) {
		txt = txt[len(prefix):]
	}
	return txt
}

// ParseCommand splits raw text into a keyword and the remaining body. The keyword is
// the first whitespace-delimited token after prefix stripping; the body is everything
// after the keyword's first occurrence in the stripped text, itself prefix-stripped.
//
// The split point is the first occurrence of the keyword as a substring, not its token
// position, and the whitespace between keyword and body is kept in the body. Both
// quirks are load-bearing: register applies this function a second time to its own
// body, and relayed text must come out byte-for-byte the same as it always has.
func ParseCommand(prefix, raw string) (keyword, body string, ok bool) {
	text := sanitize(prefix, raw)
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", "", false
	}
	keyword = fields[0]
	i := strings.Index(text, keyword)
	if i < 0 {
		return "", "", false
	}
	body = sanitize(prefix, text[i+len(keyword):])
	return keyword, body, true
}
