// Package frontmatter splits `---` delimited front matter from a markdown body and
// parses the site's `key: value` post metadata format.
package frontmatter

import (
	"bytes"
	"errors"
)

// Delimiter opens and closes a front matter block.
const Delimiter = "---"

// ErrMissingClosingDelimiter indicates the document started with a front matter
// delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// Split separates front matter (`---` delimited) from the Markdown body.
//
// If the document does not start with a delimiter line, had is false and body is
// the full input. The returned front matter excludes both delimiter lines.
func Split(content []byte) (frontmatter []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte(Delimiter + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	frontmatterStart := len(open)
	rest := content[frontmatterStart:]
	closeLine := []byte(Delimiter + nl)
	if bytes.HasPrefix(rest, closeLine) {
		return []byte{}, rest[len(closeLine):], true, nil
	}
	if bytes.Equal(rest, []byte(Delimiter)) {
		return []byte{}, []byte{}, true, nil
	}

	closeSeq := []byte(nl + Delimiter + nl)
	idx := bytes.Index(rest, closeSeq)
	if idx < 0 {
		// Closing delimiter as the very last line without a trailing newline.
		tail := []byte(nl + Delimiter)
		if bytes.HasSuffix(rest, tail) {
			end := len(rest) - len(tail)
			return rest[:end+len(nl)], []byte{}, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}

	frontmatterEnd := idx + len(nl)
	bodyStart := idx + len(closeSeq)
	return rest[:frontmatterEnd], rest[bodyStart:], true, nil
}

// detectNewline reports the line ending of the first line.
func detectNewline(content []byte) string {
	for i := 0; i+1 < len(content); i++ {
		if content[i] == '\r' && content[i+1] == '\n' {
			return "\r\n"
		}
		if content[i] == '\n' {
			break
		}
	}
	return "\n"
}
