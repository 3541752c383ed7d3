package research

import (
	"strings"
)

// Lead is one unit of the streaming discovery format: a single text line
// of the form "name | url".
type Lead struct {
	Name    string
	Website string
}

// LineParser incrementally splits a text stream into leads. Chunks may
// break anywhere, including mid-line; a partial trailing line is buffered
// until the next Feed or the final Flush. Lines without the delimiter or
// without a http(s) URL are discarded.
type LineParser struct {
	buf strings.Builder
}

// Feed consumes the next chunk and returns every lead whose line completed
// within it.
func (p *LineParser) Feed(chunk string) []Lead {
	var leads []Lead
	for {
		i := strings.IndexByte(chunk, '\n')
		if i < 0 {
			p.buf.WriteString(chunk)
			return leads
		}
		p.buf.WriteString(chunk[:i])
		line := p.buf.String()
		p.buf.Reset()
		chunk = chunk[i+1:]

		if lead, ok := ParseLeadLine(line); ok {
			leads = append(leads, lead)
		}
	}
}

// Flush parses whatever partial line remains after the stream ends.
// Returns nil when the remainder is empty or malformed.
func (p *LineParser) Flush() *Lead {
	line := p.buf.String()
	p.buf.Reset()

	lead, ok := ParseLeadLine(line)
	if !ok {
		return nil
	}
	return &lead
}

// ParseLeadLine parses a "name | url" line. The name must be non-empty and
// the URL must carry an explicit http:// or https:// prefix.
func ParseLeadLine(line string) (Lead, bool) {
	name, rawURL, ok := strings.Cut(line, "|")
	if !ok {
		return Lead{}, false
	}

	name = strings.TrimSpace(name)
	rawURL = strings.TrimSpace(rawURL)
	if name == "" {
		return Lead{}, false
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return Lead{}, false
	}

	return Lead{Name: name, Website: rawURL}, true
}
