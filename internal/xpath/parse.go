package xpath

import (
	"fmt"
	"strings"

	"github.com/openautomata/windrive/internal/tree"
)

// Expr is a parsed structural path.
type Expr struct {
	// Anywhere anchors the first segment at any depth ("//" prefix)
	// instead of at the root's children ("/" prefix).
	Anywhere bool
	Segments []Segment
}

// Parse parses a structural path expression into ordered segments.
func Parse(input string) (*Expr, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, fmt.Errorf("parse xpath: empty expression")
	}

	expr := &Expr{}
	switch {
	case strings.HasPrefix(s, "//"):
		expr.Anywhere = true
		s = s[2:]
	case strings.HasPrefix(s, "/"):
		s = s[1:]
	default:
		return nil, fmt.Errorf("parse xpath: expression must start with %q or %q", "/", "//")
	}

	p := &parser{input: s}
	for {
		seg, err := p.segment()
		if err != nil {
			return nil, err
		}
		expr.Segments = append(expr.Segments, seg)
		if p.eof() {
			break
		}
		if !p.consume('/') {
			return nil, fmt.Errorf("parse xpath: unexpected %q at offset %d", p.peek(), p.pos)
		}
		if p.eof() {
			return nil, fmt.Errorf("parse xpath: trailing separator")
		}
	}
	return expr, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) eof() bool { return p.pos >= len(p.input) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) consume(c byte) bool {
	if !p.eof() && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

// segment parses ControlType ( "[@Key=\"value\"]" | "[n]" )*.
func (p *parser) segment() (Segment, error) {
	start := p.pos
	for !p.eof() && isAlpha(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return Segment{}, fmt.Errorf("parse xpath: expected control type at offset %d", p.pos)
	}
	seg := Segment{Type: tree.ControlType(p.input[start:p.pos])}

	for p.peek() == '[' {
		if err := p.predicate(&seg); err != nil {
			return Segment{}, err
		}
	}
	return seg, nil
}

func (p *parser) predicate(seg *Segment) error {
	p.pos++ // '['
	switch {
	case p.peek() == '@':
		p.pos++
		keyStart := p.pos
		for !p.eof() && isAlpha(p.input[p.pos]) {
			p.pos++
		}
		key := p.input[keyStart:p.pos]
		if key == "" {
			return fmt.Errorf("parse xpath: empty attribute name at offset %d", p.pos)
		}
		if !p.consume('=') {
			return fmt.Errorf("parse xpath: expected '=' after @%s", key)
		}
		value, err := p.quoted()
		if err != nil {
			return err
		}
		if key == "Name" {
			seg.Name = value
			seg.HasName = true
		} else {
			if seg.Attrs == nil {
				seg.Attrs = make(map[string]string)
			}
			seg.Attrs[key] = value
		}
	case isDigit(p.peek()):
		n := 0
		for isDigit(p.peek()) {
			n = n*10 + int(p.input[p.pos]-'0')
			p.pos++
		}
		if n < 1 {
			return fmt.Errorf("parse xpath: ordinal must be 1-based")
		}
		seg.Ordinal = n
	default:
		return fmt.Errorf("parse xpath: malformed predicate at offset %d", p.pos)
	}
	if !p.consume(']') {
		return fmt.Errorf("parse xpath: unterminated predicate at offset %d", p.pos)
	}
	return nil
}

// quoted parses a double-quoted value with backslash escapes. The original
// bindings shipped paths with pre-escaped quotes (\"), so both a bare '"'
// and the escaped form open a value.
func (p *parser) quoted() (string, error) {
	if p.peek() == '\\' && p.pos+1 < len(p.input) && p.input[p.pos+1] == '"' {
		p.pos++
	}
	if !p.consume('"') {
		return "", fmt.Errorf("parse xpath: expected quoted value at offset %d", p.pos)
	}
	var b strings.Builder
	for !p.eof() {
		c := p.input[p.pos]
		switch c {
		case '"':
			p.pos++
			return b.String(), nil
		case '\\':
			if p.pos+1 >= len(p.input) {
				return "", fmt.Errorf("parse xpath: dangling escape")
			}
			next := p.input[p.pos+1]
			if next == '"' {
				// Either an escaped quote inside the value or the
				// pre-escaped closing quote. A following ']' or
				// '=' boundary means the value ended.
				if p.pos+2 >= len(p.input) || p.input[p.pos+2] == ']' {
					p.pos += 2
					return b.String(), nil
				}
				b.WriteByte('"')
				p.pos += 2
				continue
			}
			if next == '\\' {
				b.WriteByte('\\')
				p.pos += 2
				continue
			}
			b.WriteByte(c)
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("parse xpath: unterminated quoted value")
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
