package querydoc

import (
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// sexpr is a parsed scalar expression: an atom or a parenthesized list.
// Quoted string atoms keep their surrounding quotes so the builder can tell
// 'abc' from a bare word.
type sexpr struct {
	atom   string
	list   []sexpr
	isList bool
	pos    int
}

func (s sexpr) String() string {
	if !s.isList {
		return s.atom
	}
	parts := make([]string, len(s.list))
	for i, e := range s.list {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// head returns the operator word of a list, lower-cased.
func (s sexpr) head() string {
	if !s.isList || len(s.list) == 0 || s.list[0].isList {
		return ""
	}
	return strings.ToLower(s.list[0].atom)
}

// args returns the operands of a list.
func (s sexpr) args() []sexpr {
	if !s.isList || len(s.list) == 0 {
		return nil
	}
	return s.list[1:]
}

// parseSexpr parses exactly one expression from src.
func parseSexpr(src string) (sexpr, error) {
	p := &sexprParser{src: src}
	e, err := p.parse()
	if err != nil {
		return sexpr{}, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return sexpr{}, errors.Newf("%q: unexpected %q at offset %d", src, p.src[p.pos:], p.pos)
	}
	return e, nil
}

type sexprParser struct {
	src string
	pos int
}

func (p *sexprParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *sexprParser) parse() (sexpr, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return sexpr{}, errors.Newf("%q: unexpected end of expression", p.src)
	}
	start := p.pos
	switch p.src[p.pos] {
	case '(':
		p.pos++
		out := sexpr{isList: true, pos: start}
		for {
			p.skipSpace()
			if p.pos >= len(p.src) {
				return sexpr{}, errors.Newf("%q: unclosed ( at offset %d", p.src, start)
			}
			if p.src[p.pos] == ')' {
				p.pos++
				return out, nil
			}
			e, err := p.parse()
			if err != nil {
				return sexpr{}, err
			}
			out.list = append(out.list, e)
		}

	case ')':
		return sexpr{}, errors.Newf("%q: unexpected ) at offset %d", p.src, start)

	case '\'':
		p.pos++
		for p.pos < len(p.src) {
			if p.src[p.pos] == '\'' {
				if p.pos+1 < len(p.src) && p.src[p.pos+1] == '\'' {
					p.pos += 2
					continue
				}
				p.pos++
				return sexpr{atom: p.src[start:p.pos], pos: start}, nil
			}
			p.pos++
		}
		return sexpr{}, errors.Newf("%q: unterminated string at offset %d", p.src, start)
	}

	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '(' || c == ')' || unicode.IsSpace(rune(c)) {
			break
		}
		p.pos++
	}
	return sexpr{atom: p.src[start:p.pos], pos: start}, nil
}

// unquote returns the contents of a quoted string atom.
func unquote(atom string) (string, bool) {
	if len(atom) < 2 || atom[0] != '\'' || atom[len(atom)-1] != '\'' {
		return "", false
	}
	return strings.ReplaceAll(atom[1:len(atom)-1], "''", "'"), true
}
