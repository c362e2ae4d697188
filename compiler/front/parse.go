package front

import (
	"context"
	"os"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/sysdialect/sysir/compiler/ir"
	"github.com/sysdialect/sysir/compiler/value"
)

type (
	// Parser reads an assembly unit in the surface syntax:
	//
	//	{:link-name "add2"
	//	 :parameter-count 2
	//	 :instructions
	//	 [(prim 0 s32)
	//	  (bind 0 0) (bind 1 0) (bind 2 0)
	//	  (add 2 0 1)
	//	  (return 2)]}
	//
	// Tuples remember the line and column of their opening paren.
	Parser struct {
		b []byte
		i int

		line int
		col  int
	}

	// Unit is one parsed assembly listing: the table fields plus the raw
	// forms, kept for formatting.
	Unit struct {
		Source ir.Source
		Keys   []value.Keyword
	}
)

func ParseFile(ctx context.Context, name string) (*Unit, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}

	return Parse(ctx, name, data)
}

// Parse reads a single top-level table form.
func Parse(ctx context.Context, name string, b []byte) (u *Unit, err error) {
	tr := tlog.SpanFromContext(ctx)

	p := &Parser{b: b, line: 1, col: 1}

	u, err = p.unit()
	if err != nil {
		return nil, errors.Wrap(err, "%v:%d:%d", name, p.line, p.col)
	}

	p.spaces()

	if p.i != len(p.b) {
		return nil, errors.New("%v:%d:%d: unexpected trailing input", name, p.line, p.col)
	}

	tr.Printw("parsed unit", "name", name, "link_name", u.Source.LinkName, "records", len(u.Source.Instructions))

	return u, nil
}

func (p *Parser) unit() (*Unit, error) {
	x, err := p.form()
	if err != nil {
		return nil, err
	}

	tab, ok := x.(table)
	if !ok {
		return nil, errors.New("expected table, got %v", value.Format(x))
	}

	u := &Unit{}

	for _, kv := range tab {
		u.Keys = append(u.Keys, kv.Key)

		switch kv.Key {
		case "link-name":
			s, ok := kv.Val.(string)
			if !ok {
				return nil, errors.New("link-name: expected string, got %v", value.Format(kv.Val))
			}

			u.Source.LinkName = s
		case "parameter-count":
			n, ok := value.Uint(kv.Val)
			if !ok {
				return nil, errors.New("parameter-count: expected non-negative integer, got %v", value.Format(kv.Val))
			}

			u.Source.ParameterCount = int(n)
		case "instructions":
			q, ok := kv.Val.(array)
			if !ok {
				return nil, errors.New("instructions: expected array, got %v", value.Format(kv.Val))
			}

			u.Source.Instructions = q
		default:
			return nil, errors.New("unknown key :%v", kv.Key)
		}
	}

	return u, nil
}

type (
	array []any

	tableKV struct {
		Key value.Keyword
		Val any
	}

	table []tableKV
)

func (p *Parser) form() (any, error) {
	p.spaces()

	if p.i == len(p.b) {
		return nil, errors.New("unexpected end of input")
	}

	switch c := p.b[p.i]; {
	case c == '(':
		return p.tuple()
	case c == '[':
		return p.array()
	case c == '{':
		return p.table()
	case c == ':':
		return p.keyword()
	case c == '"':
		return p.string()
	case c == '-' || c >= '0' && c <= '9':
		return p.number()
	default:
		return p.symbol()
	}
}

func (p *Parser) tuple() (value.Tuple, error) {
	t := value.Tuple{Line: p.line, Column: p.col}

	p.next() // (

	for {
		p.spaces()

		if p.i == len(p.b) {
			return t, errors.New("unterminated tuple")
		}

		if p.b[p.i] == ')' {
			p.next()
			return t, nil
		}

		x, err := p.form()
		if err != nil {
			return t, err
		}

		t.Items = append(t.Items, x)
	}
}

func (p *Parser) array() (array, error) {
	var q array

	p.next() // [

	for {
		p.spaces()

		if p.i == len(p.b) {
			return nil, errors.New("unterminated array")
		}

		if p.b[p.i] == ']' {
			p.next()
			return q, nil
		}

		x, err := p.form()
		if err != nil {
			return nil, err
		}

		q = append(q, x)
	}
}

func (p *Parser) table() (table, error) {
	var t table

	p.next() // {

	for {
		p.spaces()

		if p.i == len(p.b) {
			return nil, errors.New("unterminated table")
		}

		if p.b[p.i] == '}' {
			p.next()
			return t, nil
		}

		k, err := p.form()
		if err != nil {
			return nil, err
		}

		kw, ok := k.(value.Keyword)
		if !ok {
			return nil, errors.New("expected keyword table key, got %v", value.Format(k))
		}

		v, err := p.form()
		if err != nil {
			return nil, err
		}

		t = append(t, tableKV{Key: kw, Val: v})
	}
}

func (p *Parser) keyword() (value.Keyword, error) {
	p.next() // :

	st := p.i
	p.skipWord()

	if p.i == st {
		return "", errors.New("empty keyword")
	}

	return value.Keyword(p.b[st:p.i]), nil
}

func (p *Parser) string() (string, error) {
	st := p.i

	p.next() // "

	for p.i < len(p.b) {
		switch p.b[p.i] {
		case '\\':
			p.next()
			p.next()
			continue
		case '"':
			p.next()

			s, err := strconv.Unquote(string(p.b[st:p.i]))
			if err != nil {
				return "", errors.New("bad string literal: %v", err)
			}

			return s, nil
		}

		p.next()
	}

	return "", errors.New("unterminated string")
}

func (p *Parser) number() (any, error) {
	st := p.i

	if p.b[p.i] == '-' {
		p.next()
	}

	for p.i < len(p.b) {
		switch c := p.b[p.i]; {
		case c >= '0' && c <= '9' || c == '.' || c == 'e' || c == 'E' || c == 'x' ||
			c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' || c == '+' || c == '-':
			p.next()
			continue
		}

		break
	}

	text := string(p.b[st:p.i])

	if n, err := strconv.ParseInt(text, 0, 64); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, errors.New("bad number %q", text)
	}

	return f, nil
}

func (p *Parser) symbol() (any, error) {
	st := p.i
	p.skipWord()

	if p.i == st {
		return nil, errors.New("unsupported input: %q", p.b[p.i])
	}

	switch s := string(p.b[st:p.i]); s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return value.Symbol(s), nil
	}
}

func (p *Parser) skipWord() {
	for p.i < len(p.b) {
		switch c := p.b[p.i]; {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9',
			c == '-' || c == '_' || c == '*' || c == '/' || c == '!' || c == '?' || c == '.':
			p.next()
			continue
		}

		break
	}
}

func (p *Parser) spaces() {
	for p.i < len(p.b) {
		switch p.b[p.i] {
		case ' ', '\t', '\r', '\n', ',':
			p.next()
			continue
		case '#':
			for p.i < len(p.b) && p.b[p.i] != '\n' {
				p.next()
			}

			continue
		}

		break
	}
}

func (p *Parser) next() {
	if p.i == len(p.b) {
		return
	}

	if p.b[p.i] == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}

	p.i++
}
