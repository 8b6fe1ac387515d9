// Package render fills notification templates from a report context.
//
// The syntax is a small subset of the Jinja style used by the mail templates
// the operations team already maintains:
//
//	{{ path }}                      substitution
//	{{ path | default('none') }}    substitution with a per-site default
//	{% if path %}...{% else %}...{% endif %}
//	{% for item in path %}...{% endfor %}
//
// Paths are dotted and may index sequences (non_compliant_apps[0].reasons).
// A block tag directly followed by a newline swallows that newline, so tags
// can sit on their own lines without leaving blank lines behind.
package render

import (
	"fmt"
	"strconv"
	"strings"
)

// RenderError reports a template that cannot be parsed or loaded
type RenderError struct {
	Line int
	Msg  string
	Err  error
}

func (e *RenderError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("template line %d: %s", e.Line, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("template: %s: %v", e.Msg, e.Err)
	}
	return "template: " + e.Msg
}

func (e *RenderError) Unwrap() error { return e.Err }

// segment is one step of a path: a map key or a sequence index
type segment struct {
	key   string
	index int
	isIdx bool
}

type path []segment

func (p path) String() string {
	var sb strings.Builder
	for i, s := range p {
		if s.isIdx {
			sb.WriteString("[" + strconv.Itoa(s.index) + "]")
			continue
		}
		if i > 0 {
			sb.WriteString(".")
		}
		sb.WriteString(s.key)
	}
	return sb.String()
}

type filter struct {
	name string
	arg  string
}

type node interface{}

type textNode struct{ text string }

type varNode struct {
	path    path
	filters []filter
}

type ifNode struct {
	negate bool
	cond   path
	then   []node
	els    []node
}

type forNode struct {
	name string
	seq  path
	body []node
}

// Template is a parsed template ready for execution
type Template struct {
	nodes []node
}

type token struct {
	kind string // "text", "var", "tag"
	body string
	line int
}

// Parse compiles a template source
func Parse(src string) (*Template, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	nodes, stop, err := p.parseUntil()
	if err != nil {
		return nil, err
	}
	if stop != nil {
		return nil, &RenderError{Line: stop.line, Msg: fmt.Sprintf("unexpected {%% %s %%}", stop.body)}
	}
	return &Template{nodes: nodes}, nil
}

func lex(src string) ([]token, error) {
	var tokens []token
	line := 1
	for len(src) > 0 {
		start := nextOpen(src)
		if start < 0 {
			tokens = append(tokens, token{kind: "text", body: src, line: line})
			break
		}
		if start > 0 {
			tokens = append(tokens, token{kind: "text", body: src[:start], line: line})
			line += strings.Count(src[:start], "\n")
			src = src[start:]
		}

		closer, kind := "}}", "var"
		if strings.HasPrefix(src, "{%") {
			closer, kind = "%}", "tag"
		}
		end := strings.Index(src[2:], closer)
		if end < 0 {
			return nil, &RenderError{Line: line, Msg: "unterminated " + src[:2]}
		}
		body := strings.TrimSpace(src[2 : 2+end])
		if body == "" {
			return nil, &RenderError{Line: line, Msg: "empty " + src[:2] + " " + closer}
		}
		tokens = append(tokens, token{kind: kind, body: body, line: line})
		consumed := src[:2+end+2]
		line += strings.Count(consumed, "\n")
		src = src[len(consumed):]

		if kind == "tag" && strings.HasPrefix(src, "\n") {
			src = src[1:]
			line++
		} else if kind == "tag" && strings.HasPrefix(src, "\r\n") {
			src = src[2:]
			line++
		}
	}
	return tokens, nil
}

func nextOpen(src string) int {
	v := strings.Index(src, "{{")
	t := strings.Index(src, "{%")
	switch {
	case v < 0:
		return t
	case t < 0:
		return v
	case v < t:
		return v
	default:
		return t
	}
}

type parser struct {
	tokens []token
	pos    int
}

// parseUntil parses nodes until a closing tag (else/endif/endfor) or the end
// of input. The closing tag, if any, is returned unconsumed by the caller's
// block.
func (p *parser) parseUntil() ([]node, *token, error) {
	var nodes []node
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++

		switch tok.kind {
		case "text":
			nodes = append(nodes, textNode{text: tok.body})
		case "var":
			n, err := parseVar(tok)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, n)
		case "tag":
			fields := strings.Fields(tok.body)
			switch fields[0] {
			case "if":
				n, err := p.parseIf(tok, fields)
				if err != nil {
					return nil, nil, err
				}
				nodes = append(nodes, n)
			case "for":
				n, err := p.parseFor(tok, fields)
				if err != nil {
					return nil, nil, err
				}
				nodes = append(nodes, n)
			case "else", "endif", "endfor":
				if len(fields) != 1 {
					return nil, nil, &RenderError{Line: tok.line, Msg: fmt.Sprintf("%s takes no arguments", fields[0])}
				}
				t := tok
				return nodes, &t, nil
			default:
				return nil, nil, &RenderError{Line: tok.line, Msg: fmt.Sprintf("unknown tag %q", fields[0])}
			}
		}
	}
	return nodes, nil, nil
}

func (p *parser) parseIf(tok token, fields []string) (node, error) {
	n := ifNode{}
	args := fields[1:]
	if len(args) == 2 && args[0] == "not" {
		n.negate = true
		args = args[1:]
	}
	if len(args) != 1 {
		return nil, &RenderError{Line: tok.line, Msg: "if expects a single path"}
	}
	cond, err := parsePath(args[0])
	if err != nil {
		return nil, &RenderError{Line: tok.line, Msg: err.Error()}
	}
	n.cond = cond

	body, stop, err := p.parseUntil()
	if err != nil {
		return nil, err
	}
	n.then = body
	if stop != nil && stop.body == "else" {
		body, stop, err = p.parseUntil()
		if err != nil {
			return nil, err
		}
		n.els = body
	}
	if stop == nil || stop.body != "endif" {
		return nil, &RenderError{Line: tok.line, Msg: "if without matching endif"}
	}
	return n, nil
}

func (p *parser) parseFor(tok token, fields []string) (node, error) {
	if len(fields) != 4 || fields[2] != "in" {
		return nil, &RenderError{Line: tok.line, Msg: "for expects: for <name> in <path>"}
	}
	name := fields[1]
	if strings.ContainsAny(name, ".[]") {
		return nil, &RenderError{Line: tok.line, Msg: fmt.Sprintf("invalid loop variable %q", name)}
	}
	seq, err := parsePath(fields[3])
	if err != nil {
		return nil, &RenderError{Line: tok.line, Msg: err.Error()}
	}

	body, stop, err := p.parseUntil()
	if err != nil {
		return nil, err
	}
	if stop == nil || stop.body != "endfor" {
		return nil, &RenderError{Line: tok.line, Msg: "for without matching endfor"}
	}
	return forNode{name: name, seq: seq, body: body}, nil
}

func parseVar(tok token) (node, error) {
	parts := splitPipes(tok.body)
	pth, err := parsePath(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, &RenderError{Line: tok.line, Msg: err.Error()}
	}
	n := varNode{path: pth}
	for _, raw := range parts[1:] {
		f, err := parseFilter(strings.TrimSpace(raw))
		if err != nil {
			return nil, &RenderError{Line: tok.line, Msg: err.Error()}
		}
		n.filters = append(n.filters, f)
	}
	return n, nil
}

// splitPipes splits an expression on | characters outside quoted filter
// arguments
func splitPipes(s string) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '|':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

var knownFilters = map[string]bool{
	"default": true,
	"upper":   true,
	"lower":   true,
	"join":    true,
}

// parseFilter reads name or name('arg')
func parseFilter(s string) (filter, error) {
	name, rest, hasArg := strings.Cut(s, "(")
	name = strings.TrimSpace(name)
	if !knownFilters[name] {
		return filter{}, fmt.Errorf("unknown filter %q", name)
	}
	if !hasArg {
		return filter{name: name}, nil
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasSuffix(rest, ")") {
		return filter{}, fmt.Errorf("filter %s: missing )", name)
	}
	arg := strings.TrimSpace(strings.TrimSuffix(rest, ")"))
	if len(arg) < 2 || (arg[0] != '\'' && arg[0] != '"') || arg[len(arg)-1] != arg[0] {
		return filter{}, fmt.Errorf("filter %s: argument must be a quoted string", name)
	}
	return filter{name: name, arg: arg[1 : len(arg)-1]}, nil
}

// parsePath reads a.b[0].c
func parsePath(s string) (path, error) {
	if s == "" {
		return nil, fmt.Errorf("empty path")
	}
	var p path
	for _, part := range strings.Split(s, ".") {
		key := part
		var idxs []int
		if i := strings.IndexByte(part, '['); i >= 0 {
			key = part[:i]
			rest := part[i:]
			for rest != "" {
				if rest[0] != '[' {
					return nil, fmt.Errorf("invalid path %q", s)
				}
				end := strings.IndexByte(rest, ']')
				if end < 0 {
					return nil, fmt.Errorf("invalid path %q", s)
				}
				n, err := strconv.Atoi(rest[1:end])
				if err != nil || n < 0 {
					return nil, fmt.Errorf("invalid index in path %q", s)
				}
				idxs = append(idxs, n)
				rest = rest[end+1:]
			}
		}
		if key == "" {
			return nil, fmt.Errorf("invalid path %q", s)
		}
		p = append(p, segment{key: key})
		for _, n := range idxs {
			p = append(p, segment{index: n, isIdx: true})
		}
	}
	return p, nil
}
