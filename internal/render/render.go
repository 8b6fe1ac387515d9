package render

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// DefaultPlaceholder is rendered for fields missing from the context
const DefaultPlaceholder = "N/A"

// Renderer executes templates with a configured placeholder for missing
// fields
type Renderer struct {
	Default string
}

// New creates a Renderer. An empty placeholder falls back to
// DefaultPlaceholder.
func New(placeholder string) *Renderer {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return &Renderer{Default: placeholder}
}

// Render parses and executes tmpl against ctx
func (r *Renderer) Render(tmpl string, ctx map[string]any) (string, error) {
	t, err := Parse(tmpl)
	if err != nil {
		return "", err
	}
	return r.Execute(t, ctx), nil
}

// Execute runs a parsed template. Execution cannot fail: missing fields
// render the placeholder, missing sequences render nothing.
func (r *Renderer) Execute(t *Template, ctx map[string]any) string {
	var sb strings.Builder
	s := &scope{vars: []map[string]any{ctx}}
	r.exec(&sb, t.nodes, s)
	return sb.String()
}

// LoadTemplate reads and parses a template file
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &RenderError{Msg: "cannot read " + path, Err: err}
	}
	return Parse(string(data))
}

type scope struct {
	vars []map[string]any
}

func (s *scope) push(m map[string]any) { s.vars = append(s.vars, m) }
func (s *scope) pop()                  { s.vars = s.vars[:len(s.vars)-1] }

func (s *scope) lookup(p path) (any, bool) {
	first := p[0].key
	for i := len(s.vars) - 1; i >= 0; i-- {
		if v, ok := s.vars[i][first]; ok {
			return resolve(v, p[1:])
		}
	}
	return nil, false
}

func (r *Renderer) exec(sb *strings.Builder, nodes []node, s *scope) {
	for _, n := range nodes {
		switch n := n.(type) {
		case textNode:
			sb.WriteString(n.text)
		case varNode:
			sb.WriteString(r.renderVar(n, s))
		case ifNode:
			v, ok := s.lookup(n.cond)
			if truthy(v, ok) != n.negate {
				r.exec(sb, n.then, s)
			} else {
				r.exec(sb, n.els, s)
			}
		case forNode:
			v, ok := s.lookup(n.seq)
			if !ok {
				continue
			}
			items := sequence(v)
			for i, item := range items {
				s.push(map[string]any{
					n.name: item,
					"loop": map[string]any{
						"index": i + 1,
						"first": i == 0,
						"last":  i == len(items)-1,
					},
				})
				r.exec(sb, n.body, s)
				s.pop()
			}
		}
	}
}

func (r *Renderer) renderVar(n varNode, s *scope) string {
	v, ok := s.lookup(n.path)
	present := ok && v != nil

	out := ""
	if present {
		out = format(v)
	}
	for _, f := range n.filters {
		switch f.name {
		case "default":
			if !present || out == "" {
				out, present = f.arg, true
			}
		case "upper":
			out = strings.ToUpper(out)
		case "lower":
			out = strings.ToLower(out)
		case "join":
			if present {
				sep := f.arg
				if sep == "" {
					sep = ", "
				}
				out = joinSeq(v, sep)
			}
		}
	}
	if !present {
		return r.Default
	}
	return out
}

// resolve walks the remaining path segments through maps and sequences
func resolve(v any, p path) (any, bool) {
	for _, seg := range p {
		rv := reflect.ValueOf(v)
		for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
			if rv.IsNil() {
				return nil, false
			}
			rv = rv.Elem()
		}

		switch {
		case seg.isIdx:
			if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				return nil, false
			}
			if seg.index >= rv.Len() {
				return nil, false
			}
			v = rv.Index(seg.index).Interface()
		case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
			e := rv.MapIndex(reflect.ValueOf(seg.key).Convert(rv.Type().Key()))
			if !e.IsValid() {
				return nil, false
			}
			v = e.Interface()
		default:
			return nil, false
		}
	}
	return v, true
}

func truthy(v any, ok bool) bool {
	if !ok || v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func sequence(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}

func format(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.Format("2006-01-02 15:04:05 MST")
	case fmt.Stringer:
		return val.String()
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	if items := sequence(v); items != nil {
		return joinSeq(v, ", ")
	}
	return fmt.Sprint(v)
}

func joinSeq(v any, sep string) string {
	items := sequence(v)
	if items == nil {
		return format(v)
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = format(item)
	}
	return strings.Join(parts, sep)
}
