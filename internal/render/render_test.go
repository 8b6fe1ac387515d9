package render

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitution(t *testing.T) {
	r := New("")
	out, err := r.Render("App {{ app_code }} has {{ total }} findings", map[string]any{
		"app_code": "ATU0",
		"total":    3,
	})
	require.NoError(t, err)
	assert.Equal(t, "App ATU0 has 3 findings", out)
}

func TestRenderMissingFieldUsesPlaceholder(t *testing.T) {
	out, err := New("").Render("value: {{missing_field}}", map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, out, DefaultPlaceholder)

	out, err = New("-").Render("{{ a.b.c }}", map[string]any{"a": map[string]any{"b": 1}})
	require.NoError(t, err)
	assert.Equal(t, "-", out)
}

func TestRenderNilValueUsesPlaceholder(t *testing.T) {
	out, err := New("").Render("{{ x }}", map[string]any{"x": nil})
	require.NoError(t, err)
	assert.Equal(t, "N/A", out)
}

func TestRenderFilters(t *testing.T) {
	ctx := map[string]any{
		"empty": "",
		"name":  "Atu0",
		"list":  []string{"a", "b", "c"},
	}
	tests := []struct {
		tmpl string
		want string
	}{
		{"{{ nope | default('none') }}", "none"},
		{"{{ empty | default(\"blank\") }}", "blank"},
		{"{{ name | default('x') }}", "Atu0"},
		{"{{ name | upper }}", "ATU0"},
		{"{{ name | lower }}", "atu0"},
		{"{{ list | join(' / ') }}", "a / b / c"},
		{"{{ list }}", "a, b, c"},
		{"{{ nope | upper }}", "N/A"},
		{"{{ nope | default('a|b') }}", "a|b"},
		{"{{ list | join(\" | \") | upper }}", "A | B | C"},
	}
	r := New("")
	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			out, err := r.Render(tt.tmpl, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRenderConditionals(t *testing.T) {
	tmpl := "{% if count %}has {{ count }}{% else %}none{% endif %}"
	r := New("")

	out, err := r.Render(tmpl, map[string]any{"count": 2})
	require.NoError(t, err)
	assert.Equal(t, "has 2", out)

	out, err = r.Render(tmpl, map[string]any{"count": 0})
	require.NoError(t, err)
	assert.Equal(t, "none", out)

	out, err = r.Render(tmpl, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "none", out)

	out, err = r.Render("{% if not ok %}bad{% endif %}", map[string]any{"ok": false})
	require.NoError(t, err)
	assert.Equal(t, "bad", out)
}

func TestTruthy(t *testing.T) {
	assert.True(t, truthy(1, true))
	assert.True(t, truthy(0.5, true))
	assert.True(t, truthy("x", true))
	assert.True(t, truthy([]int{1}, true))
	assert.True(t, truthy(true, true))
	assert.False(t, truthy(0, true))
	assert.False(t, truthy("", true))
	assert.False(t, truthy([]string{}, true))
	assert.False(t, truthy(map[string]any{}, true))
	assert.False(t, truthy(false, true))
	assert.False(t, truthy(nil, true))
	assert.False(t, truthy(1, false))
}

func TestRenderLoop(t *testing.T) {
	tmpl := "{% for issue in issues %}\n{{ loop.index }}. {{ issue.type }} ({{ issue.severity }}){% if not loop.last %}, {% endif %}{% endfor %}\n"
	ctx := map[string]any{
		"issues": []map[string]any{
			{"type": "CVE", "severity": "high"},
			{"type": "TSS", "severity": "critical"},
		},
	}
	out, err := New("").Render(tmpl, ctx)
	require.NoError(t, err)
	assert.Equal(t, "1. CVE (high), 2. TSS (critical)", out)
}

func TestRenderLoopOverMissingSequence(t *testing.T) {
	out, err := New("").Render("[{% for x in nothing %}{{ x }}{% endfor %}]", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestRenderLoopVariableShadowsOuterScope(t *testing.T) {
	out, err := New("").Render("{% for x in xs %}{{ x }}{% endfor %}{{ x }}", map[string]any{
		"x":  "outer",
		"xs": []any{"1", "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "12outer", out)
}

func TestRenderIndexedPath(t *testing.T) {
	ctx := map[string]any{
		"non_compliant_apps": []map[string]any{
			{"app_code": "ATU0", "reasons": []string{"Has 1 critical findings (threshold: 0)"}},
		},
	}
	out, err := New("").Render("{{ non_compliant_apps[0].app_code }}: {{ non_compliant_apps[0].reasons[0] }}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "ATU0: Has 1 critical findings (threshold: 0)", out)

	out, err = New("").Render("{{ non_compliant_apps[3].app_code }}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "N/A", out)
}

func TestRenderBlockTagsSwallowNewline(t *testing.T) {
	tmpl := "start\n{% if on %}\nline\n{% endif %}\nend\n"
	out, err := New("").Render(tmpl, map[string]any{"on": true})
	require.NoError(t, err)
	assert.Equal(t, "start\nline\nend\n", out)
}

func TestRenderFormatting(t *testing.T) {
	at := time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)
	out, err := New("").Render("{{ f }} {{ g }} {{ at }}", map[string]any{
		"f":  float64(12),
		"g":  1.5,
		"at": at,
	})
	require.NoError(t, err)
	assert.Equal(t, "12 1.5 2024-05-08 12:00:00 UTC", out)
}

func TestRenderIsDeterministic(t *testing.T) {
	ctx := map[string]any{"a": 1, "b": []string{"x", "y"}}
	tmpl := "{{ a }}{% for v in b %}{{ v }}{% endfor %}"
	r := New("")
	first, err := r.Render(tmpl, ctx)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := r.Render(tmpl, ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		msg  string
	}{
		{"unterminated var", "hello {{ name", "unterminated"},
		{"unterminated tag", "{% if x", "unterminated"},
		{"empty var", "{{ }}", "empty"},
		{"unknown tag", "{% while x %}", "unknown tag"},
		{"if without endif", "{% if x %}body", "endif"},
		{"for without endfor", "{% for x in y %}body", "endfor"},
		{"stray endif", "body{% endif %}", "unexpected"},
		{"bad for", "{% for x y %}{% endfor %}", "for expects"},
		{"unknown filter", "{{ x | shout }}", "unknown filter"},
		{"unquoted filter arg", "{{ x | default(none) }}", "quoted"},
		{"bad index", "{{ x[a] }}", "invalid index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.tmpl)
			require.Error(t, err)
			var rerr *RenderError
			require.True(t, errors.As(err, &rerr))
			assert.Contains(t, rerr.Error(), tt.msg)
		})
	}
}

func TestParseErrorReportsLine(t *testing.T) {
	_, err := Parse("one\ntwo\n{% bogus %}")
	var rerr *RenderError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, 3, rerr.Line)
}

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "body.tmpl")
	require.NoError(t, os.WriteFile(p, []byte("Hi {{ who }}"), 0o600))

	tmpl, err := LoadTemplate(p)
	require.NoError(t, err)
	assert.Equal(t, "Hi team", New("").Execute(tmpl, map[string]any{"who": "team"}))

	_, err = LoadTemplate(filepath.Join(dir, "missing.tmpl"))
	var rerr *RenderError
	require.True(t, errors.As(err, &rerr))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
