package reporter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	assert.IsType(t, &JSONReporter{}, Get("json"))
	assert.IsType(t, &TerminalReporter{}, Get("terminal"))
	assert.IsType(t, &SARIFReporter{}, Get("sarif"))
	assert.IsType(t, &JSONReporter{}, Get("unknown"))
}

func TestTerminalReporter(t *testing.T) {
	doc := fixedBuilder(time.Now()).Build(sampleFindings(), window)

	out, err := (&TerminalReporter{}).Report(doc)
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "Found 4 findings across 3 app codes")
	assert.Contains(t, text, "Non-compliant app codes: ATU0")
	assert.Contains(t, text, "Has 1 critical findings (threshold: 0)")
	assert.Contains(t, text, "Other: 1")
	assert.Contains(t, text, "[CRITICAL] TSS")

	empty, err := (&TerminalReporter{}).Report(fixedBuilder(time.Now()).Empty(window))
	require.NoError(t, err)
	assert.Contains(t, string(empty), "No compliance findings")
}

func TestSARIFReporter(t *testing.T) {
	doc := fixedBuilder(time.Now()).Build(sampleFindings(), window)

	out, err := (&SARIFReporter{}).Report(doc)
	require.NoError(t, err)

	var report sarifReport
	require.NoError(t, json.Unmarshal(out, &report))
	require.Len(t, report.Runs, 1)
	run := report.Runs[0]
	assert.Len(t, run.Tool.Driver.Rules, 2)
	assert.Len(t, run.Results, 4)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, []string{"ATU0"}, run.Properties.NonCompliantApps)

	for _, res := range run.Results {
		assert.Equal(t, res.RuleID, run.Tool.Driver.Rules[res.RuleIndex].ID)
	}
}

func TestJSONReporter(t *testing.T) {
	doc := fixedBuilder(time.Now()).Build(sampleFindings(), window)
	out, err := (&JSONReporter{}).Report(doc)
	require.NoError(t, err)

	decoded, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, doc.Summary.TotalCount, decoded.Summary.TotalCount)
}
