package reporter

import (
	"encoding/json"
	"fmt"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

// SARIFReporter outputs findings in SARIF format for code-scanning dashboards
type SARIFReporter struct{}

// SARIF structures
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool       `json:"tool"`
	Results    []sarifResult   `json:"results"`
	Properties sarifRunSummary `json:"properties"`
}

type sarifRunSummary struct {
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	TotalCount       int      `json:"totalCount"`
	NonCompliantApps []string `json:"nonCompliantApps"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	ShortDescription sarifText       `json:"shortDescription"`
	DefaultConfig    sarifRuleConfig `json:"defaultConfiguration"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             sarifText         `json:"message"`
	Locations           []sarifLocation   `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints"`
}

type sarifLocation struct {
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations"`
}

type sarifLogicalLocation struct {
	Name               string `json:"name"`
	FullyQualifiedName string `json:"fullyQualifiedName"`
	Kind               string `json:"kind"`
}

// Report generates SARIF output for the given document
func (r *SARIFReporter) Report(doc *models.ReportDocument) ([]byte, error) {
	rules, ruleIndexMap := r.buildRules(doc)

	report := sarifReport{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:           "compliance-notifier",
					Version:        Version,
					InformationURI: "https://github.com/ethanolivertroy/compliance-notifier",
					Rules:          rules,
				},
			},
			Results: r.buildResults(doc, ruleIndexMap),
			Properties: sarifRunSummary{
				StartDate:        doc.Summary.StartDate,
				EndDate:          doc.Summary.EndDate,
				TotalCount:       doc.Summary.TotalCount,
				NonCompliantApps: doc.Summary.NonCompliantApps,
			},
		}},
	}

	return json.MarshalIndent(report, "", "  ")
}

// buildRules creates one rule per issue type, in first-seen order
func (r *SARIFReporter) buildRules(doc *models.ReportDocument) ([]sarifRule, map[string]int) {
	var rules []sarifRule
	ruleIndexMap := make(map[string]int)

	for _, p := range doc.Partitions {
		for _, f := range p.Findings {
			id := ruleID(f)
			if _, exists := ruleIndexMap[id]; exists {
				continue
			}
			ruleIndexMap[id] = len(rules)
			rules = append(rules, sarifRule{
				ID:               id,
				Name:             f.IssueType,
				ShortDescription: sarifText{Text: fmt.Sprintf("Compliance issue: %s", id)},
				DefaultConfig:    sarifRuleConfig{Level: "warning"},
			})
		}
	}

	return rules, ruleIndexMap
}

func (r *SARIFReporter) buildResults(doc *models.ReportDocument, ruleIndexMap map[string]int) []sarifResult {
	results := []sarifResult{}

	for _, p := range doc.Partitions {
		for _, f := range p.Findings {
			id := ruleID(f)
			msg := fmt.Sprintf("%s finding %s for app code %s", f.Severity, id, f.AppCode)
			if f.AffectedItemName != "" {
				msg += " on " + f.AffectedItemName
			}
			if f.IssueState != "" {
				msg += fmt.Sprintf(" [%s]", f.IssueState)
			}

			results = append(results, sarifResult{
				RuleID:    id,
				RuleIndex: ruleIndexMap[id],
				Level:     sarifLevel(f.Severity),
				Message:   sarifText{Text: msg},
				Locations: []sarifLocation{{
					LogicalLocations: []sarifLogicalLocation{{
						Name:               f.AffectedItemName,
						FullyQualifiedName: f.AppCode + "/" + f.AffectedItemName,
						Kind:               "resource",
					}},
				}},
				PartialFingerprints: map[string]string{
					"primaryLocationLineHash": fmt.Sprintf("%s:%s:%s", f.AppCode, f.AffectedItemName, id),
				},
			})
		}
	}

	return results
}

func ruleID(f models.Finding) string {
	if f.IssueType == "" {
		return "unclassified"
	}
	return f.IssueType
}

func sarifLevel(s models.Severity) string {
	switch s {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
