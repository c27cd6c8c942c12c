package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRule  = "satset/rule/v1"
	DomainTable = "satset/table/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RuleID computes the content-addressed ID of a rule.
//
// Condition order is part of the identity even though evaluation does not
// depend on it; rule tables are authored in a fixed order and reordering
// them is treated as a new revision.
func RuleID(rule RuleSpec) (string, error) {
	canonical, err := MarshalCanonical(ruleDocument(rule))
	if err != nil {
		return "", fmt.Errorf("RuleID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRule, canonical), nil
}

// TableHash computes the content-addressed hash of a whole rule table.
func TableHash(table RuleTable) (string, error) {
	vars := make([]any, len(table.Variables))
	for i, v := range table.Variables {
		vars[i] = map[string]any{
			"name": v.Name,
			"unit": v.Unit,
			"kind": v.Kind.String(),
		}
	}

	rules := make([]any, len(table.Rules))
	for i, r := range table.Rules {
		rules[i] = ruleDocument(r)
	}

	canonical, err := MarshalCanonical(map[string]any{
		"name":      table.Name,
		"variables": vars,
		"rules":     rules,
	})
	if err != nil {
		return "", fmt.Errorf("TableHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTable, canonical), nil
}

func ruleDocument(rule RuleSpec) map[string]any {
	conds := make([]any, len(rule.Conditions))
	for i, c := range rule.Conditions {
		doc := map[string]any{
			"variable": c.Variable,
			"operator": c.Operator,
			"value":    c.Value,
		}
		if c.Value1 != nil {
			doc["value1"] = c.Value1
		}
		if c.PredictionRange != nil {
			doc["prediction_range"] = *c.PredictionRange
		}
		conds[i] = doc
	}
	return map[string]any{
		"name":       rule.Name,
		"conditions": conds,
	}
}
