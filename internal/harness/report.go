package harness

import (
	"fmt"
	"strings"
)

// Report renders a result as deterministic text, one block per step:
//
//	scenario: pets
//	table: pets (2 rules)
//	step 1 seq=1 {has_dog=true}
//	  match: calm
//	  satisfied: calm
//	  satisfiable: calm, zoo
//	PASS
//
// Failed results end with FAIL and one line per error.
func Report(r *Result) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "scenario: %s\n", r.Scenario)
	fmt.Fprintf(&b, "table: %s (%d %s)\n", r.Table, r.Rules, plural(r.Rules, "rule", "rules"))

	for _, s := range r.Steps {
		fmt.Fprintf(&b, "step %d seq=%d %s\n", s.Index, s.Seq, s.Observations)
		if s.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", s.Error)
			continue
		}
		match := s.Match
		if match == "" {
			match = NoMatch
		}
		fmt.Fprintf(&b, "  match: %s\n", match)
		fmt.Fprintf(&b, "  satisfied: %s\n", joinNames(s.Satisfied))
		fmt.Fprintf(&b, "  satisfiable: %s\n", joinNames(s.Satisfiable))
	}

	if r.Pass {
		b.WriteString("PASS\n")
	} else {
		b.WriteString("FAIL\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	return []byte(b.String())
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
