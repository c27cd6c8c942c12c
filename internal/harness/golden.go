package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden compares the Report of result against
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Report(result))
}
