package fixguidance

import (
	"fmt"
	"strings"

	"github.com/secstack/blackduck-mcp/internal/blackduck"
)

// riskTotal sums a risk profile across every severity bucket.
func riskTotal(r blackduck.RiskProfile) int {
	return r.Critical + r.High + r.Medium + r.Low
}

// describeRiskReduction renders the residual risk of an upgrade as a
// user-facing sentence. The bucket order and phrasing are stable; clients
// display the string verbatim.
func describeRiskReduction(r blackduck.RiskProfile) string {
	total := riskTotal(r)
	if total == 0 {
		return "Eliminates all known vulnerabilities"
	}
	if r.Critical == 0 && r.High == 0 {
		return fmt.Sprintf("Eliminates all critical and high severity vulnerabilities (%d low/medium remain)", total)
	}

	buckets := []struct {
		count int
		label string
	}{
		{r.Critical, "critical"},
		{r.High, "high"},
		{r.Medium, "medium"},
		{r.Low, "low"},
	}
	parts := make([]string, 0, len(buckets))
	for _, b := range buckets {
		if b.count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", b.count, b.label))
		}
	}
	return fmt.Sprintf("%d vulnerabilities remain: %s", total, strings.Join(parts, ", "))
}
