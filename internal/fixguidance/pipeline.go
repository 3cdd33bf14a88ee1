// Package fixguidance answers "is this vulnerability fixable and how". It
// classifies the vulnerable dependency as direct or transitive, resolves the
// component/version/origin identifiers that key upgrade guidance (which may
// differ from the vulnerability's own), fetches short-term and long-term
// upgrade recommendations, and synthesizes a recommendation with actionable
// remediation steps.
package fixguidance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/secstack/blackduck-mcp/internal/blackduck"
)

// API is the subset of the Hub client the pipeline depends on.
type API interface {
	VulnerabilityRemediation(ctx context.Context, projectID, versionID, componentID, componentVersionID, vulnerabilityID string) (*blackduck.RemediationDetail, error)
	DependencyPaths(ctx context.Context, projectID, versionID, originID string) (*blackduck.DependencyPathPage, error)
	UpgradeGuidance(ctx context.Context, componentID, componentVersionID string) (*blackduck.UpgradeGuidance, error)
	TransitiveUpgradeGuidance(ctx context.Context, componentID, componentVersionID, originID string) (*blackduck.UpgradeGuidance, error)
}

var _ API = (*blackduck.Client)(nil)

// Coordinate identifies one vulnerability instance on one component
// occurrence in one project version. All fields are required.
type Coordinate struct {
	ProjectID          string
	ProjectVersionID   string
	ComponentID        string
	ComponentVersionID string
	VulnerabilityID    string
	OriginID           string
}

// RequiredFieldError reports a blank required coordinate field.
type RequiredFieldError struct {
	Field string
}

// Error implements the error interface.
func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("Error: %s is required", e.Field)
}

// Validate checks that every coordinate field is non-blank, reporting the
// first offender in field order.
func (c Coordinate) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"projectId", c.ProjectID},
		{"projectVersionId", c.ProjectVersionID},
		{"componentId", c.ComponentID},
		{"componentVersionId", c.ComponentVersionID},
		{"vulnerabilityId", c.VulnerabilityID},
		{"originId", c.OriginID},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &RequiredFieldError{Field: f.name}
		}
	}
	return nil
}

// VulnerabilityContext summarizes the vulnerability under analysis. When the
// detail lookup fails, the context degrades to the vulnerability name plus a
// note; guidance resolution proceeds regardless.
type VulnerabilityContext struct {
	Name              string           `json:"name"`
	Severity          string           `json:"severity,omitempty"`
	BaseScore         float64          `json:"baseScore,omitempty"`
	Description       string           `json:"description,omitempty"`
	CVSS3             *blackduck.CVSS3 `json:"cvss3,omitempty"`
	RemediationStatus string           `json:"remediationStatus,omitempty"`
	CweID             string           `json:"cweId,omitempty"`
	Note              string           `json:"note,omitempty"`
}

// ComponentSummary describes the vulnerable component as resolved in the
// BOM graph.
type ComponentSummary struct {
	Name           string         `json:"name"`
	CurrentVersion string         `json:"currentVersion"`
	DependencyType DependencyType `json:"dependencyType"`
	OriginID       string         `json:"originId,omitempty"`
}

// FixHorizon is one upgrade horizon: either a concrete recommendation, or
// an explicit "no fix at this horizon" placeholder with Available false.
type FixHorizon struct {
	Available                *bool                  `json:"available,omitempty"`
	Message                  string                 `json:"message,omitempty"`
	RecommendedVersion       string                 `json:"recommendedVersion,omitempty"`
	VulnerabilitiesRemaining *blackduck.RiskProfile `json:"vulnerabilitiesRemaining,omitempty"`
	RiskReduction            string                 `json:"riskReduction,omitempty"`
	OriginID                 string                 `json:"originId,omitempty"`
}

// FixGuidance pairs the two upgrade horizons.
type FixGuidance struct {
	ShortTerm FixHorizon `json:"shortTerm"`
	LongTerm  FixHorizon `json:"longTerm"`
}

// Result is the pipeline's sole output artifact, built fresh per call and
// never cached.
type Result struct {
	Vulnerability  VulnerabilityContext `json:"vulnerability"`
	Component      ComponentSummary     `json:"component"`
	FixGuidance    FixGuidance          `json:"fixGuidance"`
	ActionSteps    []string             `json:"actionSteps"`
	Recommendation string               `json:"recommendation"`
}

// Pipeline drives fix-guidance resolution end to end. It holds no mutable
// state of its own, so one Pipeline serves concurrent invocations.
type Pipeline struct {
	api API
	log *slog.Logger
}

// New creates a Pipeline backed by the given Hub API.
func New(api API, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{api: api, log: log}
}

// descriptionLimit caps the vulnerability description carried in the result.
const descriptionLimit = 200

// Resolve validates the coordinate, gathers vulnerability context on a
// best-effort basis, classifies the dependency, fetches upgrade guidance,
// and synthesizes the final recommendation. Validation failures and
// guidance-fetch failures are the only error outcomes; every other failure
// degrades and is logged.
func (p *Pipeline) Resolve(ctx context.Context, coord Coordinate) (*Result, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	vuln := p.fetchContext(ctx, coord)
	cls := p.classifyDependency(ctx, coord)

	guidance, err := p.fetchGuidance(ctx, cls)
	if err != nil {
		return nil, err
	}

	return p.synthesize(vuln, cls, guidance), nil
}

// fetchContext looks up the vulnerability's remediation detail. Failures
// degrade to a placeholder context, never propagate.
func (p *Pipeline) fetchContext(ctx context.Context, coord Coordinate) VulnerabilityContext {
	detail, err := p.api.VulnerabilityRemediation(ctx, coord.ProjectID, coord.ProjectVersionID,
		coord.ComponentID, coord.ComponentVersionID, coord.VulnerabilityID)
	if err != nil {
		p.log.Warn("vulnerability detail lookup failed",
			"vulnerability", coord.VulnerabilityID, "error", err)
		return VulnerabilityContext{
			Name: coord.VulnerabilityID,
			Note: "vulnerability details could not be retrieved",
		}
	}

	name := detail.Name
	if name == "" {
		name = coord.VulnerabilityID
	}
	return VulnerabilityContext{
		Name:              name,
		Severity:          detail.Severity,
		BaseScore:         detail.BaseScore,
		Description:       truncate(detail.Description, descriptionLimit),
		CVSS3:             detail.CVSS3,
		RemediationStatus: detail.RemediationStatus,
		CweID:             detail.CweID,
	}
}

// truncate shortens s to at most limit characters, marking the cut with an
// ellipsis.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// synthesize assembles the final result from the guidance payload.
func (p *Pipeline) synthesize(vuln VulnerabilityContext, cls classification, g *blackduck.UpgradeGuidance) *Result {
	return &Result{
		Vulnerability: vuln,
		Component: ComponentSummary{
			Name:           g.ComponentName,
			CurrentVersion: g.VersionName,
			DependencyType: cls.dependencyType,
			OriginID:       g.OriginExternalID,
		},
		FixGuidance: FixGuidance{
			ShortTerm: horizonFrom(g.ShortTerm, "short-term"),
			LongTerm:  horizonFrom(g.LongTerm, "long-term"),
		},
		ActionSteps:    actionSteps(cls.dependencyType, g),
		Recommendation: recommendation(g),
	}
}

// horizonFrom converts one guidance term into a fix horizon, or into the
// explicit no-fix placeholder when the term is absent.
func horizonFrom(term *blackduck.GuidanceTerm, label string) FixHorizon {
	if term == nil {
		unavailable := false
		return FixHorizon{
			Available: &unavailable,
			Message:   fmt.Sprintf("No %s fix available", label),
		}
	}
	risk := term.VulnerabilityRisk
	return FixHorizon{
		RecommendedVersion:       term.VersionName,
		VulnerabilitiesRemaining: &risk,
		RiskReduction:            describeRiskReduction(risk),
		OriginID:                 term.OriginID,
	}
}

// noFixSteps is the guidance offered when neither upgrade horizon has a fix.
var noFixSteps = []string{
	"No upgrade fix is currently available for this vulnerability.",
	"Check whether the vendor has published a patch or workaround advisory.",
	"Apply a virtual patch (for example a WAF rule) to reduce exposure in the meantime.",
	"Evaluate whether the vulnerable code path is reachable in your usage.",
	"Consider replacing the component with an actively maintained alternative.",
	"If the remaining risk is acceptable, document the decision and set the remediation status to IGNORED.",
	"Re-check periodically: upgrade guidance changes as new versions are released.",
}

// closingSteps finish every fixable action list, direct or transitive.
var closingSteps = []string{
	"Update the version in your dependency manifest.",
	"Run your package manager's install or update command.",
	"Run your test suite to catch breaking changes.",
	"Rescan the project to verify the vulnerability is resolved.",
}

// actionSteps builds the ordered remediation steps. Horizon lines appear
// only for horizons that exist; the list never renders a placeholder line.
func actionSteps(depType DependencyType, g *blackduck.UpgradeGuidance) []string {
	if g.ShortTerm == nil && g.LongTerm == nil {
		return noFixSteps
	}

	var steps []string
	if depType == Transitive {
		steps = append(steps,
			fmt.Sprintf("%s is a TRANSITIVE dependency, pulled in through one of your direct dependencies.", g.ComponentName),
			"Upgrading the parent (direct) dependency is usually the cleanest fix.",
		)
		if g.ShortTerm != nil {
			steps = append(steps, fmt.Sprintf("Short-term: check which direct dependency needs updating to get %s %s.",
				g.ComponentName, g.ShortTerm.VersionName))
		}
		if g.LongTerm != nil {
			steps = append(steps, fmt.Sprintf("Long-term: check which direct dependency needs updating to get %s %s.",
				g.ComponentName, g.LongTerm.VersionName))
		}
	} else {
		steps = append(steps,
			fmt.Sprintf("Update the direct dependency %s (currently %s).", g.ComponentName, g.VersionName))
		if g.ShortTerm != nil {
			steps = append(steps, fmt.Sprintf("Short-term: upgrade to %s (%d vulnerabilities remaining).",
				g.ShortTerm.VersionName, riskTotal(g.ShortTerm.VulnerabilityRisk)))
		}
		if g.LongTerm != nil {
			steps = append(steps, fmt.Sprintf("Long-term: upgrade to %s (%d vulnerabilities remaining).",
				g.LongTerm.VersionName, riskTotal(g.LongTerm.VulnerabilityRisk)))
		}
	}
	return append(steps, closingSteps...)
}

// recommendation picks the single advisory sentence for the guidance. With
// both horizons present, strictly fewer remaining vulnerabilities at the
// long-term horizon wins, then a clean short-term fix, then a neutral
// trade-off answer.
func recommendation(g *blackduck.UpgradeGuidance) string {
	short, long := g.ShortTerm, g.LongTerm
	switch {
	case short == nil && long == nil:
		return "No fixed version is currently available. Consider mitigating controls or replacing the component."
	case short != nil && long != nil:
		shortTotal := riskTotal(short.VulnerabilityRisk)
		longTotal := riskTotal(long.VulnerabilityRisk)
		switch {
		case longTotal < shortTotal:
			return fmt.Sprintf("Recommended: Use the long-term version (%s) as it has fewer vulnerabilities.", long.VersionName)
		case shortTotal == 0:
			return fmt.Sprintf("Recommended: Use the short-term version (%s) as it eliminates all known vulnerabilities.", short.VersionName)
		default:
			return "Both upgrade options still carry known vulnerabilities. Weigh compatibility risk against residual risk when choosing."
		}
	case short != nil:
		return fmt.Sprintf("Only short-term fix available. Upgrade to %s.", short.VersionName)
	default:
		return fmt.Sprintf("Only long-term fix available. Upgrade to %s.", long.VersionName)
	}
}
