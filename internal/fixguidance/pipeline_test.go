package fixguidance

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/secstack/blackduck-mcp/internal/blackduck"
)

// mockAPI is a configurable stand-in for the Hub client. It records the
// identifiers each guidance call received.
type mockAPI struct {
	remediation    *blackduck.RemediationDetail
	remediationErr error

	paths    *blackduck.DependencyPathPage
	pathsErr error

	guidance    *blackduck.UpgradeGuidance
	guidanceErr error

	directCalls     [][2]string
	transitiveCalls [][3]string
}

func (m *mockAPI) VulnerabilityRemediation(_ context.Context, _, _, _, _, _ string) (*blackduck.RemediationDetail, error) {
	return m.remediation, m.remediationErr
}

func (m *mockAPI) DependencyPaths(_ context.Context, _, _, _ string) (*blackduck.DependencyPathPage, error) {
	return m.paths, m.pathsErr
}

func (m *mockAPI) UpgradeGuidance(_ context.Context, componentID, componentVersionID string) (*blackduck.UpgradeGuidance, error) {
	m.directCalls = append(m.directCalls, [2]string{componentID, componentVersionID})
	return m.guidance, m.guidanceErr
}

func (m *mockAPI) TransitiveUpgradeGuidance(_ context.Context, componentID, componentVersionID, originID string) (*blackduck.UpgradeGuidance, error) {
	m.transitiveCalls = append(m.transitiveCalls, [3]string{componentID, componentVersionID, originID})
	return m.guidance, m.guidanceErr
}

func testCoordinate() Coordinate {
	return Coordinate{
		ProjectID:          "P",
		ProjectVersionID:   "V",
		ComponentID:        "C",
		ComponentVersionID: "CV",
		VulnerabilityID:    "CVE-2023-1234",
		OriginID:           "O",
	}
}

func newTestPipeline(api *mockAPI) *Pipeline {
	return New(api, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// defaultGuidance returns a payload with a fix at both horizons.
func defaultGuidance() *blackduck.UpgradeGuidance {
	return &blackduck.UpgradeGuidance{
		ComponentName:    "log4j-core",
		VersionName:      "2.14.1",
		OriginExternalID: "maven:org.apache.logging.log4j:log4j-core:2.14.1",
		ShortTerm: &blackduck.GuidanceTerm{
			VersionName:       "2.17.0",
			VulnerabilityRisk: blackduck.RiskProfile{Medium: 2, Low: 1},
		},
		LongTerm: &blackduck.GuidanceTerm{
			VersionName: "2.20.0",
		},
	}
}

func TestValidateFieldOrder(t *testing.T) {
	tests := []struct {
		field string
		mut   func(*Coordinate)
	}{
		{"projectId", func(c *Coordinate) { c.ProjectID = "" }},
		{"projectVersionId", func(c *Coordinate) { c.ProjectVersionID = "  " }},
		{"componentId", func(c *Coordinate) { c.ComponentID = "" }},
		{"componentVersionId", func(c *Coordinate) { c.ComponentVersionID = "\t" }},
		{"vulnerabilityId", func(c *Coordinate) { c.VulnerabilityID = "" }},
		{"originId", func(c *Coordinate) { c.OriginID = " " }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			coord := testCoordinate()
			tt.mut(&coord)

			api := &mockAPI{}
			_, err := newTestPipeline(api).Resolve(context.Background(), coord)
			if err == nil {
				t.Fatal("Resolve() expected validation error")
			}
			want := "Error: " + tt.field + " is required"
			if err.Error() != want {
				t.Errorf("err = %q, want %q", err.Error(), want)
			}
			// Validation short-circuits before any remote call.
			if len(api.directCalls)+len(api.transitiveCalls) != 0 {
				t.Error("Resolve() made guidance calls despite validation failure")
			}
		})
	}
}

func TestValidateBlankFirstFieldWins(t *testing.T) {
	err := Coordinate{}.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	if err.Error() != "Error: projectId is required" {
		t.Errorf("err = %q, want first field reported", err.Error())
	}
}

func TestDependencyPathFailureFallsBackToDirect(t *testing.T) {
	api := &mockAPI{
		pathsErr: blackduck.NewError(blackduck.KindServer, "bom graph unavailable"),
		guidance: defaultGuidance(),
	}

	result, err := newTestPipeline(api).Resolve(context.Background(), testCoordinate())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Component.DependencyType != Direct {
		t.Errorf("DependencyType = %v, want DIRECT", result.Component.DependencyType)
	}
	if len(api.directCalls) != 1 {
		t.Fatalf("direct guidance calls = %d, want 1", len(api.directCalls))
	}
	// Caller identifiers retained verbatim.
	if got := api.directCalls[0]; got != [2]string{"C", "CV"} {
		t.Errorf("guidance called with %v, want [C CV]", got)
	}
}

func TestZeroDependencyPathsFallsBackToDirect(t *testing.T) {
	api := &mockAPI{
		paths:    &blackduck.DependencyPathPage{},
		guidance: defaultGuidance(),
	}

	result, err := newTestPipeline(api).Resolve(context.Background(), testCoordinate())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Component.DependencyType != Direct {
		t.Errorf("DependencyType = %v, want DIRECT", result.Component.DependencyType)
	}
	if got := api.directCalls[0]; got != [2]string{"C", "CV"} {
		t.Errorf("guidance called with %v, want [C CV]", got)
	}
}

func TestTransitivePathResolvesGuidanceIdentifiers(t *testing.T) {
	api := &mockAPI{
		paths: &blackduck.DependencyPathPage{
			TotalCount: 2,
			Items: []blackduck.DependencyPath{
				{
					Type: "TRANSITIVE",
					Path: pathWithLink("transitive-upgrade-guidance",
						"https://hub/api/components/C-resolved/versions/CV-resolved/origins/O-resolved/transitive-upgrade-guidance"),
				},
				// A second path must be ignored: the first item decides.
				{Type: "DIRECT"},
			},
		},
		guidance: defaultGuidance(),
	}

	result, err := newTestPipeline(api).Resolve(context.Background(), testCoordinate())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Component.DependencyType != Transitive {
		t.Errorf("DependencyType = %v, want TRANSITIVE", result.Component.DependencyType)
	}
	if len(api.transitiveCalls) != 1 || len(api.directCalls) != 0 {
		t.Fatalf("calls: transitive=%d direct=%d, want 1/0", len(api.transitiveCalls), len(api.directCalls))
	}
	if got := api.transitiveCalls[0]; got != [3]string{"C-resolved", "CV-resolved", "O-resolved"} {
		t.Errorf("transitive guidance called with %v, want resolved identifiers", got)
	}
}

func TestTransitivePathWithoutLinkRetainsCallerIdentifiers(t *testing.T) {
	api := &mockAPI{
		paths: &blackduck.DependencyPathPage{
			TotalCount: 1,
			Items: []blackduck.DependencyPath{
				{Type: "TRANSITIVE", Path: []blackduck.PathNode{{ComponentName: "leaf"}}},
			},
		},
		guidance: defaultGuidance(),
	}

	_, err := newTestPipeline(api).Resolve(context.Background(), testCoordinate())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(api.transitiveCalls) != 1 {
		t.Fatalf("transitive guidance calls = %d, want 1", len(api.transitiveCalls))
	}
	if got := api.transitiveCalls[0]; got != [3]string{"C", "CV", "O"} {
		t.Errorf("transitive guidance called with %v, want caller identifiers", got)
	}
}

func TestGuidanceFailureIsFatal(t *testing.T) {
	api := &mockAPI{
		paths:       &blackduck.DependencyPathPage{},
		guidanceErr: blackduck.NewError(blackduck.KindNotFound, "component version not found"),
	}

	result, err := newTestPipeline(api).Resolve(context.Background(), testCoordinate())
	if result != nil {
		t.Errorf("Resolve() result = %+v, want nil on guidance failure", result)
	}
	if err == nil {
		t.Fatal("Resolve() expected error")
	}
	want := "NotFoundError: component version not found"
	if err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
}

func TestContextFetchFailureDegradesToPlaceholder(t *testing.T) {
	api := &mockAPI{
		remediationErr: blackduck.NewError(blackduck.KindServer, "hub unavailable"),
		paths:          &blackduck.DependencyPathPage{},
		guidance:       defaultGuidance(),
	}

	result, err := newTestPipeline(api).Resolve(context.Background(), testCoordinate())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Vulnerability.Name != "CVE-2023-1234" {
		t.Errorf("Vulnerability.Name = %q, want the coordinate's id", result.Vulnerability.Name)
	}
	if result.Vulnerability.Note != "vulnerability details could not be retrieved" {
		t.Errorf("Vulnerability.Note = %q, want placeholder note", result.Vulnerability.Note)
	}
}

func TestContextDescriptionTruncated(t *testing.T) {
	long := strings.Repeat("x", 350)
	api := &mockAPI{
		remediation: &blackduck.RemediationDetail{
			Name:        "CVE-2023-1234",
			Severity:    "CRITICAL",
			BaseScore:   9.8,
			Description: long,
			CVSS3:       &blackduck.CVSS3{BaseScore: 9.8, Severity: "CRITICAL", Vector: "CVSS:3.1/AV:N"},
		},
		paths:    &blackduck.DependencyPathPage{},
		guidance: defaultGuidance(),
	}

	result, err := newTestPipeline(api).Resolve(context.Background(), testCoordinate())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := strings.Repeat("x", 200) + "..."
	if result.Vulnerability.Description != want {
		t.Errorf("Description length = %d, want 200 chars plus ellipsis", len(result.Vulnerability.Description))
	}
	if result.Vulnerability.CVSS3 == nil || result.Vulnerability.CVSS3.Vector != "CVSS:3.1/AV:N" {
		t.Error("CVSS3 block not carried through")
	}
}

func TestShortDescriptionNotTruncated(t *testing.T) {
	if got := truncate("brief", 200); got != "brief" {
		t.Errorf("truncate() = %q, want unchanged", got)
	}
	exact := strings.Repeat("y", 200)
	if got := truncate(exact, 200); got != exact {
		t.Errorf("truncate() altered a string at the limit")
	}
}

func TestHorizonPlaceholders(t *testing.T) {
	g := defaultGuidance()
	g.LongTerm = nil
	api := &mockAPI{paths: &blackduck.DependencyPathPage{}, guidance: g}

	result, err := newTestPipeline(api).Resolve(context.Background(), testCoordinate())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	short := result.FixGuidance.ShortTerm
	if short.Available != nil {
		t.Error("present horizon must not carry an available flag")
	}
	if short.RecommendedVersion != "2.17.0" {
		t.Errorf("RecommendedVersion = %q, want 2.17.0", short.RecommendedVersion)
	}
	if short.RiskReduction != "Eliminates all critical and high severity vulnerabilities (3 low/medium remain)" {
		t.Errorf("RiskReduction = %q", short.RiskReduction)
	}

	long := result.FixGuidance.LongTerm
	if long.Available == nil || *long.Available {
		t.Error("absent horizon must carry available=false")
	}
	if long.Message != "No long-term fix available" {
		t.Errorf("Message = %q, want %q", long.Message, "No long-term fix available")
	}
}

func TestNoFixActionStepsVerbatim(t *testing.T) {
	g := &blackduck.UpgradeGuidance{ComponentName: "struts2-core", VersionName: "2.3.5"}
	api := &mockAPI{paths: &blackduck.DependencyPathPage{}, guidance: g}

	result, err := newTestPipeline(api).Resolve(context.Background(), testCoordinate())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !reflect.DeepEqual(result.ActionSteps, noFixSteps) {
		t.Errorf("ActionSteps = %q, want the fixed no-fix sequence", result.ActionSteps)
	}
	if len(result.ActionSteps) != 7 {
		t.Errorf("len(ActionSteps) = %d, want 7", len(result.ActionSteps))
	}
	want := "No fixed version is currently available. Consider mitigating controls or replacing the component."
	if result.Recommendation != want {
		t.Errorf("Recommendation = %q, want %q", result.Recommendation, want)
	}
}

func TestDirectActionSteps(t *testing.T) {
	api := &mockAPI{paths: &blackduck.DependencyPathPage{}, guidance: defaultGuidance()}

	result, err := newTestPipeline(api).Resolve(context.Background(), testCoordinate())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	steps := result.ActionSteps
	if len(steps) != 7 {
		t.Fatalf("len(ActionSteps) = %d, want 7: %q", len(steps), steps)
	}
	if steps[0] != "Update the direct dependency log4j-core (currently 2.14.1)." {
		t.Errorf("steps[0] = %q", steps[0])
	}
	if steps[1] != "Short-term: upgrade to 2.17.0 (3 vulnerabilities remaining)." {
		t.Errorf("steps[1] = %q", steps[1])
	}
	if steps[2] != "Long-term: upgrade to 2.20.0 (0 vulnerabilities remaining)." {
		t.Errorf("steps[2] = %q", steps[2])
	}
	if !reflect.DeepEqual(steps[3:], closingSteps) {
		t.Errorf("closing steps = %q, want %q", steps[3:], closingSteps)
	}
}

func TestActionStepsOmitAbsentHorizon(t *testing.T) {
	g := defaultGuidance()
	g.ShortTerm = nil
	api := &mockAPI{paths: &blackduck.DependencyPathPage{}, guidance: g}

	result, err := newTestPipeline(api).Resolve(context.Background(), testCoordinate())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	steps := result.ActionSteps
	if len(steps) != 6 {
		t.Fatalf("len(ActionSteps) = %d, want 6: %q", len(steps), steps)
	}
	for _, s := range steps {
		if strings.HasPrefix(s, "Short-term:") {
			t.Errorf("absent horizon rendered as %q", s)
		}
	}
}

func TestRecommendationRules(t *testing.T) {
	tests := []struct {
		name      string
		shortRisk *blackduck.RiskProfile
		longRisk  *blackduck.RiskProfile
		want      string
	}{
		{
			name:      "long term strictly fewer wins",
			shortRisk: &blackduck.RiskProfile{Medium: 2, Low: 1},
			longRisk:  &blackduck.RiskProfile{},
			want:      "Recommended: Use the long-term version (2.20.0) as it has fewer vulnerabilities.",
		},
		{
			name:      "short term zero wins over a worse long term",
			shortRisk: &blackduck.RiskProfile{},
			longRisk:  &blackduck.RiskProfile{Low: 2},
			want:      "Recommended: Use the short-term version (2.17.0) as it eliminates all known vulnerabilities.",
		},
		{
			name:      "equal nonzero residual risk is a trade-off",
			shortRisk: &blackduck.RiskProfile{High: 1},
			longRisk:  &blackduck.RiskProfile{High: 1},
			want:      "Both upgrade options still carry known vulnerabilities. Weigh compatibility risk against residual risk when choosing.",
		},
		{
			name:      "short term better but nonzero is a trade-off",
			shortRisk: &blackduck.RiskProfile{Low: 1},
			longRisk:  &blackduck.RiskProfile{Low: 3},
			want:      "Both upgrade options still carry known vulnerabilities. Weigh compatibility risk against residual risk when choosing.",
		},
		{
			name:      "only short term present",
			shortRisk: &blackduck.RiskProfile{Medium: 2},
			want:      "Only short-term fix available. Upgrade to 2.17.0.",
		},
		{
			name:     "only long term present",
			longRisk: &blackduck.RiskProfile{},
			want:     "Only long-term fix available. Upgrade to 2.20.0.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &blackduck.UpgradeGuidance{ComponentName: "log4j-core", VersionName: "2.14.1"}
			if tt.shortRisk != nil {
				g.ShortTerm = &blackduck.GuidanceTerm{VersionName: "2.17.0", VulnerabilityRisk: *tt.shortRisk}
			}
			if tt.longRisk != nil {
				g.LongTerm = &blackduck.GuidanceTerm{VersionName: "2.20.0", VulnerabilityRisk: *tt.longRisk}
			}
			if got := recommendation(g); got != tt.want {
				t.Errorf("recommendation() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveEndToEndTransitive(t *testing.T) {
	api := &mockAPI{
		remediation: &blackduck.RemediationDetail{
			Name:              "CVE-2023-1234",
			Severity:          "CRITICAL",
			BaseScore:         10,
			Description:       "Remote code execution via JNDI lookup.",
			RemediationStatus: "NEW",
			CweID:             "CWE-502",
		},
		paths: &blackduck.DependencyPathPage{
			TotalCount: 1,
			Items: []blackduck.DependencyPath{{
				Type: "TRANSITIVE",
				Path: pathWithLink("transitive-upgrade-guidance",
					"https://hub/api/components/C2/versions/CV2/origins/O2/transitive-upgrade-guidance"),
			}},
		},
		guidance: &blackduck.UpgradeGuidance{
			ComponentName:    "log4j-core",
			VersionName:      "2.14.1",
			OriginExternalID: "maven:org.apache.logging.log4j:log4j-core:2.14.1",
			ShortTerm: &blackduck.GuidanceTerm{
				VersionName:       "2.17.0",
				VulnerabilityRisk: blackduck.RiskProfile{Medium: 2, Low: 1},
			},
			LongTerm: &blackduck.GuidanceTerm{
				VersionName: "2.20.0",
			},
		},
	}

	result, err := newTestPipeline(api).Resolve(context.Background(), testCoordinate())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if result.Vulnerability.Name != "CVE-2023-1234" || result.Vulnerability.Note != "" {
		t.Errorf("Vulnerability = %+v, want populated context", result.Vulnerability)
	}
	if result.Component.Name != "log4j-core" || result.Component.CurrentVersion != "2.14.1" {
		t.Errorf("Component = %+v", result.Component)
	}
	if result.Component.DependencyType != Transitive {
		t.Errorf("DependencyType = %v, want TRANSITIVE", result.Component.DependencyType)
	}
	if result.Component.OriginID != "maven:org.apache.logging.log4j:log4j-core:2.14.1" {
		t.Errorf("Component.OriginID = %q", result.Component.OriginID)
	}

	want := "Recommended: Use the long-term version (2.20.0) as it has fewer vulnerabilities."
	if result.Recommendation != want {
		t.Errorf("Recommendation = %q, want %q", result.Recommendation, want)
	}

	steps := result.ActionSteps
	if len(steps) != 8 {
		t.Fatalf("len(ActionSteps) = %d, want 8: %q", len(steps), steps)
	}
	if !strings.Contains(steps[0], "TRANSITIVE") {
		t.Errorf("steps[0] = %q, want transitive framing", steps[0])
	}
	if steps[2] != "Short-term: check which direct dependency needs updating to get log4j-core 2.17.0." {
		t.Errorf("steps[2] = %q", steps[2])
	}
	if steps[3] != "Long-term: check which direct dependency needs updating to get log4j-core 2.20.0." {
		t.Errorf("steps[3] = %q", steps[3])
	}
}

func TestPipelineSatisfiesClientInterface(t *testing.T) {
	// Compile-time assertion lives in pipeline.go; double-check the mock
	// stays in sync with the interface too.
	var _ API = (*mockAPI)(nil)
}
