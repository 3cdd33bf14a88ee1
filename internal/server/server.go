// Package server exposes the Black Duck Hub client and the fix-guidance
// pipeline as MCP tools over stdio.
package server

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/secstack/blackduck-mcp/internal/blackduck"
	"github.com/secstack/blackduck-mcp/internal/fixguidance"
)

// Version is the server's release version, reported over MCP and by the
// --version flag.
const Version = "1.0.0"

// hubAPI is the slice of the Hub client the tool handlers use.
type hubAPI interface {
	CurrentVersion(ctx context.Context) (*blackduck.CurrentVersion, error)
	ListProjects(ctx context.Context, name string, page blackduck.PageOptions) (*blackduck.ProjectPage, error)
	ListProjectVersions(ctx context.Context, projectID string, page blackduck.PageOptions) (*blackduck.ProjectVersionPage, error)
	AllVulnerableComponents(ctx context.Context, projectID, versionID string) ([]blackduck.VulnerableComponent, error)
	VulnerabilityRemediation(ctx context.Context, projectID, versionID, componentID, componentVersionID, vulnerabilityID string) (*blackduck.RemediationDetail, error)
	UpdateRemediation(ctx context.Context, projectID, versionID, componentID, componentVersionID, vulnerabilityID, status, comment string) error
}

// guidanceResolver is the fix-guidance pipeline as the handlers see it.
type guidanceResolver interface {
	Resolve(ctx context.Context, coord fixguidance.Coordinate) (*fixguidance.Result, error)
}

// Package-level collaborators, swapped for mocks in tests.
var (
	hub    hubAPI
	guide  guidanceResolver
	logger = slog.Default()
)

// Run wires the collaborators and serves MCP over stdin/stdout until the
// transport closes or ctx is cancelled.
func Run(ctx context.Context, client *blackduck.Client, pipeline *fixguidance.Pipeline, log *slog.Logger) error {
	hub = client
	guide = pipeline
	if log != nil {
		logger = log
	}

	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "blackduck-mcp",
			Version: Version,
		},
		nil,
	)

	registerTools(server)

	return server.Run(ctx, &mcp.StdioTransport{})
}

func registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "blackduck_server_status",
		Description: "Check connectivity to the Black Duck Hub and report its version",
	}, handleStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "blackduck_list_projects",
		Description: "List Black Duck projects, optionally filtered by name",
	}, handleListProjects)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "blackduck_list_project_versions",
		Description: "List the versions of a Black Duck project",
	}, handleListVersions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "blackduck_list_vulnerabilities",
		Description: "List vulnerable BOM components of a project version, with the identifiers needed for remediation and fix-guidance follow-ups",
	}, handleListVulnerabilities)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "blackduck_get_vulnerability",
		Description: "Get the remediation detail of one vulnerability on one BOM component",
	}, handleGetVulnerability)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "blackduck_update_remediation_status",
		Description: "Set the remediation workflow status of a vulnerability (NEW, IGNORED, PATCHED, ...)",
	}, handleUpdateRemediation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "blackduck_get_fix_guidance",
		Description: "Determine whether a vulnerability is fixable and how: classifies the dependency as direct or transitive, fetches short-term and long-term upgrade guidance, and recommends remediation steps",
	}, handleFixGuidance)
}

// toolLogger tags the package logger with the tool name and a fresh
// correlation id for one invocation.
func toolLogger(tool string) *slog.Logger {
	return logger.With("tool", tool, "correlationId", uuid.NewString())
}

// requireFields returns a field-specific error for the first blank value,
// checked in argument order.
func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return &fixguidance.RequiredFieldError{Field: pairs[i]}
		}
	}
	return nil
}

// Tool input/output types

type statusInput struct{}

type statusOutput struct {
	StatusResult
}

type listProjectsInput struct {
	Name   string `json:"name,omitempty" jsonschema:"filter projects whose name starts with this"`
	Limit  int    `json:"limit,omitempty" jsonschema:"page size (default 50, max 500)"`
	Offset int    `json:"offset,omitempty" jsonschema:"page offset"`
}

type listProjectsOutput struct {
	ProjectList
}

type listVersionsInput struct {
	ProjectID string `json:"projectId" jsonschema:"project identifier"`
	Limit     int    `json:"limit,omitempty" jsonschema:"page size (default 50, max 500)"`
	Offset    int    `json:"offset,omitempty" jsonschema:"page offset"`
}

type listVersionsOutput struct {
	VersionList
}

type listVulnerabilitiesInput struct {
	ProjectID        string `json:"projectId" jsonschema:"project identifier"`
	ProjectVersionID string `json:"projectVersionId" jsonschema:"project version identifier"`
	Severity         string `json:"severity,omitempty" jsonschema:"only return vulnerabilities of this severity (CRITICAL, HIGH, MEDIUM, LOW)"`
	MaxResults       int    `json:"maxResults,omitempty" jsonschema:"cap on returned rows (default 100)"`
}

type listVulnerabilitiesOutput struct {
	VulnerabilityList
}

type getVulnerabilityInput struct {
	ProjectID          string `json:"projectId" jsonschema:"project identifier"`
	ProjectVersionID   string `json:"projectVersionId" jsonschema:"project version identifier"`
	ComponentID        string `json:"componentId" jsonschema:"component identifier"`
	ComponentVersionID string `json:"componentVersionId" jsonschema:"component version identifier"`
	VulnerabilityID    string `json:"vulnerabilityId" jsonschema:"vulnerability identifier, e.g. CVE-2023-1234"`
}

type getVulnerabilityOutput struct {
	VulnerabilityDetail
}

type updateRemediationInput struct {
	ProjectID          string `json:"projectId" jsonschema:"project identifier"`
	ProjectVersionID   string `json:"projectVersionId" jsonschema:"project version identifier"`
	ComponentID        string `json:"componentId" jsonschema:"component identifier"`
	ComponentVersionID string `json:"componentVersionId" jsonschema:"component version identifier"`
	VulnerabilityID    string `json:"vulnerabilityId" jsonschema:"vulnerability identifier"`
	Status             string `json:"status" jsonschema:"new remediation workflow status"`
	Comment            string `json:"comment,omitempty" jsonschema:"optional remediation comment"`
}

type updateRemediationOutput struct {
	RemediationResult
}

type fixGuidanceInput struct {
	ProjectID          string `json:"projectId" jsonschema:"project identifier"`
	ProjectVersionID   string `json:"projectVersionId" jsonschema:"project version identifier"`
	ComponentID        string `json:"componentId" jsonschema:"component identifier"`
	ComponentVersionID string `json:"componentVersionId" jsonschema:"component version identifier"`
	VulnerabilityID    string `json:"vulnerabilityId" jsonschema:"vulnerability identifier, e.g. CVE-2023-1234"`
	OriginID           string `json:"originId" jsonschema:"component version origin identifier"`
}

type fixGuidanceOutput struct {
	fixguidance.Result
}

// Tool handlers

func handleStatus(ctx context.Context, _ *mcp.CallToolRequest, _ statusInput) (*mcp.CallToolResult, statusOutput, error) {
	log := toolLogger("blackduck_server_status")

	version, err := hub.CurrentVersion(ctx)
	if err != nil {
		log.Warn("status check failed", "error", err)
		return nil, statusOutput{}, err
	}
	return nil, statusOutput{StatusResult{HubVersion: version.Version, ServerVersion: Version}}, nil
}

func handleListProjects(ctx context.Context, _ *mcp.CallToolRequest, input listProjectsInput) (*mcp.CallToolResult, listProjectsOutput, error) {
	log := toolLogger("blackduck_list_projects")

	page, err := hub.ListProjects(ctx, input.Name, clampPage(input.Limit, input.Offset))
	if err != nil {
		log.Warn("project listing failed", "error", err)
		return nil, listProjectsOutput{}, err
	}
	return nil, listProjectsOutput{SummarizeProjects(page)}, nil
}

func handleListVersions(ctx context.Context, _ *mcp.CallToolRequest, input listVersionsInput) (*mcp.CallToolResult, listVersionsOutput, error) {
	log := toolLogger("blackduck_list_project_versions")

	if err := requireFields("projectId", input.ProjectID); err != nil {
		return nil, listVersionsOutput{}, err
	}
	page, err := hub.ListProjectVersions(ctx, input.ProjectID, clampPage(input.Limit, input.Offset))
	if err != nil {
		log.Warn("version listing failed", "projectId", input.ProjectID, "error", err)
		return nil, listVersionsOutput{}, err
	}
	return nil, listVersionsOutput{SummarizeVersions(page)}, nil
}

func handleListVulnerabilities(ctx context.Context, _ *mcp.CallToolRequest, input listVulnerabilitiesInput) (*mcp.CallToolResult, listVulnerabilitiesOutput, error) {
	log := toolLogger("blackduck_list_vulnerabilities")

	if err := requireFields(
		"projectId", input.ProjectID,
		"projectVersionId", input.ProjectVersionID,
	); err != nil {
		return nil, listVulnerabilitiesOutput{}, err
	}

	items, err := hub.AllVulnerableComponents(ctx, input.ProjectID, input.ProjectVersionID)
	if err != nil {
		log.Warn("vulnerability listing failed",
			"projectId", input.ProjectID, "projectVersionId", input.ProjectVersionID, "error", err)
		return nil, listVulnerabilitiesOutput{}, err
	}

	list := SummarizeVulnerabilities(items, input.Severity, input.MaxResults)
	log.Debug("vulnerability listing complete", "total", list.TotalCount, "returned", list.Returned)
	return nil, listVulnerabilitiesOutput{list}, nil
}

func handleGetVulnerability(ctx context.Context, _ *mcp.CallToolRequest, input getVulnerabilityInput) (*mcp.CallToolResult, getVulnerabilityOutput, error) {
	log := toolLogger("blackduck_get_vulnerability")

	if err := requireFields(
		"projectId", input.ProjectID,
		"projectVersionId", input.ProjectVersionID,
		"componentId", input.ComponentID,
		"componentVersionId", input.ComponentVersionID,
		"vulnerabilityId", input.VulnerabilityID,
	); err != nil {
		return nil, getVulnerabilityOutput{}, err
	}

	detail, err := hub.VulnerabilityRemediation(ctx, input.ProjectID, input.ProjectVersionID,
		input.ComponentID, input.ComponentVersionID, input.VulnerabilityID)
	if err != nil {
		log.Warn("vulnerability lookup failed", "vulnerabilityId", input.VulnerabilityID, "error", err)
		return nil, getVulnerabilityOutput{}, err
	}
	return nil, getVulnerabilityOutput{SummarizeRemediation(detail)}, nil
}

func handleUpdateRemediation(ctx context.Context, _ *mcp.CallToolRequest, input updateRemediationInput) (*mcp.CallToolResult, updateRemediationOutput, error) {
	log := toolLogger("blackduck_update_remediation_status")

	if err := requireFields(
		"projectId", input.ProjectID,
		"projectVersionId", input.ProjectVersionID,
		"componentId", input.ComponentID,
		"componentVersionId", input.ComponentVersionID,
		"vulnerabilityId", input.VulnerabilityID,
		"status", input.Status,
	); err != nil {
		return nil, updateRemediationOutput{}, err
	}

	err := hub.UpdateRemediation(ctx, input.ProjectID, input.ProjectVersionID,
		input.ComponentID, input.ComponentVersionID, input.VulnerabilityID,
		input.Status, input.Comment)
	if err != nil {
		log.Warn("remediation update failed", "vulnerabilityId", input.VulnerabilityID, "error", err)
		return nil, updateRemediationOutput{}, err
	}

	log.Info("remediation status updated",
		"vulnerabilityId", input.VulnerabilityID, "status", strings.ToUpper(input.Status))
	return nil, updateRemediationOutput{RemediationResult{
		VulnerabilityID: input.VulnerabilityID,
		Status:          strings.ToUpper(strings.TrimSpace(input.Status)),
		Comment:         input.Comment,
	}}, nil
}

func handleFixGuidance(ctx context.Context, _ *mcp.CallToolRequest, input fixGuidanceInput) (*mcp.CallToolResult, fixGuidanceOutput, error) {
	log := toolLogger("blackduck_get_fix_guidance")

	result, err := guide.Resolve(ctx, fixguidance.Coordinate{
		ProjectID:          input.ProjectID,
		ProjectVersionID:   input.ProjectVersionID,
		ComponentID:        input.ComponentID,
		ComponentVersionID: input.ComponentVersionID,
		VulnerabilityID:    input.VulnerabilityID,
		OriginID:           input.OriginID,
	})
	if err != nil {
		log.Warn("fix guidance failed", "vulnerabilityId", input.VulnerabilityID, "error", err)
		return nil, fixGuidanceOutput{}, err
	}

	log.Debug("fix guidance resolved",
		"vulnerabilityId", input.VulnerabilityID,
		"dependencyType", result.Component.DependencyType)
	return nil, fixGuidanceOutput{*result}, nil
}
