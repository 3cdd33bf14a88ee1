// Package cli runs the server's tools as one-shot commands, printing the
// same JSON the MCP tools return.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/secstack/blackduck-mcp/internal/blackduck"
	"github.com/secstack/blackduck-mcp/internal/fixguidance"
	"github.com/secstack/blackduck-mcp/internal/server"
)

// hubAPI is the slice of the Hub client the CLI commands use.
type hubAPI interface {
	CurrentVersion(ctx context.Context) (*blackduck.CurrentVersion, error)
	ListProjects(ctx context.Context, name string, page blackduck.PageOptions) (*blackduck.ProjectPage, error)
	ListProjectVersions(ctx context.Context, projectID string, page blackduck.PageOptions) (*blackduck.ProjectVersionPage, error)
	AllVulnerableComponents(ctx context.Context, projectID, versionID string) ([]blackduck.VulnerableComponent, error)
	VulnerabilityRemediation(ctx context.Context, projectID, versionID, componentID, componentVersionID, vulnerabilityID string) (*blackduck.RemediationDetail, error)
	UpdateRemediation(ctx context.Context, projectID, versionID, componentID, componentVersionID, vulnerabilityID, status, comment string) error
}

// resolver is the fix-guidance pipeline as the CLI sees it.
type resolver interface {
	Resolve(ctx context.Context, coord fixguidance.Coordinate) (*fixguidance.Result, error)
}

// Run dispatches one CLI command and returns the process exit code.
func Run(ctx context.Context, hub hubAPI, guide resolver, args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "status":
		return runStatus(ctx, hub)
	case "projects":
		return runProjects(ctx, hub, args[1:])
	case "versions":
		if len(args) < 2 {
			return usageError("versions requires a project id")
		}
		return runVersions(ctx, hub, args[1], args[2:])
	case "vulns":
		if len(args) < 3 {
			return usageError("vulns requires project and version ids")
		}
		return runVulnerabilities(ctx, hub, args[1], args[2], args[3:])
	case "vuln":
		if len(args) < 6 {
			return usageError("vuln requires project, version, component, component-version and vulnerability ids")
		}
		return runVulnerability(ctx, hub, args[1:6])
	case "remediate":
		if len(args) < 7 {
			return usageError("remediate requires five ids and a status")
		}
		comment := ""
		if len(args) > 7 {
			comment = args[7]
		}
		return runRemediate(ctx, hub, args[1:7], comment)
	case "fix":
		if len(args) < 7 {
			return usageError("fix requires project, version, component, component-version, vulnerability and origin ids")
		}
		return runFix(ctx, guide, args[1:7])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Println(`blackduck-mcp - Black Duck Hub tools for MCP clients

Usage:
  blackduck-mcp                     Run as MCP server (default)
  blackduck-mcp --cli <command>     Run one command and print its JSON

Commands:
  status                            Check Hub connectivity and version
  projects [name] [--limit N] [--offset N]
                                    List projects, optionally filtered by name
  versions <projectId>              List a project's versions
  vulns <projectId> <versionId> [--severity S] [--max N]
                                    List vulnerable BOM components
  vuln <projectId> <versionId> <componentId> <componentVersionId> <vulnId>
                                    Show one vulnerability's remediation detail
  remediate <projectId> <versionId> <componentId> <componentVersionId> <vulnId> <status> [comment]
                                    Update a vulnerability's remediation status
  fix <projectId> <versionId> <componentId> <componentVersionId> <vulnId> <originId>
                                    Resolve upgrade guidance and remediation steps`)
}

func usageError(msg string) int {
	fmt.Fprintln(os.Stderr, "Error: "+msg)
	return 1
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func runStatus(ctx context.Context, hub hubAPI) int {
	version, err := hub.CurrentVersion(ctx)
	if err != nil {
		return fail(err)
	}
	printJSON(server.StatusResult{HubVersion: version.Version, ServerVersion: server.Version})
	return 0
}

func runProjects(ctx context.Context, hub hubAPI, args []string) int {
	name := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name = args[0]
		args = args[1:]
	}
	limit := intFlag(args, "--limit", 0)
	offset := intFlag(args, "--offset", 0)

	page, err := hub.ListProjects(ctx, name, blackduck.PageOptions{Limit: limit, Offset: offset})
	if err != nil {
		return fail(err)
	}
	printJSON(server.SummarizeProjects(page))
	return 0
}

func runVersions(ctx context.Context, hub hubAPI, projectID string, args []string) int {
	limit := intFlag(args, "--limit", 0)
	offset := intFlag(args, "--offset", 0)

	page, err := hub.ListProjectVersions(ctx, projectID, blackduck.PageOptions{Limit: limit, Offset: offset})
	if err != nil {
		return fail(err)
	}
	printJSON(server.SummarizeVersions(page))
	return 0
}

func runVulnerabilities(ctx context.Context, hub hubAPI, projectID, versionID string, args []string) int {
	severity := stringFlag(args, "--severity", "")
	max := intFlag(args, "--max", 0)

	items, err := hub.AllVulnerableComponents(ctx, projectID, versionID)
	if err != nil {
		return fail(err)
	}
	printJSON(server.SummarizeVulnerabilities(items, severity, max))
	return 0
}

func runVulnerability(ctx context.Context, hub hubAPI, ids []string) int {
	detail, err := hub.VulnerabilityRemediation(ctx, ids[0], ids[1], ids[2], ids[3], ids[4])
	if err != nil {
		return fail(err)
	}
	printJSON(server.SummarizeRemediation(detail))
	return 0
}

func runRemediate(ctx context.Context, hub hubAPI, args []string, comment string) int {
	err := hub.UpdateRemediation(ctx, args[0], args[1], args[2], args[3], args[4], args[5], comment)
	if err != nil {
		return fail(err)
	}
	printJSON(server.RemediationResult{
		VulnerabilityID: args[4],
		Status:          args[5],
		Comment:         comment,
	})
	return 0
}

func runFix(ctx context.Context, guide resolver, ids []string) int {
	result, err := guide.Resolve(ctx, fixguidance.Coordinate{
		ProjectID:          ids[0],
		ProjectVersionID:   ids[1],
		ComponentID:        ids[2],
		ComponentVersionID: ids[3],
		VulnerabilityID:    ids[4],
		OriginID:           ids[5],
	})
	if err != nil {
		return fail(err)
	}
	printJSON(result)
	return 0
}

// intFlag scans args for "--name value" and parses the value. Missing or
// unparseable values yield the default.
func intFlag(args []string, name string, def int) int {
	for i, arg := range args {
		if arg == name && i+1 < len(args) {
			if n, err := strconv.Atoi(args[i+1]); err == nil {
				return n
			}
		}
	}
	return def
}

// stringFlag scans args for "--name value".
func stringFlag(args []string, name, def string) string {
	for i, arg := range args {
		if arg == name && i+1 < len(args) {
			return args[i+1]
		}
	}
	return def
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "Error: failed to encode output:", err)
	}
}
