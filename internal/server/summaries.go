package server

import (
	"strings"

	"github.com/secstack/blackduck-mcp/internal/blackduck"
)

// Compact response shapes. The Hub's payloads carry far more than a tool
// caller needs; these keep the identifiers required for follow-up calls and
// drop the rest. The CLI prints exactly these shapes.

const (
	defaultPageLimit = 50
	maxPageLimit     = 500

	defaultVulnerabilityLimit = 100
)

// clampPage normalizes caller-supplied paging into Hub page options.
func clampPage(limit, offset int) blackduck.PageOptions {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return blackduck.PageOptions{Limit: limit, Offset: offset}
}

// StatusResult reports Hub connectivity.
type StatusResult struct {
	HubVersion    string `json:"hubVersion"`
	ServerVersion string `json:"serverVersion"`
}

// ProjectSummary is one project row.
type ProjectSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Href        string `json:"href"`
}

// ProjectList is the project listing tool output.
type ProjectList struct {
	TotalCount int              `json:"totalCount"`
	Projects   []ProjectSummary `json:"projects"`
}

// SummarizeProjects reshapes a Hub project page.
func SummarizeProjects(page *blackduck.ProjectPage) ProjectList {
	out := ProjectList{
		TotalCount: page.TotalCount,
		Projects:   make([]ProjectSummary, 0, len(page.Items)),
	}
	for _, p := range page.Items {
		out.Projects = append(out.Projects, ProjectSummary{
			ID:          p.ID(),
			Name:        p.Name,
			Description: p.Description,
			Href:        p.Meta.Href,
		})
	}
	return out
}

// VersionSummary is one project version row.
type VersionSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phase        string `json:"phase,omitempty"`
	Distribution string `json:"distribution,omitempty"`
	Href         string `json:"href"`
}

// VersionList is the version listing tool output.
type VersionList struct {
	TotalCount int              `json:"totalCount"`
	Versions   []VersionSummary `json:"versions"`
}

// SummarizeVersions reshapes a Hub project version page.
func SummarizeVersions(page *blackduck.ProjectVersionPage) VersionList {
	out := VersionList{
		TotalCount: page.TotalCount,
		Versions:   make([]VersionSummary, 0, len(page.Items)),
	}
	for _, v := range page.Items {
		out.Versions = append(out.Versions, VersionSummary{
			ID:           v.ID(),
			Name:         v.VersionName,
			Phase:        v.Phase,
			Distribution: v.Distribution,
			Href:         v.Meta.Href,
		})
	}
	return out
}

// VulnerabilityRow is one vulnerable BOM component occurrence, carrying the
// identifiers needed to chain into the remediation and fix-guidance tools.
type VulnerabilityRow struct {
	Name               string  `json:"name"`
	Severity           string  `json:"severity,omitempty"`
	BaseScore          float64 `json:"baseScore,omitempty"`
	RemediationStatus  string  `json:"remediationStatus,omitempty"`
	ComponentName      string  `json:"componentName"`
	ComponentVersion   string  `json:"componentVersion,omitempty"`
	ComponentID        string  `json:"componentId,omitempty"`
	ComponentVersionID string  `json:"componentVersionId,omitempty"`
	OriginID           string  `json:"originId,omitempty"`
}

// VulnerabilityList is the vulnerability listing tool output. Returned may
// be smaller than TotalCount after severity filtering and truncation.
type VulnerabilityList struct {
	TotalCount int                `json:"totalCount"`
	Returned   int                `json:"returned"`
	Severity   string             `json:"severity,omitempty"`
	Truncated  bool               `json:"truncated,omitempty"`
	Items      []VulnerabilityRow `json:"vulnerabilities"`
}

// SummarizeVulnerabilities filters vulnerable components by severity,
// truncates to max rows, and reshapes each row. The component identifiers
// are recovered from the row's componentVersion href; the origin comes from
// the row itself.
func SummarizeVulnerabilities(items []blackduck.VulnerableComponent, severity string, max int) VulnerabilityList {
	if max <= 0 {
		max = defaultVulnerabilityLimit
	}
	severity = strings.ToUpper(strings.TrimSpace(severity))

	out := VulnerabilityList{TotalCount: len(items), Severity: severity, Items: []VulnerabilityRow{}}
	for _, item := range items {
		v := item.Vulnerability
		if severity != "" && !strings.EqualFold(v.Severity, severity) {
			continue
		}
		if len(out.Items) >= max {
			out.Truncated = true
			break
		}

		componentID, componentVersionID, _ := blackduck.ComponentIdentifiers(item.ComponentVersion)
		out.Items = append(out.Items, VulnerabilityRow{
			Name:               v.VulnerabilityName,
			Severity:           v.Severity,
			BaseScore:          v.BaseScore,
			RemediationStatus:  v.RemediationStatus,
			ComponentName:      item.ComponentName,
			ComponentVersion:   item.ComponentVersionName,
			ComponentID:        componentID,
			ComponentVersionID: componentVersionID,
			OriginID:           item.ComponentVersionOriginID,
		})
	}
	out.Returned = len(out.Items)
	return out
}

// VulnerabilityDetail is the remediation-detail tool output. Unlike the
// fix-guidance pipeline's context block, the description is carried in full.
type VulnerabilityDetail struct {
	Name              string           `json:"name"`
	Description       string           `json:"description,omitempty"`
	Severity          string           `json:"severity,omitempty"`
	BaseScore         float64          `json:"baseScore,omitempty"`
	CVSS3             *blackduck.CVSS3 `json:"cvss3,omitempty"`
	RemediationStatus string           `json:"remediationStatus,omitempty"`
	Comment           string           `json:"comment,omitempty"`
	CweID             string           `json:"cweId,omitempty"`
	UpdatedAt         string           `json:"updatedAt,omitempty"`
}

// SummarizeRemediation reshapes a remediation detail record.
func SummarizeRemediation(d *blackduck.RemediationDetail) VulnerabilityDetail {
	return VulnerabilityDetail{
		Name:              d.Name,
		Description:       d.Description,
		Severity:          d.Severity,
		BaseScore:         d.BaseScore,
		CVSS3:             d.CVSS3,
		RemediationStatus: d.RemediationStatus,
		Comment:           d.Comment,
		CweID:             d.CweID,
		UpdatedAt:         d.UpdatedAt,
	}
}

// RemediationResult confirms a remediation status update.
type RemediationResult struct {
	VulnerabilityID string `json:"vulnerabilityId"`
	Status          string `json:"status"`
	Comment         string `json:"comment,omitempty"`
}
