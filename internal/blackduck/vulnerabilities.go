package blackduck

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	// vulnerablePageSize is the page size used when walking a full
	// vulnerable-component listing.
	vulnerablePageSize = 100

	// maxVulnerableComponents is the safety limit on rows collected by a
	// full listing walk.
	maxVulnerableComponents = 2000

	// vulnerablePageWorkers is the max parallel page fetches.
	vulnerablePageWorkers = 4
)

// vulnerableComponentsPath builds the vulnerable BOM listing path.
func vulnerableComponentsPath(projectID, versionID string) string {
	return fmt.Sprintf("/api/projects/%s/versions/%s/vulnerable-bom-components",
		url.PathEscape(projectID), url.PathEscape(versionID))
}

// ListVulnerableComponents returns one page of the version's vulnerable BOM
// components.
func (c *Client) ListVulnerableComponents(ctx context.Context, projectID, versionID string, page PageOptions) (*VulnerableComponentPage, error) {
	var out VulnerableComponentPage
	if err := c.do(ctx, http.MethodGet, vulnerableComponentsPath(projectID, versionID), page.query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AllVulnerableComponents walks every page of the version's vulnerable BOM
// components, fetching the pages after the first concurrently. Rows come
// back in the Hub's order, truncated at maxVulnerableComponents.
func (c *Client) AllVulnerableComponents(ctx context.Context, projectID, versionID string) ([]VulnerableComponent, error) {
	first, err := c.ListVulnerableComponents(ctx, projectID, versionID, PageOptions{Limit: vulnerablePageSize})
	if err != nil {
		return nil, err
	}

	total := first.TotalCount
	if total > maxVulnerableComponents {
		c.log.Warn("vulnerable component listing truncated",
			"total", total, "limit", maxVulnerableComponents)
		total = maxVulnerableComponents
	}
	if len(first.Items) == 0 || total <= len(first.Items) {
		items := first.Items
		if total >= 0 && len(items) > total {
			items = items[:total]
		}
		return items, nil
	}

	pages := (total + vulnerablePageSize - 1) / vulnerablePageSize
	results := make([][]VulnerableComponent, pages)
	results[0] = first.Items

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(vulnerablePageWorkers)
	for p := 1; p < pages; p++ {
		g.Go(func() error {
			page, err := c.ListVulnerableComponents(gctx, projectID, versionID, PageOptions{
				Limit:  vulnerablePageSize,
				Offset: p * vulnerablePageSize,
			})
			if err != nil {
				return err
			}
			results[p] = page.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]VulnerableComponent, 0, total)
	for _, r := range results {
		items = append(items, r...)
	}
	if len(items) > total {
		items = items[:total]
	}
	return items, nil
}

// remediationPath builds the remediation resource path for one vulnerability
// on one BOM component occurrence.
func remediationPath(projectID, versionID, componentID, componentVersionID, vulnerabilityID string) string {
	return fmt.Sprintf(
		"/api/projects/%s/versions/%s/components/%s/component-versions/%s/vulnerabilities/%s/remediation",
		url.PathEscape(projectID), url.PathEscape(versionID), url.PathEscape(componentID),
		url.PathEscape(componentVersionID), url.PathEscape(vulnerabilityID))
}

// VulnerabilityRemediation fetches the remediation detail for one
// vulnerability on one BOM component occurrence.
func (c *Client) VulnerabilityRemediation(ctx context.Context, projectID, versionID, componentID, componentVersionID, vulnerabilityID string) (*RemediationDetail, error) {
	var out RemediationDetail
	path := remediationPath(projectID, versionID, componentID, componentVersionID, vulnerabilityID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemediationStatuses are the workflow states the Hub accepts on a
// vulnerability remediation.
var RemediationStatuses = []string{
	"NEW",
	"NEEDS_REVIEW",
	"UNDER_INVESTIGATION",
	"REMEDIATION_REQUIRED",
	"REMEDIATION_COMPLETE",
	"MITIGATED",
	"PATCHED",
	"IGNORED",
	"DUPLICATE",
}

// ValidRemediationStatus reports whether status names a recognized workflow
// state. Matching is case-insensitive; the Hub stores statuses upper-case.
func ValidRemediationStatus(status string) bool {
	for _, s := range RemediationStatuses {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}

// UpdateRemediation sets the remediation workflow status, and optionally a
// comment, for one vulnerability on one BOM component occurrence.
func (c *Client) UpdateRemediation(ctx context.Context, projectID, versionID, componentID, componentVersionID, vulnerabilityID, status, comment string) error {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !ValidRemediationStatus(status) {
		return NewError(KindValidation, "invalid remediation status %q (valid: %s)",
			status, strings.Join(RemediationStatuses, ", "))
	}
	body := RemediationUpdate{RemediationStatus: status, Comment: comment}
	path := remediationPath(projectID, versionID, componentID, componentVersionID, vulnerabilityID)
	return c.do(ctx, http.MethodPut, path, nil, body, nil)
}
