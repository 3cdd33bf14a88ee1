package blackduck

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// DependencyPaths retrieves how the given origin is reached through the
// project version's BOM graph. The origin id is mandatory: without it the
// resource path cannot be formed, so an empty id is reported as an
// unknown-origin error rather than a validation failure.
func (c *Client) DependencyPaths(ctx context.Context, projectID, versionID, originID string) (*DependencyPathPage, error) {
	if originID == "" {
		return nil, NewError(KindUnknownOrigin, "origin is unknown, cannot look up dependency paths")
	}
	path := fmt.Sprintf("/api/projects/%s/versions/%s/origins/%s/dependency-paths",
		url.PathEscape(projectID), url.PathEscape(versionID), url.PathEscape(originID))
	var out DependencyPathPage
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpgradeGuidance fetches upgrade guidance for a directly declared
// component version.
func (c *Client) UpgradeGuidance(ctx context.Context, componentID, componentVersionID string) (*UpgradeGuidance, error) {
	path := fmt.Sprintf("/api/components/%s/versions/%s/upgrade-guidance",
		url.PathEscape(componentID), url.PathEscape(componentVersionID))
	var out UpgradeGuidance
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransitiveUpgradeGuidance fetches upgrade guidance for a component version
// pulled in through a direct dependency, keyed by its origin.
func (c *Client) TransitiveUpgradeGuidance(ctx context.Context, componentID, componentVersionID, originID string) (*UpgradeGuidance, error) {
	if originID == "" {
		return nil, NewError(KindUnknownOrigin, "origin is unknown, cannot look up transitive upgrade guidance")
	}
	path := fmt.Sprintf("/api/components/%s/versions/%s/origins/%s/transitive-upgrade-guidance",
		url.PathEscape(componentID), url.PathEscape(componentVersionID), url.PathEscape(originID))
	var out UpgradeGuidance
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
