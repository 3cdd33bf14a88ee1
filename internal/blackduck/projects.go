package blackduck

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// PageOptions selects one page of a listing.
type PageOptions struct {
	Limit  int
	Offset int
}

// query renders the page selection as Hub query parameters.
func (p PageOptions) query() url.Values {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	return q
}

// CurrentVersion reports the Hub's release version. It is the cheapest call
// that proves both the URL and the token work.
func (c *Client) CurrentVersion(ctx context.Context) (*CurrentVersion, error) {
	var out CurrentVersion
	if err := c.do(ctx, http.MethodGet, "/api/current-version", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProjects returns one page of projects, optionally filtered by name.
func (c *Client) ListProjects(ctx context.Context, name string, page PageOptions) (*ProjectPage, error) {
	q := page.query()
	if name != "" {
		q.Set("q", "name:"+name)
	}
	var out ProjectPage
	if err := c.do(ctx, http.MethodGet, "/api/projects", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProjectVersions returns one page of a project's versions.
func (c *Client) ListProjectVersions(ctx context.Context, projectID string, page PageOptions) (*ProjectVersionPage, error) {
	path := fmt.Sprintf("/api/projects/%s/versions", url.PathEscape(projectID))
	var out ProjectVersionPage
	if err := c.do(ctx, http.MethodGet, path, page.query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
