package blackduck

import "strings"

// Meta is the _meta block the Hub attaches to every resource, carrying the
// resource's canonical href and its related links.
type Meta struct {
	Href  string `json:"href"`
	Links []Link `json:"links"`
}

// Link is one rel/href pair from a resource's _meta block.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// FindLink returns the href of the first link with the given rel, or "".
func (m Meta) FindLink(rel string) string {
	for _, l := range m.Links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

// CurrentVersion is the Hub's release version resource.
type CurrentVersion struct {
	Version string `json:"version"`
	Meta    Meta   `json:"_meta"`
}

// Project is one Hub project.
type Project struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ProjectTier int    `json:"projectTier,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	Meta        Meta   `json:"_meta"`
}

// ID returns the project identifier embedded in the resource href.
func (p Project) ID() string {
	return SegmentAfter(p.Meta.Href, "projects")
}

// ProjectPage is one page of a project listing.
type ProjectPage struct {
	TotalCount int       `json:"totalCount"`
	Items      []Project `json:"items"`
}

// ProjectVersion is one version of a project.
type ProjectVersion struct {
	VersionName  string `json:"versionName"`
	Phase        string `json:"phase,omitempty"`
	Distribution string `json:"distribution,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	Meta         Meta   `json:"_meta"`
}

// ID returns the version identifier embedded in the resource href.
func (v ProjectVersion) ID() string {
	return SegmentAfter(v.Meta.Href, "versions")
}

// ProjectVersionPage is one page of a project's version listing.
type ProjectVersionPage struct {
	TotalCount int              `json:"totalCount"`
	Items      []ProjectVersion `json:"items"`
}

// VulnerabilityWithRemediation is the vulnerability block embedded in a
// vulnerable BOM component, including its remediation workflow state.
type VulnerabilityWithRemediation struct {
	VulnerabilityName    string  `json:"vulnerabilityName"`
	Description          string  `json:"description,omitempty"`
	Severity             string  `json:"severity,omitempty"`
	BaseScore            float64 `json:"baseScore,omitempty"`
	OverallScore         float64 `json:"overallScore,omitempty"`
	CweID                string  `json:"cweId,omitempty"`
	RemediationStatus    string  `json:"remediationStatus,omitempty"`
	RemediationCreatedAt string  `json:"remediationCreatedAt,omitempty"`
	RemediationUpdatedAt string  `json:"remediationUpdatedAt,omitempty"`
	PublishedDate        string  `json:"vulnerabilityPublishedDate,omitempty"`
	UpdatedDate          string  `json:"vulnerabilityUpdatedDate,omitempty"`
}

// VulnerableComponent is one row of a project version's vulnerable BOM
// component listing. The identifiers needed for follow-up calls are embedded
// in the row's hrefs, not carried as plain fields.
type VulnerableComponent struct {
	ComponentName              string                       `json:"componentName"`
	ComponentVersionName       string                       `json:"componentVersionName,omitempty"`
	ComponentVersion           string                       `json:"componentVersion,omitempty"`
	ComponentVersionOriginName string                       `json:"componentVersionOriginName,omitempty"`
	ComponentVersionOriginID   string                       `json:"componentVersionOriginId,omitempty"`
	Vulnerability              VulnerabilityWithRemediation `json:"vulnerabilityWithRemediation"`
	Meta                       Meta                         `json:"_meta"`
}

// VulnerableComponentPage is one page of a vulnerable BOM component listing.
type VulnerableComponentPage struct {
	TotalCount int                   `json:"totalCount"`
	Items      []VulnerableComponent `json:"items"`
}

// CVSS3 is the CVSS v3 scoring block of a vulnerability.
type CVSS3 struct {
	BaseScore float64 `json:"baseScore"`
	Severity  string  `json:"severity,omitempty"`
	Vector    string  `json:"vector,omitempty"`
}

// RemediationDetail is the remediation record for one vulnerability on one
// BOM component occurrence.
type RemediationDetail struct {
	Name              string  `json:"name"`
	Description       string  `json:"description,omitempty"`
	Severity          string  `json:"severity,omitempty"`
	BaseScore         float64 `json:"baseScore,omitempty"`
	OverallScore      float64 `json:"overallScore,omitempty"`
	CweID             string  `json:"cweId,omitempty"`
	RemediationStatus string  `json:"remediationStatus,omitempty"`
	Comment           string  `json:"comment,omitempty"`
	CreatedAt         string  `json:"createdAt,omitempty"`
	UpdatedAt         string  `json:"updatedAt,omitempty"`
	CVSS3             *CVSS3  `json:"cvss3,omitempty"`
	Meta              Meta    `json:"_meta"`
}

// RemediationUpdate is the writable subset of a remediation record.
type RemediationUpdate struct {
	RemediationStatus string `json:"remediationStatus"`
	Comment           string `json:"comment,omitempty"`
}

// PathNode is one hop in a dependency path, ordered from the project root
// down to the vulnerable component.
type PathNode struct {
	ComponentName        string `json:"componentName"`
	ComponentVersionName string `json:"componentVersionName,omitempty"`
	Meta                 Meta   `json:"_meta"`
}

// DependencyPath describes one way an origin is reached from the project.
type DependencyPath struct {
	Type string     `json:"type"`
	Path []PathNode `json:"path"`
}

// DependencyPathPage is the dependency-path listing for one origin.
type DependencyPathPage struct {
	TotalCount int              `json:"totalCount"`
	Items      []DependencyPath `json:"items"`
}

// RiskProfile counts vulnerabilities by severity bucket.
type RiskProfile struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// GuidanceTerm is one upgrade horizon within an upgrade-guidance payload.
type GuidanceTerm struct {
	Version           string      `json:"version,omitempty"`
	VersionName       string      `json:"versionName"`
	OriginID          string      `json:"originId,omitempty"`
	OriginExternalID  string      `json:"originExternalId,omitempty"`
	VulnerabilityRisk RiskProfile `json:"vulnerabilityRisk"`
}

// UpgradeGuidance is the Hub's upgrade-guidance payload for one component
// version. Either horizon may be absent; absence means no fix exists at
// that horizon, not an error.
type UpgradeGuidance struct {
	Component        string        `json:"component,omitempty"`
	ComponentName    string        `json:"componentName"`
	Version          string        `json:"version,omitempty"`
	VersionName      string        `json:"versionName"`
	OriginID         string        `json:"originId,omitempty"`
	OriginExternalID string        `json:"originExternalId,omitempty"`
	ShortTerm        *GuidanceTerm `json:"shortTerm,omitempty"`
	LongTerm         *GuidanceTerm `json:"longTerm,omitempty"`
	Meta             Meta          `json:"_meta"`
}

// SegmentAfter returns the token immediately following the first occurrence
// of segment in the slash-delimited href, or "" when segment is absent or
// has no following token.
func SegmentAfter(href, segment string) string {
	parts := strings.Split(href, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == segment {
			return parts[i+1]
		}
	}
	return ""
}

// ComponentIdentifiers extracts the component, component-version and origin
// identifiers embedded in a Hub href. Segments are scanned left to right
// starting at "components", so project-level "versions" segments never
// shadow the component version. Absent segments yield empty strings.
func ComponentIdentifiers(href string) (componentID, versionID, originID string) {
	parts := strings.Split(href, "/")
	i := 0
	next := func(segment string) string {
		for ; i < len(parts)-1; i++ {
			if parts[i] == segment {
				i++
				return parts[i]
			}
		}
		return ""
	}
	componentID = next("components")
	versionID = next("versions")
	originID = next("origins")
	return componentID, versionID, originID
}
