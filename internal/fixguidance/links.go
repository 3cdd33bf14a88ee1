package fixguidance

import "github.com/secstack/blackduck-mcp/internal/blackduck"

// DependencyType classifies how a vulnerable component entered the project.
type DependencyType string

const (
	// Direct marks a component the project declares itself.
	Direct DependencyType = "DIRECT"
	// Transitive marks a component pulled in through another dependency.
	Transitive DependencyType = "TRANSITIVE"
)

// guidanceRel returns the link relation carrying upgrade guidance for this
// dependency type.
func (t DependencyType) guidanceRel() string {
	if t == Transitive {
		return "transitive-upgrade-guidance"
	}
	return "upgrade-guidance"
}

// GuidanceIdentifiers key an upgrade-guidance lookup. They may differ from
// the vulnerability's own identifiers: guidance is keyed on the component as
// it appears in the BOM graph, one node up the dependency path.
type GuidanceIdentifiers struct {
	ComponentID        string
	ComponentVersionID string
	OriginID           string
}

// guidanceIdentifiersFromPath recovers guidance identifiers from the
// second-to-last node of a dependency path. It returns nil, never an error,
// when the path has fewer than two nodes, the node carries no guidance link,
// or the link's href lacks the component and version segments; callers fall
// back to the identifiers they already hold.
func guidanceIdentifiersFromPath(path []blackduck.PathNode, depType DependencyType) *GuidanceIdentifiers {
	if len(path) < 2 {
		return nil
	}

	node := path[len(path)-2]
	href := node.Meta.FindLink(depType.guidanceRel())
	if href == "" {
		return nil
	}

	componentID, versionID, originID := blackduck.ComponentIdentifiers(href)
	if componentID == "" || versionID == "" {
		return nil
	}

	ids := &GuidanceIdentifiers{
		ComponentID:        componentID,
		ComponentVersionID: versionID,
	}
	if depType == Transitive {
		ids.OriginID = originID
	}
	return ids
}
