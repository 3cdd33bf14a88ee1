package fixguidance

import (
	"context"
	"strings"

	"github.com/secstack/blackduck-mcp/internal/blackduck"
)

// classification pairs the dependency type with the identifiers to use for
// the guidance lookup.
type classification struct {
	dependencyType DependencyType
	ids            GuidanceIdentifiers
}

// classifyDependency determines whether the vulnerable component is a
// direct or transitive dependency, and which identifiers key its upgrade
// guidance. When multiple dependency paths exist the first one decides.
// Lookup failures and empty listings both degrade to DIRECT with the
// caller's identifiers retained, so a BOM graph outage never blocks
// guidance; the two causes are logged distinctly.
func (p *Pipeline) classifyDependency(ctx context.Context, coord Coordinate) classification {
	fallback := classification{
		dependencyType: Direct,
		ids: GuidanceIdentifiers{
			ComponentID:        coord.ComponentID,
			ComponentVersionID: coord.ComponentVersionID,
			OriginID:           coord.OriginID,
		},
	}

	page, err := p.api.DependencyPaths(ctx, coord.ProjectID, coord.ProjectVersionID, coord.OriginID)
	if err != nil {
		p.log.Warn("dependency path lookup failed, treating as direct dependency",
			"origin", coord.OriginID, "error", err)
		return fallback
	}
	if len(page.Items) == 0 {
		p.log.Warn("no dependency paths found, treating as direct dependency",
			"origin", coord.OriginID)
		return fallback
	}

	first := page.Items[0]
	result := fallback
	if strings.EqualFold(first.Type, string(Transitive)) {
		result.dependencyType = Transitive
	}

	if ids := guidanceIdentifiersFromPath(first.Path, result.dependencyType); ids != nil {
		result.ids.ComponentID = ids.ComponentID
		result.ids.ComponentVersionID = ids.ComponentVersionID
		if result.dependencyType == Transitive && ids.OriginID != "" {
			result.ids.OriginID = ids.OriginID
		}
	}
	return result
}

// fetchGuidance calls the guidance endpoint matching the classification.
// This is the one remote call whose failure is fatal to the pipeline.
func (p *Pipeline) fetchGuidance(ctx context.Context, cls classification) (*blackduck.UpgradeGuidance, error) {
	if cls.dependencyType == Transitive {
		return p.api.TransitiveUpgradeGuidance(ctx, cls.ids.ComponentID, cls.ids.ComponentVersionID, cls.ids.OriginID)
	}
	return p.api.UpgradeGuidance(ctx, cls.ids.ComponentID, cls.ids.ComponentVersionID)
}
