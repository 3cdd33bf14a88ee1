package blackduck

import "testing"

func TestSegmentAfter(t *testing.T) {
	tests := []struct {
		name    string
		href    string
		segment string
		want    string
	}{
		{
			name:    "project id",
			href:    "https://hub.example.com/api/projects/proj-1/versions/ver-1",
			segment: "projects",
			want:    "proj-1",
		},
		{
			name:    "first versions segment wins",
			href:    "https://hub.example.com/api/projects/proj-1/versions/ver-1",
			segment: "versions",
			want:    "ver-1",
		},
		{
			name:    "segment absent",
			href:    "https://hub.example.com/api/projects/proj-1",
			segment: "components",
			want:    "",
		},
		{
			name:    "segment is terminal",
			href:    "https://hub.example.com/api/projects",
			segment: "projects",
			want:    "",
		},
		{
			name:    "empty href",
			href:    "",
			segment: "projects",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SegmentAfter(tt.href, tt.segment); got != tt.want {
				t.Errorf("SegmentAfter(%q, %q) = %q, want %q", tt.href, tt.segment, got, tt.want)
			}
		})
	}
}

func TestComponentIdentifiers(t *testing.T) {
	tests := []struct {
		name          string
		href          string
		wantComponent string
		wantVersion   string
		wantOrigin    string
	}{
		{
			name:          "direct guidance link",
			href:          "https://hub.example.com/api/components/C1/versions/V1/upgrade-guidance",
			wantComponent: "C1",
			wantVersion:   "V1",
		},
		{
			name:          "transitive guidance link",
			href:          "https://hub.example.com/api/components/C1/versions/V1/origins/O1/transitive-upgrade-guidance",
			wantComponent: "C1",
			wantVersion:   "V1",
			wantOrigin:    "O1",
		},
		{
			name:          "bom row href with two versions segments",
			href:          "https://hub.example.com/api/projects/P1/versions/PV1/components/C1/versions/CV1/origins/O1/remediation",
			wantComponent: "C1",
			wantVersion:   "CV1",
			wantOrigin:    "O1",
		},
		{
			name: "missing components segment",
			href: "https://hub.example.com/api/projects/P1/versions/PV1",
		},
		{
			name:          "versions segment missing after components",
			href:          "https://hub.example.com/api/components/C1",
			wantComponent: "C1",
		},
		{
			name: "empty href",
			href: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			component, version, origin := ComponentIdentifiers(tt.href)
			if component != tt.wantComponent {
				t.Errorf("componentID = %q, want %q", component, tt.wantComponent)
			}
			if version != tt.wantVersion {
				t.Errorf("versionID = %q, want %q", version, tt.wantVersion)
			}
			if origin != tt.wantOrigin {
				t.Errorf("originID = %q, want %q", origin, tt.wantOrigin)
			}
		})
	}
}

func TestFindLink(t *testing.T) {
	meta := Meta{
		Href: "https://hub.example.com/api/components/C1/versions/V1",
		Links: []Link{
			{Rel: "vulnerabilities", Href: "https://hub.example.com/api/components/C1/versions/V1/vulnerabilities"},
			{Rel: "upgrade-guidance", Href: "https://hub.example.com/api/components/C1/versions/V1/upgrade-guidance"},
		},
	}

	if got := meta.FindLink("upgrade-guidance"); got != meta.Links[1].Href {
		t.Errorf("FindLink(upgrade-guidance) = %q, want %q", got, meta.Links[1].Href)
	}
	if got := meta.FindLink("transitive-upgrade-guidance"); got != "" {
		t.Errorf("FindLink(missing rel) = %q, want empty", got)
	}
}

func TestResourceIDs(t *testing.T) {
	project := Project{Meta: Meta{Href: "https://hub.example.com/api/projects/proj-9"}}
	if got := project.ID(); got != "proj-9" {
		t.Errorf("Project.ID() = %q, want proj-9", got)
	}

	version := ProjectVersion{Meta: Meta{Href: "https://hub.example.com/api/projects/proj-9/versions/ver-3"}}
	if got := version.ID(); got != "ver-3" {
		t.Errorf("ProjectVersion.ID() = %q, want ver-3", got)
	}
}
