package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve_NamedSelection(t *testing.T) {
	c := Default()

	res, err := c.Resolve("web,nginx", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(res.Targets))
	}
	if res.Targets[0].Name != "web" || res.Targets[1].Name != "nginx" {
		t.Errorf("expected [web nginx], got %v", res.Targets)
	}
	if len(res.Unknown) != 0 {
		t.Errorf("expected no unknown tokens, got %v", res.Unknown)
	}
}

func TestResolve_CatalogOrder(t *testing.T) {
	c := Default()

	// Selection order must not matter: output follows catalog order.
	res, err := c.Resolve("nginx,web", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Targets[0].Name != "web" || res.Targets[1].Name != "nginx" {
		t.Errorf("expected catalog order [web nginx], got %v", res.Targets)
	}
}

func TestResolve_Wildcard(t *testing.T) {
	c := Default()

	for _, selection := range []string{"all", "all,bogus", "web,all"} {
		res, err := c.Resolve(selection, false)
		if err != nil {
			t.Fatalf("selection %q: unexpected error: %v", selection, err)
		}
		if len(res.Targets) != c.Len() {
			t.Errorf("selection %q: expected full catalog (%d), got %d",
				selection, c.Len(), len(res.Targets))
		}
		if len(res.Unknown) != 0 {
			t.Errorf("selection %q: wildcard should clear unknown tokens", selection)
		}
	}
}

func TestResolve_UnknownDropped(t *testing.T) {
	c := Default()

	res, err := c.Resolve("web,bogus", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Targets) != 1 || res.Targets[0].Name != "web" {
		t.Errorf("expected [web], got %v", res.Targets)
	}
	if len(res.Unknown) != 1 || res.Unknown[0] != "bogus" {
		t.Errorf("expected [bogus] unknown, got %v", res.Unknown)
	}
}

func TestResolve_UnknownStrict(t *testing.T) {
	c := Default()

	if _, err := c.Resolve("web,bogus", true); err == nil {
		t.Fatal("expected error in strict mode")
	}
}

func TestResolve_OnlyUnknown(t *testing.T) {
	c := Default()

	// All tokens unknown: fatal configuration error, zero builds.
	if _, err := c.Resolve("bogus,nope", false); err == nil {
		t.Fatal("expected error when selection matches nothing")
	}
}

func TestResolve_Empty(t *testing.T) {
	c := Default()

	for _, selection := range []string{"", " ", ",,"} {
		if _, err := c.Resolve(selection, false); err == nil {
			t.Errorf("selection %q: expected error", selection)
		}
	}
}

func TestValidateReference(t *testing.T) {
	tests := []struct {
		ref     string
		wantErr bool
	}{
		{"v1.2.3", false},
		{"v0.1", false},
		{"release/1.8", false},
		{"release-2024", false},
		{"release", false},
		{"main", true},
		{"feature/foo", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateReference(tt.ref)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateReference(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
		}
	}
}

func TestDeriveTag(t *testing.T) {
	if got := DeriveTag("release/1.8"); got != "release-1.8" {
		t.Errorf("expected release-1.8, got %s", got)
	}
	if got := DeriveTag("v1.2.3"); got != "v1.2.3" {
		t.Errorf("expected v1.2.3, got %s", got)
	}
}

func TestWithTag(t *testing.T) {
	c := Default()
	res, err := c.Resolve("web,nginx", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	targets := res.WithTag("release-1.8")
	for _, target := range targets {
		if target.Tag != "release-1.8" {
			t.Errorf("target %s: expected tag release-1.8, got %s", target.Name, target.Tag)
		}
	}

	// Original resolution must be untouched.
	if res.Targets[0].Tag != "" {
		t.Error("WithTag must not mutate the resolution")
	}
}

func TestWithTag_ExplicitTagKept(t *testing.T) {
	c, err := New([]BuildTarget{
		{Name: "pinned", BuildFile: "Dockerfile", Tag: "stable"},
		{Name: "floating", BuildFile: "Dockerfile"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := c.Resolve("all", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	targets := res.WithTag("v2")
	if targets[0].Tag != "stable" {
		t.Errorf("explicit tag overwritten: got %s", targets[0].Tag)
	}
	if targets[1].Tag != "v2" {
		t.Errorf("expected derived tag v2, got %s", targets[1].Tag)
	}
}

func TestNew_DuplicateName(t *testing.T) {
	_, err := New([]BuildTarget{
		{Name: "web", BuildFile: "a"},
		{Name: "web", BuildFile: "b"},
	})
	if err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")

	content := `targets:
  - name: api
    build_file: docker/api/Dockerfile
  - name: cron
    build_file: docker/cron/Dockerfile
    tag: pinned
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 targets, got %d", c.Len())
	}
	if c.Targets()[1].Tag != "pinned" {
		t.Errorf("expected pinned tag, got %s", c.Targets()[1].Tag)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/catalog.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromFile_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte("targets: []\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}

func TestImageRef(t *testing.T) {
	target := BuildTarget{Name: "web", Tag: "release-1.8"}
	if got := target.ImageRef(); got != "web:release-1.8" {
		t.Errorf("expected web:release-1.8, got %s", got)
	}
}
