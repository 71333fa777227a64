package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wildcard selects every target in the catalog regardless of other tokens.
const Wildcard = "all"

// BuildTarget is a named buildable unit with its own build file and tag.
type BuildTarget struct {
	Name      string `yaml:"name" json:"name"`
	BuildFile string `yaml:"build_file" json:"build_file"`
	Tag       string `yaml:"tag" json:"tag"`
}

// ImageRef returns the full image reference for the target.
func (t BuildTarget) ImageRef() string {
	return t.Name + ":" + t.Tag
}

// Catalog is the fixed mapping from name to build target. Order is
// preserved so serial builds run in catalog order.
type Catalog struct {
	targets []BuildTarget
	byName  map[string]int
}

// New creates a catalog from an ordered target list. Duplicate names are
// rejected.
func New(targets []BuildTarget) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(targets))}
	for _, t := range targets {
		if t.Name == "" {
			return nil, fmt.Errorf("catalog entry with empty name")
		}
		if _, dup := c.byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate catalog entry: %s", t.Name)
		}
		c.byName[t.Name] = len(c.targets)
		c.targets = append(c.targets, t)
	}
	return c, nil
}

// Default returns the built-in target catalog.
func Default() *Catalog {
	c, _ := New([]BuildTarget{
		{Name: "web", BuildFile: "docker/web/Dockerfile"},
		{Name: "worker-app", BuildFile: "docker/worker-app/Dockerfile"},
		{Name: "worker-mail", BuildFile: "docker/worker-mail/Dockerfile"},
		{Name: "nginx", BuildFile: "docker/nginx/Dockerfile"},
	})
	return c
}

// catalogFile is the YAML shape of an external catalog definition.
type catalogFile struct {
	Targets []BuildTarget `yaml:"targets"`
}

// LoadFromFile reads a catalog definition from a YAML file.
func LoadFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(cf.Targets) == 0 {
		return nil, fmt.Errorf("catalog %s defines no targets", path)
	}

	return New(cf.Targets)
}

// Targets returns all targets in catalog order.
func (c *Catalog) Targets() []BuildTarget {
	out := make([]BuildTarget, len(c.targets))
	copy(out, c.targets)
	return out
}

// Len returns the number of targets in the catalog.
func (c *Catalog) Len() int {
	return len(c.targets)
}

// Names returns all target names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.targets))
	for _, t := range c.targets {
		names = append(names, t.Name)
	}
	return names
}

// Resolution is the outcome of resolving a selection against the catalog.
type Resolution struct {
	Targets []BuildTarget
	// Unknown holds selection tokens that matched no catalog entry.
	// They are dropped with a warning unless strict mode is on.
	Unknown []string
}

// Resolve maps a comma-separated selection to catalog entries, in catalog
// order. The wildcard token short-circuits to the full catalog. Unknown
// tokens are collected; in strict mode they are an error. An empty result
// after filtering is always an error — nothing to build.
func (c *Catalog) Resolve(selection string, strict bool) (*Resolution, error) {
	tokens := splitSelection(selection)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty target selection")
	}

	res := &Resolution{}

	for _, tok := range tokens {
		if tok == Wildcard {
			res.Targets = c.Targets()
			res.Unknown = nil
			return res, nil
		}
	}

	selected := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if _, ok := c.byName[tok]; ok {
			selected[tok] = true
		} else {
			res.Unknown = append(res.Unknown, tok)
		}
	}

	if strict && len(res.Unknown) > 0 {
		return nil, fmt.Errorf("unknown target(s): %s", strings.Join(res.Unknown, ", "))
	}

	// Emit in catalog order, not selection order, so serial builds are
	// deterministic.
	for _, t := range c.targets {
		if selected[t.Name] {
			res.Targets = append(res.Targets, t)
		}
	}

	if len(res.Targets) == 0 {
		return nil, fmt.Errorf("selection %q matches no catalog targets", selection)
	}

	return res, nil
}

// splitSelection splits a comma-separated selection into trimmed,
// non-empty tokens.
func splitSelection(selection string) []string {
	var tokens []string
	for _, tok := range strings.Split(selection, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// ValidateReference checks that a git-like reference matches the allowed
// patterns: v* or release* (including release/*).
func ValidateReference(ref string) error {
	if ref == "" {
		return fmt.Errorf("empty reference")
	}
	if strings.HasPrefix(ref, "v") || strings.HasPrefix(ref, "release") {
		return nil
	}
	return fmt.Errorf("invalid reference %q: must match v* or release*", ref)
}

// DeriveTag converts a reference into an image tag. Slashes are not valid
// in tags, so release/1.8 becomes release-1.8.
func DeriveTag(ref string) string {
	return strings.ReplaceAll(ref, "/", "-")
}

// WithTag returns a copy of the resolution with every target's tag set.
// Targets without an explicit catalog tag inherit the derived tag.
func (r *Resolution) WithTag(tag string) []BuildTarget {
	out := make([]BuildTarget, len(r.Targets))
	copy(out, r.Targets)
	for i := range out {
		if out[i].Tag == "" {
			out[i].Tag = tag
		}
	}
	return out
}
