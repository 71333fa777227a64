package discovery

import (
	"os"
	"path/filepath"
	"strings"
)

// LookPathFunc matches the signature of exec.LookPath.
type LookPathFunc func(file string) (string, error)

// GetenvFunc matches the signature of os.Getenv.
type GetenvFunc func(key string) string

// Discoverer probes the local environment for the external tools and
// credentials the pipeline depends on. Injectable deps make it fully
// testable.
type Discoverer struct {
	lookPath LookPathFunc
	getenv   GetenvFunc
}

// New creates a Discoverer with the given dependency functions.
func New(lookPath LookPathFunc, getenv GetenvFunc) *Discoverer {
	return &Discoverer{
		lookPath: lookPath,
		getenv:   getenv,
	}
}

// ToolDiscovery describes what was found for a single tool.
type ToolDiscovery struct {
	Name       string         `json:"name"`
	Binary     string         `json:"binary"`
	BinaryPath string         `json:"binary_path"`
	Available  bool           `json:"available"`
	Required   bool           `json:"required"`
	EnvVars    []EnvVarStatus `json:"env_vars,omitempty"`
	Configs    []ConfigStatus `json:"configs,omitempty"`
	Configured bool           `json:"configured"`
	Ready      bool           `json:"ready"`
}

// EnvVarStatus tracks whether an environment variable is set.
type EnvVarStatus struct {
	Name string `json:"name"`
	Set  bool   `json:"set"`
}

// ConfigStatus tracks whether a config file exists.
type ConfigStatus struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// Plan is the complete result of an environment probe.
type Plan struct {
	Tools        []ToolDiscovery `json:"tools"`
	TotalFound   int             `json:"total_found"`
	TotalReady   int             `json:"total_ready"`
	MissingTools []string        `json:"missing_tools,omitempty"`
}

// Discover checks which tools are installed, which env vars are set, and
// which config files exist. No network calls.
func (d *Discoverer) Discover() *Plan {
	plan := &Plan{}

	for name, info := range Registry {
		td := ToolDiscovery{
			Name:     name,
			Binary:   info.Binary,
			Required: info.Required,
		}

		if path, err := d.lookPath(info.Binary); err == nil {
			td.Available = true
			td.BinaryPath = path
		}

		anyEnvSet := false
		for _, envVar := range info.EnvVars {
			isSet := d.getenv(envVar) != ""
			td.EnvVars = append(td.EnvVars, EnvVarStatus{
				Name: envVar,
				Set:  isSet,
			})
			if isSet {
				anyEnvSet = true
			}
		}

		anyConfigExists := false
		for _, cfgPath := range info.ConfigFiles {
			expanded := expandHome(cfgPath)
			exists := pathExists(expanded)
			td.Configs = append(td.Configs, ConfigStatus{
				Path:   cfgPath,
				Exists: exists,
			})
			if exists {
				anyConfigExists = true
			}
		}

		td.Configured = anyEnvSet || anyConfigExists
		// docker and trivy work out of the box; the registry entry
		// only becomes ready once credentials are present.
		if len(info.EnvVars) == 0 && len(info.ConfigFiles) == 0 {
			td.Configured = true
		}
		if info.Required {
			td.Ready = td.Available
		} else {
			td.Ready = td.Available && allEnvSet(td.EnvVars)
		}

		plan.Tools = append(plan.Tools, td)

		if td.Available {
			plan.TotalFound++
		}
		if td.Ready {
			plan.TotalReady++
		}
		if info.Required && !td.Available {
			plan.MissingTools = append(plan.MissingTools, name)
		}
	}

	sortTools(plan.Tools)
	sortStrings(plan.MissingTools)

	return plan
}

// PipelineReady reports whether every required tool is available.
func (p *Plan) PipelineReady() bool {
	return len(p.MissingTools) == 0
}

// PushReady reports whether registry credentials are fully configured.
func (p *Plan) PushReady() bool {
	for _, t := range p.Tools {
		if t.Name == "registry" {
			return t.Ready
		}
	}
	return false
}

func allEnvSet(vars []EnvVarStatus) bool {
	for _, v := range vars {
		if !v.Set {
			return false
		}
	}
	return len(vars) > 0
}

// sortTools sorts by name for deterministic output.
func sortTools(tools []ToolDiscovery) {
	n := len(tools)
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			if tools[i].Name > tools[j].Name {
				tools[i], tools[j] = tools[j], tools[i]
			}
		}
	}
}

func sortStrings(items []string) {
	n := len(items)
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			if items[i] > items[j] {
				items[i], items[j] = items[j], items[i]
			}
		}
	}
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// pathExists checks if a file or directory exists.
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
