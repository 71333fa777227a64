package discovery

// ToolExecInfo describes how to probe one external tool the pipeline needs.
type ToolExecInfo struct {
	Binary      string   // executable name (looked up in PATH)
	VersionArgs []string // arguments that print the tool version
	EnvVars     []string // env vars that signal the tool is configured
	ConfigFiles []string // config files that signal the tool is configured
	Required    bool     // pipeline cannot run without it
	InstallHint string   // how to get the tool when missing
}

// Registry is the single source of truth for the external tools the
// pipeline invokes and the credentials it needs.
var Registry = map[string]ToolExecInfo{
	"docker": {
		Binary:      "docker",
		VersionArgs: []string{"version", "--format", "{{.Client.Version}}"},
		EnvVars:     []string{"DOCKER_HOST"},
		ConfigFiles: []string{"~/.docker/config.json"},
		Required:    true,
		InstallHint: "https://docs.docker.com/engine/install/",
	},
	"trivy": {
		Binary:      "trivy",
		VersionArgs: []string{"--version"},
		EnvVars:     []string{"TRIVY_CACHE_DIR"},
		ConfigFiles: []string{"~/.cache/trivy"},
		Required:    true,
		InstallHint: "https://trivy.dev/latest/getting-started/installation/",
	},
	"registry": {
		Binary:      "docker",
		VersionArgs: nil,
		EnvVars:     []string{"BUILDGATE_REGISTRY", "BUILDGATE_REGISTRY_USER", "BUILDGATE_REGISTRY_PASSWORD"},
		ConfigFiles: nil,
		Required:    false,
	},
}
