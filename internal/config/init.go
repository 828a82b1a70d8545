package config

import (
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
)

// Example returns the configuration written by `satsuma init`.
func Example() *Config {
	clean := true
	return &Config{
		Server: ServerConfig{Port: 3000, LiveReload: true},
		Directories: DirectoriesConfig{
			Source:    "source",
			Public:    "public",
			Pages:     "pages",
			Templates: "templates",
			Styles:    "styles",
			Assets:    "assets",
			Scripts:   "scripts",
		},
		Build: BuildConfig{Concurrency: 8, Clean: &clean, PageExtension: ".tmpl"},
		Watch: WatchConfig{Settle: "50ms"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// Init writes the example configuration to configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}
	data, err := yaml.Marshal(Example())
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal config").Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").Build()
	}
	return nil
}

var starterFiles = map[string]string{
	DefaultGlobalsFile: "site:\n  title: My Site\n",
	"source/pages/index.tmpl": "---\ntemplate: base\n---\n" +
		"<h1>{{ .site.title }}</h1>\n{{ markdown \"Edit `source/pages/index.tmpl` to get started.\" }}\n",
	"source/templates/base.tmpl": "<!doctype html>\n<html>\n<head>\n" +
		"  <meta charset=\"utf-8\">\n  <title>{{ .site.title }}</title>\n" +
		"  <link rel=\"stylesheet\" href=\"/styles/main.css\">\n</head>\n" +
		"<body>\n{{ .content }}\n</body>\n</html>\n",
	"source/styles/main.scss":  "@import 'vars';\n\nbody { color: $text; font-family: sans-serif; }\n",
	"source/styles/_vars.scss": "$text: #222;\n",
}

// Scaffold writes the globals file and a starter source tree below root.
// Existing files are kept unless force is set. It returns the files written.
func Scaffold(root string, force bool) ([]string, error) {
	var written []string
	for _, rel := range sortedKeys(starterFiles) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if _, err := os.Stat(p); err == nil && !force {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return written, errors.WrapError(err, errors.CategoryFileSystem, "failed to create directory").
				WithContext("path", filepath.Dir(p)).
				Build()
		}
		if err := os.WriteFile(p, []byte(starterFiles[rel]), 0o600); err != nil {
			return written, errors.WrapError(err, errors.CategoryFileSystem, "failed to write starter file").
				WithContext("path", p).
				Build()
		}
		written = append(written, p)
	}
	if err := os.MkdirAll(filepath.Join(root, "source", "assets"), 0o750); err != nil {
		return written, errors.WrapError(err, errors.CategoryFileSystem, "failed to create directory").Build()
	}
	return written, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
