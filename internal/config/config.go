// Package config loads and validates the optional .chapterrun YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the optional configuration file.
const FileName = ".chapterrun"

// DefaultLanguage is the profile used when none is configured or requested.
const DefaultLanguage = "python"

// Config holds the parsed .chapterrun configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int                `yaml:"version"`
	Language     string             `yaml:"language"`   // default profile name
	RawTimeout   string             `yaml:"timeout"`    // e.g. "5m"; empty waits forever
	RawMaxOutput int                `yaml:"max_output"` // bytes per stream; 0 is unbounded
	Languages    map[string]Profile `yaml:"languages"`
	Log          LogConfig          `yaml:"log"`
}

// Profile describes where a language's runnable files live and how to run them.
type Profile struct {
	Root        string   `yaml:"root"`        // e.g. codes/python
	Pattern     string   `yaml:"pattern"`     // two-level glob below Root, e.g. chapter_*/*.py
	Interpreter []string `yaml:"interpreter"` // argv prefix; the file path is appended
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Encoding string `yaml:"encoding"` // console or json
}

// builtinProfiles mirror the layout of the codes/ tree.
var builtinProfiles = map[string]Profile{
	"python":     {Root: "codes/python", Pattern: "chapter_*/*.py", Interpreter: []string{"python"}},
	"javascript": {Root: "codes/javascript", Pattern: "chapter_*/*.js", Interpreter: []string{"node"}},
	"ruby":       {Root: "codes/ruby", Pattern: "chapter_*/*.rb", Interpreter: []string{"ruby"}},
}

// ErrUnknownLanguage is returned by Profile for a name that is neither
// built in nor configured.
var ErrUnknownLanguage = errors.New("unknown language")

// Timeout returns the configured per-file timeout, or zero for none.
// Load rejects a timeout that does not parse.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

func (c *Config) validate() error {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("timeout: negative duration %q", c.RawTimeout)
		}
	}
	if c.RawMaxOutput < 0 {
		return fmt.Errorf("max_output: negative size %d", c.RawMaxOutput)
	}
	return nil
}

// MaxOutputBytes returns the configured capture cap, or zero for unbounded.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return 0
}

// DefaultProfileName returns the configured default language.
func (c *Config) DefaultProfileName() string {
	if c.Language != "" {
		return c.Language
	}
	return DefaultLanguage
}

// Profile returns the named profile. Fields set in the file override the
// built-in profile of the same name field by field. An empty name selects
// the default language.
func (c *Config) Profile(name string) (Profile, error) {
	if name == "" {
		name = c.DefaultProfileName()
	}
	base, builtin := builtinProfiles[name]
	override, configured := c.Languages[name]
	if !builtin && !configured {
		return Profile{}, fmt.Errorf("%w %q (known: %v)", ErrUnknownLanguage, name, c.ProfileNames())
	}

	p := Profile{
		Root:        base.Root,
		Pattern:     base.Pattern,
		Interpreter: slices.Clone(base.Interpreter),
	}
	if override.Root != "" {
		p.Root = override.Root
	}
	if override.Pattern != "" {
		p.Pattern = override.Pattern
	}
	if len(override.Interpreter) > 0 {
		p.Interpreter = slices.Clone(override.Interpreter)
	}

	if p.Root == "" || p.Pattern == "" || len(p.Interpreter) == 0 {
		return Profile{}, fmt.Errorf("language %q: root, pattern and interpreter are required", name)
	}
	return p, nil
}

// Overrides replaces individual profile fields, typically from the
// command line. Zero fields leave the profile's value in place.
type Overrides struct {
	Root        string
	Pattern     string
	Interpreter []string
}

// Complete reports whether o sets every profile field.
func (o Overrides) Complete() bool {
	return o.Root != "" && o.Pattern != "" && len(o.Interpreter) > 0
}

// Apply returns p with the fields set in o replaced.
func (o Overrides) Apply(p Profile) Profile {
	if o.Root != "" {
		p.Root = o.Root
	}
	if o.Pattern != "" {
		p.Pattern = o.Pattern
	}
	if len(o.Interpreter) > 0 {
		p.Interpreter = slices.Clone(o.Interpreter)
	}
	return p
}

// ResolveProfile returns the named profile with o applied. When o is
// complete the name need not be built in or configured.
func (c *Config) ResolveProfile(name string, o Overrides) (Profile, error) {
	if o.Complete() {
		return o.Apply(Profile{}), nil
	}
	p, err := c.Profile(name)
	if err != nil {
		return Profile{}, err
	}
	return o.Apply(p), nil
}

// ProfileNames returns every built-in and configured profile name, sorted.
func (c *Config) ProfileNames() []string {
	seen := make(map[string]bool, len(builtinProfiles)+len(c.Languages))
	var names []string
	for n := range builtinProfiles {
		seen[n] = true
		names = append(names, n)
	}
	for n := range c.Languages {
		if !seen[n] {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// LoadResult holds the parsed config and the discovered repository root.
type LoadResult struct {
	Config   *Config
	RepoRoot string // directory holding .chapterrun or .git; falls back to workspace
}

// Load reads the .chapterrun file from the repository root.
// The repository root is discovered by walking upward from workspace
// looking for .chapterrun or .git. If no .chapterrun file exists, a
// default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findRepoRoot(workspace)
	if err != nil {
		root = workspace
	}

	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadResult{Config: &Config{}, RepoRoot: root}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return &LoadResult{Config: cfg, RepoRoot: root}, nil
}

// findRepoRoot walks upward from dir looking for a directory containing
// .chapterrun or .git.
func findRepoRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, marker := range []string{FileName, ".git"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("repository root not found")
		}
		dir = parent
	}
}
