package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_FromRepoRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "version: 1\ntimeout: 10m\nlanguage: ruby\n")

	res, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, res.RepoRoot)
	assert.Equal(t, 1, res.Config.Version)
	assert.Equal(t, 10*time.Minute, res.Config.Timeout())
	assert.Equal(t, "ruby", res.Config.DefaultProfileName())
}

func TestLoad_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	writeFile(t, filepath.Join(root, FileName), "version: 2\n")

	sub := filepath.Join(root, "codes", "python")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	res, err := Load(sub)
	require.NoError(t, err)
	assert.Equal(t, root, res.RepoRoot)
	assert.Equal(t, 2, res.Config.Version)
}

func TestLoad_GitMarkerWithoutConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	sub := filepath.Join(root, "codes")
	require.NoError(t, os.Mkdir(sub, 0o755))

	res, err := Load(sub)
	require.NoError(t, err)
	assert.Equal(t, root, res.RepoRoot)
	assert.Equal(t, 0, res.Config.Version)
}

func TestLoad_NoMarker(t *testing.T) {
	dir := t.TempDir()

	res, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, res.RepoRoot, "fallback to workspace")
	assert.Zero(t, res.Config.Timeout())
	assert.Zero(t, res.Config.MaxOutputBytes())
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "languages: [unclosed\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing .chapterrun")
}

func TestLoad_InvalidTimeout(t *testing.T) {
	for _, raw := range []string{"5 minutes", "soon", "-1s"} {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, FileName), "timeout: \""+raw+"\"\n")

		_, err := Load(dir)
		require.Error(t, err, "timeout %q", raw)
		assert.Contains(t, err.Error(), "parsing .chapterrun: timeout")
	}
}

func TestLoad_NegativeMaxOutput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "max_output: -1\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_output")
}

func TestResolveProfile_OverridesFields(t *testing.T) {
	c := &Config{}
	p, err := c.ResolveProfile("python", Overrides{Pattern: "chapter_array*/*.py"})
	require.NoError(t, err)
	assert.Equal(t, Profile{Root: "codes/python", Pattern: "chapter_array*/*.py", Interpreter: []string{"python"}}, p)
}

func TestResolveProfile_CompleteOverridesNeedNoProfile(t *testing.T) {
	c := &Config{}
	o := Overrides{Root: "codes/sh", Pattern: "chapter_*/*.sh", Interpreter: []string{"sh"}}
	p, err := c.ResolveProfile("sh", o)
	require.NoError(t, err)
	assert.Equal(t, Profile{Root: "codes/sh", Pattern: "chapter_*/*.sh", Interpreter: []string{"sh"}}, p)

	_, err = c.ResolveProfile("sh", Overrides{Root: "codes/sh"})
	require.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestProfile_DefaultIsPython(t *testing.T) {
	c := &Config{}
	p, err := c.Profile("")
	require.NoError(t, err)
	assert.Equal(t, Profile{Root: "codes/python", Pattern: "chapter_*/*.py", Interpreter: []string{"python"}}, p)
}

func TestProfile_OverrideMergesFields(t *testing.T) {
	c := &Config{Languages: map[string]Profile{
		"python": {Interpreter: []string{"python3", "-X", "utf8"}},
	}}
	p, err := c.Profile("python")
	require.NoError(t, err)
	assert.Equal(t, "codes/python", p.Root)
	assert.Equal(t, "chapter_*/*.py", p.Pattern)
	assert.Equal(t, []string{"python3", "-X", "utf8"}, p.Interpreter)
}

func TestProfile_OverrideDoesNotMutateBuiltin(t *testing.T) {
	c := &Config{}
	p, err := c.Profile("python")
	require.NoError(t, err)
	p.Interpreter[0] = "changed"

	again, err := c.Profile("python")
	require.NoError(t, err)
	assert.Equal(t, []string{"python"}, again.Interpreter)
}

func TestProfile_CustomLanguage(t *testing.T) {
	c := &Config{Languages: map[string]Profile{
		"lua": {Root: "codes/lua", Pattern: "chapter_*/*.lua", Interpreter: []string{"lua"}},
	}}
	p, err := c.Profile("lua")
	require.NoError(t, err)
	assert.Equal(t, "codes/lua", p.Root)
	assert.Equal(t, []string{"javascript", "lua", "python", "ruby"}, c.ProfileNames())
}

func TestProfile_IncompleteCustomLanguage(t *testing.T) {
	c := &Config{Languages: map[string]Profile{"lua": {Root: "codes/lua"}}}
	_, err := c.Profile("lua")
	require.Error(t, err)
}

func TestProfile_Unknown(t *testing.T) {
	c := &Config{}
	_, err := c.Profile("cobol")
	require.ErrorIs(t, err, ErrUnknownLanguage)
}
