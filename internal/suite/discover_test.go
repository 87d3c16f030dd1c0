package suite

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_SortedLexicographically(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"chapter_02/b.py": "",
		"chapter_01/a.py": "",
		"chapter_01/c.py": "",
	})

	paths, err := Discover(root, "chapter_*/*.py")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "chapter_01", "a.py"),
		filepath.Join(root, "chapter_01", "c.py"),
		filepath.Join(root, "chapter_02", "b.py"),
	}, paths)
}

func TestDiscover_OnlyTwoLevelsAndExtension(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"top.py":                  "",
		"chapter_01/a.py":         "",
		"chapter_01/notes.md":     "",
		"chapter_01/deep/x.py":    "",
		"appendix/z.py":           "",
		"chapter_01/modules/m.py": "",
	})
	require.NoError(t, os.Mkdir(filepath.Join(root, "chapter_01", "dir.py"), 0o755))

	paths, err := Discover(root, "chapter_*/*.py")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "chapter_01", "a.py")}, paths)
}

func TestDiscover_NoMatches(t *testing.T) {
	paths, err := Discover(t.TempDir(), "chapter_*/*.py")
	require.NoError(t, err)
	assert.NotNil(t, paths)
	assert.Empty(t, paths)
}

func TestDiscover_MissingRoot(t *testing.T) {
	paths, err := Discover(filepath.Join(t.TempDir(), "absent"), "chapter_*/*.py")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestDiscover_BadPattern(t *testing.T) {
	_, err := Discover(t.TempDir(), "chapter_[*.py")
	require.ErrorIs(t, err, filepath.ErrBadPattern)
}

func TestDiscover_UnreadableRoot(t *testing.T) {
	skipIfRoot(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"chapter_01/a.py": ""})
	require.NoError(t, os.Chmod(root, 0o000))
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	paths, err := Discover(root, "chapter_*/*.py")
	require.ErrorIs(t, err, fs.ErrPermission)
	assert.Nil(t, paths)
}

func TestDiscover_UnreadableChapter(t *testing.T) {
	skipIfRoot(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"chapter_01/a.py": "",
		"chapter_02/b.py": "",
	})
	locked := filepath.Join(root, "chapter_02")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	_, err := Discover(root, "chapter_*/*.py")
	require.ErrorIs(t, err, fs.ErrPermission)
	assert.Contains(t, err.Error(), root)
}

func TestDiscover_RootIsAFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "codes")
	require.NoError(t, os.WriteFile(root, nil, 0o644))

	_, err := Discover(root, "chapter_*/*.py")
	require.Error(t, err)
}

func TestDiscover_SkipsHiddenNames(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"chapter_01/a.py":        "",
		"chapter_01/.scratch.py": "",
		".chapter_x/b.py":        "",
	})

	paths, err := Discover(root, "*/*.py")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "chapter_01", "a.py")}, paths)

	paths, err = Discover(root, "chapter_01/.*.py")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "chapter_01", ".scratch.py")}, paths)
}

func TestDiscover_Symlinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"chapter_01/a.py":    "",
		"shared/lib/util.py": "",
	})
	require.NoError(t, os.Symlink(filepath.Join(root, "shared", "lib"), filepath.Join(root, "chapter_02")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.py"), filepath.Join(root, "chapter_01", "gone.py")))
	require.NoError(t, os.Symlink(filepath.Join(root, "shared"), filepath.Join(root, "chapter_01", "pkg.py")))

	paths, err := Discover(root, "chapter_*/*.py")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "chapter_01", "a.py"),
		filepath.Join(root, "chapter_01", "gone.py"),
		filepath.Join(root, "chapter_02", "util.py"),
	}, paths)
}

func TestDiscover_EmptyPattern(t *testing.T) {
	_, err := Discover(t.TempDir(), "")
	require.Error(t, err)
}

func skipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
}
