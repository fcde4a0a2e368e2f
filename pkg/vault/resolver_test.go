package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolveAgent(t *testing.T) {
	r := NewPathResolver("/vault", "agents")
	assert.Equal(t, filepath.Join("/vault", "agents", "betty.md"), r.ResolveAgent("betty"))

	// Empty agents dir falls back to the default.
	r = NewPathResolver("/vault", "")
	assert.Equal(t, filepath.Join("/vault", "agents", "betty.md"), r.ResolveAgent("betty"))
}

func TestResolveFileExactMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "plan.md"), "# plan")

	r := NewPathResolver(root, "agents")
	path, ok := r.ResolveFile("plan.md")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "plan.md"), path)
}

func TestResolveFileDeepBasenameSearch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "projects", "deep", "plan.md"), "# plan")

	r := NewPathResolver(root, "agents")
	path, ok := r.ResolveFile("plan.md")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "projects", "deep", "plan.md"), path)
}

func TestResolveFileMissing(t *testing.T) {
	r := NewPathResolver(t.TempDir(), "agents")
	_, ok := r.ResolveFile("nope.md")
	assert.False(t, ok)
}

func TestResolveFolder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes", "a.md"), "a")
	writeFile(t, filepath.Join(root, "notes", "b.md"), "b")
	writeFile(t, filepath.Join(root, "notes", "skip.txt"), "not markdown")

	r := NewPathResolver(root, "agents")
	files := r.ResolveFolder("notes")
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(root, "notes", "a.md"), files[0])
	assert.Equal(t, filepath.Join(root, "notes", "b.md"), files[1])

	assert.Empty(t, r.ResolveFolder("missing"))
}

func TestListMarkdownFilesSkipsDotDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "a")
	writeFile(t, filepath.Join(root, ".obsidian", "hidden.md"), "hidden")
	writeFile(t, filepath.Join(root, "sub", "b.md"), "b")

	files, err := ListMarkdownFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.md"),
		filepath.Join(root, "sub", "b.md"),
	}, files)
}

func TestOSStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	store := NewOSStore()

	require.NoError(t, store.Write(path, "hello"))
	content, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	_, err = store.Read(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}
