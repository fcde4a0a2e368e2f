package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/vault"
)

func writeDoc(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestLoader(root string, nearbyLimit int) *Loader {
	return NewLoader(&vault.OSStore{}, vault.NewPathResolver(root, ""), nearbyLimit, nil)
}

func TestLoadCurrentFile(t *testing.T) {
	root := t.TempDir()
	current := writeDoc(t, root, "notes.md", "# Notes\n")

	lc := newTestLoader(root, 1).Load(context.Background(), current, nil)

	assert.Equal(t, current, lc.CurrentFile.Path)
	assert.Equal(t, "# Notes\n", lc.CurrentFile.Content)
}

func TestLoadMissingCurrentFileDegradesToEmpty(t *testing.T) {
	root := t.TempDir()
	current := filepath.Join(root, "gone.md")

	lc := newTestLoader(root, 1).Load(context.Background(), current, nil)

	assert.Equal(t, current, lc.CurrentFile.Path)
	assert.Empty(t, lc.CurrentFile.Content)
}

func TestLoadAgentPersona(t *testing.T) {
	root := t.TempDir()
	current := writeDoc(t, root, "notes.md", "body")
	writeDoc(t, root, "agents/betty.md", "---\nprovider: ollama\nmodel: llama3\ntemperature: 0.2\n---\nYou are Betty.")

	lc := newTestLoader(root, 1).Load(context.Background(), current, []core.Mention{
		{Type: core.MentionAgent, Value: "betty", Raw: "@betty"},
	})

	require.NotNil(t, lc.Agent)
	assert.Equal(t, "You are Betty.", lc.Agent.Persona)
	require.NotNil(t, lc.Agent.AIConfig)
	assert.Equal(t, "ollama", lc.Agent.AIConfig.Provider)
	assert.Equal(t, "llama3", lc.Agent.AIConfig.Model)
	require.NotNil(t, lc.Agent.AIConfig.Temperature)
	assert.InDelta(t, 0.2, *lc.Agent.AIConfig.Temperature, 1e-9)
}

func TestLoadAgentZeroTemperature(t *testing.T) {
	root := t.TempDir()
	current := writeDoc(t, root, "notes.md", "body")
	writeDoc(t, root, "agents/betty.md", "---\ntemperature: 0\n---\nYou are Betty.")

	lc := newTestLoader(root, 1).Load(context.Background(), current, []core.Mention{
		{Type: core.MentionAgent, Value: "betty", Raw: "@betty"},
	})

	require.NotNil(t, lc.Agent)
	require.NotNil(t, lc.Agent.AIConfig)
	require.NotNil(t, lc.Agent.AIConfig.Temperature)
	assert.Zero(t, *lc.Agent.AIConfig.Temperature)
}

func TestLoadFirstAgentWins(t *testing.T) {
	root := t.TempDir()
	current := writeDoc(t, root, "notes.md", "body")
	writeDoc(t, root, "agents/betty.md", "I am Betty.")
	writeDoc(t, root, "agents/carl.md", "I am Carl.")

	lc := newTestLoader(root, 1).Load(context.Background(), current, []core.Mention{
		{Type: core.MentionAgent, Value: "betty", Raw: "@betty"},
		{Type: core.MentionAgent, Value: "carl", Raw: "@carl"},
	})

	require.NotNil(t, lc.Agent)
	assert.Equal(t, "I am Betty.", lc.Agent.Persona)
}

func TestLoadMissingAgentOmitted(t *testing.T) {
	root := t.TempDir()
	current := writeDoc(t, root, "notes.md", "body")

	lc := newTestLoader(root, 1).Load(context.Background(), current, []core.Mention{
		{Type: core.MentionAgent, Value: "ghost", Raw: "@ghost"},
	})

	assert.Nil(t, lc.Agent)
}

func TestLoadMentionWeights(t *testing.T) {
	root := t.TempDir()
	current := writeDoc(t, root, "notes.md", "body")
	writeDoc(t, root, "guide.md", "guide body")
	writeDoc(t, root, "docs/a.md", "a body")
	writeDoc(t, root, "docs/b.md", "b body")

	lc := newTestLoader(root, 1).Load(context.Background(), current, []core.Mention{
		{Type: core.MentionFile, Value: "guide.md", Raw: "@guide.md"},
		{Type: core.MentionFolder, Value: "docs", Raw: "@docs/"},
	})

	require.Len(t, lc.MentionedFiles, 3)
	assert.Equal(t, 1.0, lc.MentionedFiles[0].Weight)
	assert.Equal(t, "guide body", lc.MentionedFiles[0].Content)
	for _, mf := range lc.MentionedFiles[1:] {
		assert.Equal(t, 0.8, mf.Weight)
	}
}

func TestLoadDeduplicatesAcrossSources(t *testing.T) {
	root := t.TempDir()
	current := writeDoc(t, root, "notes.md", "body")
	writeDoc(t, root, "docs/a.md", "a body")

	// The file mention resolves inside the folder mention; the folder
	// pass must not include it a second time.
	lc := newTestLoader(root, 1).Load(context.Background(), current, []core.Mention{
		{Type: core.MentionFile, Value: "docs/a.md", Raw: "@docs/a.md"},
		{Type: core.MentionFolder, Value: "docs", Raw: "@docs/"},
	})

	require.Len(t, lc.MentionedFiles, 1)
	assert.Equal(t, 1.0, lc.MentionedFiles[0].Weight)
}

func TestLoadServiceConnections(t *testing.T) {
	root := t.TempDir()
	current := writeDoc(t, root, "notes.md", "body")

	lc := newTestLoader(root, 1).Load(context.Background(), current, []core.Mention{
		{Type: core.MentionService, Value: "gmail", Raw: "$gmail"},
	})

	require.Len(t, lc.ServiceConnections, 1)
	assert.Equal(t, "gmail", lc.ServiceConnections[0].Name)
	assert.Equal(t, "@gmail.com", lc.ServiceConnections[0].Target)
}

func TestLoadNearbyExcludesIncluded(t *testing.T) {
	root := t.TempDir()
	current := writeDoc(t, root, "notes.md", "body")
	mentioned := writeDoc(t, root, "guide.md", "guide body")
	other := writeDoc(t, root, "other.md", "other body")

	lc := newTestLoader(root, 10).Load(context.Background(), current, []core.Mention{
		{Type: core.MentionFile, Value: "guide.md", Raw: "@guide.md"},
	})

	require.Len(t, lc.NearbyFiles, 1)
	assert.Equal(t, other, lc.NearbyFiles[0].Path)
	assert.Equal(t, "other body", lc.NearbyFiles[0].Summary)
	for _, nf := range lc.NearbyFiles {
		assert.NotEqual(t, current, nf.Path)
		assert.NotEqual(t, mentioned, nf.Path)
	}
}

func TestLoadNearbyRespectsLimit(t *testing.T) {
	root := t.TempDir()
	current := writeDoc(t, root, "notes.md", "body")
	for _, name := range []string{"a.md", "b.md", "c.md", "d.md"} {
		writeDoc(t, root, name, "neighbor")
	}

	lc := newTestLoader(root, 2).Load(context.Background(), current, nil)

	assert.Len(t, lc.NearbyFiles, 2)
}

func TestSummarize(t *testing.T) {
	t.Run("short content unchanged", func(t *testing.T) {
		assert.Equal(t, "short note", Summarize("  short note \n"))
	})

	t.Run("cuts at sentence boundary", func(t *testing.T) {
		first := strings.Repeat("x", 300) + "."
		content := first + " " + strings.Repeat("y", 400)
		got := Summarize(content)
		assert.Equal(t, first, got)
	})

	t.Run("hard cut without boundary", func(t *testing.T) {
		content := strings.Repeat("z", 900)
		got := Summarize(content)
		assert.Len(t, got, 500)
	})

	t.Run("ignores boundaries before minimum offset", func(t *testing.T) {
		content := "Intro. " + strings.Repeat("w", 900)
		got := Summarize(content)
		assert.Len(t, got, 500)
	})
}

func TestStripFrontmatter(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no frontmatter", "plain body", "plain body"},
		{"frontmatter stripped", "---\ntitle: X\n---\nbody here", "body here"},
		{"unterminated block kept", "---\ntitle: X\nbody", "---\ntitle: X\nbody"},
		{"frontmatter only", "---\ntitle: X\n---", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFrontmatter(tt.content))
		})
	}
}
