package vault

import (
	"os"
	"path/filepath"
	"strings"
)

// PathResolver maps symbolic mention values to concrete vault paths.
type PathResolver struct {
	root      string
	agentsDir string
}

// NewPathResolver builds a resolver over a vault root. agentsDir is
// relative to the root; empty defaults to "agents".
func NewPathResolver(root, agentsDir string) *PathResolver {
	if agentsDir == "" {
		agentsDir = "agents"
	}
	return &PathResolver{root: root, agentsDir: agentsDir}
}

// Root returns the vault root directory.
func (r *PathResolver) Root() string {
	return r.root
}

// ResolveAgent returns the persona document path for an agent name.
// Existence is not checked; loading is best-effort downstream.
func (r *PathResolver) ResolveAgent(name string) string {
	return filepath.Join(r.root, r.agentsDir, name+".md")
}

// ResolveFile resolves a file mention: an exact vault-relative match
// wins, otherwise the vault is searched deep for a basename match.
func (r *PathResolver) ResolveFile(value string) (string, bool) {
	exact := filepath.Join(r.root, value)
	if info, err := os.Stat(exact); err == nil && !info.IsDir() {
		return exact, true
	}

	base := filepath.Base(value)
	files, err := ListMarkdownFiles(r.root)
	if err != nil {
		return "", false
	}
	for _, f := range files {
		if filepath.Base(f) == base {
			return f, true
		}
	}
	return "", false
}

// ResolveFolder returns every markdown file under the mentioned folder.
// A missing folder resolves to nothing.
func (r *PathResolver) ResolveFolder(value string) []string {
	dir := filepath.Join(r.root, strings.TrimSuffix(value, "/"))
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}
	files, err := ListMarkdownFiles(dir)
	if err != nil {
		return nil
	}
	return files
}
