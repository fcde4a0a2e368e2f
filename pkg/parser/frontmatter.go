package parser

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/logging"
)

// FrontmatterParser extracts and diffs per-document YAML metadata. The
// snapshot cache lives for the life of the process, keyed by path.
type FrontmatterParser struct {
	mu     sync.Mutex
	cache  map[string]map[string]interface{}
	logger *logging.Logger
}

func NewFrontmatterParser(logger *logging.Logger) *FrontmatterParser {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &FrontmatterParser{
		cache:  make(map[string]map[string]interface{}),
		logger: logger,
	}
}

// Extract parses the leading YAML frontmatter block. Extraction is
// best-effort: missing or malformed frontmatter yields an empty map,
// never an error.
func (p *FrontmatterParser) Extract(content string) map[string]interface{} {
	block, ok := frontmatterBlock(content)
	if !ok {
		return map[string]interface{}{}
	}

	var fields map[string]interface{}
	if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
		p.logger.Debug(context.Background(), "malformed frontmatter ignored: %v", err)
		return map[string]interface{}{}
	}
	if fields == nil {
		return map[string]interface{}{}
	}
	return fields
}

// DetectChanges diffs the document's frontmatter against the last
// cached snapshot for path and overwrites the snapshot unconditionally.
// The first observation of a path therefore reports every field as
// changed from nil.
func (p *FrontmatterParser) DetectChanges(path, content string) []core.FrontmatterChange {
	current := p.Extract(content)

	p.mu.Lock()
	defer p.mu.Unlock()

	previous := p.cache[path]
	var changes []core.FrontmatterChange

	for field, value := range current {
		old, existed := previous[field]
		if !existed {
			changes = append(changes, core.FrontmatterChange{Field: field, NewValue: value})
			continue
		}
		if !reflect.DeepEqual(old, value) {
			changes = append(changes, core.FrontmatterChange{Field: field, OldValue: old, NewValue: value})
		}
	}
	for field, old := range previous {
		if _, exists := current[field]; !exists {
			changes = append(changes, core.FrontmatterChange{Field: field, OldValue: old})
		}
	}

	// Map iteration order is random; emit deterministically.
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })

	p.cache[path] = current
	return changes
}

// ClearCache drops every cached snapshot.
func (p *FrontmatterParser) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[string]map[string]interface{})
}

// ClearPath drops the cached snapshot for one document.
func (p *FrontmatterParser) ClearPath(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, path)
}

// frontmatterBlock returns the YAML between the leading --- fence pair.
func frontmatterBlock(content string) (string, bool) {
	if !strings.HasPrefix(content, "---\n") && content != "---" {
		return "", false
	}
	rest := strings.TrimPrefix(content, "---\n")
	for _, terminator := range []string{"\n---\n", "\n---"} {
		if idx := strings.Index(rest, terminator); idx >= 0 {
			return rest[:idx], true
		}
	}
	return "", false
}
