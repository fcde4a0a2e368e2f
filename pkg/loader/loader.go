package loader

import (
	"context"
	"strings"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/logging"
	"github.com/XiaoConstantine/spark-go/pkg/parser"
	"github.com/XiaoConstantine/spark-go/pkg/vault"
)

const (
	// DefaultNearbyLimit bounds how many proximity-ranked neighbors
	// join the bundle.
	DefaultNearbyLimit = 10

	// Explicit file mentions outweigh folder members.
	fileMentionWeight   = 1.0
	folderMentionWeight = 0.8
)

// Loader composes the current file, resolved mentions, and
// proximity-ranked neighbors into one bounded context bundle.
type Loader struct {
	store       vault.DocumentStore
	resolver    *vault.PathResolver
	frontmatter *parser.FrontmatterParser
	nearbyLimit int
	logger      *logging.Logger
}

func NewLoader(store vault.DocumentStore, resolver *vault.PathResolver, nearbyLimit int, logger *logging.Logger) *Loader {
	if nearbyLimit <= 0 {
		nearbyLimit = DefaultNearbyLimit
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Loader{
		store:       store,
		resolver:    resolver,
		frontmatter: parser.NewFrontmatterParser(logger),
		nearbyLimit: nearbyLimit,
		logger:      logger,
	}
}

// Load assembles the context bundle for one execution. Context assembly
// must never abort a run: every read is best-effort and a missing
// mention target is simply omitted.
func (l *Loader) Load(ctx context.Context, currentFile string, mentions []core.Mention) *core.LoadedContext {
	lc := &core.LoadedContext{}

	content, err := l.store.Read(currentFile)
	if err != nil {
		l.logger.Debug(ctx, "current file read failed, degrading to empty: %v", err)
		content = ""
	}
	lc.CurrentFile = core.FileContent{Path: currentFile, Content: content}

	included := map[string]bool{currentFile: true}

	for _, m := range mentions {
		switch m.Type {
		case core.MentionAgent:
			if lc.Agent != nil {
				continue
			}
			if agent := l.loadAgent(ctx, m.Value); agent != nil {
				lc.Agent = agent
				included[agent.Path] = true
			}
		case core.MentionFile:
			path, ok := l.resolver.ResolveFile(m.Value)
			if !ok {
				l.logger.Debug(ctx, "file mention %q did not resolve, omitted", m.Raw)
				continue
			}
			if included[path] {
				continue
			}
			lc.MentionedFiles = append(lc.MentionedFiles, core.MentionedFile{
				Path:    path,
				Content: l.readBestEffort(ctx, path),
				Weight:  fileMentionWeight,
			})
			included[path] = true
		case core.MentionFolder:
			for _, path := range l.resolver.ResolveFolder(m.Value) {
				if included[path] {
					continue
				}
				lc.MentionedFiles = append(lc.MentionedFiles, core.MentionedFile{
					Path:    path,
					Content: l.readBestEffort(ctx, path),
					Weight:  folderMentionWeight,
				})
				included[path] = true
			}
		case core.MentionService:
			lc.ServiceConnections = append(lc.ServiceConnections, core.ServiceConnection{
				Name:   m.Value,
				Target: m.Raw,
			})
		case core.MentionCommand:
			// Commands are the detector's concern, not context.
		}
	}

	lc.NearbyFiles = l.loadNearby(ctx, currentFile, included)

	return lc
}

// loadAgent reads the persona document for an agent name. Per-agent
// backend overrides ride in the document's frontmatter.
func (l *Loader) loadAgent(ctx context.Context, name string) *core.AgentContext {
	path := l.resolver.ResolveAgent(name)
	content, err := l.store.Read(path)
	if err != nil {
		l.logger.Debug(ctx, "agent %q has no persona document, omitted", name)
		return nil
	}

	agent := &core.AgentContext{
		Path:    path,
		Persona: stripFrontmatter(content),
	}

	fields := l.frontmatter.Extract(content)
	if cfg := agentAIConfig(fields); cfg != nil {
		agent.AIConfig = cfg
	}

	return agent
}

// agentAIConfig extracts backend overrides from persona frontmatter.
func agentAIConfig(fields map[string]interface{}) *core.AgentAIConfig {
	cfg := &core.AgentAIConfig{}
	found := false

	if v, ok := fields["provider"].(string); ok && v != "" {
		cfg.Provider = v
		found = true
	}
	if v, ok := fields["model"].(string); ok && v != "" {
		cfg.Model = v
		found = true
	}
	switch v := fields["temperature"].(type) {
	case float64:
		cfg.Temperature = &v
		found = true
	case int:
		f := float64(v)
		cfg.Temperature = &f
		found = true
	}

	if !found {
		return nil
	}
	return cfg
}

func (l *Loader) loadNearby(ctx context.Context, currentFile string, included map[string]bool) []core.NearbyFile {
	files, err := vault.ListMarkdownFiles(l.resolver.Root())
	if err != nil {
		l.logger.Debug(ctx, "vault enumeration failed, no nearby files: %v", err)
		return nil
	}

	candidates := files[:0:0]
	for _, f := range files {
		if !included[f] {
			candidates = append(candidates, f)
		}
	}

	ranked := vault.RankFilesByProximity(currentFile, candidates)
	if len(ranked) > l.nearbyLimit {
		ranked = ranked[:l.nearbyLimit]
	}

	nearby := make([]core.NearbyFile, 0, len(ranked))
	for _, rf := range ranked {
		nearby = append(nearby, core.NearbyFile{
			Path:     rf.Path,
			Summary:  Summarize(l.readBestEffort(ctx, rf.Path)),
			Distance: rf.Distance,
		})
	}
	return nearby
}

func (l *Loader) readBestEffort(ctx context.Context, path string) string {
	content, err := l.store.Read(path)
	if err != nil {
		l.logger.Debug(ctx, "context read degraded to empty: %v", err)
		return ""
	}
	return content
}

const (
	summaryLength = 500
	summaryMinCut = 200
)

// Summarize synthesizes a bounded summary: the first ~500 characters,
// truncated at the last sentence or paragraph boundary past a minimum
// offset, otherwise a hard cut.
func Summarize(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= summaryLength {
		return content
	}

	window := content[:summaryLength]

	cut := -1
	for _, boundary := range []string{". ", "! ", "? ", "\n\n"} {
		if idx := strings.LastIndex(window, boundary); idx > cut {
			cut = idx
		}
	}
	if cut >= summaryMinCut {
		return strings.TrimSpace(window[:cut+1])
	}
	return window
}

// stripFrontmatter removes a leading YAML block so personas read as
// plain instructions.
func stripFrontmatter(content string) string {
	if !strings.HasPrefix(content, "---\n") {
		return strings.TrimSpace(content)
	}
	rest := content[len("---\n"):]
	if idx := strings.Index(rest, "\n---\n"); idx >= 0 {
		return strings.TrimSpace(rest[idx+len("\n---\n"):])
	}
	if strings.HasSuffix(rest, "\n---") {
		return ""
	}
	return strings.TrimSpace(content)
}
