package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/executor"
	"github.com/XiaoConstantine/spark-go/pkg/logging"
	"github.com/XiaoConstantine/spark-go/pkg/parser"
	"github.com/XiaoConstantine/spark-go/pkg/vault"
)

// ChangeType classifies an incoming change event.
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeModify ChangeType = "change"
	ChangeUnlink ChangeType = "unlink"
)

// ChangeEvent arrives from the external watcher, already debounced.
type ChangeEvent struct {
	Path      string     `json:"path"`
	Type      ChangeType `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
}

// Pipeline turns change events into pipeline runs: parse the document,
// execute pending directives, write results back. Multiple documents
// may be in flight concurrently; mutations to any single document are
// serialized.
type Pipeline struct {
	parser *parser.FileParser
	exec   *executor.Executor
	store  vault.DocumentStore
	locks  *pathLocks
	runs   *pool.Pool
	logger *logging.Logger
}

// New builds a pipeline. maxConcurrent bounds in-flight runs; zero
// means unbounded.
func New(fp *parser.FileParser, exec *executor.Executor, store vault.DocumentStore, maxConcurrent int, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.GetLogger()
	}
	runs := pool.New()
	if maxConcurrent > 0 {
		runs = runs.WithMaxGoroutines(maxConcurrent)
	}
	return &Pipeline{
		parser: fp,
		exec:   exec,
		store:  store,
		locks:  newPathLocks(),
		runs:   runs,
		logger: logger,
	}
}

// HandleEvent dispatches one asynchronous pipeline run for a change
// event. Unlink events are ignored.
func (p *Pipeline) HandleEvent(ctx context.Context, ev ChangeEvent) {
	if ev.Type == ChangeUnlink {
		p.parser.Frontmatter().ClearPath(ev.Path)
		return
	}

	p.runs.Go(func() {
		p.process(ctx, ev)
	})
}

// Wait blocks until every dispatched run has finished.
func (p *Pipeline) Wait() {
	p.runs.Wait()
}

func (p *Pipeline) process(ctx context.Context, ev ChangeEvent) {
	ctx = logging.WithDocument(ctx, ev.Path)

	content, err := p.store.Read(ev.Path)
	if err != nil {
		p.logger.Warn(ctx, "skipping event, document unreadable: %v", err)
		return
	}

	result := p.parser.Parse(ev.Path, content)

	for _, change := range result.FrontmatterChanges {
		p.logger.Debug(ctx, "frontmatter %s: %v -> %v", change.Field, change.OldValue, change.NewValue)
	}

	lock := p.locks.forPath(ev.Path)

	// Bottom-up execution: splicing a result below line N never shifts
	// lines above N, so directives higher in the document stay
	// addressable after earlier mutations in this run.
	for _, m := range p.pendingMutationsFor(result) {
		lock.Lock()
		err := m.run(ctx)
		lock.Unlock()
		if err != nil {
			p.logger.Error(ctx, "%s failed: %v", m.desc, err)
		}
	}
}

type mutation struct {
	line int
	desc string
	run  func(context.Context) error
}

func (p *Pipeline) pendingMutationsFor(result *parser.ParseResult) []mutation {
	var muts []mutation

	for _, cmd := range result.Commands {
		if cmd.Status != core.StatusPending || !cmd.IsComplete {
			continue
		}
		cmd := cmd
		muts = append(muts, mutation{
			line: cmd.Line,
			desc: fmt.Sprintf("command %q on line %d", cmd.Command, cmd.Line),
			run:  func(ctx context.Context) error { return p.exec.Execute(ctx, cmd, result.Path) },
		})
	}

	for _, chat := range result.Chats {
		if chat.Status != core.ChatPending {
			continue
		}
		chat := chat
		muts = append(muts, mutation{
			line: chat.StartLine,
			desc: fmt.Sprintf("inline chat %s", chat.ID),
			run:  func(ctx context.Context) error { return p.exec.ExecuteInlineChat(ctx, chat, result.Path) },
		})
	}

	sort.Slice(muts, func(i, j int) bool { return muts[i].line > muts[j].line })
	return muts
}
