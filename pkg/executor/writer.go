package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/errors"
	"github.com/XiaoConstantine/spark-go/pkg/logging"
	"github.com/XiaoConstantine/spark-go/pkg/parser"
	"github.com/XiaoConstantine/spark-go/pkg/vault"
)

// ResultWriter performs line-addressed document mutation. Every write
// is a whole-file overwrite; that overwrite is the atomicity unit.
type ResultWriter struct {
	store         vault.DocumentStore
	addBlankLines bool
	logger        *logging.Logger
}

func NewResultWriter(store vault.DocumentStore, addBlankLines bool, logger *logging.Logger) *ResultWriter {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &ResultWriter{store: store, addBlankLines: addBlankLines, logger: logger}
}

// WriteInline marks the command line completed and splices the response
// immediately below it, wrapped in result markers so the detector never
// rescans it.
func (w *ResultWriter) WriteInline(ctx context.Context, path string, line int, response string) error {
	content, err := w.store.Read(path)
	if err != nil {
		return errors.Wrap(err, errors.WriteFailure, "failed to read document for result write")
	}

	lines := strings.Split(content, "\n")
	if line < 1 || line > len(lines) {
		return errors.WithFields(
			errors.New(errors.WriteFailure, "command line out of range"),
			errors.Fields{"path": path, "line": line, "lines": len(lines)})
	}

	cleaned, _ := core.StripStatusGlyph(lines[line-1])
	lines[line-1] = core.GlyphCompleted + " " + cleaned

	block := make([]string, 0, 4)
	if w.addBlankLines {
		block = append(block, "")
	}
	block = append(block, parser.ResultStartMarker)
	block = append(block, strings.Split(response, "\n")...)
	block = append(block, parser.ResultEndMarker)

	updated := make([]string, 0, len(lines)+len(block))
	updated = append(updated, lines[:line]...)
	updated = append(updated, block...)
	updated = append(updated, lines[line:]...)

	return w.store.Write(path, strings.Join(updated, "\n"))
}

// UpdateStatus rewrites only the status glyph on a command line.
// Failures are swallowed: losing a glyph update is non-critical and
// must never mask the outcome of the run.
func (w *ResultWriter) UpdateStatus(ctx context.Context, path string, line int, status core.CommandStatus) {
	content, err := w.store.Read(path)
	if err != nil {
		w.logger.Debug(ctx, "status update skipped: %v", err)
		return
	}

	lines := strings.Split(content, "\n")
	if line < 1 || line > len(lines) {
		w.logger.Debug(ctx, "status update skipped: line %d out of range for %s", line, path)
		return
	}

	cleaned, _ := core.StripStatusGlyph(lines[line-1])
	switch status {
	case core.StatusProcessing:
		lines[line-1] = core.GlyphProcessing + " " + cleaned
	case core.StatusCompleted:
		lines[line-1] = core.GlyphCompleted + " " + cleaned
	case core.StatusFailed:
		lines[line-1] = core.GlyphError + " " + cleaned
	default:
		lines[line-1] = cleaned
	}

	if err := w.store.Write(path, strings.Join(lines, "\n")); err != nil {
		w.logger.Debug(ctx, "status update failed: %v", err)
	}
}

// WriteInlineChatResponse replaces the full inclusive line range of a
// chat block with the plain response text. Destroying the markers is
// deliberate: the block must never be re-detected.
func (w *ResultWriter) WriteInlineChatResponse(ctx context.Context, path string, chat core.InlineChat, response string) error {
	content, err := w.store.Read(path)
	if err != nil {
		return errors.Wrap(err, errors.WriteFailure, "failed to read document for chat write")
	}

	lines := strings.Split(content, "\n")
	if chat.StartLine < 1 || chat.EndLine > len(lines) || chat.StartLine > chat.EndLine {
		return errors.WithFields(
			errors.New(errors.WriteFailure, "chat block out of range"),
			errors.Fields{"path": path, "start": chat.StartLine, "end": chat.EndLine})
	}

	replacement := strings.Split(response, "\n")

	updated := make([]string, 0, len(lines))
	updated = append(updated, lines[:chat.StartLine-1]...)
	updated = append(updated, replacement...)
	updated = append(updated, lines[chat.EndLine:]...)

	return w.store.Write(path, strings.Join(updated, "\n"))
}

// UpdateChatStatus rewrites the status field of a chat block's open
// marker. Like glyph updates, failures are swallowed.
func (w *ResultWriter) UpdateChatStatus(ctx context.Context, path string, chat core.InlineChat, status core.ChatStatus) {
	content, err := w.store.Read(path)
	if err != nil {
		w.logger.Debug(ctx, "chat status update skipped: %v", err)
		return
	}

	lines := strings.Split(content, "\n")
	if chat.StartLine < 1 || chat.StartLine > len(lines) {
		w.logger.Debug(ctx, "chat status update skipped: line %d out of range", chat.StartLine)
		return
	}

	// Substitute only the status field so an embedded message survives
	// the rewrite and a failed turn stays retryable.
	marker, ok := parser.RewriteOpenMarkerStatus(lines[chat.StartLine-1], status)
	if !ok {
		// The marker line was edited away mid-run; rebuild from what
		// the parse captured.
		marker = fmt.Sprintf("%s%s:%s", parser.InlineChatOpenPrefix, status, chat.ID)
		if chat.Agent != "" {
			marker += ":" + chat.Agent
		}
		marker += " -->"
	}
	lines[chat.StartLine-1] = marker

	if err := w.store.Write(path, strings.Join(lines, "\n")); err != nil {
		w.logger.Debug(ctx, "chat status update failed: %v", err)
	}
}
