package executor

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/XiaoConstantine/spark-go/pkg/errors"
	"github.com/XiaoConstantine/spark-go/pkg/logging"
)

// ErrorReport is the structured failure record appended to the error
// log artifact.
type ErrorReport struct {
	ID          string                 `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	File        string                 `json:"file"`
	Line        int                    `json:"line,omitempty"`
	Message     string                 `json:"message"`
	Code        string                 `json:"code"`
	Retryable   bool                   `json:"retryable"`
	Stack       string                 `json:"stack,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Suggestions []string               `json:"suggestions,omitempty"`
}

// notification is the compact record appended to the notification stream.
type notification struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	File      string    `json:"file"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
}

// ErrorWriter renders structured failure reports to append-only JSONL
// artifacts. Both sinks are best-effort side channels: their own
// failure must never mask the error being reported.
type ErrorWriter struct {
	logPath    string
	notifyPath string
	logger     *logging.Logger
}

func NewErrorWriter(logPath, notifyPath string, logger *logging.Logger) *ErrorWriter {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &ErrorWriter{logPath: logPath, notifyPath: notifyPath, logger: logger}
}

// Report writes a full record to the error log and a compact record to
// the notification stream.
func (w *ErrorWriter) Report(ctx context.Context, file string, line int, err error) {
	if err == nil {
		return
	}

	code := errors.CodeOf(err)
	report := ErrorReport{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		File:        file,
		Line:        line,
		Message:     err.Error(),
		Code:        code.String(),
		Retryable:   errors.Retryable(err),
		Stack:       string(debug.Stack()),
		Suggestions: errors.Suggestions(code),
	}

	var structured *errors.Error
	if stderrors.As(err, &structured) && len(structured.Fields()) > 0 {
		report.Context = structured.Fields()
	}

	w.appendJSONL(ctx, w.logPath, report)
	w.appendJSONL(ctx, w.notifyPath, notification{
		ID:        report.ID,
		Timestamp: report.Timestamp,
		File:      report.File,
		Message:   report.Message,
		Code:      report.Code,
	})
}

func (w *ErrorWriter) appendJSONL(ctx context.Context, path string, record interface{}) {
	if path == "" {
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		w.logger.Debug(ctx, "error report marshal failed: %v", err)
		return
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		w.logger.Debug(ctx, "error report sink unavailable: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		w.logger.Debug(ctx, "error report append failed: %v", err)
	}
}
