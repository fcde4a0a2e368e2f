package executor

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/logging"
	"github.com/XiaoConstantine/spark-go/pkg/parser"
)

// ChatRequest is a queued external conversational request, arriving
// from outside any document.
type ChatRequest struct {
	ID      string `json:"id,omitempty"`
	Path    string `json:"path"`
	Message string `json:"message"`
	Agent   string `json:"agent,omitempty"`
}

// ChatResponse delivers one request's outcome.
type ChatResponse struct {
	ID      string
	Content string
	Usage   *core.TokenInfo
	Err     error
}

// ChatQueueHandler consumes queued chat requests instead of in-document
// commands. Responses go back on a channel; no document is mutated.
type ChatQueueHandler struct {
	exec      *Executor
	mentions  *parser.MentionParser
	requests  <-chan ChatRequest
	responses chan<- ChatResponse
	logger    *logging.Logger
}

func NewChatQueueHandler(exec *Executor, mentions *parser.MentionParser, requests <-chan ChatRequest, responses chan<- ChatResponse, logger *logging.Logger) *ChatQueueHandler {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &ChatQueueHandler{
		exec:      exec,
		mentions:  mentions,
		requests:  requests,
		responses: responses,
		logger:    logger,
	}
}

// Run consumes requests until the context is canceled or the request
// channel closes.
func (h *ChatQueueHandler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-h.requests:
			if !ok {
				return
			}
			h.handle(ctx, req)
		}
	}
}

func (h *ChatQueueHandler) handle(ctx context.Context, req ChatRequest) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	message := req.Message
	if req.Agent != "" && !strings.HasPrefix(strings.TrimSpace(message), "@") {
		message = "@" + req.Agent + " " + message
	}

	cmd := core.Command{
		Raw:      message,
		Type:     core.CommandMentionChain,
		Mentions: h.mentions.Parse(message),
		Status:   core.StatusPending,
	}

	content, usage, err := h.exec.ExecuteAndReturn(ctx, cmd, req.Path)
	if err != nil {
		h.logger.Warn(ctx, "queued chat %s failed: %v", req.ID, err)
	}

	select {
	case <-ctx.Done():
	case h.responses <- ChatResponse{ID: req.ID, Content: content, Usage: usage, Err: err}:
	}
}
