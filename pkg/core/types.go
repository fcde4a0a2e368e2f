package core

// MentionType identifies the kind of inline reference a sigil introduces.
type MentionType string

const (
	MentionAgent   MentionType = "agent"
	MentionFile    MentionType = "file"
	MentionFolder  MentionType = "folder"
	MentionService MentionType = "service"
	MentionCommand MentionType = "command"
	MentionTag     MentionType = "tag"
)

// Mention is a sigil-prefixed inline reference found in document text.
// A parse result is sorted ascending by Position and no two mentions
// share a Position.
type Mention struct {
	Type     MentionType
	Raw      string // Text as written, sigil included
	Value    string // Cleaned reference value, sigil stripped
	Position int    // Byte offset into the scanned text
}

// CommandType distinguishes how an executable directive was written.
type CommandType string

const (
	CommandSlash        CommandType = "slash"
	CommandMentionChain CommandType = "mention-chain"
)

// CommandStatus tracks a command through its lifecycle.
type CommandStatus string

const (
	StatusPending    CommandStatus = "pending"
	StatusProcessing CommandStatus = "processing"
	StatusCompleted  CommandStatus = "completed"
	StatusFailed     CommandStatus = "failed"
)

// Command is an executable directive detected on a document line.
type Command struct {
	Line        int // 1-indexed
	Raw         string
	Type        CommandType
	Command     string
	Args        string
	Mentions    []Mention
	Status      CommandStatus
	IsComplete  bool
	StatusGlyph string
}

// ChatStatus tracks an inline conversational block.
type ChatStatus string

const (
	ChatPending    ChatStatus = "pending"
	ChatProcessing ChatStatus = "processing"
	ChatComplete   ChatStatus = "complete"
	ChatError      ChatStatus = "error"
)

// InlineChat is a matched pair of conversational markers in a document.
type InlineChat struct {
	StartLine   int // 1-indexed, inclusive
	EndLine     int // 1-indexed, inclusive
	ID          string
	Status      ChatStatus
	Agent       string
	UserMessage string
	AIResponse  string
	Mentions    []Mention
}

// FrontmatterChange records one top-level key differing from the last
// cached snapshot for a document. Added keys have a nil OldValue and
// removed keys a nil NewValue.
type FrontmatterChange struct {
	Field    string
	OldValue interface{}
	NewValue interface{}
}

// Priority weights context files for prompt assembly.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// FileContent is a document and its full text.
type FileContent struct {
	Path    string
	Content string
}

// MentionedFile is a document pulled in by an explicit mention. Weight
// orders mentioned files within the bundle; folder members carry a
// slightly lower weight than files mentioned directly.
type MentionedFile struct {
	Path    string
	Content string
	Weight  float64
}

// NearbyFile is a proximity-ranked neighbor included by summary only.
type NearbyFile struct {
	Path     string
	Summary  string
	Distance int
}

// AgentAIConfig carries per-agent backend overrides read from the
// agent document's frontmatter. Temperature is a pointer so an explicit
// zero survives as distinct from unset.
type AgentAIConfig struct {
	Provider    string
	Model       string
	Temperature *float64
}

// AgentContext is the persona loaded for an @agent mention.
type AgentContext struct {
	Path     string
	Persona  string
	AIConfig *AgentAIConfig
}

// ServiceConnection records a $service mention; no content is fetched.
type ServiceConnection struct {
	Name   string
	Target string
}

// LoadedContext is the bounded context bundle assembled for one execution.
type LoadedContext struct {
	CurrentFile        FileContent
	MentionedFiles     []MentionedFile
	NearbyFiles        []NearbyFile
	Agent              *AgentContext
	ServiceConnections []ServiceConnection
}

// ContextFile is a provider-neutral tagged context entry handed to the
// backend alongside the prompt.
type ContextFile struct {
	Path     string
	Content  string
	Priority Priority
}
