package parser

import (
	"golang.org/x/text/unicode/norm"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/logging"
)

// ParseResult is everything one pass over a document produces.
type ParseResult struct {
	Path               string
	Commands           []core.Command
	Chats              []core.InlineChat
	Frontmatter        map[string]interface{}
	FrontmatterChanges []core.FrontmatterChange
}

// FileParser composes the detectors over a single normalized read of a
// document.
type FileParser struct {
	mentions    *MentionParser
	commands    *CommandDetector
	chats       *InlineChatDetector
	frontmatter *FrontmatterParser
}

func NewFileParser(logger *logging.Logger) *FileParser {
	mentions := NewMentionParser()
	return &FileParser{
		mentions:    mentions,
		commands:    NewCommandDetector(mentions),
		chats:       NewInlineChatDetector(mentions),
		frontmatter: NewFrontmatterParser(logger),
	}
}

// Parse runs every detector over content. Content is normalized to NFC
// first so mention offsets are stable across editors that write
// decomposed Unicode.
func (p *FileParser) Parse(path, content string) *ParseResult {
	content = norm.NFC.String(content)

	return &ParseResult{
		Path:               path,
		Commands:           p.commands.Detect(content),
		Chats:              p.chats.Detect(content),
		Frontmatter:        p.frontmatter.Extract(content),
		FrontmatterChanges: p.frontmatter.DetectChanges(path, content),
	}
}

// Mentions exposes the shared mention parser for callers that scan
// free-form text, such as the chat queue.
func (p *FileParser) Mentions() *MentionParser {
	return p.mentions
}

// Frontmatter exposes the parser's snapshot cache owner.
func (p *FileParser) Frontmatter() *FrontmatterParser {
	return p.frontmatter
}
