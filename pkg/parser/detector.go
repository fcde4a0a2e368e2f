package parser

import (
	"strings"

	"github.com/XiaoConstantine/spark-go/pkg/core"
)

// scanState tracks which region of the document the line scanner is in.
// Result and inline-chat regions hold content the engine wrote itself;
// never scanning them is what prevents the feedback loop.
type scanState int

const (
	stateNormal scanState = iota
	stateInCodeBlock
	stateInResultBlock
	stateInInlineChatBlock
)

// CommandDetector classifies executable directives with a single-pass
// line scanner.
type CommandDetector struct {
	mentions *MentionParser
}

func NewCommandDetector(mentions *MentionParser) *CommandDetector {
	return &CommandDetector{mentions: mentions}
}

// Detect returns every command line in content, in document order.
// Bare agent mentions do not qualify; that traffic belongs to inline
// chat.
func (d *CommandDetector) Detect(content string) []core.Command {
	var commands []core.Command

	state := stateNormal
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		switch state {
		case stateInCodeBlock:
			if strings.HasPrefix(trimmed, "```") {
				state = stateNormal
			}
			continue
		case stateInResultBlock:
			if trimmed == ResultEndMarker {
				state = stateNormal
			}
			continue
		case stateInInlineChatBlock:
			if trimmed == InlineChatClose {
				state = stateNormal
			}
			continue
		}

		if strings.HasPrefix(trimmed, "```") {
			state = stateInCodeBlock
			continue
		}
		if trimmed == ResultStartMarker {
			state = stateInResultBlock
			continue
		}
		if strings.HasPrefix(trimmed, InlineChatOpenPrefix) {
			state = stateInInlineChatBlock
			continue
		}

		if cmd, ok := d.evaluate(i+1, line); ok {
			commands = append(commands, cmd)
		}
	}

	return commands
}

// evaluate classifies a single line in the normal state.
func (d *CommandDetector) evaluate(lineNo int, line string) (core.Command, bool) {
	cleaned, glyph := core.StripStatusGlyph(line)
	if !HasSparkSyntax(cleaned) {
		return core.Command{}, false
	}

	mentions := d.mentions.Parse(cleaned)

	var cmdMention *core.Mention
	for i := range mentions {
		if mentions[i].Type == core.MentionCommand {
			cmdMention = &mentions[i]
			break
		}
	}
	if cmdMention == nil {
		return core.Command{}, false
	}

	cmdType := core.CommandMentionChain
	if strings.HasPrefix(strings.TrimSpace(cleaned), "/") {
		cmdType = core.CommandSlash
	}

	args := strings.TrimSpace(cleaned[cmdMention.Position+len(cmdMention.Raw):])

	return core.Command{
		Line:        lineNo,
		Raw:         line,
		Type:        cmdType,
		Command:     cmdMention.Value,
		Args:        args,
		Mentions:    mentions,
		Status:      core.StatusFromGlyph(glyph),
		IsComplete:  IsComplete(cleaned),
		StatusGlyph: glyph,
	}, true
}

// IsComplete reports whether a command line reads as a finished
// sentence: non-empty, no trailing whitespace, terminal punctuation.
func IsComplete(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if strings.TrimRight(text, " \t") != text {
		return false
	}
	last := text[len(text)-1]
	return last == '.' || last == '?' || last == '!'
}
