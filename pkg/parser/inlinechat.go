package parser

import (
	"strings"

	"github.com/XiaoConstantine/spark-go/pkg/core"
)

// InlineChatDetector extracts paired conversational marker blocks.
type InlineChatDetector struct {
	mentions *MentionParser
}

func NewInlineChatDetector(mentions *MentionParser) *InlineChatDetector {
	return &InlineChatDetector{mentions: mentions}
}

// Detect returns every matched marker pair in content. Unmatched opens
// are dropped silently.
func (d *InlineChatDetector) Detect(content string) []core.InlineChat {
	var chats []core.InlineChat

	lines := strings.Split(content, "\n")
	inCodeBlock := false
	inResultBlock := false

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])

		if inResultBlock {
			if trimmed == ResultEndMarker {
				inResultBlock = false
			}
			continue
		}
		if strings.HasPrefix(trimmed, "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		if trimmed == ResultStartMarker {
			inResultBlock = true
			continue
		}

		status, id, agent, message, ok := parseOpenMarker(trimmed)
		if !ok {
			continue
		}

		closeLine := -1
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == InlineChatClose {
				closeLine = j
				break
			}
		}
		if closeLine < 0 {
			continue
		}

		body := lines[i+1 : closeLine]
		chat := core.InlineChat{
			StartLine: i + 1,
			EndLine:   closeLine + 1,
			ID:        id,
			Status:    status,
			Agent:     agent,
		}

		if status == core.ChatComplete {
			chat.AIResponse = strings.TrimSpace(strings.Join(body, "\n"))
		} else {
			chat.UserMessage = extractUserMessage(message, body)
			if agent != "" && !strings.HasPrefix(strings.TrimSpace(chat.UserMessage), "@") {
				// Route to the embedded agent when the author did not
				// lead with an explicit mention.
				chat.UserMessage = "@" + agent + " " + chat.UserMessage
			}
			chat.Mentions = d.mentions.Parse(chat.UserMessage)
		}

		chats = append(chats, chat)
		i = closeLine
	}

	return chats
}

// parseOpenMarker decodes <!-- spark-inline-chat:{status}:{id}[:{agent}[:{message}]] -->.
func parseOpenMarker(line string) (core.ChatStatus, string, string, string, bool) {
	if !strings.HasPrefix(line, InlineChatOpenPrefix) || !strings.HasSuffix(line, markerSuffix) {
		return "", "", "", "", false
	}

	fields := strings.TrimSuffix(strings.TrimPrefix(line, InlineChatOpenPrefix), markerSuffix)
	// The message field may itself contain colons; keep the remainder intact.
	parts := strings.SplitN(fields, ":", 4)
	if len(parts) < 2 {
		return "", "", "", "", false
	}

	status := core.ChatStatus(parts[0])
	switch status {
	case core.ChatPending, core.ChatProcessing, core.ChatComplete, core.ChatError:
	default:
		return "", "", "", "", false
	}

	id := parts[1]
	if id == "" {
		return "", "", "", "", false
	}

	var agent, message string
	if len(parts) > 2 {
		agent = parts[2]
	}
	if len(parts) > 3 {
		message = parts[3]
	}

	return status, id, agent, message, true
}

// RewriteOpenMarkerStatus substitutes only the status field of an open
// marker line, keeping the id, agent, and any embedded message intact.
// Reports false when the line is not a valid open marker.
func RewriteOpenMarkerStatus(line string, status core.ChatStatus) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if _, _, _, _, ok := parseOpenMarker(trimmed); !ok {
		return "", false
	}

	fields := strings.TrimSuffix(strings.TrimPrefix(trimmed, InlineChatOpenPrefix), markerSuffix)
	rest := strings.SplitN(fields, ":", 2)[1]
	return InlineChatOpenPrefix + string(status) + ":" + rest + markerSuffix, true
}

// extractUserMessage prefers the embedded message field, falling back
// to a legacy "User: ..." first content line.
func extractUserMessage(embedded string, body []string) string {
	if embedded != "" {
		return strings.ReplaceAll(embedded, `\n`, "\n")
	}
	for _, line := range body {
		trimmed := strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(trimmed, "User: "); ok {
			return after
		}
	}
	return ""
}
