package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/XiaoConstantine/spark-go/pkg/core"
)

// sparkSyntaxRe is a cheap pre-filter so plain prose lines skip the
// full tokenizer.
var sparkSyntaxRe = regexp.MustCompile(`[@/$][a-zA-Z0-9-]`)

// HasSparkSyntax reports whether a line could contain any mention at all.
func HasSparkSyntax(line string) bool {
	return sparkSyntaxRe.MatchString(line)
}

// patternEntry is one row of the tokenizer's precedence table. At a
// given offset the first matching row wins, which makes offset dedupe
// hold by construction.
type patternEntry struct {
	mtype    core.MentionType
	priority int
	re       *regexp.Regexp // anchored at the candidate offset
}

// Precedence: command > service > folder > file > agent. Folder before
// file means @a/b/c.md claims the folder prefix, matching how the sigil
// grammar resolves the shared offset.
var precedence = []patternEntry{
	{core.MentionCommand, 5, regexp.MustCompile(`^/([a-zA-Z][a-zA-Z0-9_-]*)`)},
	{core.MentionService, 4, regexp.MustCompile(`^\$([a-zA-Z][a-zA-Z0-9_-]*)`)},
	{core.MentionFolder, 3, regexp.MustCompile(`^@((?:[a-zA-Z0-9_.-]+/)+)`)},
	{core.MentionFile, 2, regexp.MustCompile(`^@((?:[a-zA-Z0-9_.-]+/)*[a-zA-Z0-9_.-]+\.[a-zA-Z0-9]+)`)},
	{core.MentionAgent, 1, regexp.MustCompile(`^@([a-zA-Z][a-zA-Z0-9_-]*)`)},
}

// MentionParser tokenizes text into typed references in a single pass.
type MentionParser struct{}

func NewMentionParser() *MentionParser {
	return &MentionParser{}
}

// Parse scans content and returns every mention, sorted ascending by
// byte offset. No two mentions share an offset.
func (p *MentionParser) Parse(content string) []core.Mention {
	var mentions []core.Mention

	for i := 0; i < len(content); {
		c := content[i]
		if (c != '@' && c != '/' && c != '$') || !atBoundary(content, i) {
			i++
			continue
		}

		matched := false
		for _, entry := range precedence {
			loc := entry.re.FindStringSubmatchIndex(content[i:])
			if loc == nil {
				continue
			}
			end := i + loc[1]
			if entry.mtype == core.MentionAgent && followedByAgentBreaker(content, end) {
				// @name directly followed by /, a word char, or .
				// is a folder or file reference, never an agent.
				continue
			}
			raw := content[i:end]
			value := content[i+loc[2] : i+loc[3]]
			if entry.mtype == core.MentionFolder {
				value = strings.TrimSuffix(value, "/")
			}
			mentions = append(mentions, core.Mention{
				Type:     entry.mtype,
				Raw:      raw,
				Value:    value,
				Position: i,
			})
			i = end
			matched = true
			break
		}
		if !matched {
			i++
		}
	}

	return mentions
}

// atBoundary reports whether offset i starts a token: beginning of text
// or preceded by whitespace or an opening bracket.
func atBoundary(content string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(content[:i])
	return unicode.IsSpace(r) || r == '(' || r == '[' || r == '{'
}

// followedByAgentBreaker implements the agent pattern's negative
// lookahead, which Go regexp does not support natively.
func followedByAgentBreaker(content string, end int) bool {
	if end >= len(content) {
		return false
	}
	c := content[end]
	return c == '/' || c == '.' || c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
