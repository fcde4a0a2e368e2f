package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docWithFrontmatter = `---
title: Meeting Notes
tags:
  - work
  - planning
status: draft
---
# Body starts here
`

func TestExtractFrontmatter(t *testing.T) {
	p := NewFrontmatterParser(nil)

	fields := p.Extract(docWithFrontmatter)
	assert.Equal(t, "Meeting Notes", fields["title"])
	assert.Equal(t, "draft", fields["status"])
	assert.Equal(t, []interface{}{"work", "planning"}, fields["tags"])
}

func TestExtractFrontmatterBestEffort(t *testing.T) {
	p := NewFrontmatterParser(nil)

	tests := []struct {
		name    string
		content string
	}{
		{"no frontmatter", "# Just a document\n"},
		{"unterminated fence", "---\ntitle: x\nnothing closes this"},
		{"malformed yaml", "---\ntitle: [unclosed\n---\nbody"},
		{"empty document", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, p.Extract(tt.content))
		})
	}
}

func TestDetectChangesFirstObservation(t *testing.T) {
	p := NewFrontmatterParser(nil)

	changes := p.DetectChanges("/vault/doc.md", docWithFrontmatter)
	// Every field reports as changed from nil on first observation.
	require.Len(t, changes, 3)
	for _, c := range changes {
		assert.Nil(t, c.OldValue)
		assert.NotNil(t, c.NewValue)
	}
	// Deterministic field ordering.
	assert.Equal(t, "status", changes[0].Field)
	assert.Equal(t, "tags", changes[1].Field)
	assert.Equal(t, "title", changes[2].Field)
}

func TestDetectChangesIdempotentOnUnchangedContent(t *testing.T) {
	p := NewFrontmatterParser(nil)

	first := p.DetectChanges("/vault/doc.md", docWithFrontmatter)
	require.NotEmpty(t, first)

	second := p.DetectChanges("/vault/doc.md", docWithFrontmatter)
	assert.Empty(t, second)
}

func TestDetectChangesFieldDiff(t *testing.T) {
	p := NewFrontmatterParser(nil)
	path := "/vault/doc.md"

	p.DetectChanges(path, "---\ntitle: One\nstatus: draft\n---\nbody")

	changes := p.DetectChanges(path, "---\ntitle: Two\nowner: betty\n---\nbody")
	require.Len(t, changes, 3)

	byField := map[string]struct {
		old interface{}
		new interface{}
	}{}
	for _, c := range changes {
		byField[c.Field] = struct {
			old interface{}
			new interface{}
		}{c.OldValue, c.NewValue}
	}

	assert.Equal(t, "One", byField["title"].old)
	assert.Equal(t, "Two", byField["title"].new)
	assert.Nil(t, byField["owner"].old)
	assert.Equal(t, "betty", byField["owner"].new)
	assert.Equal(t, "draft", byField["status"].old)
	assert.Nil(t, byField["status"].new)
}

func TestDetectChangesDeepEquality(t *testing.T) {
	p := NewFrontmatterParser(nil)
	path := "/vault/doc.md"

	p.DetectChanges(path, "---\ntags:\n  - a\n  - b\n---\n")
	// Same list, re-serialized identically: no change.
	assert.Empty(t, p.DetectChanges(path, "---\ntags:\n  - a\n  - b\n---\n"))
	// Element change surfaces.
	changes := p.DetectChanges(path, "---\ntags:\n  - a\n  - c\n---\n")
	require.Len(t, changes, 1)
	assert.Equal(t, "tags", changes[0].Field)
}

func TestClearCache(t *testing.T) {
	p := NewFrontmatterParser(nil)
	path := "/vault/doc.md"

	p.DetectChanges(path, docWithFrontmatter)
	p.ClearCache()

	// After a clear the next call is a first observation again.
	changes := p.DetectChanges(path, docWithFrontmatter)
	assert.Len(t, changes, 3)
}

func TestClearPath(t *testing.T) {
	p := NewFrontmatterParser(nil)

	p.DetectChanges("/vault/a.md", docWithFrontmatter)
	p.DetectChanges("/vault/b.md", docWithFrontmatter)
	p.ClearPath("/vault/a.md")

	assert.Len(t, p.DetectChanges("/vault/a.md", docWithFrontmatter), 3)
	assert.Empty(t, p.DetectChanges("/vault/b.md", docWithFrontmatter))
}
