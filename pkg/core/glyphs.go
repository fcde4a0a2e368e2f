package core

import "strings"

// Status glyphs prefixing an already-processed command line. Pending
// commands carry no glyph.
const (
	GlyphProcessing = "⏳"
	GlyphCompleted  = "✅"
	GlyphError      = "❌"
	GlyphWarning    = "⚠️"
)

var glyphStatus = map[string]CommandStatus{
	GlyphProcessing: StatusProcessing,
	GlyphCompleted:  StatusCompleted,
	GlyphError:      StatusFailed,
	GlyphWarning:    StatusFailed,
}

// StripStatusGlyph removes a leading status glyph from a command line,
// returning the cleaned text and the glyph found, if any.
func StripStatusGlyph(line string) (string, string) {
	for glyph := range glyphStatus {
		if strings.HasPrefix(line, glyph) {
			return strings.TrimPrefix(strings.TrimPrefix(line, glyph), " "), glyph
		}
	}
	return line, ""
}

// StatusFromGlyph maps a stripped glyph to a command status. An empty
// glyph means the line has not been processed yet.
func StatusFromGlyph(glyph string) CommandStatus {
	if status, ok := glyphStatus[glyph]; ok {
		return status
	}
	return StatusPending
}
