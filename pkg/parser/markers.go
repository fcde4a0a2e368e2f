package parser

// On-disk marker grammar. Result markers wrap AI output so the detector
// never rescans it; inline-chat markers delimit conversational turns.
const (
	ResultStartMarker = "<!-- spark-result-start -->"
	ResultEndMarker   = "<!-- spark-result-end -->"

	InlineChatOpenPrefix = "<!-- spark-inline-chat:"
	InlineChatClose      = "<!-- /spark-inline-chat -->"

	markerSuffix = " -->"
)
