package errors

import (
	"context"
	stderrors "errors"
)

// CheckContext returns an error if the context is canceled or timed out.
// This provides a standardized way to check and wrap context errors.
func CheckContext(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return Wrap(err, Canceled, operation+" canceled")
	}
	return nil
}

// CodeOf extracts the error code from any error. Non-structured errors
// report Unknown.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code()
	}
	return Unknown
}

// Retryable reports whether the failure class is worth retrying. The
// engine performs no retries itself; this is surfaced as guidance only.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case BackendNetworkError, BackendServerError:
		return true
	default:
		return false
	}
}

var suggestions = map[ErrorCode][]string{
	InvalidInput: {
		"Check the command syntax and arguments",
	},
	ResourceNotFound: {
		"Verify the mentioned file or agent exists in the vault",
		"Check the spelling of the mention",
	},
	ParseFailure: {
		"Check the document for malformed frontmatter or markers",
	},
	ContextLoadFailure: {
		"Verify the vault root is readable",
	},
	WriteFailure: {
		"Check file permissions on the document",
		"Verify the document was not removed mid-run",
	},
	BackendNetworkError: {
		"Check your network connection",
		"Verify the provider endpoint is reachable",
		"This error is usually transient; try again",
	},
	BackendServerError: {
		"The provider is having trouble; try again later",
		"Check the provider status page",
	},
	BackendClientError: {
		"Verify your API key is valid and has quota remaining",
		"Check the configured model name",
	},
}

// Suggestions returns code-keyed remediation guidance for rendering in
// error reports. Unknown codes yield an empty list.
func Suggestions(code ErrorCode) []string {
	out := make([]string, len(suggestions[code]))
	copy(out, suggestions[code])
	return out
}
