package llms

import (
	"github.com/XiaoConstantine/spark-go/pkg/errors"
)

// classifyStatus maps an HTTP status from a backend into the engine's
// error taxonomy. Rate limiting and server faults are retryable signals;
// other 4xx responses indicate a caller problem.
func classifyStatus(status int) errors.ErrorCode {
	switch {
	case status == 429 || status >= 500:
		return errors.BackendServerError
	case status >= 400:
		return errors.BackendClientError
	default:
		return errors.Unknown
	}
}
