package agent

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is a configuration failure: the generation credential is
// absent. It is fatal at first use of the generator and does not block
// schema-only operations.
var ErrMissingAPIKey = errors.New("missing ANTHROPIC_API_KEY: set an API key before using the generator")

// UpstreamError marks an upstream-generation failure: the model violated its
// reply contract (non-JSON body or absent/empty sql field). The raw offending
// text is carried for diagnosis; the failure is never retried automatically.
type UpstreamError struct {
	Reason string
	Raw    string
}

func (e *UpstreamError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("generator contract violation: %s", e.Reason)
	}
	return fmt.Sprintf("generator contract violation: %s: %s", e.Reason, e.Raw)
}
