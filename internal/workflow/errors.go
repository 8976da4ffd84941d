package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying every fatal outcome. The orchestrator
// distinguishes remote conversion failures from transport problems in
// user messaging; both end the run with a non-zero exit.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrAuthentication = errors.New("authentication error")
	ErrTransport      = errors.New("transport error")
	ErrRemote         = errors.New("remote conversion failure")
)

// Wrap tags an error with one of the sentinel markers above plus step
// context so the failing state is identifiable from the message alone.
func Wrap(marker error, step, message string, err error) error {
	if marker == nil {
		marker = ErrTransport
	}
	detail := buildDetail(step, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(step, message string) string {
	parts := make([]string, 0, 2)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "workflow failure"
	}
	return strings.Join(parts, ": ")
}

// IsRemoteFailure reports whether the run ended because the server
// declared the job failed, as opposed to a local or network problem.
func IsRemoteFailure(err error) bool {
	return errors.Is(err, ErrRemote)
}
