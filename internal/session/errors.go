package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Versifine/hamster/internal/pipeline"
)

var (
	// ErrSetup matches every SetupError.
	ErrSetup = errors.New("session setup failed")
	// ErrAnchorMissing matches every AnchorMissingError.
	ErrAnchorMissing = errors.New("anchor stage missing")
	// ErrChannelClosed is returned when the connection's channel is no longer active.
	ErrChannelClosed = pipeline.ErrChannelClosed
	// ErrOutboundFailed reports an outbound intent that no strategy could deliver.
	ErrOutboundFailed = errors.New("outbound message failed")

	errHandlesUnresolved = errors.New("handles not resolved")
	errNoSendMethod      = errors.New("no send method")
	errNilChannel        = errors.New("channel is nil")
)

// SetupError reports a failed step while locating a session's handles.
type SetupError struct {
	Step string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Step, e.Err)
}

func (e *SetupError) Unwrap() []error {
	return []error{ErrSetup, e.Err}
}

// AnchorMissingError reports an interceptor stage that could not be placed
// because none of its anchors exist in the chain.
type AnchorMissingError struct {
	Stage     string
	Available []string
}

func (e *AnchorMissingError) Error() string {
	return fmt.Sprintf("no anchor for stage %s in chain [%s]", e.Stage, strings.Join(e.Available, ", "))
}

func (e *AnchorMissingError) Unwrap() error {
	return ErrAnchorMissing
}
