// Package fault defines the closed set of pipeline error kinds and the single path that reports them.
package fault

import (
	"errors"
	"fmt"

	"framerelay/internal/logger"
	"framerelay/internal/metrics"
)

// Kind classifies a pipeline fault.
type Kind int

const (
	// Acquisition faults (camera denied or unavailable) end the session.
	Acquisition Kind = iota
	// EncodingSkip marks a tick skipped because the source was not ready.
	EncodingSkip
	// Transfer faults are failed uploads from the client to the relay.
	Transfer
	// Validation faults are rejected relay requests or missing relay configuration.
	Validation
	// Delivery faults are sink rejections or sink transport errors.
	Delivery
	// Internal covers unexpected relay errors.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Acquisition:
		return "acquisition"
	case EncodingSkip:
		return "encoding_skip"
	case Transfer:
		return "transfer"
	case Validation:
		return "validation"
	case Delivery:
		return "delivery"
	case Internal:
		return "internal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a fault of a known kind raised by operation Op.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New wraps err as a fault of kind k.
func New(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first fault in err's chain. Unclassified errors are Internal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// Reporter logs faults at the level their kind calls for and counts them.
type Reporter struct {
	logger *logger.Logger
	faults *metrics.Faults
}

// NewReporter creates a Reporter. faults may be nil.
func NewReporter(logger *logger.Logger, faults *metrics.Faults) *Reporter {
	return &Reporter{logger: logger, faults: faults}
}

// Report logs err. Errors that are not a *Error are reported as Internal.
func (r *Reporter) Report(err error) {
	if err == nil {
		return
	}
	kind := KindOf(err)

	if r.faults != nil {
		r.faults.Total.WithLabelValues(kind.String()).Inc()
	}

	switch kind {
	case EncodingSkip:
		r.logger.Debug("%v", err)
	case Transfer, Validation:
		r.logger.Warning("%v", err)
	default:
		r.logger.Error("%v", err)
	}
}
