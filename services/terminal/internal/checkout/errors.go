package checkout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrItemUnavailable    = errors.New("item unavailable")
	ErrItemNotFound       = errors.New("item not found")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrNegativeAmount     = errors.New("amount cannot be negative")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrUnknownField       = errors.New("unknown payment field")
	ErrInvalidOrderType   = errors.New("invalid order type")
	ErrInvalidDay         = errors.New("invalid day")

	ErrSubmissionInFlight = errors.New("order submission already in progress")
	ErrOrderPlaced        = errors.New("order already placed, start a new order")
	ErrNoReceipt          = errors.New("no placed order to print")
	ErrSessionNotFound    = errors.New("session not found")

	// Remote failure kinds, matched through errors.Is on a *RemoteError.
	ErrAuth    = errors.New("session expired")
	ErrNetwork = errors.New("order service unreachable")
	ErrServer  = errors.New("order service rejected the request")

	// ErrOutcomeUnknown means the request was sent but no answer came back;
	// the order may exist. Resubmit only with the same idempotency key.
	ErrOutcomeUnknown = errors.New("order outcome unknown, check history before retrying")
)

// ValidationCode names why a builder cannot be submitted.
type ValidationCode string

const (
	NoLines        ValidationCode = "no_lines"
	UnresolvedItem ValidationCode = "unresolved_item"
)

// ValidationError is raised locally and never reaches the network.
type ValidationError struct {
	Code    ValidationCode `json:"code"`
	Line    int            `json:"line,omitempty"`
	Name    string         `json:"name,omitempty"`
	Message string         `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Message
}

// ValidationErrors is returned by Snapshot when Validate is not empty.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, 0, len(ve))
	for _, e := range ve {
		msgs = append(msgs, e.Message)
	}
	return "order is not submittable: " + strings.Join(msgs, "; ")
}

// Has reports whether any error carries code.
func (ve ValidationErrors) Has(code ValidationCode) bool {
	for _, e := range ve {
		if e.Code == code {
			return true
		}
	}
	return false
}

// RemoteError classifies a failed call to the resto API.
type RemoteError struct {
	Kind       error
	StatusCode int
	Reason     string
	Cause      error
}

// NewRemoteError builds a classified error; kind is one of ErrAuth,
// ErrNetwork, ErrServer or ErrOutcomeUnknown.
func NewRemoteError(kind error, status int, reason string, cause error) *RemoteError {
	return &RemoteError{Kind: kind, StatusCode: status, Reason: reason, Cause: cause}
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	} else if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Retryable reports whether resubmitting cannot create a duplicate order.
func Retryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// ErrorKind names the remote failure kind of err for logs, metrics and audit.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrOutcomeUnknown):
		return "unknown"
	case errors.Is(err, ErrServer):
		return "server"
	default:
		var ve ValidationErrors
		if errors.As(err, &ve) {
			return "validation"
		}
		return "internal"
	}
}
