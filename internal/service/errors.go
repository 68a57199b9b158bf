package service

// Kind classifies a recognition failure for the transport layer.
type Kind int

const (
	// KindInput covers a missing image field, malformed base64 and
	// undecodable image bytes.
	KindInput Kind = iota + 1
	// KindEngine covers any failure raised by the OCR engine.
	KindEngine
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindEngine:
		return "engine"
	default:
		return "unknown"
	}
}

// Error carries the client-facing message of a failed recognition.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error returns the client-facing message.
func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func inputError(msg string, err error) *Error {
	return &Error{Kind: KindInput, Message: msg, Err: err}
}
