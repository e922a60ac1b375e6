package transport

import "fmt"

// Error wraps a provider API error with the transport that produced it.
type Error struct {
	// Transport is the name of the transport that returned the error.
	Transport string
	// StatusCode is the HTTP status code from the provider API, or zero
	// for network-level failures.
	StatusCode int
	// Message is the error description.
	Message string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Transport, e.StatusCode, e.Message)
	}
	return e.Transport + ": " + e.Message
}

// httpError creates an Error from a non-2xx provider response.
func httpError(transport string, statusCode int, body string) *Error {
	return &Error{
		Transport:  transport,
		StatusCode: statusCode,
		Message:    body,
	}
}

// batchError formats the message-level error string recorded when a batch
// delivery attempt fails.
func batchError(msgID fmt.Stringer, contentLang string, count int, err error) string {
	return fmt.Sprintf("error sending message %q, content language %q, to %d recipient(s): %v",
		msgID, contentLang, count, err)
}
