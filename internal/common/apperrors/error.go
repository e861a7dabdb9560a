// Package apperrors provides the layered application error type used across
// the server. Errors form a tree: a sentinel created with New can spawn more
// specific children with New, and every error carries the HTTP status code
// it maps to at the API boundary. errors.Is walks both the ancestry chain
// and any wrapped causes.
package apperrors

type Error interface {
	Error() string
	// ErrorAll renders the message together with wrapped causes when the
	// error was marked expandable.
	ErrorAll() string
	// New derives a child error that inherits this error's status code.
	New(msg string) Error
	// Msg replaces the message on a copy of this error.
	Msg(msg string) Error
	// MsgErr replaces the message and attaches causes on a copy.
	MsgErr(msg string, err ...error) Error
	// Err attaches causes on a copy of this error.
	Err(err ...error) Error
	Unwrap() []error
	Is(target error) bool
	SetExpandError(expand bool) Error
	SetStatusCode(code int) Error
	StatusCode() int
}
