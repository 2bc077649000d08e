// Package apperrors provides the chained error type used across simbridge.
// Errors are declared once as package-level sentinels and derived with New, Msg
// or Err so that callers can match any ancestor with errors.Is while the
// message stays specific to the failure site.
package apperrors

// Error is an error that remembers the sentinel it was derived from and any
// errors attached to it. All methods return a new Error; the receiver is never
// modified.
type Error interface {
	error
	Unwrap() error // parent sentinel, for errors.Is / errors.As

	// Derivation
	New(msg string) Error                  // child sentinel with a new message
	Msg(msg string) Error                  // same lineage, message replaced
	MsgErr(msg string, err ...error) Error // message replaced, errs attached
	Err(err ...error) Error                // errs attached, message kept
	Prefix(string) Error                   // copy whose message is "prefix: msg"

	// HTTP mapping
	SetStatusCode(int) Error // status the emulator answers with
	StatusCode() int         // zero when never set

	// Inspection
	ErrorAll() string   // message followed by every attached error
	UnwrapAll() []error // attached errors in order
}
