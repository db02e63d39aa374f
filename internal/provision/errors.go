package provision

import (
	"errors"
	"fmt"
)

// credentialRequiredError signals a gated artifact fetch attempted without
// a bearer credential. Surfaced before any network call.
type credentialRequiredError struct{ dest string }

func (e credentialRequiredError) Error() string {
	return "credential required for gated artifact: " + e.dest
}

// IsCredentialRequired reports whether err indicates a missing credential.
func IsCredentialRequired(err error) bool {
	var e credentialRequiredError
	return errors.As(err, &e)
}

// httpStatusError surfaces a non-2xx response instead of silently writing
// a truncated file.
type httpStatusError struct {
	url    string
	status int
}

func (e httpStatusError) Error() string {
	return fmt.Sprintf("fetch %s: http status %d", e.url, e.status)
}

// IsHTTPStatus reports whether err carries a remote HTTP status, and if so
// which one.
func IsHTTPStatus(err error) (int, bool) {
	var e httpStatusError
	if errors.As(err, &e) {
		return e.status, true
	}
	return 0, false
}
