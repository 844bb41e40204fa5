package db

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Some servers prefix messages with their own error number, e.g.
// "#1146Table 'x' doesn't exist".
var errorNumberPrefix = regexp.MustCompile(`^#\d+`)

func stripErrorNumber(message string) string {
	return errorNumberPrefix.ReplaceAllString(message, "")
}

// ErrorNumber returns the driver code carried by err: 0 for nil, -1 for an
// error no registered driver produced.
func ErrorNumber(err error) int {
	if err == nil {
		return 0
	}
	code, _, ok := DriverError(err)
	if !ok {
		return -1
	}
	return code
}

// ErrorMessage returns the text scripts see for err. Driver messages lose a
// leading error number; other errors keep their message followed by the
// chain of wrapped error types.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if _, message, ok := DriverError(err); ok {
		return stripErrorNumber(message)
	}
	return errorTrace(err)
}

// ExceptionMessage formats err for display. A driver error with a message
// becomes "<message without number prefix or final period> (error <code>)";
// anything else, including a driver error with an empty message, is
// returned as err.Error() so the code stays visible.
func ExceptionMessage(err error) (string, error) {
	if err == nil {
		return "", fmt.Errorf("%w: nil error", ErrInvalidArgument)
	}

	code, message, ok := DriverError(err)
	if !ok || message == "" {
		return err.Error(), nil
	}

	message = stripErrorNumber(message)
	message = strings.TrimSuffix(message, ".")
	return fmt.Sprintf("%s (error %d)", message, code), nil
}

func errorTrace(err error) string {
	var b strings.Builder
	b.WriteString(err.Error())
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(&b, "\n\tat %T", e)
	}
	return b.String()
}
