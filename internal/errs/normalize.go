// Package errs gives the engine a single place to turn arbitrary recovered
// values and wrapped errors into a stable, human-readable string for the
// trade log and for structured logging.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Wrap attaches a message to err, preserving the cause chain for Normalize
// and for errors.Is/As callers further up the stack.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, message)
}

// Normalize turns any recovered value (error, string, or otherwise) into a
// non-empty human-readable string. It never returns an empty string, which
// keeps the trade_log table's error column reliably queryable.
func Normalize(v interface{}) string {
	var s string
	switch t := v.(type) {
	case nil:
		return "unknown error"
	case error:
		s = t.Error()
	case string:
		s = t
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprintf("%v", t)
	}
	if s == "" {
		return "unknown error"
	}
	return s
}

// Cause unwraps to the root cause of err, mirroring pkg/errors.Cause.
func Cause(err error) error {
	return errors.Cause(err)
}
