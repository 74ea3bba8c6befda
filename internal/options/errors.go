package options

import (
	"errors"
	"fmt"
	"strings"
)

// NoDataMessage is shown when a builder ends up with nothing to draw.
const NoDataMessage = "No data for this option combination."

// InvalidOptionError means the selected option combination has no valid data.
// It is recoverable by choosing other options and is not logged as an error.
type InvalidOptionError struct {
	Message string
}

func (e *InvalidOptionError) Error() string { return e.Message }

func InvalidOption(format string, args ...any) error {
	return &InvalidOptionError{Message: fmt.Sprintf(format, args...)}
}

// NoData returns the InvalidOptionError for an empty result.
func NoData() error {
	return &InvalidOptionError{Message: NoDataMessage}
}

// OptionsNotSetError means required options are not yet known, e.g. during the
// first render before the client has sent them.
type OptionsNotSetError struct {
	Missing []string
}

func (e *OptionsNotSetError) Error() string {
	return "options not set: " + strings.Join(e.Missing, ", ")
}

// Require returns an OptionsNotSetError naming every key without a value.
func Require(v Values, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if v[k] == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &OptionsNotSetError{Missing: missing}
	}
	return nil
}

// IsDomainError reports whether err is an expected, user-recoverable outcome.
func IsDomainError(err error) bool {
	var invalid *InvalidOptionError
	var notSet *OptionsNotSetError
	return errors.As(err, &invalid) || errors.As(err, &notSet)
}
