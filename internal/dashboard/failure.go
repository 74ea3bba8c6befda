package dashboard

import (
	"errors"

	"energy_dashboard/internal/options"
)

const (
	KindOptionsNotSet = "options_not_set"
	KindInvalidOption = "invalid_option"
	KindUnknownPage   = "unknown_page"
	KindError         = "error"
)

// FetchErrorMessage is shown for every failure that is not a domain error.
const FetchErrorMessage = "Error fetching data."

// Failure is the client-facing description of a failed page request.
type Failure struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// Describe classifies err. Only domain errors keep their message; anything
// else collapses to FetchErrorMessage.
func Describe(err error) Failure {
	var notSet *options.OptionsNotSetError
	if errors.As(err, &notSet) {
		return Failure{Kind: KindOptionsNotSet, Missing: notSet.Missing}
	}
	var invalid *options.InvalidOptionError
	if errors.As(err, &invalid) {
		return Failure{Kind: KindInvalidOption, Message: invalid.Message}
	}
	if errors.Is(err, ErrUnknownPage) {
		return Failure{Kind: KindUnknownPage, Message: err.Error()}
	}
	return Failure{Kind: KindError, Message: FetchErrorMessage}
}
