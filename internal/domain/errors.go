package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kind labels, used for metrics and transport status mapping.
const (
	KindDataFormat           = "data_format"
	KindRemoteFetch          = "remote_fetch"
	KindInvalidConfiguration = "invalid_configuration"
	KindMissingParameter     = "missing_parameter"
	KindOutOfRange           = "out_of_range"
	KindInvalidRequest       = "invalid_request"
	KindInternal             = "internal"
)

// ErrVariableNotFound is wrapped by DataFormatError when the requested grid
// variable is not declared by the dataset.
var ErrVariableNotFound = errors.New("variable not found")

// DataFormatError reports an unreadable grid file or an unusable variable.
type DataFormatError struct {
	Path     string
	Variable string
	Err      error
}

func (e *DataFormatError) Error() string {
	var b strings.Builder
	b.WriteString("data format")
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Variable != "" {
		fmt.Fprintf(&b, " variable %q", e.Variable)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *DataFormatError) Unwrap() error { return e.Err }

// RemoteFetchError reports a network failure or non-success API response.
// StatusCode is zero when no response was received.
type RemoteFetchError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *RemoteFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s fetch: %v", e.Provider, e.Err)
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }

// InvalidConfigurationError reports an unusable model, e.g. weights summing to zero.
type InvalidConfigurationError struct {
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return "invalid configuration: " + e.Reason
}

// MissingParameterError reports a parameter or weight map that does not carry
// exactly the six recognized keys.
type MissingParameterError struct {
	Map        string // "params", "weights" or "bounds"
	Missing    []Parameter
	Unexpected []string
}

func (e *MissingParameterError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		names := make([]string, len(e.Missing))
		for i, p := range e.Missing {
			names[i] = string(p)
		}
		parts = append(parts, "missing "+strings.Join(names, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Unexpected, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Map, strings.Join(parts, "; "))
}

// OutOfRangeError reports an input violating its declared domain.
type OutOfRangeError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *OutOfRangeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s out of range: %g", e.Field, e.Value)
	}
	return fmt.Sprintf("%s out of range: %s", e.Field, e.Reason)
}

// InvalidRequestError reports a malformed assessment request.
type InvalidRequestError struct {
	Err error
}

func (e *InvalidRequestError) Error() string { return "invalid request: " + e.Err.Error() }

func (e *InvalidRequestError) Unwrap() error { return e.Err }

// ErrorKind maps err to its kind label. Unknown errors are KindInternal.
func ErrorKind(err error) string {
	var (
		dataFormat  *DataFormatError
		remoteFetch *RemoteFetchError
		invalidCfg  *InvalidConfigurationError
		missing     *MissingParameterError
		outOfRange  *OutOfRangeError
		invalidReq  *InvalidRequestError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalidReq):
		return KindInvalidRequest
	case errors.As(err, &dataFormat):
		return KindDataFormat
	case errors.As(err, &remoteFetch):
		return KindRemoteFetch
	case errors.As(err, &invalidCfg):
		return KindInvalidConfiguration
	case errors.As(err, &missing):
		return KindMissingParameter
	case errors.As(err, &outOfRange):
		return KindOutOfRange
	default:
		return KindInternal
	}
}
