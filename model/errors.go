package model

import (
	"net/http"

	"github.com/Jon-Arve-Ovesen/agent-zero/core"
)

const opGenerate = "generate"

// statusOverloaded is returned by some providers when capacity is exhausted.
const statusOverloaded = 529

// Unavailable marks err as a failure to reach the backend.
func Unavailable(err error) error {
	return core.NewError(opGenerate, core.ErrBackendUnavailable, err)
}

// Fault marks err as a fault returned by the backend.
func Fault(err error) error {
	return core.NewError(opGenerate, core.ErrBackendError, err)
}

// Classify maps a raw provider error onto the error taxonomy. statusCode is
// the HTTP status of the failed call, or 0 when no response was received
// (transport failure). Errors that already carry a kind are returned unchanged.
func Classify(err error, statusCode int) error {
	if err == nil {
		return nil
	}
	if core.KindOf(err) != nil {
		return err
	}
	if cerr := core.FromContext(opGenerate, err); cerr != nil {
		return cerr
	}
	switch statusCode {
	case 0, http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, statusOverloaded:
		return Unavailable(err)
	default:
		return Fault(err)
	}
}
