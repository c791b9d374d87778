package ws

import (
	"errors"

	"tracking/internal/adapters/wire"
	"tracking/internal/core/application/relay"
	"tracking/internal/core/application/usecases/commands"
	"tracking/internal/core/domain/model/order"
	"tracking/internal/core/ports"
	"tracking/internal/jobs"
	"tracking/internal/pkg/errs"
)

// Error codes carried by error frames.
const (
	codeUnauthenticated   = "unauthenticated"
	codeInvalidMessage    = "invalid_message"
	codeInvalidTransition = "invalid_transition"
	codeForbidden         = "forbidden"
	codeNotFound          = "not_found"
	codeAgentMismatch     = "agent_mismatch"
	codeNotInTransit      = "not_in_transit"
	codeSimulationRunning = "simulation_running"
	codeStoreUnavailable  = "store_unavailable"
	codeInternal          = "internal"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, ports.ErrAuthentication):
		return codeUnauthenticated
	case errors.Is(err, order.ErrInvalidTransition):
		return codeInvalidTransition
	case errors.Is(err, commands.ErrForbidden), errors.Is(err, relay.ErrSubscriptionForbidden):
		return codeForbidden
	case errors.Is(err, commands.ErrAgentMismatch):
		return codeAgentMismatch
	case errors.Is(err, commands.ErrOrderNotInTransit):
		return codeNotInTransit
	case errors.Is(err, jobs.ErrSimulationRunning):
		return codeSimulationRunning
	case errors.Is(err, errs.ErrObjectNotFound):
		return codeNotFound
	case errors.Is(err, ports.ErrStoreUnavailable):
		return codeStoreUnavailable
	case errors.Is(err, wire.ErrMalformed), errors.Is(err, wire.ErrUnknownType), errs.IsValidation(err):
		return codeInvalidMessage
	default:
		return codeInternal
	}
}
