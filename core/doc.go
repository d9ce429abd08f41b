// Package core provides the foundational domain types shared by the agent
// runtime and the completion backends:
//
//   - Value / ContextData, the tagged-union key/value bag attached to an agent
//   - Error and the kind sentinels (ErrInvalidArgument, ErrBackendUnavailable, ...)
//   - State, the agent lifecycle
//   - Content / Part, the role-based message shape exchanged with models
//   - ModelLimiter, a lifetime budget on backend calls
//
// The package has no dependencies on concrete agents or providers.
package core
