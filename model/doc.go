// Package model defines the provider‑agnostic completion capability used by
// agents, plus small offline implementations.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Carry the agent's context in every Request (see Request.SystemPrompt)
//   - Classify backend failures into unavailable vs fault (Classify)
//   - Facilitate lightweight substitution in tests (MockModel, EchoModel)
//
// Providers (model/openai, model/anthropic) implement the Model interface
// from this package so agents remain decoupled from vendor SDKs.
package model
