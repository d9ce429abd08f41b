// Package agentzero is the entry point for building agents. It resolves a
// completion backend from a model identifier and wires configuration,
// logging and limits into an agent.Agent.
//
// Most applications interact with this package by:
//  1. Calling NewAgent with a name and model identifier, or NewAgentFromConfig
//     with a config.Config loaded from YAML
//  2. Replacing the agent context with SetContext
//  3. Sending messages with ProcessMessage
//
// Backends are picked from the provider name or, when empty, from the model
// identifier: "claude*" goes to Anthropic, "gpt*" and the "o1"/"o3"/"o4"
// families go to OpenAI and everything else is served by the offline echo
// backend. API keys are read by the SDKs from OPENAI_API_KEY and
// ANTHROPIC_API_KEY.
package agentzero

import (
	"fmt"
	"strings"

	"github.com/Jon-Arve-Ovesen/agent-zero/agent"
	"github.com/Jon-Arve-Ovesen/agent-zero/config"
	"github.com/Jon-Arve-Ovesen/agent-zero/core"
	"github.com/Jon-Arve-Ovesen/agent-zero/logging"
	"github.com/Jon-Arve-Ovesen/agent-zero/model"
	"github.com/Jon-Arve-Ovesen/agent-zero/model/anthropic"
	"github.com/Jon-Arve-Ovesen/agent-zero/model/openai"
	"golang.org/x/time/rate"
)

// Version of the module.
const Version = "0.9.6"

// Provider names accepted by ResolveModel.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderEcho      = "echo"
)

// InferProvider picks a provider for modelID.
func InferProvider(modelID string) string {
	id := strings.ToLower(strings.TrimSpace(modelID))
	switch {
	case strings.HasPrefix(id, "claude"):
		return ProviderAnthropic
	case strings.HasPrefix(id, "gpt"),
		strings.HasPrefix(id, "o1"),
		strings.HasPrefix(id, "o3"),
		strings.HasPrefix(id, "o4"):
		return ProviderOpenAI
	default:
		return ProviderEcho
	}
}

// ResolveModel returns the completion backend for provider and modelID. An
// empty provider is inferred from modelID.
func ResolveModel(provider, modelID string) (model.Model, error) {
	if provider == "" {
		provider = InferProvider(modelID)
	}
	switch provider {
	case ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) { o.Model = modelID }), nil
	case ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) { o.Model = modelID }), nil
	case ProviderEcho:
		return model.NewEchoModel(modelID), nil
	default:
		return nil, core.NewError("resolve_model", core.ErrInvalidArgument, fmt.Errorf("unknown provider %q", provider))
	}
}

// NewAgent creates an agent whose backend is inferred from modelID.
func NewAgent(name, modelID string, optFns ...func(o *agent.Options)) (*agent.Agent, error) {
	llm, err := ResolveModel("", modelID)
	if err != nil {
		return nil, err
	}
	return agent.New(name, modelID, llm, optFns...)
}

// NewAgentFromConfig validates cfg and creates the agent it describes.
// optFns run after the configuration has been applied.
func NewAgentFromConfig(cfg *config.Config, optFns ...func(o *agent.Options)) (*agent.Agent, error) {
	if cfg == nil {
		return nil, core.NewError("new_agent", core.ErrInvalidArgument, fmt.Errorf("config is nil"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	llm, err := ResolveModel(cfg.Provider, cfg.Model)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(cfg.LoggerConfig())
	fromConfig := func(o *agent.Options) {
		if cfg.Instruction != "" {
			o.Instruction = cfg.Instruction
		}
		o.Logger = logger
		o.Timeout = cfg.Timeout
		o.MaxModelCalls = cfg.MaxModelCalls
		if cfg.RateLimitRPM > 0 {
			o.RateLimit = rate.Limit(cfg.RateLimitRPM / 60)
		}
		o.Retry = agent.RetryOptions{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			MaxDelay:   cfg.Retry.MaxDelay,
		}
		o.InitialContext = cfg.Context
	}

	return agent.New(cfg.Name, cfg.Model, llm, append([]func(o *agent.Options){fromConfig}, optFns...)...)
}
