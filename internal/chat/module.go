package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kaliguru/kaliguru/internal/gateway"
	"github.com/kaliguru/kaliguru/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// Completer is the slice of the gateway orchestrator this module uses.
type Completer interface {
	Orchestrate(ctx context.Context, req gateway.CallRequest, apiKey string) gateway.CallResult
	OrchestrateStream(ctx context.Context, req gateway.CallRequest, apiKey string) (<-chan gateway.StreamChunk, gateway.CallResult)
	ResolveKey(callerKey string) string
}

const defaultSystemPrompt = `You are "KaliGuru Mentor", an experienced cybersecurity professional providing structured career and study guidance.

RESPONSE STYLE:
1. Brief acknowledgment (1 sentence)
2. Main content with headers and bullets
3. Actionable takeaway

ALLOWED TOPICS: career paths, certifications, study strategies, motivation, lab building, interview prep, platform recommendations, tool learning priorities.

BOUNDARIES: no exploit code or commands, no vulnerability details, no illegal activity discussion. If asked for restricted content, redirect to legal practice platforms like TryHackMe or HackTheBox.

Keep responses 150-300 words, structured and scannable.`

// ModuleConfig holds the chat module's tunables.
type ModuleConfig struct {
	SystemPrompt string `mapstructure:"system_prompt"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	HistoryLimit int    `mapstructure:"history_limit"` // entries returned by the history endpoint
}

// DefaultConfig returns the module defaults.
func DefaultConfig() ModuleConfig {
	return ModuleConfig{
		SystemPrompt: defaultSystemPrompt,
		MaxTokens:    1024,
		HistoryLimit: 100,
	}
}

// Module implements the chat plugin.
type Module struct {
	logger    *zap.Logger
	cfg       ModuleConfig
	completer Completer
	store     *ChatStore
}

// New creates the chat module around the shared completion gateway.
func New(completer Completer) *Module {
	return &Module{completer: completer}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "chat",
		Version:     "0.1.0",
		Description: "Mentor chat with streamed replies and transcript history",
		Required:    false,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal chat config: %w", err)
		}
	}
	if m.cfg.SystemPrompt == "" {
		m.cfg.SystemPrompt = defaultSystemPrompt
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(context.Background(), "chat", migrations()); err != nil {
			return fmt.Errorf("chat migrations: %w", err)
		}
		m.store = NewChatStore(deps.Store.DB())
	}

	m.logger.Info("chat module initialized", zap.Int("history_limit", m.cfg.HistoryLimit))
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop(_ context.Context) error { return nil }
