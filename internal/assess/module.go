package assess

import (
	"context"
	"fmt"
	"time"

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
	ResolveKey(callerKey string) string
}

// ModuleConfig holds the assess module's tunables.
type ModuleConfig struct {
	MaxTokens int `mapstructure:"max_tokens"`

	// QuestionTimeout bounds generation so the UI falls back to the
	// curated bank quickly instead of riding out the gateway's full
	// retry budget.
	QuestionTimeout time.Duration `mapstructure:"question_timeout"`
}

// DefaultConfig returns the module defaults.
func DefaultConfig() ModuleConfig {
	return ModuleConfig{
		MaxTokens:       4096,
		QuestionTimeout: 10 * time.Second,
	}
}

// Module implements the assess plugin.
type Module struct {
	logger    *zap.Logger
	cfg       ModuleConfig
	completer Completer
	store     *AssessStore
}

// New creates the assess module around the shared completion gateway.
func New(completer Completer) *Module {
	return &Module{completer: completer}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "assess",
		Version:     "0.1.0",
		Description: "Skill assessments with AI generation and evaluation",
		Required:    false,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal assess config: %w", err)
		}
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(context.Background(), "assess", migrations()); err != nil {
			return fmt.Errorf("assess migrations: %w", err)
		}
		m.store = NewAssessStore(deps.Store.DB())
	}

	m.logger.Info("assess module initialized",
		zap.Duration("question_timeout", m.cfg.QuestionTimeout))
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop(_ context.Context) error { return nil }
