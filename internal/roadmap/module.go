// Package roadmap generates personalized study roadmaps through the
// completion gateway, repairs the model's JSON output against the
// reference corpus, and persists plans for signed-in users.
package roadmap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kaliguru/kaliguru/internal/corpus"
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

// ModuleConfig holds the roadmap module's tunables.
type ModuleConfig struct {
	Attempts  int           `mapstructure:"attempts"`   // generation attempts before giving up
	MinLength int           `mapstructure:"min_length"` // shorter output is retried as incomplete
	RetryWait time.Duration `mapstructure:"retry_wait"` // base wait between attempts, scaled by attempt number
	MaxTokens int           `mapstructure:"max_tokens"`
}

// DefaultConfig returns the module defaults.
func DefaultConfig() ModuleConfig {
	return ModuleConfig{
		Attempts:  2,
		MinLength: 200,
		RetryWait: time.Second,
		MaxTokens: 4096,
	}
}

// Module implements the roadmap plugin.
type Module struct {
	logger    *zap.Logger
	cfg       ModuleConfig
	completer Completer
	corpus    *corpus.Corpus
	store     *RoadmapStore
	sleep     func(ctx context.Context, d time.Duration) error
}

// New creates the roadmap module. The completer and corpus are shared
// process-wide services built by the composition root.
func New(completer Completer, c *corpus.Corpus) *Module {
	return &Module{
		completer: completer,
		corpus:    c,
		sleep:     sleepCtx,
	}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "roadmap",
		Version:     "0.1.0",
		Description: "AI study roadmap generation with link repair",
		Required:    false,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal roadmap config: %w", err)
		}
	}
	if m.cfg.Attempts < 1 {
		m.cfg.Attempts = 1
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(context.Background(), "roadmap", migrations()); err != nil {
			return fmt.Errorf("roadmap migrations: %w", err)
		}
		m.store = NewRoadmapStore(deps.Store.DB())
	}

	m.logger.Info("roadmap module initialized",
		zap.Int("attempts", m.cfg.Attempts),
		zap.Int("min_length", m.cfg.MinLength),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop(_ context.Context) error { return nil }

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
