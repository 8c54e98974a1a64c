package shopping

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mikeboe/shopping-agent/pkg/clients"
	"github.com/mikeboe/shopping-agent/pkg/config"
)

// Processing status labels, updated before each stage runs.
const (
	StatusAnalyzing    = "analyzing query"
	StatusRouting      = "selecting search strategy"
	StatusSearching    = "gathering product information"
	StatusSynthesizing = "writing recommendation"
	StatusDone         = "done"
)

// Engine ties analyzer, router, strategy and synthesizer together for
// one request at a time. Every stage degrades instead of aborting, so a
// run always reaches synthesis and always produces some answer.
type Engine struct {
	Analyzer      *Analyzer
	Strategist    *Strategist
	Synthesizer   *Synthesizer
	Tracker       *Tracker
	Logger        *slog.Logger
	OnStateUpdate func(state PipelineState)
}

// NewEngine wires an engine from configuration: the Gemini client for
// analysis, the langchaingo model for synthesis, and the two provider
// gateways via the given constructors.
func NewEngine(cfg *config.Config, search SearchGateway, scrape ScrapeGateway, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	genaiClient, err := clients.Genai(context.Background(), cfg.GoogleApiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to init analysis client: %w", err)
	}

	llm, err := clients.GoogleAi(clients.ModelType(cfg.FastModel))
	if err != nil {
		return nil, fmt.Errorf("failed to init synthesis model: %w", err)
	}

	tracker := NewTracker(logger)
	return &Engine{
		Analyzer:    NewAnalyzer(&GenaiGenerator{Client: genaiClient, Model: cfg.ReasoningModel}, logger),
		Strategist:  NewStrategist(search, scrape, cfg.Strategies, tracker, logger),
		Synthesizer: NewSynthesizer(llm, logger),
		Tracker:     tracker,
		Logger:      logger,
	}, nil
}

// Run executes the full pipeline for one user query and returns the
// final state. It never returns an error: failures surface through
// error_info and, at worst, the apology sentinel as the answer.
func (e *Engine) Run(ctx context.Context, userQuery string) *PipelineState {
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	state := NewPipelineState(userQuery)
	e.Logger.Info("Starting recommendation pipeline", "query", userQuery)

	e.setStatus(state, StatusAnalyzing)
	analysis, err := e.Analyzer.Analyze(ctx, userQuery)
	if err != nil {
		state.ErrorInfo = err.Error()
	}
	state.Analysis = analysis
	state.SearchKeywords = analysis.SearchKeywords
	state.TargetCategories = analysis.TargetCategories

	e.setStatus(state, StatusRouting)
	state.RoutingDecision = NormalizeRouting(analysis.RoutingDecision)
	decision := Route(state)
	e.Logger.Info("Strategy selected", "routing", decision)

	e.setStatus(state, fmt.Sprintf("%s (%s)", StatusSearching, decision))
	e.Strategist.Execute(ctx, state)

	e.setStatus(state, StatusSynthesizing)
	e.Synthesizer.Synthesize(ctx, state)

	e.Tracker.Sweep()

	e.setStatus(state, StatusDone)
	e.Logger.Info("Pipeline complete",
		"routing", state.RoutingDecision,
		"results", len(state.SearchResults),
		"products", len(state.ProductData),
		"degraded", state.ErrorInfo != "")
	return state
}

func (e *Engine) setStatus(state *PipelineState, status string) {
	state.ProcessingStatus = status
	if e.OnStateUpdate != nil {
		e.OnStateUpdate(*state)
	}
}
