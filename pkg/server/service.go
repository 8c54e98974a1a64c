package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mikeboe/shopping-agent/pkg/config"
	"github.com/mikeboe/shopping-agent/pkg/database"
	"github.com/mikeboe/shopping-agent/pkg/knowledge"
	"github.com/mikeboe/shopping-agent/pkg/prompts"
	"github.com/mikeboe/shopping-agent/pkg/shopping"
)

// EngineFactory builds a fresh pipeline engine for one job, so each run
// gets its own tracker and its logs routed to that job's row.
type EngineFactory func(logger *slog.Logger) (*shopping.Engine, error)

type Service struct {
	DB        *database.PostgresDB
	Cfg       *config.Config
	NewEngine EngineFactory
	Prompts   *prompts.Store
	Knowledge *knowledge.Store
}

func NewService(db *database.PostgresDB, cfg *config.Config, factory EngineFactory, promptStore *prompts.Store, knowledgeStore *knowledge.Store) *Service {
	return &Service{
		DB:        db,
		Cfg:       cfg,
		NewEngine: factory,
		Prompts:   promptStore,
		Knowledge: knowledgeStore,
	}
}

type Job struct {
	ID        uuid.UUID       `json:"id"`
	Query     string          `json:"query"`
	Status    string          `json:"status"`
	Routing   *string         `json:"routing,omitempty"`
	Answer    *string         `json:"answer,omitempty"`
	ErrorInfo *string         `json:"error_info,omitempty"`
	State     json.RawMessage `json:"state,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CreateJobRequest struct {
	Query string `json:"query" binding:"required"`
}

func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	jobID := uuid.New()
	query := `
		INSERT INTO recommendation_jobs (id, query, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, query, status, created_at, updated_at
	`

	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, jobID, req.Query).Scan(
		&job.ID, &job.Query, &job.Status, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	// Start background worker
	go s.runWorker(job.ID, req.Query)

	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, query, status, routing, answer, error_info, state, created_at, updated_at
		FROM recommendation_jobs
		WHERE id = $1
	`
	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Query, &job.Status, &job.Routing, &job.Answer, &job.ErrorInfo, &job.State, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, query, status, routing, answer, error_info, created_at, updated_at
		FROM recommendation_jobs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.Query, &job.Status, &job.Routing, &job.Answer, &job.ErrorInfo, &job.CreatedAt, &job.UpdatedAt); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM recommendation_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

type ToolEvent struct {
	ID        int             `json:"id"`
	EventType string          `json:"event_type"`
	CallID    string          `json:"call_id"`
	ToolName  string          `json:"tool_name"`
	GroupID   *string         `json:"group_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func (s *Service) GetJobEvents(ctx context.Context, jobID uuid.UUID) ([]ToolEvent, error) {
	query := `
		SELECT id, event_type, call_id, tool_name, group_id, timestamp, payload
		FROM tool_events
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []ToolEvent
	for rows.Next() {
		var e ToolEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.CallID, &e.ToolName, &e.GroupID, &e.Timestamp, &e.Payload); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func (s *Service) runWorker(jobID uuid.UUID, userQuery string) {
	ctx := context.Background()

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE recommendation_jobs SET status = 'running', updated_at = NOW() WHERE id = $1", jobID)

	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))

	engine, err := s.NewEngine(dbLogger)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Failed to init engine: %v", err))
		return
	}

	s.loadPrompts(ctx, engine, dbLogger)

	// Hook for state persistence
	engine.OnStateUpdate = func(state shopping.PipelineState) {
		stateJSON, err := json.Marshal(state)
		if err != nil {
			dbLogger.Error("Failed to marshal state", "error", err)
			return
		}

		_, err = s.DB.Pool.Exec(context.Background(),
			"UPDATE recommendation_jobs SET state = $2, updated_at = NOW() WHERE id = $1",
			jobID, stateJSON)
		if err != nil {
			dbLogger.Error("Failed to save state to DB", "error", err)
		}
	}

	state := engine.Run(ctx, userQuery)

	s.persistEvents(ctx, jobID, engine.Tracker.Events(), dbLogger)
	s.indexScrapedPages(ctx, state, dbLogger)

	stateJSON, _ := json.Marshal(state)
	_, err = s.DB.Pool.Exec(ctx, `
		UPDATE recommendation_jobs
		SET status = 'completed', routing = $2, answer = $3, error_info = NULLIF($4, ''), state = $5, updated_at = NOW()
		WHERE id = $1
	`, jobID, string(state.RoutingDecision), state.FinalAnswer, state.ErrorInfo, stateJSON)
	if err != nil {
		dbLogger.Error("Failed to save final answer to DB", "error", err)
	}
}

// loadPrompts swaps in operator-edited templates when the store has
// them; the built-in defaults stay otherwise.
func (s *Service) loadPrompts(ctx context.Context, engine *shopping.Engine, logger *slog.Logger) {
	if s.Prompts == nil {
		return
	}
	if tmpl, err := s.Prompts.Get(ctx, prompts.TypeQueryAnalysis); err == nil && tmpl != "" {
		engine.Analyzer.PromptTemplate = tmpl
	} else if err != nil {
		logger.Warn("Using built-in analysis prompt", "error", err)
	}
	if tmpl, err := s.Prompts.Get(ctx, prompts.TypeSynthesis); err == nil && tmpl != "" {
		engine.Synthesizer.PromptTemplate = tmpl
	} else if err != nil {
		logger.Warn("Using built-in synthesis prompt", "error", err)
	}
}

func (s *Service) persistEvents(ctx context.Context, jobID uuid.UUID, events []shopping.Event, logger *slog.Logger) {
	for _, ev := range events {
		payloadJSON, err := json.Marshal(ev.Payload)
		if err != nil {
			payloadJSON = []byte("null")
		}
		var groupID *string
		if ev.GroupID != "" {
			groupID = &ev.GroupID
		}
		_, err = s.DB.Pool.Exec(ctx, `
			INSERT INTO tool_events (job_id, event_type, call_id, tool_name, group_id, timestamp, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, jobID, ev.Type, ev.CallID, ev.ToolName, groupID, ev.Timestamp, payloadJSON)
		if err != nil {
			logger.Error("Failed to persist tool event", "call_id", ev.CallID, "error", err)
		}
	}
}

// indexScrapedPages feeds successfully scraped pages into the knowledge
// store so the chat agent can answer follow-ups about them.
func (s *Service) indexScrapedPages(ctx context.Context, state *shopping.PipelineState, logger *slog.Logger) {
	if s.Knowledge == nil {
		return
	}
	for url, page := range state.ScrapedContent {
		if page.Error {
			continue
		}
		if err := s.Knowledge.IndexPage(ctx, url, page.Title, page.Content); err != nil {
			logger.Error("Failed to index scraped page", "url", url, "error", err)
		}
	}
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, reason string) {
	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))
	dbLogger.Error(reason)

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE recommendation_jobs SET status = 'failed', error_info = $2, updated_at = NOW() WHERE id = $1", jobID, reason)
}
