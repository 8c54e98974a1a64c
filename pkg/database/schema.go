package database

import (
	"context"
	"fmt"
)

func (db *PostgresDB) InitSchema(ctx context.Context) error {
	// 1. Recommendation Jobs Table
	jobsQuery := `
		CREATE TABLE IF NOT EXISTS recommendation_jobs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			query TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			routing TEXT,
			answer TEXT,
			state JSONB,
			error_info TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, jobsQuery); err != nil {
		return fmt.Errorf("failed to create recommendation_jobs table: %w", err)
	}

	// 2. Recommendation Logs Table
	logsQuery := `
		CREATE TABLE IF NOT EXISTS recommendation_logs (
			id SERIAL PRIMARY KEY,
			job_id UUID NOT NULL REFERENCES recommendation_jobs(id) ON DELETE CASCADE,
			timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata JSONB
		);
	`
	if _, err := db.Pool.Exec(ctx, logsQuery); err != nil {
		return fmt.Errorf("failed to create recommendation_logs table: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_recommendation_logs_job_id ON recommendation_logs(job_id)"); err != nil {
		return fmt.Errorf("failed to create index on recommendation_logs: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_recommendation_jobs_created_at ON recommendation_jobs(created_at DESC)"); err != nil {
		return fmt.Errorf("failed to create index on recommendation_jobs: %w", err)
	}

	// 3. Tool Events Table (tracker stream persistence)
	eventsQuery := `
		CREATE TABLE IF NOT EXISTS tool_events (
			id SERIAL PRIMARY KEY,
			job_id UUID NOT NULL REFERENCES recommendation_jobs(id) ON DELETE CASCADE,
			event_type TEXT NOT NULL,
			call_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			group_id TEXT,
			timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			payload JSONB
		);
	`
	if _, err := db.Pool.Exec(ctx, eventsQuery); err != nil {
		return fmt.Errorf("failed to create tool_events table: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_tool_events_job_id ON tool_events(job_id)"); err != nil {
		return fmt.Errorf("failed to create index on tool_events: %w", err)
	}

	// 4. Prompt Templates Table
	promptsQuery := `
		CREATE TABLE IF NOT EXISTS prompt_templates (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			prompt_type TEXT NOT NULL UNIQUE,
			template TEXT NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, promptsQuery); err != nil {
		return fmt.Errorf("failed to create prompt_templates table: %w", err)
	}

	// 5. Conversations Table
	convQuery := `
		CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title TEXT NOT NULL DEFAULT 'New Conversation',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, convQuery); err != nil {
		return fmt.Errorf("failed to create conversations table: %w", err)
	}

	// 6. Messages Table
	msgQuery := `
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, msgQuery); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id)"); err != nil {
		return fmt.Errorf("failed to create index on messages: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC)"); err != nil {
		return fmt.Errorf("failed to create index on conversations: %w", err)
	}

	return nil
}
