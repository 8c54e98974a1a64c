// Package prompts stores the pipeline's prompt templates in Postgres so
// they can be tuned without a redeploy. The core only formats into the
// templates' substitution points, never hardcodes them.
package prompts

import (
	"context"
	"fmt"

	"github.com/mikeboe/shopping-agent/pkg/database"
	"github.com/mikeboe/shopping-agent/pkg/shopping"
)

// Known prompt types.
const (
	TypeQueryAnalysis = "query_analysis"
	TypeSynthesis     = "synthesis"
)

// Store reads and writes prompt templates.
type Store struct {
	DB *database.PostgresDB
}

func NewStore(db *database.PostgresDB) *Store {
	return &Store{DB: db}
}

// Seed inserts the built-in templates for any type not yet present.
// Existing rows are left untouched so operator edits survive restarts.
func (s *Store) Seed(ctx context.Context) error {
	defaults := map[string]string{
		TypeQueryAnalysis: shopping.DefaultAnalysisPrompt,
		TypeSynthesis:     shopping.DefaultSynthesisPrompt,
	}

	for promptType, template := range defaults {
		_, err := s.DB.Pool.Exec(ctx, `
			INSERT INTO prompt_templates (prompt_type, template)
			VALUES ($1, $2)
			ON CONFLICT (prompt_type) DO NOTHING
		`, promptType, template)
		if err != nil {
			return fmt.Errorf("failed to seed prompt %s: %w", promptType, err)
		}
	}
	return nil
}

// Get returns the stored template for the given type.
func (s *Store) Get(ctx context.Context, promptType string) (string, error) {
	var template string
	err := s.DB.Pool.QueryRow(ctx,
		"SELECT template FROM prompt_templates WHERE prompt_type = $1",
		promptType).Scan(&template)
	if err != nil {
		return "", fmt.Errorf("failed to get prompt %s: %w", promptType, err)
	}
	return template, nil
}

// Set stores a template for the given type, inserting or replacing.
func (s *Store) Set(ctx context.Context, promptType, template string) error {
	_, err := s.DB.Pool.Exec(ctx, `
		INSERT INTO prompt_templates (prompt_type, template, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (prompt_type) DO UPDATE SET template = $2, updated_at = NOW()
	`, promptType, template)
	if err != nil {
		return fmt.Errorf("failed to set prompt %s: %w", promptType, err)
	}
	return nil
}
