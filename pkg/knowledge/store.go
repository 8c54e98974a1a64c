// Package knowledge indexes successfully scraped product pages into a
// pgvector collection so the chat agent can answer follow-up questions
// about pages the pipeline already fetched.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/tmc/langchaingo/textsplitter"
)

// PageChunk is one embedded slice of a scraped product page.
type PageChunk struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// Match is a retrieved chunk with its similarity score.
type Match struct {
	Chunk PageChunk
	Score float64
}

// Embedder is the embedding capability the store depends on.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Store persists and retrieves embedded page chunks.
type Store struct {
	pool         *pgxpool.Pool
	embedder     Embedder
	tableName    string
	chunkSize    int
	chunkOverlap int
}

// Table names go into SQL directly, so restrict them to identifiers
// Postgres accepts without quoting.
var tableNamePattern = regexp.MustCompile(`^[a-z_][a-zA-Z0-9_]{0,62}$`)

func NewStore(pool *pgxpool.Pool, embedder Embedder, tableName string, chunkSize, chunkOverlap int) (*Store, error) {
	if !tableNamePattern.MatchString(tableName) {
		return nil, fmt.Errorf("invalid table name %q: must contain only alphanumeric characters and underscores, start with a letter or underscore, and be 1-63 characters long", tableName)
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Store{
		pool:         pool,
		embedder:     embedder,
		tableName:    tableName,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// IndexPage chunks a scraped page, embeds the chunks and stores them
// tagged with the source URL and title.
func (s *Store) IndexPage(ctx context.Context, url, title, content string) error {
	if content == "" {
		return nil
	}

	ts := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.chunkSize),
		textsplitter.WithChunkOverlap(s.chunkOverlap),
	)
	chunks, err := ts.SplitText(content)
	if err != nil {
		return fmt.Errorf("failed to split page content: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := s.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to embed page chunks: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (content, metadata, embedding)
		VALUES ($1, $2, $3)
	`, pgx.Identifier{s.tableName}.Sanitize())

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		metadataJSON, err := json.Marshal(map[string]any{
			"source": url,
			"title":  title,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}
		batch.Queue(query, chunk, metadataJSON, pgvector.NewVector(vectors[i]))
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range chunks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}
	return nil
}

// FindSimilar embeds the query and returns the topK most similar chunks,
// optionally filtered to one source URL.
func (s *Store) FindSimilar(ctx context.Context, queryText string, topK int, sourceFilter string) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	queryVector, err := s.embedder.EmbedText(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	embedding := pgvector.NewVector(queryVector)

	var query string
	var args []any
	if sourceFilter != "" {
		query = fmt.Sprintf(`
			SELECT id, content, metadata, 1 - (embedding <=> $1) as similarity
			FROM %s
			WHERE metadata->>'source' = $2
			ORDER BY embedding <=> $1
			LIMIT $3
		`, pgx.Identifier{s.tableName}.Sanitize())
		args = []any{embedding, sourceFilter, topK}
	} else {
		query = fmt.Sprintf(`
			SELECT id, content, metadata, 1 - (embedding <=> $1) as similarity
			FROM %s
			ORDER BY embedding <=> $1
			LIMIT $2
		`, pgx.Identifier{s.tableName}.Sanitize())
		args = []any{embedding, topK}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var chunk PageChunk
		var metadataJSON []byte
		var similarity float64

		if err := rows.Scan(&chunk.ID, &chunk.Content, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		matches = append(matches, Match{Chunk: chunk, Score: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return matches, nil
}
