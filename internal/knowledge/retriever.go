// Package knowledge assembles retrieval-augmented context for chat requests
// from the tenant knowledge base.
package knowledge

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	matchCount    = 5
	minSimilarity = 0.7
)

// Embedder turns a free-text query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs the tenant-scoped nearest-neighbor query.
type Searcher interface {
	Search(ctx context.Context, tenantID string, embedding []float32, limit int, threshold float64) ([]string, error)
	CountReady(ctx context.Context, tenantID string) (int64, error)
}

// Store is the pgvector-backed Searcher.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CountReady(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Chunk{}).
		Where("tenant_id = ? AND status = ?", tenantID, StatusReady).
		Count(&n).Error
	return n, err
}

// Search orders by cosine distance and keeps matches at or above the
// similarity threshold.
func (s *Store) Search(ctx context.Context, tenantID string, embedding []float32, limit int, threshold float64) ([]string, error) {
	vec := pgvector.NewVector(embedding)
	var contents []string
	err := s.db.WithContext(ctx).Model(&Chunk{}).
		Select("content").
		Where("tenant_id = ? AND status = ?", tenantID, StatusReady).
		Where("1 - (embedding <=> ?) >= ?", vec, threshold).
		Order(gorm.Expr("embedding <=> ?", vec)).
		Limit(limit).
		Pluck("content", &contents).Error
	if err != nil {
		return nil, err
	}
	return contents, nil
}

// Retriever converts a user query into a context block for the system prompt.
// Retrieval is strictly additive: every failure path yields an empty string,
// never an error.
type Retriever struct {
	searcher Searcher
	embedder Embedder
	log      zerolog.Logger
}

func NewRetriever(searcher Searcher, embedder Embedder, log zerolog.Logger) *Retriever {
	return &Retriever{searcher: searcher, embedder: embedder, log: log}
}

func (r *Retriever) Context(ctx context.Context, tenantID, query string) string {
	n, err := r.searcher.CountReady(ctx, tenantID)
	if err != nil {
		r.log.Debug().Err(err).Str("tenant_id", tenantID).Msg("knowledge count failed")
		return ""
	}
	if n == 0 {
		// no knowledge base, skip the embedding call entirely
		return ""
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Debug().Err(err).Str("tenant_id", tenantID).Msg("query embedding failed")
		return ""
	}

	matches, err := r.searcher.Search(ctx, tenantID, embedding, matchCount, minSimilarity)
	if err != nil {
		r.log.Debug().Err(err).Str("tenant_id", tenantID).Msg("similarity search failed")
		return ""
	}
	if len(matches) == 0 {
		return ""
	}

	return FormatContext(matches)
}

// FormatContext fences the matches and instructs the model to use them without
// revealing their existence to the end user.
func FormatContext(matches []string) string {
	var b strings.Builder
	b.WriteString("Relevant information from the company knowledge base:\n\n---\n")
	b.WriteString(strings.Join(matches, "\n---\n"))
	b.WriteString("\n---\n\nUse this context to inform your answer when relevant. Do not mention the knowledge base or this context to the user.")
	return b.String()
}
