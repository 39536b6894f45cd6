package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type fakeEmbedder struct {
	calls int
	vec   []float32
	err   error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	_ = ctx
	_ = text
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

type fakeSearcher struct {
	ready    int64
	countErr error

	matches   []string
	searchErr error

	gotLimit     int
	gotThreshold float64
	gotEmbedding []float32
}

func (s *fakeSearcher) CountReady(ctx context.Context, tenantID string) (int64, error) {
	_ = ctx
	_ = tenantID
	return s.ready, s.countErr
}

func (s *fakeSearcher) Search(ctx context.Context, tenantID string, embedding []float32, limit int, threshold float64) ([]string, error) {
	_ = ctx
	_ = tenantID
	s.gotEmbedding = embedding
	s.gotLimit = limit
	s.gotThreshold = threshold
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.matches, nil
}

func TestContext_EmptyKnowledgeBaseSkipsEmbedding(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{0.1}}
	r := NewRetriever(&fakeSearcher{ready: 0}, emb, zerolog.Nop())

	if got := r.Context(context.Background(), "t1", "billing policy"); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
	if emb.calls != 0 {
		t.Fatalf("embedder must not be called for an empty knowledge base, got %d calls", emb.calls)
	}
}

func TestContext_FailuresYieldEmptyString(t *testing.T) {
	cases := []struct {
		name     string
		searcher *fakeSearcher
		embedder *fakeEmbedder
	}{
		{
			name:     "count error",
			searcher: &fakeSearcher{countErr: errors.New("db down")},
			embedder: &fakeEmbedder{vec: []float32{0.1}},
		},
		{
			name:     "embed error",
			searcher: &fakeSearcher{ready: 3},
			embedder: &fakeEmbedder{err: errors.New("gateway down")},
		},
		{
			name:     "search error",
			searcher: &fakeSearcher{ready: 3, searchErr: errors.New("bad vector")},
			embedder: &fakeEmbedder{vec: []float32{0.1}},
		},
		{
			name:     "no matches",
			searcher: &fakeSearcher{ready: 3},
			embedder: &fakeEmbedder{vec: []float32{0.1}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRetriever(tc.searcher, tc.embedder, zerolog.Nop())
			if got := r.Context(context.Background(), "t1", "q"); got != "" {
				t.Fatalf("expected empty context, got %q", got)
			}
		})
	}
}

func TestContext_FormatsMatches(t *testing.T) {
	searcher := &fakeSearcher{
		ready:   10,
		matches: []string{"refunds take 5 days", "support hours are 9-17"},
	}
	emb := &fakeEmbedder{vec: []float32{0.1, 0.2}}
	r := NewRetriever(searcher, emb, zerolog.Nop())

	got := r.Context(context.Background(), "t1", "when do refunds arrive")
	if got == "" {
		t.Fatal("expected non-empty context")
	}
	if !strings.Contains(got, "refunds take 5 days") || !strings.Contains(got, "support hours are 9-17") {
		t.Fatalf("matches missing from context: %q", got)
	}
	if !strings.Contains(got, "Do not mention the knowledge base") {
		t.Fatalf("missing confidentiality instruction: %q", got)
	}

	if searcher.gotLimit != 5 {
		t.Fatalf("expected top-5 search, got limit %d", searcher.gotLimit)
	}
	if searcher.gotThreshold != 0.7 {
		t.Fatalf("expected similarity threshold 0.7, got %v", searcher.gotThreshold)
	}
	if len(searcher.gotEmbedding) != 2 {
		t.Fatalf("query embedding not forwarded: %v", searcher.gotEmbedding)
	}
}

func TestFormatContext_FencesEachMatch(t *testing.T) {
	got := FormatContext([]string{"a", "b", "c"})
	if n := strings.Count(got, "---"); n != 4 {
		t.Fatalf("expected 4 fence markers, got %d in %q", n, got)
	}
	if !strings.HasPrefix(got, "Relevant information from the company knowledge base:") {
		t.Fatalf("unexpected prefix: %q", got)
	}
}
