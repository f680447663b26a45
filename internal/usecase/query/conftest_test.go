package query

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/ragquery/internal/domain"
)

var errBoom = errors.New("boom")

// mockFetcher returns fixed documents or an error and records the session ids it saw.
type mockFetcher struct {
	docs  []domain.Document
	err   error
	mu    sync.Mutex
	calls []string
}

func (m *mockFetcher) FetchDocuments(_ context.Context, sessionID string) ([]domain.Document, error) {
	m.mu.Lock()
	m.calls = append(m.calls, sessionID)
	m.mu.Unlock()
	return m.docs, m.err
}

// mockEmbedder maps texts to vectors. Texts listed in fail return an error;
// unknown texts return a zero-length vector.
type mockEmbedder struct {
	vectors map[string][]float32
	fail    map[string]bool
	delay   time.Duration

	mu       sync.Mutex
	texts    []string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.EmbeddingResult{}, ctx.Err()
		}
	}
	if m.fail[text] {
		return domain.EmbeddingResult{}, errBoom
	}
	return domain.EmbeddingResult{Embedding: m.vectors[text], TotalTokens: 1}, nil
}

func (m *mockEmbedder) calledWith(text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.texts {
		if t == text {
			return true
		}
	}
	return false
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.texts)
}

// mockGenerator echoes the context line of the prompt, or fails.
type mockGenerator struct {
	err     error
	prompts []string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (domain.GenerationResult, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return domain.GenerationResult{}, m.err
	}
	lines := strings.SplitN(prompt, "\n", 3)
	return domain.GenerationResult{Text: "answer from " + lines[1]}, nil
}
