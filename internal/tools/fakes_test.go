package tools

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/llm"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (e *recordingEmitter) Emit(_ context.Context, ev domain.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, ev)
	return nil
}

func (e *recordingEmitter) stages() []domain.ArtifactStage {
	var out []domain.ArtifactStage
	for _, ev := range e.events {
		if a, ok := ev.(domain.DataArtifactEvent); ok {
			out = append(out, a.Stage)
		}
	}
	return out
}

type sliceStream struct {
	chunks []llm.Chunk
	i      int
}

func (s *sliceStream) Recv() (llm.Chunk, error) {
	if s.i >= len(s.chunks) {
		return llm.Chunk{}, io.EOF
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

func (s *sliceStream) Close() error { return nil }

type scriptedGateway struct {
	texts     []string
	generated string
	requests  []llm.Request
}

func (g *scriptedGateway) Stream(_ context.Context, req llm.Request) (llm.Stream, error) {
	g.requests = append(g.requests, req)
	var chunks []llm.Chunk
	for _, t := range g.texts {
		chunks = append(chunks, llm.Chunk{Text: t})
	}
	chunks = append(chunks, llm.Chunk{FinishReason: domain.FinishStop})
	return &sliceStream{chunks: chunks}, nil
}

func (g *scriptedGateway) Generate(_ context.Context, req llm.Request) (string, error) {
	g.requests = append(g.requests, req)
	return g.generated, nil
}

type memoryDocuments struct {
	versions    map[uuid.UUID][]domain.Document
	suggestions []domain.Suggestion
}

func newMemoryDocuments() *memoryDocuments {
	return &memoryDocuments{versions: map[uuid.UUID][]domain.Document{}}
}

func (m *memoryDocuments) SaveDocument(_ context.Context, doc domain.Document) error {
	m.versions[doc.ID] = append(m.versions[doc.ID], doc)
	return nil
}

func (m *memoryDocuments) GetDocumentByID(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	v := m.versions[id]
	if len(v) == 0 {
		return nil, domain.ErrDocumentNotFound
	}
	doc := v[len(v)-1]
	return &doc, nil
}

func (m *memoryDocuments) SaveSuggestions(_ context.Context, s []domain.Suggestion) error {
	m.suggestions = append(m.suggestions, s...)
	return nil
}
