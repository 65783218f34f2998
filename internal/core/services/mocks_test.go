package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/bpa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

var errBoom = errors.New("boom")

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	embedding []float32
	embedErr  error

	// failOn fails any text containing this substring.
	failOn string

	calls atomic.Int32
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return nil, errBoom
	}
	if m.embedding != nil {
		return m.embedding, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		result[i] = vec
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return 3
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return m.embedErr
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockLLMService implements driven.LLMService for testing.
// respond, when set, computes the reply from the prompt.
type mockLLMService struct {
	mu       sync.Mutex
	response string
	err      error
	respond  func(prompt string) (string, error)
	prompts  []string
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.respond != nil {
		return m.respond(prompt)
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return m.err
}

func (m *mockLLMService) Close() error {
	return nil
}

func (m *mockLLMService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockLLMService) promptsContaining(s string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, p := range m.prompts {
		if strings.Contains(p, s) {
			out = append(out, p)
		}
	}
	return out
}

// mockVectorIndex implements driven.VectorIndex for testing.
// Query applies the filter unless ignoreFilter is set.
type mockVectorIndex struct {
	mu           sync.Mutex
	fragments    []domain.Fragment
	ignoreFilter bool
	upsertErr    error
	queryErr     error
	deleteErr    error

	upsertCalls int
	upserted    map[string][]domain.Chunk
	deleted     []string
	lastFilter  driven.QueryFilter
	lastTopK    int
}

func (m *mockVectorIndex) Upsert(_ context.Context, namespace string, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if m.upserted == nil {
		m.upserted = make(map[string][]domain.Chunk)
	}
	m.upserted[namespace] = append(m.upserted[namespace], chunks...)
	return nil
}

func (m *mockVectorIndex) Query(
	_ context.Context, _ string, _ []float32, topK int, filter driven.QueryFilter,
) ([]domain.Fragment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	m.lastTopK = topK
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []domain.Fragment
	for _, f := range m.fragments {
		if !m.ignoreFilter && !filter.Allows(f.Metadata) {
			continue
		}
		out = append(out, f)
		if len(out) == topK && !m.ignoreFilter {
			break
		}
	}
	return out, nil
}

func (m *mockVectorIndex) Delete(_ context.Context, _ string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, ids...)
	return m.deleteErr
}

func (m *mockVectorIndex) Ping(_ context.Context) error {
	return m.queryErr
}

func (m *mockVectorIndex) Close() error {
	return nil
}

// mockTokenCounter counts whitespace-separated words.
type mockTokenCounter struct{}

func (mockTokenCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// failingDocStore wraps the memory store and fails record creation.
type failingDocStore struct {
	*memory.DocumentStore
	err error
}

func (f *failingDocStore) CreateDocument(ctx context.Context, doc *domain.DocumentRecord) error {
	if f.err != nil {
		return f.err
	}
	return f.DocumentStore.CreateDocument(ctx, doc)
}

// flakyConversationStore wraps the memory store and fails selected appends.
type flakyConversationStore struct {
	*memory.ConversationStore

	// failAppendSender fails appends of messages from this sender.
	failAppendSender domain.Sender
	findErr          error
	deleted          []string
}

func (f *flakyConversationStore) FindConversation(
	ctx context.Context, id string, owner domain.Owner,
) (*domain.Conversation, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.ConversationStore.FindConversation(ctx, id, owner)
}

func (f *flakyConversationStore) AppendMessage(
	ctx context.Context, id string, owner domain.Owner, msg domain.Message,
) error {
	if f.failAppendSender != "" && msg.Sender == f.failAppendSender {
		return errBoom
	}
	return f.ConversationStore.AppendMessage(ctx, id, owner, msg)
}

func (f *flakyConversationStore) DeleteConversation(ctx context.Context, id string, owner domain.Owner) error {
	f.deleted = append(f.deleted, id)
	return f.ConversationStore.DeleteConversation(ctx, id, owner)
}

// fixedClock returns increasing timestamps one second apart.
func fixedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// sequentialIDs returns prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	var n atomic.Int32
	return func() string {
		return prefix + "-" + strconv.Itoa(int(n.Add(1)))
	}
}

// fragment builds a fragment with the given role and text.
func fragment(id string, role domain.AccessRole, title, text string) domain.Fragment {
	return domain.Fragment{
		ID:    id,
		Score: 0.9,
		Metadata: domain.ChunkMetadata{
			DocumentID: strings.SplitN(id, "_", 2)[0],
			Text:       text,
			AccessRole: role,
			Department: domain.DefaultDepartment,
			Title:      title,
			Source:     title + ".pdf",
		},
	}
}
