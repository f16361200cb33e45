package matching

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cofounder-matcher/internal/embedding"
	"github.com/jonathan/cofounder-matcher/internal/types"
)

const testDimension = 16

// memStore is an in-memory Store
type memStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*types.ProfileRecord
	order    []uuid.UUID
	jobs     map[uuid.UUID]*types.MatchingJob
	history  map[uuid.UUID][]types.JobUpdate
	results  map[uuid.UUID][]types.MatchResult

	embeddingWrites map[uuid.UUID]int
	replaceErrs     []error
	replaceCalls    int
}

func newMemStore() *memStore {
	return &memStore{
		profiles:        map[uuid.UUID]*types.ProfileRecord{},
		jobs:            map[uuid.UUID]*types.MatchingJob{},
		history:         map[uuid.UUID][]types.JobUpdate{},
		results:         map[uuid.UUID][]types.MatchResult{},
		embeddingWrites: map[uuid.UUID]int{},
	}
}

func (m *memStore) addProfile(rec types.ProfileRecord) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.UserID == uuid.Nil {
		rec.UserID = uuid.New()
	}
	m.profiles[rec.UserID] = &rec
	m.order = append(m.order, rec.UserID)
	return rec.UserID
}

func (m *memStore) GetProfile(_ context.Context, userID uuid.UUID) (*types.ProfileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListCandidates(_ context.Context, exclude uuid.UUID) ([]types.ProfileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.ProfileRecord
	for _, id := range m.order {
		p := m.profiles[id]
		if id == exclude || !p.OnboardingCompleted {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *memStore) UpsertEmbedding(_ context.Context, userID uuid.UUID, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return errors.New("profile not found")
	}
	p.Embedding = append([]float32(nil), vec...)
	m.embeddingWrites[userID]++
	return nil
}

func (m *memStore) ReplaceResults(_ context.Context, userID uuid.UUID, results []types.MatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	if len(m.replaceErrs) > 0 {
		err := m.replaceErrs[0]
		m.replaceErrs = m.replaceErrs[1:]
		if err != nil {
			return err
		}
	}
	m.results[userID] = append([]types.MatchResult(nil), results...)
	return nil
}

func (m *memStore) ListResults(_ context.Context, userID uuid.UUID) ([]types.MatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.MatchResult(nil), m.results[userID]...), nil
}

func (m *memStore) CreateJob(_ context.Context, userID uuid.UUID) (*types.MatchingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := &types.MatchingJob{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      types.JobStatusPending,
		CurrentStep: types.JobStepEmbedding,
		CreatedAt:   time.Now(),
	}
	m.jobs[job.ID] = job
	cp := *job
	return &cp, nil
}

func (m *memStore) GetJob(_ context.Context, jobID uuid.UUID) (*types.MatchingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (m *memStore) FindActiveJob(_ context.Context, userID uuid.UUID) (*types.MatchingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.UserID == userID && !job.Status.Terminal() {
			cp := *job
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpdateJob(_ context.Context, jobID uuid.UUID, u types.JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return nil
	}
	job.Status = u.Status
	job.Progress = u.Progress
	job.CurrentStep = u.Step
	job.ErrorMessage = u.ErrorMessage
	job.CompletedAt = u.CompletedAt
	m.history[jobID] = append(m.history[jobID], u)
	return nil
}

func (m *memStore) job(t *testing.T, id uuid.UUID) types.MatchingJob {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	require.True(t, ok, "job %s not stored", id)
	return *job
}

func (m *memStore) progress(id uuid.UUID) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for _, u := range m.history[id] {
		out = append(out, u.Progress)
	}
	return out
}

// testEmbedder wraps the hashing embedder with failure injection
type testEmbedder struct {
	inner   *embedding.HashingEmbedder
	calls   atomic.Int32
	failOn  string
	panicOn string
	block   bool
	short   bool
}

func newTestEmbedder(t *testing.T) *testEmbedder {
	t.Helper()
	inner, err := embedding.NewHashingEmbedder(testDimension)
	require.NoError(t, err)
	return &testEmbedder{inner: inner}
}

func (e *testEmbedder) Dimensions() int { return testDimension }

func (e *testEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.panicOn != "" && strings.Contains(text, e.panicOn) {
		panic("embedder exploded")
	}
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding backend unavailable")
	}
	if e.short {
		return []float32{1, 0}, nil
	}
	return e.inner.Embed(ctx, text)
}

// recordingDispatcher records dispatched ids without running them
type recordingDispatcher struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.ids = append(d.ids, id)
	return nil
}

func onboardingJSON(t *testing.T, fields map[string]any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	return raw
}

func completedProfile(t *testing.T, fields map[string]any) types.ProfileRecord {
	return types.ProfileRecord{OnboardingCompleted: true, OnboardingData: onboardingJSON(t, fields)}
}
