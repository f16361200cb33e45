package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cofounder-matcher/internal/logging"
	"github.com/jonathan/cofounder-matcher/internal/onboarding"
	"github.com/jonathan/cofounder-matcher/internal/similarity"
	"github.com/jonathan/cofounder-matcher/internal/types"
	"github.com/jonathan/cofounder-matcher/internal/vectorize"
)

func testOptions() Options {
	return Options{
		Dimension:           testDimension,
		ScoringConcurrency:  4,
		RunTimeout:          time.Minute,
		ResultWriteAttempts: 3,
		RetryBackoff:        time.Millisecond,
	}
}

func newTestOrchestrator(t *testing.T, store *memStore, embedder *testEmbedder) (*Orchestrator, *recordingDispatcher) {
	t.Helper()
	o := NewOrchestrator(store, embedder, logging.Nop(), testOptions())
	d := &recordingDispatcher{}
	o.SetDispatcher(d)
	return o, d
}

var founderAnswers = map[string]any{
	"industries":          []string{"AI", "SaaS"},
	"goals":               []string{"Build a startup"},
	"partnerRoles":        []string{"Technical"},
	"collaborationStyles": []string{"Remote"},
	"timeCommitment":      "full-time",
}

func startJob(t *testing.T, o *Orchestrator, userID uuid.UUID) uuid.UUID {
	t.Helper()
	jobID, err := o.Start(context.Background(), userID)
	require.NoError(t, err)
	return jobID
}

func TestStart_ReturnsActiveJob(t *testing.T) {
	store := newMemStore()
	o, d := newTestOrchestrator(t, store, newTestEmbedder(t))
	userID := store.addProfile(completedProfile(t, founderAnswers))

	first := startJob(t, o, userID)
	second := startJob(t, o, userID)

	assert.Equal(t, first, second)
	assert.Len(t, store.jobs, 1)
	assert.Equal(t, []uuid.UUID{first}, d.ids, "active job must not be dispatched twice")

	job := store.job(t, first)
	assert.Equal(t, types.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, types.JobStepEmbedding, job.CurrentStep)
}

func TestStart_NewJobAfterTerminal(t *testing.T) {
	store := newMemStore()
	o, _ := newTestOrchestrator(t, store, newTestEmbedder(t))
	userID := store.addProfile(completedProfile(t, founderAnswers))

	first := startJob(t, o, userID)
	require.NoError(t, o.RunJob(context.Background(), first))

	second := startJob(t, o, userID)
	assert.NotEqual(t, first, second)
}

func TestStart_DispatchFailureFailsJob(t *testing.T) {
	store := newMemStore()
	o, d := newTestOrchestrator(t, store, newTestEmbedder(t))
	d.err = errors.New("broker down")
	userID := store.addProfile(completedProfile(t, founderAnswers))

	_, err := o.Start(context.Background(), userID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, types.JobStatusFailed, job.Status)
		require.NotNil(t, job.ErrorMessage)
		assert.Contains(t, *job.ErrorMessage, "broker down")
	}
}

func TestStart_ReplacesAbandonedJob(t *testing.T) {
	store := newMemStore()
	o, _ := newTestOrchestrator(t, store, newTestEmbedder(t))
	userID := store.addProfile(completedProfile(t, founderAnswers))

	stale := startJob(t, o, userID)
	o.now = func() time.Time { return time.Now().Add(3 * time.Minute) }

	fresh := startJob(t, o, userID)
	assert.NotEqual(t, stale, fresh)

	job := store.job(t, stale)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "abandoned")
}

func TestStart_WithoutDispatcher(t *testing.T) {
	o := NewOrchestrator(newMemStore(), newTestEmbedder(t), nil, testOptions())
	_, err := o.Start(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestRunJob_RanksEligibleCandidates(t *testing.T) {
	store := newMemStore()
	embedder := newTestEmbedder(t)
	o, _ := newTestOrchestrator(t, store, embedder)

	requester := store.addProfile(completedProfile(t, founderAnswers))
	twin := store.addProfile(completedProfile(t, founderAnswers))
	partial := store.addProfile(completedProfile(t, map[string]any{
		"industries":     []string{"AI"},
		"timeCommitment": "weekends",
	}))
	noData := store.addProfile(types.ProfileRecord{OnboardingCompleted: true})
	malformed := store.addProfile(types.ProfileRecord{OnboardingCompleted: true, OnboardingData: []byte(`[1,2`)})
	unfinished := store.addProfile(types.ProfileRecord{OnboardingData: onboardingJSON(t, founderAnswers)})

	jobID := startJob(t, o, requester)
	require.NoError(t, o.RunJob(context.Background(), jobID))

	job := store.job(t, jobID)
	assert.Equal(t, types.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, types.JobStepRanking, job.CurrentStep)
	assert.NotNil(t, job.CompletedAt)
	assert.Nil(t, job.ErrorMessage)
	assert.Equal(t, []int{10, 30, 50, 80, 100}, store.progress(jobID))

	results := store.results[requester]
	require.Len(t, results, 2)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank, "ranks must be 1..N without gaps")
		assert.Equal(t, requester, r.UserID)
		assert.NotContains(t, []uuid.UUID{noData, malformed, unfinished, requester}, r.MatchedUserID)
	}
	assert.Equal(t, twin, results[0].MatchedUserID)
	assert.Equal(t, 100, results[0].MatchPercentage)
	assert.Equal(t, partial, results[1].MatchedUserID)
	assert.Greater(t, results[0].MatchPercentage, results[1].MatchPercentage)

	// requester and both scored candidates had their embeddings cached
	assert.Equal(t, 1, store.embeddingWrites[requester])
	assert.Equal(t, 1, store.embeddingWrites[twin])
	assert.Equal(t, 1, store.embeddingWrites[partial])
	assert.Zero(t, store.embeddingWrites[noData])
}

func TestRunJob_SharedIndustryOutranksEmptyIndustry(t *testing.T) {
	store := newMemStore()
	o, _ := newTestOrchestrator(t, store, newTestEmbedder(t))

	requester := store.addProfile(completedProfile(t, map[string]any{"industries": []string{"AI"}, "timeCommitment": "part-time"}))
	empty := store.addProfile(completedProfile(t, map[string]any{"industries": []string{}, "timeCommitment": "part-time"}))
	shared := store.addProfile(completedProfile(t, map[string]any{"industries": []string{"AI"}, "timeCommitment": "part-time"}))

	jobID := startJob(t, o, requester)
	require.NoError(t, o.RunJob(context.Background(), jobID))

	results := store.results[requester]
	require.Len(t, results, 2)
	assert.Equal(t, shared, results[0].MatchedUserID)
	assert.Equal(t, empty, results[1].MatchedUserID)
}

func TestRunJob_TiesKeepCandidateOrder(t *testing.T) {
	store := newMemStore()
	o, _ := newTestOrchestrator(t, store, newTestEmbedder(t))

	requester := store.addProfile(completedProfile(t, founderAnswers))
	var want []uuid.UUID
	for i := 0; i < 5; i++ {
		want = append(want, store.addProfile(completedProfile(t, founderAnswers)))
	}

	jobID := startJob(t, o, requester)
	require.NoError(t, o.RunJob(context.Background(), jobID))

	var got []uuid.UUID
	for _, r := range store.results[requester] {
		got = append(got, r.MatchedUserID)
	}
	assert.Equal(t, want, got)
}

func TestRunJob_ReplacesPreviousResults(t *testing.T) {
	store := newMemStore()
	o, _ := newTestOrchestrator(t, store, newTestEmbedder(t))

	requester := store.addProfile(completedProfile(t, founderAnswers))
	candidate := store.addProfile(completedProfile(t, founderAnswers))
	gone := uuid.New()
	store.results[requester] = []types.MatchResult{{UserID: requester, MatchedUserID: gone, MatchPercentage: 99, Rank: 1}}

	jobID := startJob(t, o, requester)
	require.NoError(t, o.RunJob(context.Background(), jobID))

	results := store.results[requester]
	require.Len(t, results, 1)
	assert.Equal(t, candidate, results[0].MatchedUserID)
}

func TestRunJob_UsesValidCachedEmbedding(t *testing.T) {
	store := newMemStore()
	embedder := newTestEmbedder(t)
	o, _ := newTestOrchestrator(t, store, embedder)

	cached, err := embedder.inner.Embed(context.Background(), "cached")
	require.NoError(t, err)

	rec := completedProfile(t, founderAnswers)
	rec.Embedding = cached
	requester := store.addProfile(rec)

	jobID := startJob(t, o, requester)
	require.NoError(t, o.RunJob(context.Background(), jobID))

	assert.Zero(t, embedder.calls.Load())
	assert.Zero(t, store.embeddingWrites[requester])
	assert.Equal(t, []int{10, 50, 80, 100}, store.progress(jobID), "no regeneration checkpoint")
}

func TestRunJob_RegeneratesWrongLengthEmbedding(t *testing.T) {
	store := newMemStore()
	o, _ := newTestOrchestrator(t, store, newTestEmbedder(t))

	rec := completedProfile(t, founderAnswers)
	rec.Embedding = []float32{0.5, 0.5, 0.5}
	requester := store.addProfile(rec)

	jobID := startJob(t, o, requester)
	require.NoError(t, o.RunJob(context.Background(), jobID))

	p, err := store.GetProfile(context.Background(), requester)
	require.NoError(t, err)
	assert.Len(t, p.Embedding, testDimension)
	assert.Equal(t, 1, store.embeddingWrites[requester])
}

func TestRunJob_CandidateEmbeddingFailureScoresZeroEmbedding(t *testing.T) {
	store := newMemStore()
	embedder := newTestEmbedder(t)
	embedder.failOn = "Gaming"
	o, _ := newTestOrchestrator(t, store, embedder)

	gamer := map[string]any{"industries": []string{"Gaming", "AI"}, "timeCommitment": "full-time"}
	requester := store.addProfile(completedProfile(t, founderAnswers))
	candidate := store.addProfile(completedProfile(t, gamer))

	jobID := startJob(t, o, requester)
	require.NoError(t, o.RunJob(context.Background(), jobID))
	assert.Equal(t, types.JobStatusCompleted, store.job(t, jobID).Status)

	a, err := onboarding.Normalize(onboardingJSON(t, founderAnswers))
	require.NoError(t, err)
	b, err := onboarding.Normalize(onboardingJSON(t, gamer))
	require.NoError(t, err)
	want := similarity.Blend(similarity.CategoricalSimilarity(vectorize.Vectorize(a), vectorize.Vectorize(b)), 0)

	results := store.results[requester]
	require.Len(t, results, 1)
	assert.Equal(t, candidate, results[0].MatchedUserID)
	assert.Equal(t, want, results[0].MatchPercentage)
	assert.Zero(t, store.embeddingWrites[candidate])
}

func TestRunJob_WrongLengthEmbedderOutputIsDiscarded(t *testing.T) {
	store := newMemStore()
	embedder := newTestEmbedder(t)
	embedder.short = true
	o, _ := newTestOrchestrator(t, store, embedder)

	requester := store.addProfile(completedProfile(t, founderAnswers))
	store.addProfile(completedProfile(t, founderAnswers))

	jobID := startJob(t, o, requester)
	require.NoError(t, o.RunJob(context.Background(), jobID))

	results := store.results[requester]
	require.Len(t, results, 1)
	assert.Equal(t, 90, results[0].MatchPercentage, "identical answers without embeddings blend to 90")
	assert.Empty(t, store.embeddingWrites)
}

func TestRunJob_MissingRequesterProfileFails(t *testing.T) {
	store := newMemStore()
	o, _ := newTestOrchestrator(t, store, newTestEmbedder(t))
	userID := uuid.New()

	jobID := startJob(t, o, userID)
	err := o.RunJob(context.Background(), jobID)

	var precondition *ErrPrecondition
	require.ErrorAs(t, err, &precondition)

	job := store.job(t, jobID)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	assert.Equal(t, 0, job.Progress)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "profile not found")
	assert.NotNil(t, job.CompletedAt)
}

func TestRunJob_NullOnboardingDataFails(t *testing.T) {
	store := newMemStore()
	o, _ := newTestOrchestrator(t, store, newTestEmbedder(t))
	userID := store.addProfile(types.ProfileRecord{OnboardingCompleted: true, OnboardingData: []byte("null")})

	jobID := startJob(t, o, userID)
	require.Error(t, o.RunJob(context.Background(), jobID))

	job := store.job(t, jobID)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	assert.Contains(t, *job.ErrorMessage, "onboarding data missing")
}

func TestRunJob_RetriesResultWrite(t *testing.T) {
	store := newMemStore()
	store.replaceErrs = []error{errors.New("connection reset"), nil}
	o, _ := newTestOrchestrator(t, store, newTestEmbedder(t))

	requester := store.addProfile(completedProfile(t, founderAnswers))
	store.addProfile(completedProfile(t, founderAnswers))

	jobID := startJob(t, o, requester)
	require.NoError(t, o.RunJob(context.Background(), jobID))

	assert.Equal(t, 2, store.replaceCalls)
	assert.Equal(t, types.JobStatusCompleted, store.job(t, jobID).Status)
	assert.Len(t, store.results[requester], 1)
}

func TestRunJob_ResultWriteExhaustionFails(t *testing.T) {
	store := newMemStore()
	writeErr := errors.New("connection reset")
	store.replaceErrs = []error{writeErr, writeErr, writeErr}
	o, _ := newTestOrchestrator(t, store, newTestEmbedder(t))

	requester := store.addProfile(completedProfile(t, founderAnswers))
	store.addProfile(completedProfile(t, founderAnswers))

	jobID := startJob(t, o, requester)
	err := o.RunJob(context.Background(), jobID)
	require.ErrorIs(t, err, writeErr)

	assert.Equal(t, 3, store.replaceCalls)
	job := store.job(t, jobID)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, types.JobStepRanking, job.CurrentStep)
	assert.Contains(t, *job.ErrorMessage, "after 3 attempts")
	assert.Empty(t, store.results[requester])
}

func TestRunJob_TimeoutFailsJob(t *testing.T) {
	store := newMemStore()
	embedder := newTestEmbedder(t)
	embedder.block = true
	opts := testOptions()
	opts.RunTimeout = 20 * time.Millisecond
	o := NewOrchestrator(store, embedder, logging.Nop(), opts)
	o.SetDispatcher(&recordingDispatcher{})

	requester := store.addProfile(completedProfile(t, founderAnswers))
	store.addProfile(completedProfile(t, founderAnswers))

	jobID := startJob(t, o, requester)
	err := o.RunJob(context.Background(), jobID)
	require.Error(t, err)

	job := store.job(t, jobID)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "match run timed out after 20ms", *job.ErrorMessage)
}

func TestRunJob_PanicFailsJob(t *testing.T) {
	store := newMemStore()
	embedder := newTestEmbedder(t)
	embedder.panicOn = "Industries"
	o, _ := newTestOrchestrator(t, store, embedder)

	requester := store.addProfile(completedProfile(t, founderAnswers))

	jobID := startJob(t, o, requester)
	err := o.RunJob(context.Background(), jobID)
	require.Error(t, err)

	job := store.job(t, jobID)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	assert.Contains(t, *job.ErrorMessage, "panic")
}

func TestRunJob_CandidateEmbeddingPanicKeepsCandidate(t *testing.T) {
	store := newMemStore()
	embedder := newTestEmbedder(t)
	embedder.panicOn = "Gaming"
	o, _ := newTestOrchestrator(t, store, embedder)

	gamer := map[string]any{"industries": []string{"Gaming", "AI"}, "timeCommitment": "full-time"}
	requester := store.addProfile(completedProfile(t, founderAnswers))
	peer := store.addProfile(completedProfile(t, founderAnswers))
	candidate := store.addProfile(completedProfile(t, gamer))

	jobID := startJob(t, o, requester)
	require.NoError(t, o.RunJob(context.Background(), jobID))

	job := store.job(t, jobID)
	assert.Equal(t, types.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Nil(t, job.ErrorMessage)

	a, err := onboarding.Normalize(onboardingJSON(t, founderAnswers))
	require.NoError(t, err)
	b, err := onboarding.Normalize(onboardingJSON(t, gamer))
	require.NoError(t, err)
	want := similarity.Blend(similarity.CategoricalSimilarity(vectorize.Vectorize(a), vectorize.Vectorize(b)), 0)

	results := store.results[requester]
	require.Len(t, results, 2)
	byUser := map[uuid.UUID]types.MatchResult{}
	for _, r := range results {
		byUser[r.MatchedUserID] = r
	}
	require.Contains(t, byUser, peer)
	require.Contains(t, byUser, candidate)
	assert.Equal(t, want, byUser[candidate].MatchPercentage)
	assert.Zero(t, store.embeddingWrites[candidate])
}

func TestRunJob_TerminalJobIsNoop(t *testing.T) {
	store := newMemStore()
	o, _ := newTestOrchestrator(t, store, newTestEmbedder(t))
	requester := store.addProfile(completedProfile(t, founderAnswers))

	jobID := startJob(t, o, requester)
	require.NoError(t, o.RunJob(context.Background(), jobID))
	updates := len(store.history[jobID])

	require.NoError(t, o.RunJob(context.Background(), jobID))
	assert.Len(t, store.history[jobID], updates)
}

func TestRunJob_UnknownJob(t *testing.T) {
	o, _ := newTestOrchestrator(t, newMemStore(), newTestEmbedder(t))

	err := o.RunJob(context.Background(), uuid.New())
	var notFound *ErrJobNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestCheckEligible(t *testing.T) {
	store := newMemStore()
	o, _ := newTestOrchestrator(t, store, newTestEmbedder(t))

	ready := store.addProfile(completedProfile(t, founderAnswers))
	incomplete := store.addProfile(types.ProfileRecord{OnboardingData: onboardingJSON(t, founderAnswers)})
	noData := store.addProfile(types.ProfileRecord{OnboardingCompleted: true})

	require.NoError(t, o.CheckEligible(context.Background(), ready))

	for name, id := range map[string]uuid.UUID{
		"no profile": uuid.New(),
		"incomplete": incomplete,
		"no data":    noData,
	} {
		t.Run(name, func(t *testing.T) {
			var precondition *ErrPrecondition
			assert.ErrorAs(t, o.CheckEligible(context.Background(), id), &precondition)
		})
	}
}
