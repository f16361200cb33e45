package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonathan/cofounder-matcher/internal/embedding"
	"github.com/jonathan/cofounder-matcher/internal/logging"
	"github.com/jonathan/cofounder-matcher/internal/onboarding"
	"github.com/jonathan/cofounder-matcher/internal/types"
	"github.com/jonathan/cofounder-matcher/internal/vectorize"
)

// Progress checkpoints written while a job is processing
const (
	progressStarted     = 10
	progressEmbedded    = 30
	progressCalculating = 50
	progressRanking     = 80
	progressDone        = 100
)

// Options tunes an Orchestrator
type Options struct {
	// Dimension is the required embedding length. Cached embeddings of any other length are regenerated.
	Dimension int
	// ScoringConcurrency bounds concurrent candidate scoring
	ScoringConcurrency int
	// RunTimeout bounds a whole run; zero disables the deadline
	RunTimeout time.Duration
	// ResultWriteAttempts is how many times the result replacement is tried as a unit
	ResultWriteAttempts int
	// RetryBackoff is multiplied by the attempt number between result write attempts
	RetryBackoff time.Duration
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		Dimension:           embedding.DefaultDimension,
		ScoringConcurrency:  8,
		RunTimeout:          10 * time.Minute,
		ResultWriteAttempts: 3,
		RetryBackoff:        200 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Dimension <= 0 {
		o.Dimension = d.Dimension
	}
	if o.ScoringConcurrency <= 0 {
		o.ScoringConcurrency = d.ScoringConcurrency
	}
	if o.RunTimeout < 0 {
		o.RunTimeout = 0
	}
	if o.ResultWriteAttempts <= 0 {
		o.ResultWriteAttempts = 1
	}
	return o
}

// Orchestrator owns the matching job state machine
type Orchestrator struct {
	store      Store
	embedder   embedding.Embedder
	dispatcher Dispatcher
	log        *logging.Logger
	tracer     trace.Tracer
	opts       Options
	now        func() time.Time
}

// NewOrchestrator creates an orchestrator. A dispatcher must be attached with
// SetDispatcher before Start is used.
func NewOrchestrator(store Store, embedder embedding.Embedder, log *logging.Logger, opts Options) *Orchestrator {
	if log == nil {
		log = logging.Nop()
	}
	return &Orchestrator{
		store:    store,
		embedder: embedder,
		log:      log.Component("orchestrator"),
		tracer:   otel.Tracer("github.com/jonathan/cofounder-matcher/internal/matching"),
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

// SetDispatcher attaches the dispatcher used by Start
func (o *Orchestrator) SetDispatcher(d Dispatcher) {
	o.dispatcher = d
}

// CheckEligible returns an *ErrPrecondition unless userID has completed onboarding
// and has onboarding data on file.
func (o *Orchestrator) CheckEligible(ctx context.Context, userID uuid.UUID) error {
	profile, err := o.store.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil {
		return &ErrPrecondition{UserID: userID, Reason: "profile not found"}
	}
	if !profile.OnboardingCompleted {
		return &ErrPrecondition{UserID: userID, Reason: "onboarding not completed"}
	}
	parsed, err := onboarding.Normalize(profile.OnboardingData)
	if err != nil || parsed == nil {
		return &ErrPrecondition{UserID: userID, Reason: "onboarding data missing"}
	}
	return nil
}

// Start returns the id of userID's active job, or creates a new pending job and
// dispatches it. It does not wait for the run.
func (o *Orchestrator) Start(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	if o.dispatcher == nil {
		return uuid.Nil, errors.New("matching: no dispatcher configured")
	}

	active, err := o.store.FindActiveJob(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	if active != nil {
		if !o.abandoned(active) {
			o.log.Debug("returning active job", "job_id", active.ID, "user_id", userID)
			return active.ID, nil
		}
		o.log.Warn("failing abandoned job", "job_id", active.ID, "user_id", userID, "created_at", active.CreatedAt)
		o.fail(ctx, active.ID, active.CurrentStep, fmt.Errorf("match run abandoned: no progress within %s", 2*o.opts.RunTimeout))
	}

	job, err := o.store.CreateJob(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	o.log.Info("matching job created", "job_id", job.ID, "user_id", userID)

	if err := o.dispatcher.Dispatch(ctx, job.ID); err != nil {
		dispatchErr := fmt.Errorf("failed to dispatch matching job: %w", err)
		o.fail(ctx, job.ID, types.JobStepEmbedding, dispatchErr)
		return uuid.Nil, dispatchErr
	}
	return job.ID, nil
}

// abandoned reports whether an active job has outlived any possible run, which
// happens when the process running it died.
func (o *Orchestrator) abandoned(job *types.MatchingJob) bool {
	if o.opts.RunTimeout <= 0 {
		return false
	}
	return o.now().Sub(job.CreatedAt) > 2*o.opts.RunTimeout
}

// run carries per-job state through processing
type run struct {
	job       *types.MatchingJob
	step      types.JobStep
	log       *logging.Logger
	requester types.FeatureVector
	embedding []float32
}

// RunJob processes a job to a terminal state. Jobs that are already terminal are
// left alone, so redelivered jobs are harmless. The returned error is the cause
// recorded on a failed job, *ErrJobNotFound, or wraps ErrJobUnavailable when the
// job could not be read and nothing was written. A job handed over after ctx is
// done is failed without running.
func (o *Orchestrator) RunJob(ctx context.Context, jobID uuid.UUID) (err error) {
	if ctx.Err() != nil {
		return o.cancelQueued(ctx, jobID)
	}

	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrJobUnavailable, err)
	}
	if job == nil {
		return &ErrJobNotFound{JobID: jobID}
	}
	if job.Status.Terminal() {
		o.log.Debug("skipping terminal job", "job_id", jobID, "status", job.Status)
		return nil
	}

	ctx, span := o.tracer.Start(ctx, "matching.run", trace.WithAttributes(
		attribute.String("job.id", jobID.String()),
	))
	defer span.End()

	runCtx := ctx
	if o.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.opts.RunTimeout)
		defer cancel()
	}

	r := &run{job: job, step: types.JobStepEmbedding, log: o.log.With("job_id", jobID)}
	started := o.now()

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("matching run panicked", "panic", p)
			err = fmt.Errorf("panic during matching run: %v", p)
			o.fail(ctx, jobID, r.step, err)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if err = o.process(runCtx, r); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("match run timed out after %s", o.opts.RunTimeout)
		}
		r.log.Error("matching run failed", "step", r.step, "error", err)
		o.fail(ctx, jobID, r.step, err)
		return err
	}

	r.log.Info("matching run completed", "duration", o.now().Sub(started))
	return nil
}

// cancelQueued fails a job that never started because its worker is shutting down
func (o *Orchestrator) cancelQueued(ctx context.Context, jobID uuid.UUID) error {
	job, err := o.store.GetJob(context.WithoutCancel(ctx), jobID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrJobUnavailable, err)
	}
	if job == nil {
		return &ErrJobNotFound{JobID: jobID}
	}
	if job.Status.Terminal() {
		return nil
	}
	cause := errors.New("match run cancelled: worker shutting down")
	o.log.Warn("failing queued job on shutdown", "job_id", jobID)
	o.fail(ctx, jobID, job.CurrentStep, cause)
	return cause
}

func (o *Orchestrator) process(ctx context.Context, r *run) error {
	if err := o.prepareRequester(ctx, r); err != nil {
		return err
	}

	if err := o.advance(ctx, r, types.JobStepCalculating, progressCalculating); err != nil {
		return err
	}
	candidates, err := o.store.ListCandidates(ctx, r.job.UserID)
	if err != nil {
		return err
	}
	scored, err := o.scoreCandidates(ctx, r, candidates)
	if err != nil {
		return err
	}

	if err := o.advance(ctx, r, types.JobStepRanking, progressRanking); err != nil {
		return err
	}
	results := rank(r.job.UserID, scored)
	if err := o.writeResults(ctx, r, results); err != nil {
		return err
	}

	done := o.now()
	return o.store.UpdateJob(ctx, r.job.ID, types.JobUpdate{
		Status:      types.JobStatusCompleted,
		Progress:    progressDone,
		Step:        types.JobStepRanking,
		CompletedAt: &done,
	})
}

// prepareRequester loads the requester's profile and makes sure a valid
// embedding is cached, regenerating it if needed.
func (o *Orchestrator) prepareRequester(ctx context.Context, r *run) error {
	ctx, span := o.tracer.Start(ctx, "matching.embedding")
	defer span.End()

	if err := o.advance(ctx, r, types.JobStepEmbedding, progressStarted); err != nil {
		return err
	}

	userID := r.job.UserID
	record, err := o.store.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if record == nil {
		return &ErrPrecondition{UserID: userID, Reason: "profile not found"}
	}
	profile, err := onboarding.Normalize(record.OnboardingData)
	if err != nil {
		return &ErrPrecondition{UserID: userID, Reason: "onboarding data is malformed"}
	}
	if profile == nil {
		return &ErrPrecondition{UserID: userID, Reason: "onboarding data missing"}
	}
	r.requester = vectorize.Vectorize(profile)

	if embedding.Valid(record.Embedding, o.opts.Dimension) {
		r.embedding = record.Embedding
		return nil
	}

	vec, err := o.generateEmbedding(ctx, profile)
	if err != nil {
		r.log.Warn("requester embedding unavailable", "user_id", userID, "error", err)
	} else {
		r.embedding = vec
		if err := o.store.UpsertEmbedding(ctx, userID, vec); err != nil {
			r.log.Warn("failed to cache requester embedding", "user_id", userID, "error", err)
		}
	}
	return o.advance(ctx, r, types.JobStepEmbedding, progressEmbedded)
}

func (o *Orchestrator) generateEmbedding(ctx context.Context, profile *types.OnboardingProfile) ([]float32, error) {
	vec, err := o.embedder.Embed(ctx, embedding.Serialize(profile))
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if !embedding.Valid(vec, o.opts.Dimension) {
		return nil, fmt.Errorf("embedder returned %d values, want %d", len(vec), o.opts.Dimension)
	}
	return vec, nil
}

func (o *Orchestrator) advance(ctx context.Context, r *run, step types.JobStep, progress int) error {
	r.step = step
	return o.store.UpdateJob(ctx, r.job.ID, types.JobUpdate{
		Status:   types.JobStatusProcessing,
		Progress: progress,
		Step:     step,
	})
}

func (o *Orchestrator) writeResults(ctx context.Context, r *run, results []types.MatchResult) error {
	ctx, span := o.tracer.Start(ctx, "matching.persist", trace.WithAttributes(
		attribute.Int("results.count", len(results)),
	))
	defer span.End()

	var err error
	for attempt := 1; attempt <= o.opts.ResultWriteAttempts; attempt++ {
		if err = o.store.ReplaceResults(ctx, r.job.UserID, results); err == nil {
			return nil
		}
		r.log.Warn("result write failed", "attempt", attempt, "error", err)
		if attempt == o.opts.ResultWriteAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * o.opts.RetryBackoff):
		}
	}
	return fmt.Errorf("failed to persist match results after %d attempts: %w", o.opts.ResultWriteAttempts, err)
}

// fail writes the failed terminal state. It runs even if ctx is already done.
func (o *Orchestrator) fail(ctx context.Context, jobID uuid.UUID, step types.JobStep, cause error) {
	msg := cause.Error()
	done := o.now()
	err := o.store.UpdateJob(context.WithoutCancel(ctx), jobID, types.JobUpdate{
		Status:       types.JobStatusFailed,
		Progress:     0,
		Step:         step,
		ErrorMessage: &msg,
		CompletedAt:  &done,
	})
	if err != nil {
		o.log.Error("failed to record job failure", "job_id", jobID, "cause", msg, "error", err)
	}
}

// rank orders scored candidates by descending score, keeping candidate order for ties,
// and numbers them from 1.
func rank(userID uuid.UUID, scored []candidateScore) []types.MatchResult {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	results := make([]types.MatchResult, len(scored))
	for i, s := range scored {
		results[i] = types.MatchResult{
			UserID:          userID,
			MatchedUserID:   s.userID,
			MatchPercentage: s.score,
			Rank:            i + 1,
		}
	}
	return results
}
