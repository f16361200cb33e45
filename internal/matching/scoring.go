package matching

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/cofounder-matcher/internal/embedding"
	"github.com/jonathan/cofounder-matcher/internal/onboarding"
	"github.com/jonathan/cofounder-matcher/internal/similarity"
	"github.com/jonathan/cofounder-matcher/internal/types"
	"github.com/jonathan/cofounder-matcher/internal/vectorize"
)

// candidateScore is one candidate's blended score
type candidateScore struct {
	userID uuid.UUID
	score  int
}

// scoreCandidates scores every candidate that has onboarding data, preserving the
// candidates' order. Candidates without usable onboarding data are left out.
// Only cancellation of ctx aborts scoring; per-candidate embedding problems
// just zero that candidate's embedding signal.
func (o *Orchestrator) scoreCandidates(ctx context.Context, r *run, candidates []types.ProfileRecord) ([]candidateScore, error) {
	ctx, span := o.tracer.Start(ctx, "matching.calculating", trace.WithAttributes(
		attribute.Int("candidates.count", len(candidates)),
	))
	defer span.End()

	slots := make([]*candidateScore, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.ScoringConcurrency)
	for i := range candidates {
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("panic scoring candidate %s: %v", candidates[i].UserID, p)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = o.scoreCandidate(gctx, r, &candidates[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored := make([]candidateScore, 0, len(candidates))
	for _, s := range slots {
		if s != nil {
			scored = append(scored, *s)
		}
	}
	span.SetAttributes(attribute.Int("candidates.scored", len(scored)))
	return scored, nil
}

// scoreCandidate returns nil when the candidate has no usable onboarding data
func (o *Orchestrator) scoreCandidate(ctx context.Context, r *run, c *types.ProfileRecord) *candidateScore {
	profile, err := onboarding.Normalize(c.OnboardingData)
	if err != nil {
		r.log.Warn("skipping candidate with malformed onboarding data", "candidate_id", c.UserID, "error", err)
		return nil
	}
	if profile == nil {
		r.log.Debug("skipping candidate without onboarding data", "candidate_id", c.UserID)
		return nil
	}

	categorical := similarity.CategoricalSimilarity(r.requester, vectorize.Vectorize(profile))

	vec := c.Embedding
	if !embedding.Valid(vec, o.opts.Dimension) {
		vec = nil
		generated, err := o.candidateEmbedding(ctx, r, c.UserID, profile)
		if err != nil {
			r.log.Warn("candidate embedding unavailable", "candidate_id", c.UserID, "error", err)
		} else {
			vec = generated
			if err := o.store.UpsertEmbedding(ctx, c.UserID, generated); err != nil {
				r.log.Warn("failed to cache candidate embedding", "candidate_id", c.UserID, "error", err)
			}
		}
	}

	return &candidateScore{
		userID: c.UserID,
		score:  similarity.Blend(categorical, similarity.EmbeddingSimilarity(r.embedding, vec)),
	}
}

// candidateEmbedding is generateEmbedding with backend panics turned into
// errors, so one bad candidate only loses its embedding signal.
func (o *Orchestrator) candidateEmbedding(ctx context.Context, r *run, candidateID uuid.UUID, profile *types.OnboardingProfile) (vec []float32, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Warn("candidate embedding panicked", "candidate_id", candidateID, "panic", p)
			vec, err = nil, fmt.Errorf("embedding backend panicked: %v", p)
		}
	}()
	return o.generateEmbedding(ctx, profile)
}
