// Package engine drives a claim through the verification state machine:
// search, credibility scoring, stance analysis, verdict, optional human
// review, completion. Every instance's transitions are strictly sequential
// and externalized as durable checkpoints.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pbriand/verifai/internal/cache"
	"github.com/pbriand/verifai/internal/credibility"
	"github.com/pbriand/verifai/internal/limiter"
	"github.com/pbriand/verifai/internal/model"
	"github.com/pbriand/verifai/internal/provider"
	"github.com/pbriand/verifai/internal/store"
	"github.com/pbriand/verifai/internal/verdict"
)

// Options tunes a single verification instance.
type Options struct {
	// HITL pauses the instance in AWAITING_REVIEW before finalizing.
	HITL bool

	// MaxSources caps how many sources are kept; 0 means the engine default.
	MaxSources int
}

// ReviewDecision is the human outcome supplied to Resume.
type ReviewDecision struct {
	// Approve finalizes with the computed verdict unchanged.
	Approve bool

	// Revision fields, used when Approve is false.
	Label      model.Label
	Confidence int
	Note       string
}

// Params carries the engine's collaborators. Search and Checkpoints are
// required; a nil Analysis disables stance analysis (all UNKNOWN), a nil
// Claims disables caching.
type Params struct {
	Config      *model.Config
	Search      provider.SearchProvider
	Analysis    provider.AnalysisProvider
	Scorer      *credibility.Scorer
	Calculator  *verdict.Calculator
	Limiter     *limiter.Limiter
	Claims      *cache.ClaimCache
	Checkpoints store.CheckpointStore
	Logger      *slog.Logger
}

// Option overrides engine internals, used by tests.
type Option func(*Engine)

// WithSleep replaces the backoff sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator replaces the session ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// Engine is the workflow engine. Safe for concurrent use; each session's
// own transitions are sequential.
type Engine struct {
	cfg         model.EngineConfig
	search      provider.SearchProvider
	analysis    provider.AnalysisProvider
	scorer      *credibility.Scorer
	calc        *verdict.Calculator
	limiter     *limiter.Limiter
	claims      *cache.ClaimCache
	checkpoints store.CheckpointStore
	logger      *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
	newID func() string

	mu      sync.Mutex
	running map[string]*running
	resumes map[string]*sync.Mutex
}

// running tracks an in-flight instance so Cancel and GetStatus can reach it.
type running struct {
	mu     sync.Mutex
	cp     model.Checkpoint
	cancel context.CancelFunc
}

func (r *running) snapshot() model.Checkpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cp
}

func (r *running) update(cp model.Checkpoint) {
	r.mu.Lock()
	r.cp = cp
	r.mu.Unlock()
}

// New creates an engine from its collaborators.
func New(p Params, opts ...Option) (*Engine, error) {
	if p.Search == nil {
		return nil, fmt.Errorf("engine requires a search provider")
	}
	if p.Checkpoints == nil {
		return nil, fmt.Errorf("engine requires a checkpoint store")
	}

	cfg := p.Config
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	e := &Engine{
		cfg:         cfg.Engine,
		search:      p.Search,
		analysis:    p.Analysis,
		scorer:      p.Scorer,
		calc:        p.Calculator,
		limiter:     p.Limiter,
		claims:      p.Claims,
		checkpoints: p.Checkpoints,
		logger:      p.Logger,
		now:         time.Now,
		newID:       uuid.NewString,
		running:     make(map[string]*running),
		resumes:     make(map[string]*sync.Mutex),
	}
	if e.scorer == nil {
		e.scorer = credibility.NewScorer(&cfg.Credibility)
	}
	if e.calc == nil {
		e.calc = verdict.NewCalculator(&cfg.Verdict)
	}
	if e.limiter == nil {
		e.limiter = limiter.NewLimiter(cfg.RateLimit.Interval, cfg.RateLimit.MaxWait)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.sleep = func(ctx context.Context, d time.Duration) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
	if e.cfg.MaxSearchAttempts <= 0 {
		e.cfg.MaxSearchAttempts = 3
	}
	if e.cfg.BackoffInitial <= 0 {
		e.cfg.BackoffInitial = time.Second
	}
	if e.cfg.MaxSources <= 0 {
		e.cfg.MaxSources = 8
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Verify runs one claim through the full pipeline, blocking until the
// instance reaches COMPLETED, AWAITING_REVIEW, or FAILED. The returned
// checkpoint is the final snapshot; on failure it carries the taxonomy
// kind and last completed state.
func (e *Engine) Verify(ctx context.Context, claimText string, opts Options) (*model.Checkpoint, error) {
	claim, err := model.NewClaim(claimText)
	if err != nil {
		return nil, newError(KindValidation, "", err)
	}

	hitl := opts.HITL || e.cfg.HITL
	maxSources := opts.MaxSources
	if maxSources <= 0 {
		maxSources = e.cfg.MaxSources
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	now := e.now()
	inst := &running{
		cp: model.Checkpoint{
			SessionID:  e.newID(),
			Step:       0,
			State:      model.StateCreated,
			Claim:      claim,
			HITL:       hitl,
			MaxSources: maxSources,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		cancel: cancel,
	}

	e.mu.Lock()
	e.running[inst.cp.SessionID] = inst
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.running, inst.cp.SessionID)
		e.mu.Unlock()
	}()

	if err := e.persist(ctx, inst); err != nil {
		return nil, newError(KindPersistence, model.StateCreated, err)
	}

	e.logger.Info("verification started",
		"session", inst.cp.SessionID, "hitl", hitl, "claim_len", len(claim.Text))

	// Terminal checkpoints must land even when ctx is already dead, so
	// persistence runs on a detached context.
	return e.run(runCtx, context.WithoutCancel(ctx), inst)
}

// run executes the pipeline from CREATED. persistCtx outlives runCtx so a
// cancelled instance can still write its terminal checkpoint.
func (e *Engine) run(runCtx, persistCtx context.Context, inst *running) (*model.Checkpoint, error) {
	claim := inst.cp.Claim

	var sources []model.SourceRecord
	var answer string
	cached := false

	if e.claims != nil {
		if entry, hit := e.claims.Lookup(claim.Normalized); hit {
			sources, answer = entry.Sources, entry.Answer
			cached = true
			e.logger.Info("cache hit", "session", inst.cp.SessionID, "sources", len(sources))
		}
	}

	if cached {
		// Enriched evidence is already on hand; the intermediate states
		// are traversed without provider calls.
		for _, st := range []model.State{
			model.StateSearching, model.StateSearched, model.StateScoring,
			model.StateScored, model.StateAnalyzing, model.StateAnalyzed,
		} {
			if err := e.advance(persistCtx, inst, st); err != nil {
				return e.fail(persistCtx, inst, KindPersistence, err)
			}
		}
	} else {
		if err := e.advance(persistCtx, inst, model.StateSearching); err != nil {
			return e.fail(persistCtx, inst, KindPersistence, err)
		}

		resp, err := e.searchWithRetry(runCtx, claim.Text, inst.cp.MaxSources)
		if err != nil {
			if runCtx.Err() != nil {
				return e.fail(persistCtx, inst, KindCancelled, runCtx.Err())
			}
			if IsKind(err, KindRateLimit) {
				return e.fail(persistCtx, inst, KindRateLimit, err)
			}
			return e.fail(persistCtx, inst, KindSearch, err)
		}
		answer = resp.Answer

		if err := e.advance(persistCtx, inst, model.StateSearched); err != nil {
			return e.fail(persistCtx, inst, KindPersistence, err)
		}

		if err := e.advance(persistCtx, inst, model.StateScoring); err != nil {
			return e.fail(persistCtx, inst, KindPersistence, err)
		}
		sources = e.scoreSources(inst.cp.SessionID, resp.Results, inst.cp.MaxSources)
		if err := e.advance(persistCtx, inst, model.StateScored); err != nil {
			return e.fail(persistCtx, inst, KindPersistence, err)
		}

		if err := e.advance(persistCtx, inst, model.StateAnalyzing); err != nil {
			return e.fail(persistCtx, inst, KindPersistence, err)
		}
		sources = e.analyzeStances(runCtx, inst.cp.SessionID, claim.Text, sources)
		if runCtx.Err() != nil {
			return e.fail(persistCtx, inst, KindCancelled, runCtx.Err())
		}
		if err := e.advance(persistCtx, inst, model.StateAnalyzed); err != nil {
			return e.fail(persistCtx, inst, KindPersistence, err)
		}

		if e.claims != nil {
			if err := e.claims.Store(claim.Normalized, sources, answer); err != nil {
				e.logger.Warn("cache store failed", "session", inst.cp.SessionID, "error", err)
			}
		}
	}

	inst.mu.Lock()
	inst.cp.Sources = sources
	inst.cp.Answer = answer
	inst.mu.Unlock()

	v := e.calc.Compute(sources)
	inst.mu.Lock()
	inst.cp.Verdict = &v
	inst.mu.Unlock()

	if err := e.advance(persistCtx, inst, model.StateVerdictComputed); err != nil {
		return e.fail(persistCtx, inst, KindPersistence, err)
	}

	e.logger.Info("verdict computed", "session", inst.cp.SessionID,
		"label", v.Label, "confidence", v.Confidence, "sources", len(v.Sources))

	if inst.cp.HITL {
		// AWAITING_REVIEW must be durable before this call returns.
		if err := e.transitionPersisted(persistCtx, inst, model.StateAwaitingReview); err != nil {
			return e.fail(persistCtx, inst, KindPersistence, err)
		}
		cp := inst.snapshot()
		return &cp, nil
	}

	if err := e.transitionPersisted(persistCtx, inst, model.StateCompleted); err != nil {
		return e.fail(persistCtx, inst, KindPersistence, err)
	}
	cp := inst.snapshot()
	return &cp, nil
}

// advance moves the instance to the next state, persisting when the engine
// is configured to checkpoint every transition.
func (e *Engine) advance(ctx context.Context, inst *running, next model.State) error {
	inst.mu.Lock()
	inst.cp.Step++
	inst.cp.State = next
	inst.cp.UpdatedAt = e.now()
	inst.mu.Unlock()

	if !e.cfg.CheckpointEvery {
		return nil
	}
	return e.persist(ctx, inst)
}

// transitionPersisted moves the instance and always writes the checkpoint.
func (e *Engine) transitionPersisted(ctx context.Context, inst *running, next model.State) error {
	inst.mu.Lock()
	inst.cp.Step++
	inst.cp.State = next
	inst.cp.UpdatedAt = e.now()
	inst.mu.Unlock()
	return e.persist(ctx, inst)
}

func (e *Engine) persist(ctx context.Context, inst *running) error {
	cp := inst.snapshot()
	if err := e.checkpoints.Save(ctx, cp); err != nil {
		return fmt.Errorf("persist checkpoint %s/%d: %w", cp.SessionID, cp.Step, err)
	}
	return nil
}

// fail records a terminal FAILED checkpoint carrying the taxonomy kind and
// the last completed state, then returns the typed error.
func (e *Engine) fail(ctx context.Context, inst *running, kind Kind, cause error) (*model.Checkpoint, error) {
	lastState := inst.snapshot().State

	inst.mu.Lock()
	inst.cp.Step++
	inst.cp.State = model.StateFailed
	inst.cp.Failure = &model.Failure{
		Kind:      string(kind),
		LastState: lastState,
		Message:   cause.Error(),
	}
	inst.cp.UpdatedAt = e.now()
	inst.mu.Unlock()

	if err := e.persist(ctx, inst); err != nil {
		e.logger.Error("failed to persist terminal checkpoint",
			"session", inst.cp.SessionID, "error", err)
	}

	e.logger.Warn("verification failed", "session", inst.cp.SessionID,
		"kind", kind, "last_state", lastState, "error", cause)

	cp := inst.snapshot()
	return &cp, newError(kind, lastState, cause)
}

// searchWithRetry calls the search provider through the rate limiter with
// bounded exponential backoff.
func (e *Engine) searchWithRetry(ctx context.Context, query string, maxResults int) (*provider.SearchResponse, error) {
	backoff := e.cfg.BackoffInitial
	var lastErr error

	for attempt := 1; attempt <= e.cfg.MaxSearchAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := e.limiter.Acquire(ctx, e.search.Name()); err != nil {
			if errors.Is(err, limiter.ErrWaitExceeded) {
				return nil, newError(KindRateLimit, model.StateSearching, err)
			}
			return nil, err
		}

		resp, err := e.search.Search(ctx, query, maxResults)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		e.logger.Warn("search attempt failed",
			"provider", e.search.Name(), "attempt", attempt, "error", err)

		if attempt < e.cfg.MaxSearchAttempts {
			if err := e.sleep(ctx, backoff); err != nil {
				return nil, err
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("search failed after %d attempts: %w", e.cfg.MaxSearchAttempts, lastErr)
}

// scoreSources converts raw hits into scored SourceRecords. Hits without a
// parseable domain are dropped with a warning.
func (e *Engine) scoreSources(sessionID string, hits []provider.SearchResult, maxSources int) []model.SourceRecord {
	sources := make([]model.SourceRecord, 0, len(hits))
	for _, hit := range hits {
		domain := model.DomainOf(hit.URL)
		if domain == "" {
			e.logger.Warn("dropping source with malformed URL",
				"session", sessionID, "url", hit.URL)
			continue
		}
		tier, weight := e.scorer.Score(domain)
		sources = append(sources, model.SourceRecord{
			URL:     hit.URL,
			Domain:  domain,
			Title:   hit.Title,
			Snippet: hit.Snippet,
			Tier:    tier,
			Weight:  weight,
			Stance:  model.StanceUnknown,
		})
		if len(sources) == maxSources {
			break
		}
	}
	return sources
}

// analyzeStances labels each source's stance toward the claim. Provider
// errors degrade to UNKNOWN stances rather than failing the workflow.
func (e *Engine) analyzeStances(ctx context.Context, sessionID, claimText string, sources []model.SourceRecord) []model.SourceRecord {
	if e.analysis == nil || len(sources) == 0 {
		return sources
	}

	if err := e.limiter.Acquire(ctx, e.analysis.Name()); err != nil {
		e.logger.Warn("analysis rate limit not acquired, stances unknown",
			"session", sessionID, "error", err)
		return sources
	}

	resp, err := e.analysis.AnalyzeStances(ctx, provider.StanceRequest{
		Claim:   claimText,
		Sources: sources,
	})
	if err != nil {
		e.logger.Warn("stance analysis failed, stances unknown",
			"session", sessionID, "provider", e.analysis.Name(), "error", err)
		return sources
	}

	byURL := make(map[string]provider.StanceResult, len(resp.Stances))
	for _, st := range resp.Stances {
		byURL[st.URL] = st
	}
	for i := range sources {
		if st, ok := byURL[sources[i].URL]; ok {
			sources[i].Stance = st.Stance
			sources[i].StanceConfidence = st.Confidence
		}
	}
	return sources
}

// GetStatus returns the current snapshot of a session: the live in-memory
// state when the instance is running, else the latest checkpoint.
func (e *Engine) GetStatus(ctx context.Context, sessionID string) (*model.Checkpoint, error) {
	e.mu.Lock()
	inst, live := e.running[sessionID]
	e.mu.Unlock()
	if live {
		cp := inst.snapshot()
		return &cp, nil
	}

	cp, err := e.checkpoints.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindValidation, "", fmt.Errorf("unknown session %s", sessionID))
		}
		return nil, newError(KindPersistence, "", err)
	}
	return cp, nil
}

// Resume finalizes a session suspended in AWAITING_REVIEW with a human
// decision. Resumes for one session are serialized; a concurrent resume
// that loses the checkpoint race gets a ConflictError. Resuming an already
// COMPLETED session returns its verdict unchanged.
func (e *Engine) Resume(ctx context.Context, sessionID string, decision ReviewDecision) (*model.Verdict, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	cp, err := e.checkpoints.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindValidation, "", fmt.Errorf("unknown session %s", sessionID))
		}
		return nil, newError(KindPersistence, "", err)
	}

	if cp.State == model.StateCompleted {
		e.dropSessionLock(sessionID)
		return cp.Verdict, nil
	}
	if cp.State != model.StateAwaitingReview {
		return nil, newError(KindConflict, cp.State,
			fmt.Errorf("session %s is %s, not awaiting review", sessionID, cp.State))
	}
	if cp.Verdict == nil {
		return nil, newError(KindPersistence, cp.State,
			fmt.Errorf("checkpoint for %s has no verdict", sessionID))
	}

	next := *cp
	next.Step = cp.Step + 1
	next.State = model.StateCompleted
	next.UpdatedAt = e.now()

	if !decision.Approve {
		original := *cp.Verdict
		revised := original.Revise(decision.Label, decision.Confidence, decision.Note, e.now())
		next.OriginalVerdict = &original
		next.Verdict = &revised
	}

	if err := e.checkpoints.CASUpdate(ctx, next, cp.Step); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, newError(KindConflict, cp.State,
				fmt.Errorf("session %s was finalized concurrently", sessionID))
		}
		return nil, newError(KindPersistence, cp.State, err)
	}

	e.logger.Info("session resumed", "session", sessionID,
		"approved", decision.Approve, "label", next.Verdict.Label)

	e.dropSessionLock(sessionID)
	return next.Verdict, nil
}

// Cancel aborts a session: a running instance is interrupted at its next
// suspension point; a suspended AWAITING_REVIEW session gets a terminal
// FAILED checkpoint so it cannot be resumed afterwards.
func (e *Engine) Cancel(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	inst, live := e.running[sessionID]
	e.mu.Unlock()
	if live {
		inst.cancel()
		return nil
	}

	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	cp, err := e.checkpoints.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindValidation, "", fmt.Errorf("unknown session %s", sessionID))
		}
		return newError(KindPersistence, "", err)
	}
	if cp.State.IsTerminal() {
		e.dropSessionLock(sessionID)
		return newError(KindConflict, cp.State,
			fmt.Errorf("session %s already %s", sessionID, cp.State))
	}

	next := *cp
	next.Step = cp.Step + 1
	next.State = model.StateFailed
	next.Failure = &model.Failure{
		Kind:      string(KindCancelled),
		LastState: cp.State,
		Message:   "cancelled by caller",
	}
	next.UpdatedAt = e.now()

	if err := e.checkpoints.CASUpdate(ctx, next, cp.Step); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return newError(KindConflict, cp.State,
				fmt.Errorf("session %s changed concurrently", sessionID))
		}
		return newError(KindPersistence, cp.State, err)
	}

	e.logger.Info("session cancelled", "session", sessionID, "last_state", cp.State)
	e.dropSessionLock(sessionID)
	return nil
}

func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.resumes[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		e.resumes[sessionID] = lock
	}
	return lock
}

// dropSessionLock prunes the per-session mutex once the session is terminal.
// A goroutine still waiting on the old mutex serializes through CASUpdate.
func (e *Engine) dropSessionLock(sessionID string) {
	e.mu.Lock()
	delete(e.resumes, sessionID)
	e.mu.Unlock()
}
