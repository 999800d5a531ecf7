package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pbriand/verifai/internal/cache"
	"github.com/pbriand/verifai/internal/model"
	"github.com/pbriand/verifai/internal/provider"
	"github.com/pbriand/verifai/internal/store"
)

type mockSearch struct {
	mu       sync.Mutex
	calls    int
	failures int // fail this many calls before succeeding
	resp     *provider.SearchResponse
}

func (m *mockSearch) Name() string { return "mocksearch" }

func (m *mockSearch) Search(ctx context.Context, query string, maxResults int) (*provider.SearchResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return nil, fmt.Errorf("provider unavailable (call %d)", m.calls)
	}
	if m.resp == nil {
		return &provider.SearchResponse{}, nil
	}
	return m.resp, nil
}

func (m *mockSearch) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockAnalysis struct {
	mu      sync.Mutex
	calls   int
	err     error
	stances []provider.StanceResult
}

func (m *mockAnalysis) Name() string { return "mockanalysis" }

func (m *mockAnalysis) IsAvailable(ctx context.Context) bool { return true }

func (m *mockAnalysis) AnalyzeStances(ctx context.Context, req provider.StanceRequest) (*provider.StanceResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &provider.StanceResponse{Stances: m.stances}, nil
}

// scenarioConfig pins source weights so verdict numbers are exact.
func scenarioConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.RateLimit.Interval = time.Millisecond
	cfg.Credibility.Overrides = []model.DomainRule{
		{Pattern: "insee.fr", Tier: model.TierGovernment, Weight: 0.95},
		{Pattern: "gouvernement.fr", Tier: model.TierGovernment, Weight: 0.9},
		{Pattern: "some-blog.example", Tier: model.TierUnlisted, Weight: 0.2},
	}
	return cfg
}

func scenarioResponse() *provider.SearchResponse {
	return &provider.SearchResponse{
		Answer: "France has about 68 million inhabitants.",
		Results: []provider.SearchResult{
			{URL: "https://www.insee.fr/fr/statistiques/pop", Title: "Population", Snippet: "67 millions"},
			{URL: "https://www.gouvernement.fr/actualite/pop", Title: "Actualité", Snippet: "67 millions"},
			{URL: "https://some-blog.example/post", Title: "Blog", Snippet: "beaucoup de monde"},
		},
	}
}

func newTestEngine(t *testing.T, cfg *model.Config, search provider.SearchProvider, analysis provider.AnalysisProvider, st store.CheckpointStore, opts ...Option) *Engine {
	t.Helper()
	if cfg == nil {
		cfg = scenarioConfig()
	}
	if st == nil {
		st = store.NewMemoryStore()
	}
	allOpts := append([]Option{
		WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
	}, opts...)
	e, err := New(Params{
		Config:      cfg,
		Search:      search,
		Analysis:    analysis,
		Checkpoints: st,
	}, allOpts...)
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	return e
}

const scenarioClaim = "La France a 67 millions d'habitants"

func TestVerify_TwoInstitutionalSources(t *testing.T) {
	search := &mockSearch{resp: scenarioResponse()}
	analysis := &mockAnalysis{stances: []provider.StanceResult{
		{URL: "https://www.insee.fr/fr/statistiques/pop", Stance: model.StanceConfirms, Confidence: 0.95},
		{URL: "https://www.gouvernement.fr/actualite/pop", Stance: model.StanceConfirms, Confidence: 0.9},
		{URL: "https://some-blog.example/post", Stance: model.StanceNeutral, Confidence: 0.4},
	}}
	e := newTestEngine(t, nil, search, analysis, nil)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if cp.State != model.StateCompleted {
		t.Fatalf("expected COMPLETED, got %s", cp.State)
	}
	if cp.Verdict == nil {
		t.Fatal("expected a verdict")
	}
	if cp.Verdict.Label != model.LabelVerified {
		t.Errorf("expected VERIFIED, got %s", cp.Verdict.Label)
	}
	if cp.Verdict.Confidence != 92 {
		t.Errorf("expected confidence 92, got %d", cp.Verdict.Confidence)
	}
	if cp.Verdict.InstitutionalCount != 2 {
		t.Errorf("expected 2 institutional sources, got %d", cp.Verdict.InstitutionalCount)
	}
	if len(cp.Sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(cp.Sources))
	}
	if cp.Sources[0].Stance != model.StanceConfirms {
		t.Errorf("expected stance applied to first source, got %s", cp.Sources[0].Stance)
	}
	if cp.Answer == "" {
		t.Error("expected the provider answer to be kept")
	}
}

func TestVerify_ZeroSourcesCompletes(t *testing.T) {
	search := &mockSearch{resp: &provider.SearchResponse{}}
	e := newTestEngine(t, nil, search, nil, nil)

	cp, err := e.Verify(context.Background(), "a claim that finds nothing on the web", Options{})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if cp.State != model.StateCompleted {
		t.Errorf("expected COMPLETED for zero sources, got %s", cp.State)
	}
	if cp.Verdict.Label != model.LabelUnverified || cp.Verdict.Confidence != 5 {
		t.Errorf("expected UNVERIFIED/5, got %s/%d", cp.Verdict.Label, cp.Verdict.Confidence)
	}
}

func TestVerify_ValidationErrors(t *testing.T) {
	e := newTestEngine(t, nil, &mockSearch{}, nil, nil)

	tests := []struct {
		name  string
		claim string
	}{
		{"too short", "tiny"},
		{"bare URL", "https://example.com/some/article"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Verify(context.Background(), tt.claim, Options{})
			if !IsKind(err, KindValidation) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestVerify_SearchRetryWithBackoff(t *testing.T) {
	var sleeps []time.Duration
	search := &mockSearch{failures: 2, resp: scenarioResponse()}
	e := newTestEngine(t, nil, search, nil, nil, WithSleep(func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}))

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if cp.State != model.StateCompleted {
		t.Errorf("expected COMPLETED after retries, got %s", cp.State)
	}
	if search.callCount() != 3 {
		t.Errorf("expected 3 search calls, got %d", search.callCount())
	}
	// Exponential backoff doubles from the initial delay.
	if len(sleeps) != 2 || sleeps[0] != time.Second || sleeps[1] != 2*time.Second {
		t.Errorf("unexpected backoff schedule: %v", sleeps)
	}
}

func TestVerify_SearchExhaustionFails(t *testing.T) {
	search := &mockSearch{failures: 10}
	st := store.NewMemoryStore()
	e := newTestEngine(t, nil, search, nil, st)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{})
	if !IsKind(err, KindSearch) {
		t.Fatalf("expected SearchFailure, got %v", err)
	}
	if search.callCount() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", search.callCount())
	}
	if cp.State != model.StateFailed {
		t.Errorf("expected FAILED, got %s", cp.State)
	}
	if cp.Failure == nil || cp.Failure.Kind != string(KindSearch) {
		t.Fatalf("expected failure kind on checkpoint, got %+v", cp.Failure)
	}
	if cp.Failure.LastState != model.StateSearching {
		t.Errorf("expected last state SEARCHING, got %s", cp.Failure.LastState)
	}

	// Terminal state is durable.
	persisted, err := st.Load(context.Background(), cp.SessionID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if persisted.State != model.StateFailed {
		t.Errorf("expected FAILED persisted, got %s", persisted.State)
	}
}

// blockingSearch parks until the call's context dies.
type blockingSearch struct{}

func (blockingSearch) Name() string { return "blocksearch" }

func (blockingSearch) Search(ctx context.Context, query string, maxResults int) (*provider.SearchResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// ctxCheckingStore rejects writes on an already-dead context, the way a
// real database driver does.
type ctxCheckingStore struct {
	*store.MemoryStore
}

func (s ctxCheckingStore) Save(ctx context.Context, cp model.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.Save(ctx, cp)
}

func TestVerify_CallerCancellationPersistsFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	st := ctxCheckingStore{mem}
	e := newTestEngine(t, nil, blockingSearch{}, nil, st)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	cp, err := e.Verify(ctx, scenarioClaim, Options{})
	if !IsKind(err, KindCancelled) {
		t.Fatalf("expected a cancellation error, got %v", err)
	}
	if cp == nil || cp.State != model.StateFailed {
		t.Fatalf("unexpected final checkpoint: %+v", cp)
	}

	// The terminal checkpoint must land even though the caller's context
	// was dead when it was written.
	persisted, err := mem.Load(context.Background(), cp.SessionID)
	if err != nil {
		t.Fatalf("load persisted checkpoint: %v", err)
	}
	if persisted.State != model.StateFailed {
		t.Errorf("expected FAILED persisted, got %s", persisted.State)
	}
	if persisted.Failure == nil || persisted.Failure.Kind != string(KindCancelled) {
		t.Fatalf("unexpected persisted failure: %+v", persisted.Failure)
	}
}

func TestVerify_AnalysisFailureDegradesToUnknown(t *testing.T) {
	search := &mockSearch{resp: scenarioResponse()}
	analysis := &mockAnalysis{err: fmt.Errorf("model overloaded")}
	e := newTestEngine(t, nil, search, analysis, nil)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{})
	if err != nil {
		t.Fatalf("verify should tolerate analysis failure, got %v", err)
	}
	if cp.State != model.StateCompleted {
		t.Errorf("expected COMPLETED, got %s", cp.State)
	}
	for _, src := range cp.Sources {
		if src.Stance != model.StanceUnknown {
			t.Errorf("expected UNKNOWN stance for %s, got %s", src.Domain, src.Stance)
		}
	}
	// Verdict is unaffected by stances.
	if cp.Verdict.Label != model.LabelVerified {
		t.Errorf("expected VERIFIED, got %s", cp.Verdict.Label)
	}
}

func TestVerify_MalformedURLsDropped(t *testing.T) {
	search := &mockSearch{resp: &provider.SearchResponse{
		Results: []provider.SearchResult{
			{URL: "://garbage", Title: "bad"},
			{URL: "https://www.insee.fr/x", Title: "good"},
		},
	}}
	e := newTestEngine(t, nil, search, nil, nil)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if len(cp.Sources) != 1 {
		t.Fatalf("expected malformed URL dropped, got %d sources", len(cp.Sources))
	}
	if cp.Sources[0].Domain != "insee.fr" {
		t.Errorf("unexpected surviving source: %s", cp.Sources[0].Domain)
	}
}

func TestVerify_MaxSourcesCap(t *testing.T) {
	var results []provider.SearchResult
	for i := 0; i < 10; i++ {
		results = append(results, provider.SearchResult{
			URL: fmt.Sprintf("https://site%d.example/page", i), Title: "t",
		})
	}
	search := &mockSearch{resp: &provider.SearchResponse{Results: results}}
	e := newTestEngine(t, nil, search, nil, nil)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{MaxSources: 4})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if len(cp.Sources) != 4 {
		t.Errorf("expected 4 sources, got %d", len(cp.Sources))
	}
}

func TestVerify_CacheHitSkipsProviders(t *testing.T) {
	cfg := scenarioConfig()
	search := &mockSearch{resp: scenarioResponse()}
	analysis := &mockAnalysis{}
	claims := cache.NewClaimCache(cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	st := store.NewMemoryStore()
	e, err := New(Params{
		Config:      cfg,
		Search:      search,
		Analysis:    analysis,
		Claims:      claims,
		Checkpoints: st,
	}, WithSleep(func(ctx context.Context, d time.Duration) error { return nil }))
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}

	first, err := e.Verify(context.Background(), scenarioClaim, Options{})
	if err != nil {
		t.Fatalf("first verify failed: %v", err)
	}
	// Same claim, different surrounding whitespace: same normalized key.
	second, err := e.Verify(context.Background(), "  La France a 67   millions d'habitants ", Options{})
	if err != nil {
		t.Fatalf("second verify failed: %v", err)
	}

	if search.callCount() != 1 {
		t.Errorf("expected a single search call across both runs, got %d", search.callCount())
	}
	if analysis.calls != 1 {
		t.Errorf("expected a single analysis call across both runs, got %d", analysis.calls)
	}
	if second.Verdict.Label != first.Verdict.Label || second.Verdict.Confidence != first.Verdict.Confidence {
		t.Errorf("cached run diverged: %s/%d vs %s/%d",
			second.Verdict.Label, second.Verdict.Confidence, first.Verdict.Label, first.Verdict.Confidence)
	}
	if second.State != model.StateCompleted {
		t.Errorf("expected COMPLETED, got %s", second.State)
	}
}

func TestVerify_HITLSuspendsDurably(t *testing.T) {
	search := &mockSearch{resp: scenarioResponse()}
	st := store.NewMemoryStore()
	e := newTestEngine(t, nil, search, nil, st)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{HITL: true})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if cp.State != model.StateAwaitingReview {
		t.Fatalf("expected AWAITING_REVIEW, got %s", cp.State)
	}
	if cp.Verdict == nil {
		t.Fatal("expected a computed verdict before suspension")
	}

	// The suspension must already be durable when Verify returns.
	persisted, err := st.Load(context.Background(), cp.SessionID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if persisted.State != model.StateAwaitingReview {
		t.Errorf("expected AWAITING_REVIEW persisted, got %s", persisted.State)
	}
	if persisted.Verdict == nil || persisted.Verdict.Confidence != cp.Verdict.Confidence {
		t.Errorf("persisted verdict diverges from returned snapshot")
	}
}

func TestResume_ApproveAfterRestart(t *testing.T) {
	search := &mockSearch{resp: scenarioResponse()}
	st := store.NewMemoryStore()
	e := newTestEngine(t, nil, search, nil, st)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{HITL: true})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	// Fresh engine over the same store simulates a process restart.
	restarted := newTestEngine(t, nil, &mockSearch{}, nil, st)

	v, err := restarted.Resume(context.Background(), cp.SessionID, ReviewDecision{Approve: true})
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if v.Label != cp.Verdict.Label || v.Confidence != cp.Verdict.Confidence {
		t.Errorf("approval changed the verdict: %s/%d", v.Label, v.Confidence)
	}

	final, err := restarted.GetStatus(context.Background(), cp.SessionID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if final.State != model.StateCompleted {
		t.Errorf("expected COMPLETED, got %s", final.State)
	}
	if final.OriginalVerdict != nil {
		t.Error("approval should not record an original verdict")
	}
}

func TestResume_ReviseKeepsOriginal(t *testing.T) {
	search := &mockSearch{resp: scenarioResponse()}
	st := store.NewMemoryStore()
	e := newTestEngine(t, nil, search, nil, st)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{HITL: true})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	v, err := e.Resume(context.Background(), cp.SessionID, ReviewDecision{
		Label:      model.LabelPartiallyVerified,
		Confidence: 60,
		Note:       "second institutional source is a press release",
	})
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if v.Label != model.LabelPartiallyVerified || v.Confidence != 60 || !v.Revised {
		t.Errorf("revision not applied: %+v", v)
	}

	final, err := e.GetStatus(context.Background(), cp.SessionID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if final.OriginalVerdict == nil || final.OriginalVerdict.Label != model.LabelVerified {
		t.Errorf("original verdict not preserved: %+v", final.OriginalVerdict)
	}
	if final.Verdict.ReviewerNote == "" {
		t.Error("expected reviewer note on the final verdict")
	}
}

func TestResume_Idempotent(t *testing.T) {
	search := &mockSearch{resp: scenarioResponse()}
	st := store.NewMemoryStore()
	e := newTestEngine(t, nil, search, nil, st)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{HITL: true})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	first, err := e.Resume(context.Background(), cp.SessionID, ReviewDecision{Approve: true})
	if err != nil {
		t.Fatalf("first resume failed: %v", err)
	}
	second, err := e.Resume(context.Background(), cp.SessionID, ReviewDecision{Approve: true})
	if err != nil {
		t.Fatalf("second serialized resume should be idempotent, got %v", err)
	}
	if first.Label != second.Label || first.Confidence != second.Confidence {
		t.Errorf("verdicts diverged: %s/%d vs %s/%d",
			first.Label, first.Confidence, second.Label, second.Confidence)
	}
}

func TestResume_PrunesSessionLock(t *testing.T) {
	search := &mockSearch{resp: scenarioResponse()}
	e := newTestEngine(t, nil, search, nil, nil)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{HITL: true})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := e.Resume(context.Background(), cp.SessionID, ReviewDecision{Approve: true}); err != nil {
		t.Fatalf("resume: %v", err)
	}

	e.mu.Lock()
	locks := len(e.resumes)
	e.mu.Unlock()
	if locks != 0 {
		t.Errorf("expected session locks pruned after finalize, got %d entries", locks)
	}
}

func TestResume_ConflictAfterConcurrentFinalize(t *testing.T) {
	search := &mockSearch{resp: scenarioResponse()}
	st := store.NewMemoryStore()
	e := newTestEngine(t, nil, search, nil, st)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{HITL: true})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	// Another writer advances the checkpoint between load and CAS,
	// mimicking a second reviewer who won the race.
	stale := *cp
	stale.Step = cp.Step + 1
	stale.State = model.StateFailed
	stale.Failure = &model.Failure{Kind: string(KindCancelled), LastState: cp.State}
	if err := st.CASUpdate(context.Background(), stale, cp.Step); err != nil {
		t.Fatalf("setup cas failed: %v", err)
	}

	_, err = e.Resume(context.Background(), cp.SessionID, ReviewDecision{Approve: true})
	if !IsKind(err, KindConflict) {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestResume_NotAwaitingReview(t *testing.T) {
	search := &mockSearch{resp: scenarioResponse()}
	e := newTestEngine(t, nil, search, nil, nil)

	_, err := e.Resume(context.Background(), "unknown-session", ReviewDecision{Approve: true})
	if !IsKind(err, KindValidation) {
		t.Errorf("expected ValidationError for unknown session, got %v", err)
	}
}

func TestCancel_AwaitingReview(t *testing.T) {
	search := &mockSearch{resp: scenarioResponse()}
	st := store.NewMemoryStore()
	e := newTestEngine(t, nil, search, nil, st)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{HITL: true})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if err := e.Cancel(context.Background(), cp.SessionID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	final, err := e.GetStatus(context.Background(), cp.SessionID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if final.State != model.StateFailed {
		t.Fatalf("expected FAILED after cancel, got %s", final.State)
	}
	if final.Failure == nil || final.Failure.Kind != string(KindCancelled) {
		t.Errorf("expected cancelled failure, got %+v", final.Failure)
	}

	// A cancelled session cannot be resumed.
	_, err = e.Resume(context.Background(), cp.SessionID, ReviewDecision{Approve: true})
	if !IsKind(err, KindConflict) {
		t.Errorf("expected ConflictError resuming a cancelled session, got %v", err)
	}
}

func TestCancel_TerminalSession(t *testing.T) {
	search := &mockSearch{resp: scenarioResponse()}
	e := newTestEngine(t, nil, search, nil, nil)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	err = e.Cancel(context.Background(), cp.SessionID)
	if !IsKind(err, KindConflict) {
		t.Errorf("expected ConflictError cancelling a completed session, got %v", err)
	}
}

func TestGetStatus_UnknownSession(t *testing.T) {
	e := newTestEngine(t, nil, &mockSearch{}, nil, nil)

	_, err := e.GetStatus(context.Background(), "nope")
	if !IsKind(err, KindValidation) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestVerify_CheckpointEveryTransition(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Engine.CheckpointEvery = true
	search := &mockSearch{resp: scenarioResponse()}
	st := store.NewMemoryStore()
	e := newTestEngine(t, cfg, search, nil, st)

	cp, err := e.Verify(context.Background(), scenarioClaim, Options{})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	history, err := st.History(context.Background(), cp.SessionID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	// CREATED through COMPLETED, one checkpoint per transition.
	want := []model.State{
		model.StateCreated, model.StateSearching, model.StateSearched,
		model.StateScoring, model.StateScored, model.StateAnalyzing,
		model.StateAnalyzed, model.StateVerdictComputed, model.StateCompleted,
	}
	if len(history) != len(want) {
		t.Fatalf("expected %d checkpoints, got %d", len(want), len(history))
	}
	for i, cp := range history {
		if cp.State != want[i] {
			t.Errorf("step %d: expected %s, got %s", i, want[i], cp.State)
		}
	}
}

func TestVerify_ConcurrentSessions(t *testing.T) {
	search := &mockSearch{resp: scenarioResponse()}
	e := newTestEngine(t, nil, search, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claim := fmt.Sprintf("La France a 67 millions d'habitants selon la source %d", i)
			cp, err := e.Verify(context.Background(), claim, Options{})
			if err != nil {
				errs <- err
				return
			}
			if cp.State != model.StateCompleted {
				errs <- fmt.Errorf("session %s: state %s", cp.SessionID, cp.State)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent verify: %v", err)
	}
}
