package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JPJPKIMJP/AMLWD/internal/config"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/enums"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	"github.com/JPJPKIMJP/AMLWD/internal/pkg/apperr"
	"github.com/JPJPKIMJP/AMLWD/internal/services/audit"
	"github.com/JPJPKIMJP/AMLWD/internal/services/inference"
	"github.com/JPJPKIMJP/AMLWD/internal/services/validation"
)

type stubGate struct {
	err   error
	admin bool
}

func (g stubGate) Check(context.Context, model.Requester) error { return g.err }

func (g stubGate) IsAdmin(context.Context, model.Requester) bool { return g.admin }

type stubModerator struct{ err error }

func (m stubModerator) CheckPrompt(context.Context, model.Requester, string) error { return m.err }

type recordingLimits struct {
	mu       sync.Mutex
	calls    []string
	ipErr    error
	dailyErr error
	admin    bool
}

func (l *recordingLimits) record(step string) {
	l.mu.Lock()
	l.calls = append(l.calls, step)
	l.mu.Unlock()
}

func (l *recordingLimits) ConsumeIP(context.Context, model.Requester) error {
	l.record("ip")
	return l.ipErr
}

func (l *recordingLimits) ConsumeBurst(context.Context, model.Requester) error {
	l.record("burst")
	return nil
}

func (l *recordingLimits) ConsumeDaily(_ context.Context, _ model.Requester, isAdmin bool) error {
	l.record("daily")
	l.admin = isAdmin
	return l.dailyErr
}

type stubGenerator struct {
	configured bool
	result     inference.Result
	err        error
	calls      int
	delay      func()
}

func (g *stubGenerator) Configured() bool { return g.configured }

func (g *stubGenerator) Generate(context.Context, model.GenerationParams) (inference.Result, error) {
	g.calls++
	if g.delay != nil {
		g.delay()
	}
	return g.result, g.err
}

type recordingAuditor struct {
	mu   sync.Mutex
	rows []model.GenerationAttempt
}

func (a *recordingAuditor) Record(_ context.Context, attempt model.GenerationAttempt) {
	a.mu.Lock()
	a.rows = append(a.rows, attempt)
	a.mu.Unlock()
}

type failingStore struct{ calls int }

func (s *failingStore) Insert(context.Context, model.GenerationAttempt) error {
	s.calls++
	return errors.New("relation generation_attempts does not exist")
}

type flatCost struct{}

func (flatCost) EstimatedCost(n int) float64 { return float64(n) * 0.003 }

type captureNotifier struct{ titles []string }

func (c *captureNotifier) Notify(_ context.Context, title, _ string, _ enums.AlertSeverity) {
	c.titles = append(c.titles, title)
}

type fixture struct {
	svc       *Service
	limits    *recordingLimits
	generator *stubGenerator
	auditor   *recordingAuditor
	notifier  *captureNotifier
}

func newFixture(gate stubGate) *fixture {
	f := &fixture{
		limits:    &recordingLimits{},
		generator: &stubGenerator{configured: true, result: inference.Result{Images: [][]byte{[]byte("A")}, Seed: 99, Polls: 2}},
		auditor:   &recordingAuditor{},
		notifier:  &captureNotifier{},
	}
	f.svc = NewService(Deps{
		Gate:      gate,
		Validator: validation.NewValidator(config.Default().Generation),
		Moderator: stubModerator{},
		Limits:    f.limits,
		Generator: f.generator,
		Auditor:   f.auditor,
		Costs:     flatCost{},
		Notifier:  f.notifier,
	}, 30*time.Second, nil)
	return f
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

var caller = model.Requester{UserID: "u1", Email: "u1@example.com", IP: "10.0.0.1"}

func TestGenerateSuccessWritesOneAuditRecord(t *testing.T) {
	f := newFixture(stubGate{})
	fixedID := uuid.MustParse("00000000-0000-0000-0000-000000000042")
	f.svc.newID = func() uuid.UUID { return fixedID }

	res, err := f.svc.Generate(context.Background(), caller, validation.RawParams{Prompt: strPtr("a red fox")})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.AttemptID != fixedID || res.Seed != 99 || string(res.Images[0]) != "A" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if len(f.auditor.rows) != 1 {
		t.Fatalf("expected exactly one audit record, got %d", len(f.auditor.rows))
	}
	row := f.auditor.rows[0]
	if !row.Success || row.ID != fixedID || row.UserID != "u1" || row.IP != "10.0.0.1" {
		t.Fatalf("unexpected audit row: %+v", row)
	}
	if row.Params.Width != 512 || row.Params.Steps != 20 {
		t.Fatalf("audit row must carry validated params: %+v", row.Params)
	}
	if row.EstimatedCost != 0.003 {
		t.Fatalf("unexpected estimated cost %v", row.EstimatedCost)
	}
	if got := f.limits.calls; len(got) != 3 || got[0] != "ip" || got[1] != "burst" || got[2] != "daily" {
		t.Fatalf("unexpected limit order: %v", got)
	}
}

func TestGenerateFailuresAreAuditedOnce(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *fixture)
		raw   validation.RawParams
		code  apperr.Code
	}{
		{
			name:  "gate",
			setup: func(f *fixture) {},
			raw:   validation.RawParams{Prompt: strPtr("a red fox")},
			code:  apperr.PermissionDenied,
		},
		{
			name:  "validation",
			setup: func(f *fixture) {},
			raw:   validation.RawParams{Prompt: strPtr("a red fox"), Width: intPtr(333)},
			code:  apperr.InvalidArgument,
		},
		{
			name:  "quota",
			setup: func(f *fixture) { f.limits.dailyErr = apperr.New(apperr.ResourceExhausted, "Daily limit of 10 images reached") },
			raw:   validation.RawParams{Prompt: strPtr("a red fox")},
			code:  apperr.ResourceExhausted,
		},
		{
			name:  "not configured",
			setup: func(f *fixture) { f.generator.configured = false },
			raw:   validation.RawParams{Prompt: strPtr("a red fox")},
			code:  apperr.FailedPrecondition,
		},
		{
			name:  "timeout",
			setup: func(f *fixture) { f.generator.err = apperr.New(apperr.DeadlineExceeded, "Generation timed out") },
			raw:   validation.RawParams{Prompt: strPtr("a red fox")},
			code:  apperr.DeadlineExceeded,
		},
		{
			name:  "foreign provider error",
			setup: func(f *fixture) { f.generator.err = errors.New("connection reset by peer") },
			raw:   validation.RawParams{Prompt: strPtr("a red fox")},
			code:  apperr.Internal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate := stubGate{}
			if tc.name == "gate" {
				gate.err = apperr.New(apperr.PermissionDenied, "Account suspended")
			}
			f := newFixture(gate)
			tc.setup(f)

			_, err := f.svc.Generate(context.Background(), caller, tc.raw)
			if apperr.CodeOf(err) != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if len(f.auditor.rows) != 1 {
				t.Fatalf("expected exactly one audit record, got %d", len(f.auditor.rows))
			}
			row := f.auditor.rows[0]
			if row.Success || row.ErrorCode != string(tc.code) {
				t.Fatalf("unexpected audit row: %+v", row)
			}
			if row.Params.Prompt != "a red fox" {
				t.Fatalf("audit row must keep the prompt, got %q", row.Params.Prompt)
			}
		})
	}
}

func TestValidationFailureDoesNotConsumeQuota(t *testing.T) {
	f := newFixture(stubGate{})
	_, err := f.svc.Generate(context.Background(), caller, validation.RawParams{Prompt: strPtr("hi")})
	if apperr.CodeOf(err) != apperr.InvalidArgument {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
	if len(f.limits.calls) != 0 || f.generator.calls != 0 {
		t.Fatalf("nothing may be consumed after a validation failure: limits=%v generator=%d", f.limits.calls, f.generator.calls)
	}
}

func TestModerationRejectionStopsBeforeLimits(t *testing.T) {
	f := newFixture(stubGate{})
	f.svc.deps.Moderator = stubModerator{err: apperr.New(apperr.InvalidArgument, "Prompt contains inappropriate content")}

	_, err := f.svc.Generate(context.Background(), caller, validation.RawParams{Prompt: strPtr("a red fox")})
	if apperr.CodeOf(err) != apperr.InvalidArgument {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
	if len(f.limits.calls) != 0 {
		t.Fatalf("moderation rejection must not consume limits: %v", f.limits.calls)
	}
}

func TestProviderFailureKeepsConsumedQuota(t *testing.T) {
	f := newFixture(stubGate{})
	f.generator.err = apperr.New(apperr.Internal, "Generation failed: CUDA out of memory")

	_, err := f.svc.Generate(context.Background(), caller, validation.RawParams{Prompt: strPtr("a red fox")})
	if apperr.CodeOf(err) != apperr.Internal {
		t.Fatalf("expected internal, got %v", err)
	}
	if len(f.limits.calls) != 3 {
		t.Fatalf("quota must be consumed before the provider call: %v", f.limits.calls)
	}
}

func TestAdminFlagReachesDailyQuota(t *testing.T) {
	f := newFixture(stubGate{admin: true})
	if _, err := f.svc.Generate(context.Background(), caller, validation.RawParams{Prompt: strPtr("a red fox")}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !f.limits.admin {
		t.Fatalf("admin flag must be passed to the daily quota")
	}
}

func TestAuditFailureDoesNotChangeResult(t *testing.T) {
	f := newFixture(stubGate{})
	failing := &failingStore{}
	f.svc.deps.Auditor = audit.NewRecorder(failing, nil)

	res, err := f.svc.Generate(context.Background(), caller, validation.RawParams{Prompt: strPtr("a red fox")})
	if err != nil || len(res.Images) != 1 {
		t.Fatalf("unexpected result with failing auditor: %+v err=%v", res, err)
	}
	if failing.calls != 1 {
		t.Fatalf("expected one audit attempt, got %d", failing.calls)
	}
}

func TestSlowGenerationRaisesAlert(t *testing.T) {
	f := newFixture(stubGate{})
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return clock }
	f.generator.delay = func() { clock = clock.Add(45 * time.Second) }

	if _, err := f.svc.Generate(context.Background(), caller, validation.RawParams{Prompt: strPtr("a red fox")}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(f.notifier.titles) != 1 || f.notifier.titles[0] != "Slow image generation" {
		t.Fatalf("expected slow generation alert, got %v", f.notifier.titles)
	}
	if f.auditor.rows[0].ProcessingMS != 45000 {
		t.Fatalf("unexpected processing time %d", f.auditor.rows[0].ProcessingMS)
	}
}
