package users

import (
	"context"
	"testing"
	"time"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/enums"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	"github.com/JPJPKIMJP/AMLWD/internal/pkg/apperr"
)

type memoryBlocks struct {
	rows map[string]model.BlockRecord
}

func (m *memoryBlocks) Upsert(_ context.Context, rec model.BlockRecord) error {
	if m.rows == nil {
		m.rows = map[string]model.BlockRecord{}
	}
	m.rows[rec.UserID] = rec
	return nil
}

func (m *memoryBlocks) Delete(_ context.Context, userID string) (bool, error) {
	_, ok := m.rows[userID]
	delete(m.rows, userID)
	return ok, nil
}

type claimGate struct{}

func (claimGate) RequireAdmin(_ context.Context, r model.Requester) error {
	if !r.AdminClaim {
		return apperr.New(apperr.PermissionDenied, "Admin access required")
	}
	return nil
}

type captureNotifier struct {
	severities []enums.AlertSeverity
}

func (c *captureNotifier) Notify(_ context.Context, _, _ string, severity enums.AlertSeverity) {
	c.severities = append(c.severities, severity)
}

type memoryPremium map[string]bool

func (m memoryPremium) SetPremium(_ context.Context, userID string, premium bool) error {
	m[userID] = premium
	return nil
}

var admin = model.Requester{UserID: "admin-1", AdminClaim: true}

func hours(n int) *int { return &n }

func newTestService() (*Service, *memoryBlocks, *captureNotifier) {
	blocks := &memoryBlocks{}
	notifier := &captureNotifier{}
	svc := NewService(blocks, memoryPremium{}, claimGate{}, notifier, nil)
	now := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, blocks, notifier
}

func TestManageRequiresAdmin(t *testing.T) {
	svc, blocks, _ := newTestService()
	_, err := svc.Manage(context.Background(), model.Requester{UserID: "plain"}, ManageInput{UserID: "u2", Action: enums.ManageActionBlock})
	if apperr.CodeOf(err) != apperr.PermissionDenied {
		t.Fatalf("expected permission-denied, got %v", err)
	}
	if len(blocks.rows) != 0 {
		t.Fatalf("non-admin call must not write")
	}
}

func TestManageBlockVariants(t *testing.T) {
	svc, blocks, notifier := newTestService()
	ctx := context.Background()

	if _, err := svc.Manage(ctx, admin, ManageInput{UserID: "perm", Action: enums.ManageActionBlock, Reason: "spam"}); err != nil {
		t.Fatalf("block: %v", err)
	}
	if rec := blocks.rows["perm"]; !rec.PermanentBan || rec.SuspendedUntil != nil || rec.BlockedBy != "admin-1" {
		t.Fatalf("unexpected permanent record: %+v", rec)
	}

	res, err := svc.Manage(ctx, admin, ManageInput{UserID: "timed", Action: enums.ManageActionBlock, DurationHours: hours(48)})
	if err != nil {
		t.Fatalf("timed block: %v", err)
	}
	want := time.Date(2026, 1, 4, 3, 0, 0, 0, time.UTC)
	if rec := blocks.rows["timed"]; rec.PermanentBan || rec.SuspendedUntil == nil || !rec.SuspendedUntil.Equal(want) {
		t.Fatalf("unexpected timed record: %+v", rec)
	}
	if res.SuspendedUntil == nil || !res.SuspendedUntil.Equal(want) {
		t.Fatalf("result must carry suspension end")
	}

	if _, err := svc.Manage(ctx, admin, ManageInput{UserID: "susp", Action: enums.ManageActionSuspend}); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if rec := blocks.rows["susp"]; rec.SuspendedUntil == nil || !rec.SuspendedUntil.Equal(time.Date(2026, 1, 3, 3, 0, 0, 0, time.UTC)) {
		t.Fatalf("suspend must default to 24h: %+v", rec)
	}

	res, err = svc.Manage(ctx, admin, ManageInput{UserID: "perm", Action: enums.ManageActionUnblock})
	if err != nil || !res.Removed {
		t.Fatalf("unblock: removed=%v err=%v", res.Removed, err)
	}
	if _, ok := blocks.rows["perm"]; ok {
		t.Fatalf("unblock must delete the record")
	}

	if len(notifier.severities) != 4 {
		t.Fatalf("expected an info alert per action, got %d", len(notifier.severities))
	}
	for _, s := range notifier.severities {
		if s != enums.AlertSeverityInfo {
			t.Fatalf("unexpected severity %q", s)
		}
	}
}

func TestManageRejectsInvalidInput(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []ManageInput{
		{UserID: "", Action: enums.ManageActionBlock},
		{UserID: "u", Action: "delete"},
		{UserID: "u", Action: enums.ManageActionSuspend, DurationHours: hours(0)},
		{UserID: "u", Action: enums.ManageActionSuspend, DurationHours: hours(24 * 400)},
	}
	for _, in := range cases {
		if _, err := svc.Manage(ctx, admin, in); apperr.CodeOf(err) != apperr.InvalidArgument {
			t.Fatalf("expected invalid-argument for %+v, got %v", in, err)
		}
	}
}

func TestSetPremium(t *testing.T) {
	premium := memoryPremium{}
	svc := NewService(&memoryBlocks{}, premium, claimGate{}, nil, nil)

	if err := svc.SetPremium(context.Background(), admin, "u9", true); err != nil {
		t.Fatalf("set premium: %v", err)
	}
	if !premium["u9"] {
		t.Fatalf("premium flag not stored")
	}
	if err := svc.SetPremium(context.Background(), model.Requester{UserID: "x"}, "u9", false); apperr.CodeOf(err) != apperr.PermissionDenied {
		t.Fatalf("expected permission-denied, got %v", err)
	}
}
