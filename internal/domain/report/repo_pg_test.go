package report

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/db/dbtest"
)

func TestRepoPG_UpsertByDateAndOwner(t *testing.T) {
	pool := dbtest.Open(t)
	repo := NewRepoPG(pool)
	ctx := context.Background()
	owner := dbtest.CreateUser(t, pool, "morales@example.com")

	first := "mem/reporte_2024-06-10_1.pdf"
	rep := &Report{Date: "2024-06-10", OwnerID: owner, FilePath: &first, TotalAppointments: 3,
		TotalIncome: decimal.RequireFromString("500.00"), TotalExpenses: decimal.RequireFromString("120.50"),
		Balance: decimal.RequireFromString("379.50")}
	if err := repo.Upsert(ctx, rep); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	sentAt := time.Date(2024, 6, 10, 20, 1, 0, 0, time.UTC)
	if err := repo.MarkSent(ctx, owner, rep.ID, sentAt); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	second := "mem/reporte_2024-06-10_2.pdf"
	again := &Report{Date: "2024-06-10", OwnerID: owner, FilePath: &second, TotalAppointments: 5,
		TotalIncome: decimal.RequireFromString("600"), TotalExpenses: decimal.Zero, Balance: decimal.RequireFromString("600")}
	if err := repo.Upsert(ctx, again); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != rep.ID {
		t.Errorf("expected same row, got %s and %s", rep.ID, again.ID)
	}
	if !again.SentToOwner || again.SentAt == nil || !again.SentAt.Equal(sentAt) {
		t.Errorf("expected sent state preserved, got %v %v", again.SentToOwner, again.SentAt)
	}

	got, err := repo.GetByDate(ctx, owner, "2024-06-10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalAppointments != 5 || got.Balance.StringFixed(2) != "600.00" || *got.FilePath != second {
		t.Errorf("expected refreshed stats, got %+v", got)
	}
	items, total, err := repo.List(ctx, owner, ListFilter{}, 10, 0)
	if err != nil || total != 1 || len(items) != 1 {
		t.Errorf("expected a single report row, got %d %v", total, err)
	}
}
