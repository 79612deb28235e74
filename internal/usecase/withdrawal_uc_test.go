//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"fitness-subscription-platform/internal/domain"
	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/usecase"
)

func TestWithdrawal_Request(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending request", func(t *testing.T) {
		repo := NewMockWithdrawalRepo()
		uc := usecase.NewWithdrawalUseCase(repo, newTestLogger())

		w, err := uc.Request(ctx, "trainer-1", 150000)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if w.Status != model.WithdrawalStatusPending {
			t.Errorf("expected pending, got %s", w.Status)
		}
		if w.AmountMinor != 150000 || w.TrainerID != "trainer-1" {
			t.Error("request must carry trainer and amount")
		}
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		uc := usecase.NewWithdrawalUseCase(NewMockWithdrawalRepo(), newTestLogger())
		for _, amount := range []int64{0, -5} {
			if _, err := uc.Request(ctx, "trainer-1", amount); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("amount %d: expected ErrInvalidArgument, got %v", amount, err)
			}
		}
	})
}

func TestWithdrawal_ApproveAndReject(t *testing.T) {
	ctx := context.Background()

	t.Run("approve records the actor", func(t *testing.T) {
		repo := NewMockWithdrawalRepo()
		uc := usecase.NewWithdrawalUseCase(repo, newTestLogger())
		w, _ := uc.Request(ctx, "trainer-1", 150000)

		approved, err := uc.Approve(ctx, w.ID, "admin-1")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if approved.Status != model.WithdrawalStatusApproved {
			t.Errorf("expected approved, got %s", approved.Status)
		}
		if approved.ProcessedBy == nil || *approved.ProcessedBy != "admin-1" {
			t.Error("approval must record the processing admin")
		}
		if approved.ProcessedAt == nil {
			t.Error("approval must record the processing time")
		}
	})

	t.Run("terminal states never move again", func(t *testing.T) {
		repo := NewMockWithdrawalRepo()
		uc := usecase.NewWithdrawalUseCase(repo, newTestLogger())
		w, _ := uc.Request(ctx, "trainer-1", 150000)

		if _, err := uc.Approve(ctx, w.ID, "admin-1"); err != nil {
			t.Fatalf("first approve: %v", err)
		}
		// A second admin racing on the same request: both directions must
		// bounce off the terminal state.
		if _, err := uc.Reject(ctx, w.ID, "admin-2"); !errors.Is(err, domain.ErrAlreadyProcessed) {
			t.Errorf("reject after approve: expected ErrAlreadyProcessed, got %v", err)
		}
		if _, err := uc.Approve(ctx, w.ID, "admin-2"); !errors.Is(err, domain.ErrAlreadyProcessed) {
			t.Errorf("double approve: expected ErrAlreadyProcessed, got %v", err)
		}

		stored, _ := repo.FindByID(ctx, nil, w.ID)
		if stored.Status != model.WithdrawalStatusApproved || *stored.ProcessedBy != "admin-1" {
			t.Error("the first decision must stand")
		}
	})

	t.Run("unknown request", func(t *testing.T) {
		uc := usecase.NewWithdrawalUseCase(NewMockWithdrawalRepo(), newTestLogger())
		if _, err := uc.Approve(ctx, "missing", "admin-1"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestWithdrawal_List(t *testing.T) {
	ctx := context.Background()
	repo := NewMockWithdrawalRepo()
	uc := usecase.NewWithdrawalUseCase(repo, newTestLogger())

	w1, _ := uc.Request(ctx, "trainer-1", 100)
	uc.Request(ctx, "trainer-2", 200)
	uc.Approve(ctx, w1.ID, "admin-1")

	pending, err := uc.List(ctx, "pending")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].TrainerID != "trainer-2" {
		t.Errorf("expected only trainer-2's pending request, got %d rows", len(pending))
	}

	all, _ := uc.List(ctx, "")
	if len(all) != 2 {
		t.Errorf("expected 2 rows without filter, got %d", len(all))
	}
}
