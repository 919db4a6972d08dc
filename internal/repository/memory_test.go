package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"climate-odds/internal/models"
)

func runningJob(id, userID string, createdAt time.Time) *models.AnalyzeJob {
	return &models.AnalyzeJob{
		ID:        id,
		UserID:    userID,
		Status:    models.StatusRunning,
		CreatedAt: createdAt,
	}
}

func TestMemoryJobRepository_UpdateIsOneShot(t *testing.T) {
	repo := NewMemoryJobRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, runningJob("j1", "u1", time.Now().UTC())); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	hash := "deadbeef"
	outcome := models.JobOutcome{
		Status:         models.StatusOK,
		Result:         []byte(`{"ok":true}`),
		ResultHash:     &hash,
		DurationMs:     42,
		ResponseStatus: 200,
	}
	if err := repo.Update(ctx, "j1", outcome); err != nil {
		t.Fatalf("first Update() error = %v", err)
	}

	job, err := repo.GetByID(ctx, "j1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if job.Status != models.StatusOK {
		t.Errorf("Status = %v, want ok", job.Status)
	}
	if job.DurationMs == nil || *job.DurationMs != 42 {
		t.Errorf("DurationMs = %v, want 42", job.DurationMs)
	}

	// A terminal job must reject any further transition.
	err = repo.Update(ctx, "j1", models.JobOutcome{Status: models.StatusError})
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("second Update() error = %v, want *NotFoundError", err)
	}

	job, _ = repo.GetByID(ctx, "j1")
	if job.Status != models.StatusOK {
		t.Errorf("Status after rejected update = %v, want ok", job.Status)
	}
}

func TestMemoryJobRepository_UpdateUnknownID(t *testing.T) {
	repo := NewMemoryJobRepository()

	err := repo.Update(context.Background(), "missing", models.JobOutcome{Status: models.StatusOK})
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("Update() error = %v, want *NotFoundError", err)
	}
	if nfErr.IsTransient() {
		t.Error("NotFoundError should not be transient")
	}
}

func TestMemoryJobRepository_GetReturnsCopy(t *testing.T) {
	repo := NewMemoryJobRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, runningJob("j1", "u1", time.Now().UTC())); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	job, _ := repo.GetByID(ctx, "j1")
	job.Status = models.StatusError

	stored, _ := repo.GetByID(ctx, "j1")
	if stored.Status != models.StatusRunning {
		t.Errorf("stored Status = %v, caller mutation must not leak into the store", stored.Status)
	}
}

func TestMemoryJobRepository_ListByOwner(t *testing.T) {
	repo := NewMemoryJobRepository()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i, row := range []struct {
		id    string
		owner string
	}{
		{"a", "u1"}, {"b", "u2"}, {"c", "u1"}, {"d", "u1"},
	} {
		if err := repo.Create(ctx, runningJob(row.id, row.owner, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Create(%s) error = %v", row.id, err)
		}
	}

	jobs, total, err := repo.ListByOwner(ctx, "u1", 2, 0)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(jobs) != 2 || jobs[0].ID != "d" || jobs[1].ID != "c" {
		t.Errorf("page 1 = %v, want [d c]", jobIDs(jobs))
	}

	jobs, _, _ = repo.ListByOwner(ctx, "u1", 2, 2)
	if len(jobs) != 1 || jobs[0].ID != "a" {
		t.Errorf("page 2 = %v, want [a]", jobIDs(jobs))
	}

	jobs, total, _ = repo.ListByOwner(ctx, "u1", 2, 10)
	if total != 3 || len(jobs) != 0 {
		t.Errorf("offset beyond total: jobs = %v, total = %d", jobIDs(jobs), total)
	}

	_, total, _ = repo.ListByOwner(ctx, "nobody", 10, 0)
	if total != 0 {
		t.Errorf("unknown owner total = %d, want 0", total)
	}
}

func TestMemoryJobRepository_InsertionOrderBreaksTimestampTies(t *testing.T) {
	repo := NewMemoryJobRepository()
	ctx := context.Background()
	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"first", "second", "third"} {
		if err := repo.Create(ctx, runningJob(id, "u1", at)); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	jobs, _, err := repo.ListByOwner(ctx, "u1", 10, 0)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	want := []string{"third", "second", "first"}
	got := jobIDs(jobs)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func jobIDs(jobs []*models.AnalyzeJob) []string {
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids
}
