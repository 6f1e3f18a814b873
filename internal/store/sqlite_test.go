package store

import (
	"context"
	"testing"

	"github.com/haasonsaas/concierge/pkg/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTenant_UpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tenant := &models.Tenant{ID: "t1", Instructions: "be helpful", Timezone: "Europe/Berlin"}
	if err := s.UpsertTenant(ctx, tenant); err != nil {
		t.Fatalf("UpsertTenant() error = %v", err)
	}

	got, err := s.GetTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTenant() error = %v", err)
	}
	if got.Instructions != "be helpful" || got.Timezone != "Europe/Berlin" {
		t.Errorf("GetTenant() = %+v", got)
	}

	// Upsert overwrites.
	tenant.Instructions = "be terse"
	if err := s.UpsertTenant(ctx, tenant); err != nil {
		t.Fatalf("UpsertTenant() update error = %v", err)
	}
	got, err = s.GetTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTenant() error = %v", err)
	}
	if got.Instructions != "be terse" {
		t.Errorf("instructions = %q, want be terse", got.Instructions)
	}
}

func TestGetTenant_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTenant(context.Background(), "missing")
	if err == nil {
		t.Fatal("GetTenant() expected error")
	}
	if !models.IsNotFound(err) {
		t.Errorf("GetTenant() error = %v, want NOT_FOUND", err)
	}
}

func TestUpsertTenant_DefaultTimezone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.UpsertTenant(ctx, &models.Tenant{ID: "t1"}); err != nil {
		t.Fatalf("UpsertTenant() error = %v", err)
	}
	got, err := s.GetTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTenant() error = %v", err)
	}
	if got.Timezone != "UTC" {
		t.Errorf("timezone = %q, want UTC", got.Timezone)
	}
}

func TestJob_CreateListRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.UpsertTenant(ctx, &models.Tenant{ID: "t1", Timezone: "UTC"}); err != nil {
		t.Fatalf("UpsertTenant() error = %v", err)
	}

	job := &models.Job{TenantID: "t1", Hour: 8, Minute: 30, Prompt: "Good morning"}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if job.ID == 0 {
		t.Fatal("CreateJob() did not assign an id")
	}

	jobs, err := s.ListJobsByTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("ListJobsByTenant() error = %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	got := jobs[0]
	if got.ID != job.ID || got.Hour != 8 || got.Minute != 30 || got.Prompt != "Good morning" {
		t.Errorf("listed job = %+v", got)
	}
}

func TestJob_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tests := []struct {
		name string
		job  *models.Job
	}{
		{"missing tenant", &models.Job{Hour: 8, Minute: 0, Prompt: "x"}},
		{"hour too large", &models.Job{TenantID: "t1", Hour: 24, Minute: 0, Prompt: "x"}},
		{"negative minute", &models.Job{TenantID: "t1", Hour: 0, Minute: -1, Prompt: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.CreateJob(ctx, tt.job); err == nil {
				t.Errorf("CreateJob(%+v) expected error", tt.job)
			}
		})
	}
}

func TestJob_UpdateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.UpsertTenant(ctx, &models.Tenant{ID: "t1"})
	job := &models.Job{TenantID: "t1", Hour: 8, Minute: 30, Prompt: "morning"}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	job.Hour = 9
	job.Prompt = "later morning"
	if err := s.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob() error = %v", err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Hour != 9 || got.Prompt != "later morning" {
		t.Errorf("GetJob() = %+v", got)
	}
}

func TestUpdateJob_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateJob(context.Background(), &models.Job{ID: 999, TenantID: "t1", Hour: 1, Minute: 2, Prompt: "x"})
	if !models.IsNotFound(err) {
		t.Errorf("UpdateJob() error = %v, want NOT_FOUND", err)
	}
}

func TestDeleteJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.UpsertTenant(ctx, &models.Tenant{ID: "t1"})
	job := &models.Job{TenantID: "t1", Hour: 8, Minute: 0, Prompt: "x"}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	if err := s.DeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("DeleteJob() error = %v", err)
	}
	if _, err := s.GetJob(ctx, job.ID); !models.IsNotFound(err) {
		t.Errorf("GetJob() after delete error = %v, want NOT_FOUND", err)
	}

	// Deleting an absent job is a no-op.
	if err := s.DeleteJob(ctx, job.ID); err != nil {
		t.Errorf("DeleteJob() second call error = %v", err)
	}
}

func TestListJobs_AllTenants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.UpsertTenant(ctx, &models.Tenant{ID: "t1"})
	_ = s.UpsertTenant(ctx, &models.Tenant{ID: "t2"})
	for _, j := range []*models.Job{
		{TenantID: "t1", Hour: 8, Minute: 0, Prompt: "a"},
		{TenantID: "t2", Hour: 9, Minute: 15, Prompt: "b"},
	} {
		if err := s.CreateJob(ctx, j); err != nil {
			t.Fatalf("CreateJob() error = %v", err)
		}
	}

	jobs, err := s.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID >= jobs[1].ID {
		t.Errorf("jobs not ordered by id: %d, %d", jobs[0].ID, jobs[1].ID)
	}
}
