package cron

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
)

type stubRetentionRepo struct {
	deleted   int64
	gotCutoff time.Time
}

func (s *stubRetentionRepo) DeletePublishedBefore(cutoff time.Time) (int64, error) {
	s.gotCutoff = cutoff
	return s.deleted, nil
}

func TestOutboxRetentionJobUsesRetentionWindow(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	repo := &stubRetentionRepo{deleted: 12}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logg,
		Repository: repo,
		Retention:  48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run job: %v", err)
	}
	earliest := time.Now().UTC().Add(-49 * time.Hour)
	latest := time.Now().UTC().Add(-47 * time.Hour)
	if repo.gotCutoff.Before(earliest) || repo.gotCutoff.After(latest) {
		t.Fatalf("cutoff %v outside expected window", repo.gotCutoff)
	}
}
