package store

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/custos/internal/domain"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testJob(id string) domain.Job {
	return domain.Job{
		ID:            id,
		Database:      "orders",
		Kind:          domain.KindFull,
		Frequency:     domain.FrequencyDaily,
		RetentionDays: 30,
		Active:        true,
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteJobs(t *testing.T) {
	Convey("Given a sqlite store", t, func() {
		ctx := context.Background()
		s := newTestStore(t)
		now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

		Convey("CreateJob and GetJob round-trip", func() {
			job := testJob("job-1")
			So(s.CreateJob(ctx, &job), ShouldBeNil)

			got, err := s.GetJob(ctx, "job-1")
			So(err, ShouldBeNil)
			So(got.Database, ShouldEqual, "orders")
			So(got.Kind, ShouldEqual, domain.KindFull)
			So(got.LastRun, ShouldBeNil)
			So(got.NextRun, ShouldBeNil)
			So(got.Active, ShouldBeTrue)
		})

		Convey("GetJob of an unknown id reports NotFound", func() {
			_, err := s.GetJob(ctx, "nope")
			So(errors.Is(err, domain.ErrNotFound), ShouldBeTrue)
		})

		Convey("ListDueJobs", func() {
			unscheduled := testJob("due-null")
			So(s.CreateJob(ctx, &unscheduled), ShouldBeNil)

			past := testJob("due-past")
			pastRun := now.Add(-time.Hour)
			past.NextRun = &pastRun
			So(s.CreateJob(ctx, &past), ShouldBeNil)

			future := testJob("not-due")
			futureRun := now.Add(time.Hour)
			future.NextRun = &futureRun
			So(s.CreateJob(ctx, &future), ShouldBeNil)

			inactive := testJob("inactive")
			inactive.Active = false
			So(s.CreateJob(ctx, &inactive), ShouldBeNil)

			due, err := s.ListDueJobs(ctx, now)
			So(err, ShouldBeNil)

			ids := make([]string, 0, len(due))
			for _, j := range due {
				ids = append(ids, j.ID)
			}

			Convey("It returns unscheduled and overdue active jobs only", func() {
				So(ids, ShouldContain, "due-null")
				So(ids, ShouldContain, "due-past")
				So(ids, ShouldNotContain, "not-due")
				So(ids, ShouldNotContain, "inactive")
			})
		})

		Convey("SetJobRuns updates bookkeeping columns", func() {
			job := testJob("job-2")
			So(s.CreateJob(ctx, &job), ShouldBeNil)

			last := now
			next := now.Add(24 * time.Hour)
			So(s.SetJobRuns(ctx, "job-2", &last, &next), ShouldBeNil)

			got, err := s.GetJob(ctx, "job-2")
			So(err, ShouldBeNil)
			So(got.LastRun, ShouldNotBeNil)
			So(got.LastRun.Equal(last), ShouldBeTrue)
			So(got.NextRun, ShouldNotBeNil)
			So(got.NextRun.Equal(next), ShouldBeTrue)

			Convey("And an unknown id reports NotFound", func() {
				So(errors.Is(s.SetJobRuns(ctx, "nope", &last, &next), domain.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("DeleteJob removes the row", func() {
			job := testJob("job-3")
			So(s.CreateJob(ctx, &job), ShouldBeNil)
			So(s.DeleteJob(ctx, "job-3"), ShouldBeNil)

			_, err := s.GetJob(ctx, "job-3")
			So(errors.Is(err, domain.ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.DeleteJob(ctx, "job-3"), domain.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestSQLiteBackups(t *testing.T) {
	Convey("Given a sqlite store with a job", t, func() {
		ctx := context.Background()
		s := newTestStore(t)
		now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

		job := testJob("job-1")
		So(s.CreateJob(ctx, &job), ShouldBeNil)

		newBackup := func(id string, createdAt time.Time, status domain.Status) domain.Backup {
			return domain.Backup{
				ID:        id,
				JobID:     job.ID,
				Status:    status,
				StartedAt: createdAt,
				CreatedAt: createdAt,
			}
		}

		Convey("CreateBackup and GetBackup round-trip", func() {
			b := newBackup("b-1", now, domain.StatusPending)
			So(s.CreateBackup(ctx, &b), ShouldBeNil)

			got, err := s.GetBackup(ctx, "b-1")
			So(err, ShouldBeNil)
			So(got.JobID, ShouldEqual, job.ID)
			So(got.Status, ShouldEqual, domain.StatusPending)
			So(got.CompletedAt, ShouldBeNil)
		})

		Convey("UpdateBackup enforces the state machine", func() {
			b := newBackup("b-2", now, domain.StatusPending)
			So(s.CreateBackup(ctx, &b), ShouldBeNil)

			b.Status = domain.StatusInProgress
			So(s.UpdateBackup(ctx, &b), ShouldBeNil)

			completed := now.Add(time.Minute)
			b.Status = domain.StatusCompleted
			b.FilePath = "/backups/orders.dump.gz"
			b.RemotePath = "custos/orders.dump.gz"
			b.Size = 2048
			b.CompletedAt = &completed
			So(s.UpdateBackup(ctx, &b), ShouldBeNil)

			Convey("A terminal status never regresses", func() {
				b.Status = domain.StatusInProgress
				err := s.UpdateBackup(ctx, &b)
				So(errors.Is(err, domain.ErrInvalidTransition), ShouldBeTrue)

				got, err := s.GetBackup(ctx, "b-2")
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, domain.StatusCompleted)
			})

			Convey("Completed may still be purged", func() {
				b.Status = domain.StatusPurged
				So(s.UpdateBackup(ctx, &b), ShouldBeNil)
			})
		})

		Convey("UpdateBackup of an unknown id reports NotFound", func() {
			b := newBackup("ghost", now, domain.StatusPending)
			So(errors.Is(s.UpdateBackup(ctx, &b), domain.ErrNotFound), ShouldBeTrue)
		})

		Convey("ListCompletedBackups returns newest first", func() {
			for i, id := range []string{"old", "mid", "new"} {
				b := newBackup(id, now.Add(time.Duration(i)*time.Hour), domain.StatusPending)
				So(s.CreateBackup(ctx, &b), ShouldBeNil)
				b.Status = domain.StatusInProgress
				So(s.UpdateBackup(ctx, &b), ShouldBeNil)
				b.Status = domain.StatusCompleted
				So(s.UpdateBackup(ctx, &b), ShouldBeNil)
			}
			failed := newBackup("failed", now.Add(3*time.Hour), domain.StatusPending)
			So(s.CreateBackup(ctx, &failed), ShouldBeNil)
			failed.Status = domain.StatusFailed
			So(s.UpdateBackup(ctx, &failed), ShouldBeNil)

			completed, err := s.ListCompletedBackups(ctx, job.ID)
			So(err, ShouldBeNil)
			So(len(completed), ShouldEqual, 3)
			So(completed[0].ID, ShouldEqual, "new")
			So(completed[1].ID, ShouldEqual, "mid")
			So(completed[2].ID, ShouldEqual, "old")
		})

		Convey("Purged backups stay in the job history", func() {
			b := newBackup("purge-me", now, domain.StatusPending)
			So(s.CreateBackup(ctx, &b), ShouldBeNil)
			b.Status = domain.StatusInProgress
			So(s.UpdateBackup(ctx, &b), ShouldBeNil)
			b.Status = domain.StatusCompleted
			So(s.UpdateBackup(ctx, &b), ShouldBeNil)
			b.Status = domain.StatusPurged
			So(s.UpdateBackup(ctx, &b), ShouldBeNil)

			history, err := s.ListBackupsByJob(ctx, job.ID)
			So(err, ShouldBeNil)
			So(len(history), ShouldEqual, 1)
			So(history[0].Status, ShouldEqual, domain.StatusPurged)

			completed, err := s.ListCompletedBackups(ctx, job.ID)
			So(err, ShouldBeNil)
			So(completed, ShouldBeEmpty)
		})
	})
}
