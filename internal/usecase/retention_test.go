package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/custos/internal/domain"
)

func TestRetentionSweep(t *testing.T) {
	Convey("Given a job with 30 days of retention", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

		store := newMemStore()
		storage := &fakeStorage{}
		artifacts := newFakeArtifacts(t.TempDir())
		retention := NewRetention(store, storage, artifacts, nopLogger{}, fixedClock(now))

		job := domain.Job{
			ID:            "job-1",
			Database:      "orders",
			Kind:          domain.KindFull,
			Frequency:     domain.FrequencyDaily,
			RetentionDays: 30,
			Active:        true,
		}
		So(store.CreateJob(ctx, &job), ShouldBeNil)

		// Insert oldest first so listing returns newest first.
		seed := func(ageDays int) string {
			id := fmt.Sprintf("age-%dd", ageDays)
			b := domain.Backup{
				ID:         id,
				JobID:      job.ID,
				Status:     domain.StatusCompleted,
				FilePath:   "/backups/" + id,
				RemotePath: "custos/" + id,
				CreatedAt:  now.AddDate(0, 0, -ageDays),
			}
			So(store.CreateBackup(ctx, &b), ShouldBeNil)
			return id
		}

		Convey("Backups past the window are purged, recent ones kept", func() {
			for _, age := range []int{60, 50, 40, 10, 0} {
				seed(age)
			}

			purged, err := retention.Sweep(ctx, job)
			So(err, ShouldBeNil)
			So(purged, ShouldEqual, 3)

			So(store.backup("age-60d").Status, ShouldEqual, domain.StatusPurged)
			So(store.backup("age-50d").Status, ShouldEqual, domain.StatusPurged)
			So(store.backup("age-40d").Status, ShouldEqual, domain.StatusPurged)
			So(store.backup("age-10d").Status, ShouldEqual, domain.StatusCompleted)
			So(store.backup("age-0d").Status, ShouldEqual, domain.StatusCompleted)

			Convey("Remote and local artifacts of purged backups were removed", func() {
				So(len(storage.deletedPaths()), ShouldEqual, 3)
				So(storage.deletedPaths(), ShouldContain, "custos/age-60d")
				So(len(artifacts.removed), ShouldEqual, 3)
			})
		})

		Convey("The newest completed backup survives any age", func() {
			seed(100)

			purged, err := retention.Sweep(ctx, job)
			So(err, ShouldBeNil)
			So(purged, ShouldEqual, 0)
			So(store.backup("age-100d").Status, ShouldEqual, domain.StatusCompleted)
		})

		Convey("A failed remote deletion leaves the record completed", func() {
			seed(60)
			seed(0)
			storage.deleteErr = errors.New("s3: request timeout")

			purged, err := retention.Sweep(ctx, job)
			So(err, ShouldBeNil)
			So(purged, ShouldEqual, 0)
			So(store.backup("age-60d").Status, ShouldEqual, domain.StatusCompleted)

			Convey("A later sweep retries it", func() {
				storage.deleteErr = nil
				purged, err := retention.Sweep(ctx, job)
				So(err, ShouldBeNil)
				So(purged, ShouldEqual, 1)
				So(store.backup("age-60d").Status, ShouldEqual, domain.StatusPurged)
			})
		})

		Convey("An expired backup without a remote artifact is still purged", func() {
			old := domain.Backup{
				ID:        "local-only",
				JobID:     job.ID,
				Status:    domain.StatusCompleted,
				FilePath:  "/backups/local-only",
				CreatedAt: now.AddDate(0, 0, -60),
			}
			So(store.CreateBackup(ctx, &old), ShouldBeNil)
			seed(0)
			storage.deleteErr = errors.New("unreachable")

			purged, err := retention.Sweep(ctx, job)
			So(err, ShouldBeNil)
			So(purged, ShouldEqual, 1)
			So(store.backup("local-only").Status, ShouldEqual, domain.StatusPurged)
		})

		Convey("A store listing failure surfaces", func() {
			store.failOn("ListCompletedBackups", errors.New("db gone"))
			_, err := retention.Sweep(ctx, job)
			So(err, ShouldNotBeNil)
		})
	})
}
