package domain

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStatusStateMachine(t *testing.T) {
	Convey("Given the backup status state machine", t, func() {
		Convey("Pending may start or fail", func() {
			So(StatusPending.CanTransition(StatusInProgress), ShouldBeTrue)
			So(StatusPending.CanTransition(StatusFailed), ShouldBeTrue)
			So(StatusPending.CanTransition(StatusCompleted), ShouldBeFalse)
			So(StatusPending.CanTransition(StatusPurged), ShouldBeFalse)
		})

		Convey("InProgress may complete or fail", func() {
			So(StatusInProgress.CanTransition(StatusCompleted), ShouldBeTrue)
			So(StatusInProgress.CanTransition(StatusFailed), ShouldBeTrue)
			So(StatusInProgress.CanTransition(StatusPending), ShouldBeFalse)
		})

		Convey("Completed may only be purged", func() {
			So(StatusCompleted.CanTransition(StatusPurged), ShouldBeTrue)
			So(StatusCompleted.CanTransition(StatusInProgress), ShouldBeFalse)
			So(StatusCompleted.CanTransition(StatusFailed), ShouldBeFalse)
			So(StatusCompleted.CanTransition(StatusPending), ShouldBeFalse)
		})

		Convey("Failed and Purged are absorbing", func() {
			for _, to := range []Status{StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusPurged} {
				So(StatusFailed.CanTransition(to), ShouldBeFalse)
				So(StatusPurged.CanTransition(to), ShouldBeFalse)
			}
		})

		Convey("Terminal covers completed, failed and purged", func() {
			So(StatusPending.Terminal(), ShouldBeFalse)
			So(StatusInProgress.Terminal(), ShouldBeFalse)
			So(StatusCompleted.Terminal(), ShouldBeTrue)
			So(StatusFailed.Terminal(), ShouldBeTrue)
			So(StatusPurged.Terminal(), ShouldBeTrue)
		})
	})
}

func TestBackupCanceled(t *testing.T) {
	Convey("Given failed backups", t, func() {
		Convey("A cancellation code marks the attempt canceled", func() {
			b := Backup{Status: StatusFailed, ErrorCode: CodeCanceled}
			So(b.Canceled(), ShouldBeTrue)
		})

		Convey("A genuine failure is not canceled", func() {
			b := Backup{Status: StatusFailed, ErrorCode: CodeDump}
			So(b.Canceled(), ShouldBeFalse)
		})
	})
}
