package services

import (
	"net/url"
	"testing"

	"rental-platform-server/models"
)

type moderationFixture struct {
	svc      *ModerationService
	landlord *models.User
	author   *models.User
	reporter *models.User
	admin    *models.User
	rental   *models.Rental
	review   *models.Review
}

func newModerationFixture(t *testing.T) *moderationFixture {
	t.Helper()
	db := newTestDB(t)
	f := &moderationFixture{
		svc:      NewModerationService(db, NewNotificationService(db, nil)),
		landlord: createUser(t, db, "owner@example.com", models.UserTypeLandlord),
		author:   createUser(t, db, "author@example.com", models.UserTypeTenant),
		reporter: createUser(t, db, "reporter@example.com", models.UserTypeTenant),
		admin:    createUser(t, db, "admin@example.com", models.UserTypeAdmin),
	}
	f.rental = createRental(t, db, f.landlord.ID, nil)
	f.review = createReview(t, db, f.rental.ID, f.author.ID, 2)
	return f
}

func TestReport(t *testing.T) {
	f := newModerationFixture(t)
	db := f.svc.db

	t.Run("author cannot report own review", func(t *testing.T) {
		_, err := f.svc.Report(f.review.ID, f.author.ID, "spam", "")
		assertPermission(t, err)
	})

	t.Run("unknown reason", func(t *testing.T) {
		_, err := f.svc.Report(f.review.ID, f.reporter.ID, "boring", "")
		assertValidation(t, err, "reason")
	})

	t.Run("short description", func(t *testing.T) {
		_, err := f.svc.Report(f.review.ID, f.reporter.ID, "spam", "bad")
		assertValidation(t, err, "description")
	})

	t.Run("report opens and notifies admins", func(t *testing.T) {
		report, err := f.svc.Report(f.review.ID, f.reporter.ID, "spam", "This looks like an advertisement.")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Status != models.ReportStatusOpen {
			t.Fatalf("expected open, got %s", report.Status)
		}

		var notified int64
		db.Model(&models.Notification{}).
			Where("user_id = ? AND type = ?", f.admin.ID, models.NotificationReviewReported).
			Count(&notified)
		if notified != 1 {
			t.Fatalf("expected 1 admin notification, got %d", notified)
		}
	})

	t.Run("duplicate report conflicts", func(t *testing.T) {
		_, err := f.svc.Report(f.review.ID, f.reporter.ID, "offensive", "")
		assertConflict(t, err)

		var count int64
		db.Model(&models.ReviewReport{}).Where("review_id = ?", f.review.ID).Count(&count)
		if count != 1 {
			t.Fatalf("expected 1 report, got %d", count)
		}
	})
}

func TestResolveAndDismiss(t *testing.T) {
	f := newModerationFixture(t)
	db := f.svc.db

	report, err := f.svc.Report(f.review.ID, f.reporter.ID, "spam", "")
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	t.Run("resolve requires a note", func(t *testing.T) {
		_, err := f.svc.Resolve(report.ID, f.admin.ID, "   ")
		assertValidation(t, err, "admin_action")
	})

	resolved, err := f.svc.Resolve(report.ID, f.admin.ID, "Removed the offending link")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Status != models.ReportStatusResolved || resolved.ResolvedAt == nil {
		t.Fatalf("expected resolved with a timestamp, got %s", resolved.Status)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != f.admin.ID {
		t.Fatalf("expected resolved_by %d, got %v", f.admin.ID, resolved.ResolvedBy)
	}

	t.Run("second close conflicts and changes nothing", func(t *testing.T) {
		var before models.ReviewReport
		db.First(&before, report.ID)

		_, err := f.svc.Resolve(report.ID, f.admin.ID, "Different note")
		assertConflict(t, err)
		_, err = f.svc.Dismiss(report.ID, f.admin.ID)
		assertConflict(t, err)

		var after models.ReviewReport
		db.First(&after, report.ID)
		if after.AdminAction != before.AdminAction {
			t.Fatalf("expected admin action %q, got %q", before.AdminAction, after.AdminAction)
		}
		if !after.ResolvedAt.Equal(*before.ResolvedAt) {
			t.Fatalf("expected resolved_at %v, got %v", before.ResolvedAt, after.ResolvedAt)
		}
	})

	t.Run("reporter is notified", func(t *testing.T) {
		var count int64
		db.Model(&models.Notification{}).
			Where("user_id = ? AND type = ?", f.reporter.ID, models.NotificationReportResolved).
			Count(&count)
		if count != 1 {
			t.Fatalf("expected 1 notification, got %d", count)
		}
	})

	t.Run("dismiss records the fixed note", func(t *testing.T) {
		other := createUser(t, db, "other@example.com", models.UserTypeTenant)
		second, err := f.svc.Report(f.review.ID, other.ID, "false", "")
		if err != nil {
			t.Fatalf("report: %v", err)
		}
		dismissed, err := f.svc.Dismiss(second.ID, f.admin.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dismissed.Status != models.ReportStatusDismissed || dismissed.AdminAction != models.DismissNote {
			t.Fatalf("expected dismissed with %q, got %s / %q", models.DismissNote, dismissed.Status, dismissed.AdminAction)
		}
	})

	t.Run("unknown report", func(t *testing.T) {
		_, err := f.svc.Dismiss(9999, f.admin.ID)
		assertNotFound(t, err)
	})

	t.Run("unknown report with a blank note", func(t *testing.T) {
		_, err := f.svc.Resolve(9999, f.admin.ID, "")
		assertNotFound(t, err)
	})
}

func TestToggleApprovalKeepsReports(t *testing.T) {
	f := newModerationFixture(t)
	db := f.svc.db

	report, err := f.svc.Report(f.review.ID, f.reporter.ID, "inappropriate", "")
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	review, err := f.svc.ToggleApproval(f.review.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if review.IsApproved {
		t.Fatal("expected review to be hidden")
	}

	var stored models.ReviewReport
	db.First(&stored, report.ID)
	if stored.Status != models.ReportStatusOpen {
		t.Fatalf("expected report to stay open, got %s", stored.Status)
	}

	review, err = f.svc.ToggleApproval(f.review.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !review.IsApproved {
		t.Fatal("expected review to be approved again")
	}

	verified, err := f.svc.ToggleVerification(f.review.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verified.IsVerified {
		t.Fatal("expected review to be verified")
	}

	_, err = f.svc.ToggleApproval(9999)
	assertNotFound(t, err)
}

func TestLandlordResponse(t *testing.T) {
	f := newModerationFixture(t)

	t.Run("only the rental landlord may respond", func(t *testing.T) {
		other := createUser(t, f.svc.db, "other@example.com", models.UserTypeLandlord)
		_, err := f.svc.Respond(f.review.ID, other.ID, "Thanks for staying with us.")
		assertPermission(t, err)
	})

	t.Run("response too short", func(t *testing.T) {
		_, err := f.svc.Respond(f.review.ID, f.landlord.ID, "Thanks")
		assertValidation(t, err, "response")
	})

	t.Run("respond once", func(t *testing.T) {
		review, err := f.svc.Respond(f.review.ID, f.landlord.ID, "Thanks, we fixed the heating.")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if review.LandlordResponse != "Thanks, we fixed the heating." || review.LandlordResponseDate == nil {
			t.Fatalf("expected response to be stored, got %q", review.LandlordResponse)
		}

		_, err = f.svc.Respond(f.review.ID, f.landlord.ID, "A second, different response.")
		assertConflict(t, err)

		var stored models.Review
		f.svc.db.First(&stored, f.review.ID)
		if stored.LandlordResponse != "Thanks, we fixed the heating." {
			t.Fatalf("expected the first response to be kept, got %q", stored.LandlordResponse)
		}
	})
}

func TestModerationListsAndStatistics(t *testing.T) {
	f := newModerationFixture(t)
	db := f.svc.db

	other := createUser(t, db, "other@example.com", models.UserTypeTenant)
	clean := createReview(t, db, f.rental.ID, other.ID, 5)
	if _, err := f.svc.Report(f.review.ID, f.reporter.ID, "spam", ""); err != nil {
		t.Fatalf("report: %v", err)
	}

	t.Run("has_reports filter", func(t *testing.T) {
		filter, err := ParseAdminReviewFilter(url.Values{"has_reports": {"false"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		reviews, total, err := f.svc.ListReviews(filter, NewPagination(1, 20, 20, 100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 1 || reviews[0].ID != clean.ID {
			t.Fatalf("expected only the unreported review, got %d", total)
		}
	})

	t.Run("bad boolean", func(t *testing.T) {
		_, err := ParseAdminReviewFilter(url.Values{"is_approved": {"maybe"}})
		assertValidation(t, err, "is_approved")
	})

	t.Run("reports by status", func(t *testing.T) {
		reports, total, err := f.svc.ListReports("open", NewPagination(1, 20, 20, 100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 1 || reports[0].ReviewID != f.review.ID {
			t.Fatalf("expected 1 open report, got %d", total)
		}

		_, _, err = f.svc.ListReports("closed", NewPagination(1, 20, 20, 100))
		assertValidation(t, err, "status")
	})

	t.Run("statistics", func(t *testing.T) {
		stats, err := f.svc.Statistics()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.TotalReviews != 2 || stats.PendingReports != 1 {
			t.Fatalf("expected 2 reviews and 1 pending report, got %d and %d", stats.TotalReviews, stats.PendingReports)
		}
		if stats.AverageRating != 3.5 {
			t.Fatalf("expected average 3.5, got %v", stats.AverageRating)
		}
		if stats.RatingDistribution[5] != 1 || stats.RatingDistribution[2] != 1 {
			t.Fatalf("unexpected distribution %v", stats.RatingDistribution)
		}
	})
}
