package services

import (
	"fmt"
	"log"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rental-platform-server/models"
	"rental-platform-server/types"
	"rental-platform-server/utils"
)

const (
	minReportDescription = 10
	minResponseLength    = 10
)

// AdminReviewFilter narrows the admin review list. Nil fields impose no constraint.
type AdminReviewFilter struct {
	RentalID   *uint
	IsApproved *bool
	IsVerified *bool
	HasReports *bool
}

// ParseAdminReviewFilter reads is_approved, is_verified, has_reports and rental_id
func ParseAdminReviewFilter(values url.Values) (*AdminReviewFilter, error) {
	f := &AdminReviewFilter{}
	var err error
	if f.IsApproved, err = parseBoolParam(values, "is_approved"); err != nil {
		return nil, err
	}
	if f.IsVerified, err = parseBoolParam(values, "is_verified"); err != nil {
		return nil, err
	}
	if f.HasReports, err = parseBoolParam(values, "has_reports"); err != nil {
		return nil, err
	}
	rentalID, err := parseIntParam(values, "rental_id")
	if err != nil {
		return nil, err
	}
	if rentalID != nil {
		id := uint(*rentalID)
		f.RentalID = &id
	}
	return f, nil
}

func parseBoolParam(values url.Values, key string) (*bool, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, types.NewValidationError(key, "must be true or false")
	}
	return &v, nil
}

// ModerationService runs the report state machine (open -> resolved | dismissed),
// review approval and verification flags, and landlord responses.
type ModerationService struct {
	db            *gorm.DB
	notifications *NotificationService
	now           func() time.Time
}

func NewModerationService(db *gorm.DB, notifications *NotificationService) *ModerationService {
	return &ModerationService{db: db, notifications: notifications, now: time.Now}
}

// Report flags a review. One report per (review, reporter).
func (s *ModerationService) Report(reviewID, reporterID uint, reason, description string) (*models.ReviewReport, error) {
	var report *models.ReviewReport
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := tx.Select("id", "tenant_id").First(&review, reviewID).Error; err != nil {
			return notFound(err, "review")
		}
		if review.TenantID == reporterID {
			return types.NewPermissionError("you cannot report your own review")
		}

		if !models.IsValidReportReason(reason) {
			return types.NewValidationError("reason", "unknown report reason %q", reason)
		}
		description = utils.SanitizeText(description)
		if description != "" && utf8.RuneCountInString(description) < minReportDescription {
			return types.NewValidationError("description", "description must be at least %d characters long", minReportDescription)
		}

		var count int64
		if err := tx.Model(&models.ReviewReport{}).
			Where("review_id = ? AND reporter_id = ?", reviewID, reporterID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return types.NewConflictError("you have already reported this review")
		}

		report = &models.ReviewReport{
			ReviewID:    reviewID,
			ReporterID:  reporterID,
			Reason:      models.ReportReason(reason),
			Description: description,
			Status:      models.ReportStatusOpen,
		}
		if err := tx.Create(report).Error; err != nil {
			if isUniqueViolation(err) {
				return types.NewConflictError("you have already reported this review")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🔍 Review %d reported by user %d (%s)", reviewID, reporterID, reason)
	s.notifications.notifyAdminsQuietly(models.NotificationReviewReported,
		"Review reported",
		fmt.Sprintf("Review #%d was reported for %s", reviewID, reason),
		map[string]interface{}{"review_id": reviewID, "report_id": report.ID})
	return report, nil
}

// Resolve closes an open report with the admin's note
func (s *ModerationService) Resolve(reportID, adminID uint, note string) (*models.ReviewReport, error) {
	return s.close(reportID, adminID, models.ReportStatusResolved, strings.TrimSpace(note))
}

// Dismiss closes an open report with the fixed dismissal note
func (s *ModerationService) Dismiss(reportID, adminID uint) (*models.ReviewReport, error) {
	return s.close(reportID, adminID, models.ReportStatusDismissed, models.DismissNote)
}

// close moves an open report to a terminal status. The update is conditional on
// status = open, so of two concurrent closers exactly one wins.
func (s *ModerationService) close(reportID, adminID uint, status models.ReportStatus, note string) (*models.ReviewReport, error) {
	var report models.ReviewReport
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&report, reportID).Error; err != nil {
			return notFound(err, "report")
		}
		if note == "" {
			return types.NewValidationError("admin_action", "an action note is required to resolve a report")
		}
		if report.Status != models.ReportStatusOpen {
			return types.NewConflictError("report is already %s", report.Status)
		}

		now := s.now()
		result := tx.Model(&models.ReviewReport{}).
			Where("id = ? AND status = ?", reportID, models.ReportStatusOpen).
			Updates(map[string]interface{}{
				"status":       status,
				"resolved_by":  adminID,
				"resolved_at":  now,
				"admin_action": note,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return types.NewConflictError("report was already closed by another admin")
		}

		report.Status = status
		report.ResolvedBy = &adminID
		report.ResolvedAt = &now
		report.AdminAction = note
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Report %d %s by admin %d", report.ID, status, adminID)
	s.notifications.notifyQuietly(report.ReporterID, models.NotificationReportResolved,
		"Your report was reviewed",
		fmt.Sprintf("Your report on review #%d was %s: %s", report.ReviewID, status, note),
		map[string]interface{}{"review_id": report.ReviewID, "report_id": report.ID, "status": status})
	return &report, nil
}

// ToggleApproval hides or shows a review. Reports are left untouched.
func (s *ModerationService) ToggleApproval(reviewID uint) (*models.Review, error) {
	return s.flipFlag(reviewID, "is_approved")
}

// ToggleVerification marks or unmarks a review as from a verified tenant
func (s *ModerationService) ToggleVerification(reviewID uint) (*models.Review, error) {
	return s.flipFlag(reviewID, "is_verified")
}

func (s *ModerationService) flipFlag(reviewID uint, column string) (*models.Review, error) {
	result := s.db.Model(&models.Review{}).Where("id = ?", reviewID).
		UpdateColumn(column, gorm.Expr("NOT "+column))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, types.NewNotFoundError("review")
	}
	return s.loadReview(reviewID)
}

// AddModerationNotes replaces the internal admin notes on a review
func (s *ModerationService) AddModerationNotes(reviewID uint, notes string) (*models.Review, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, types.NewValidationError("notes", "moderation notes cannot be empty")
	}

	result := s.db.Model(&models.Review{}).Where("id = ?", reviewID).Update("moderation_notes", notes)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, types.NewNotFoundError("review")
	}
	return s.loadReview(reviewID)
}

// Respond stores the rental landlord's one-time public response to a review
func (s *ModerationService) Respond(reviewID, landlordID uint, text string) (*models.Review, error) {
	var review models.Review
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Rental").First(&review, reviewID).Error
		if err != nil {
			return notFound(err, "review")
		}
		if review.Rental == nil || review.Rental.LandlordID != landlordID {
			return types.NewPermissionError("only the landlord of this rental can respond to its reviews")
		}
		if review.LandlordResponse != "" {
			return types.NewConflictError("this review already has a landlord response")
		}

		text = utils.SanitizeText(text)
		if utf8.RuneCountInString(text) < minResponseLength {
			return types.NewValidationError("response", "response must be at least %d characters long", minResponseLength)
		}

		now := s.now()
		result := tx.Model(&models.Review{}).
			Where("id = ? AND (landlord_response IS NULL OR landlord_response = ?)", reviewID, "").
			Updates(map[string]interface{}{
				"landlord_response":      text,
				"landlord_response_date": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return types.NewConflictError("this review already has a landlord response")
		}

		review.LandlordResponse = text
		review.LandlordResponseDate = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifications.notifyQuietly(review.TenantID, models.NotificationReviewResponse,
		"The landlord responded to your review",
		fmt.Sprintf("%s responded to your review \"%s\"", review.Rental.Title, review.Title),
		map[string]interface{}{"review_id": review.ID, "rental_id": review.RentalID})
	return &review, nil
}

func (s *ModerationService) loadReview(reviewID uint) (*models.Review, error) {
	var review models.Review
	if err := s.db.Preload("Tenant").First(&review, reviewID).Error; err != nil {
		return nil, notFound(err, "review")
	}
	return &review, nil
}

// ListReports lists reports, optionally by status, newest first
func (s *ModerationService) ListReports(status string, p Pagination) ([]models.ReviewReport, int64, error) {
	query := s.db.Model(&models.ReviewReport{})
	if status != "" {
		switch models.ReportStatus(status) {
		case models.ReportStatusOpen, models.ReportStatusResolved, models.ReportStatusDismissed:
		default:
			return nil, 0, types.NewValidationError("status", "unknown report status %q", status)
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []models.ReviewReport
	err := query.Preload("Review").Preload("Review.Tenant").Preload("Reporter").
		Order("created_at DESC").Order("id DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&reports).Error
	return reports, total, err
}

// ListReviews is the admin view of every review, hidden ones included
func (s *ModerationService) ListReviews(filter *AdminReviewFilter, p Pagination) ([]models.Review, int64, error) {
	query := s.db.Model(&models.Review{})
	if filter.RentalID != nil {
		query = query.Where("rental_id = ?", *filter.RentalID)
	}
	if filter.IsApproved != nil {
		query = query.Where("is_approved = ?", *filter.IsApproved)
	}
	if filter.IsVerified != nil {
		query = query.Where("is_verified = ?", *filter.IsVerified)
	}
	if filter.HasReports != nil {
		exists := "EXISTS (SELECT 1 FROM review_reports WHERE review_reports.review_id = reviews.id)"
		if *filter.HasReports {
			query = query.Where(exists)
		} else {
			query = query.Where("NOT " + exists)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []models.Review
	err := query.Preload("Tenant").Preload("Rental").
		Order("created_at DESC").Order("id DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&reviews).Error
	return reviews, total, err
}

// Statistics summarizes the review subsystem for admins
func (s *ModerationService) Statistics() (*models.ModerationStatistics, error) {
	stats := &models.ModerationStatistics{}

	var agg struct {
		Total     int64
		Approved  int64
		Verified  int64
		AvgRating *float64
	}
	err := s.db.Model(&models.Review{}).Select(`COUNT(*) AS total,
		COALESCE(SUM(CASE WHEN is_approved = ? THEN 1 ELSE 0 END), 0) AS approved,
		COALESCE(SUM(CASE WHEN is_verified = ? THEN 1 ELSE 0 END), 0) AS verified,
		AVG(rating) AS avg_rating`, true, true).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	stats.TotalReviews = agg.Total
	stats.ApprovedReviews = agg.Approved
	stats.VerifiedReviews = agg.Verified
	if agg.AvgRating != nil {
		stats.AverageRating = math.Round(*agg.AvgRating*100) / 100
	}

	if err := s.db.Model(&models.ReviewReport{}).
		Where("status = ?", models.ReportStatusOpen).
		Count(&stats.PendingReports).Error; err != nil {
		return nil, err
	}

	stats.RatingDistribution, err = ratingDistribution(s.db.Model(&models.Review{}))
	if err != nil {
		return nil, err
	}
	return stats, nil
}
