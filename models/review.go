package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// RatingLabels maps a 1..5 rating to its display label
var RatingLabels = map[int]string{
	1: "Poor",
	2: "Fair",
	3: "Good",
	4: "Very Good",
	5: "Excellent",
}

// RatingLabel returns the label for a rating, or "" when out of range.
func RatingLabel(rating int) string {
	return RatingLabels[rating]
}

// Review is a tenant's review of a rental. One per (rental, tenant).
type Review struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	RentalID uint `json:"rental_id" gorm:"not null;uniqueIndex:idx_review_rental_tenant;index:idx_review_rental_approved,priority:1"`
	TenantID uint `json:"tenant_id" gorm:"not null;uniqueIndex:idx_review_rental_tenant;index"`

	Rating  int    `json:"rating" gorm:"not null;index;check:rating >= 1 AND rating <= 5"`
	Comment string `json:"comment" gorm:"type:text;not null"`

	// Optional sub-ratings
	CleanlinessRating *int `json:"cleanliness_rating" gorm:"check:cleanliness_rating IS NULL OR (cleanliness_rating >= 1 AND cleanliness_rating <= 5)"`
	LocationRating    *int `json:"location_rating" gorm:"check:location_rating IS NULL OR (location_rating >= 1 AND location_rating <= 5)"`
	ValueRating       *int `json:"value_rating" gorm:"check:value_rating IS NULL OR (value_rating >= 1 AND value_rating <= 5)"`
	LandlordRating    *int `json:"landlord_rating" gorm:"check:landlord_rating IS NULL OR (landlord_rating >= 1 AND landlord_rating <= 5)"`

	Title string `json:"title" gorm:"size:200"`
	Pros  string `json:"pros" gorm:"type:text"`
	Cons  string `json:"cons" gorm:"type:text"`

	MoveInDate     *time.Time `json:"move_in_date"`
	MoveOutDate    *time.Time `json:"move_out_date"`
	WouldRecommend *bool      `json:"would_recommend"`

	// Moderation
	IsVerified      bool   `json:"is_verified" gorm:"default:false;index"`
	IsApproved      bool   `json:"is_approved" gorm:"default:true;index:idx_review_rental_approved,priority:2"`
	ModerationNotes string `json:"moderation_notes,omitempty" gorm:"type:text"`

	// Landlord response, write-once
	LandlordResponse     string     `json:"landlord_response" gorm:"type:text"`
	LandlordResponseDate *time.Time `json:"landlord_response_date"`

	// Cached counters, always recomputed from review_helpfulness
	HelpfulVotes int `json:"helpful_votes" gorm:"not null;default:0"`
	TotalVotes   int `json:"total_votes" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Rental  *Rental             `json:"rental,omitempty" gorm:"foreignKey:RentalID;constraint:OnDelete:CASCADE"`
	Tenant  *User               `json:"-" gorm:"foreignKey:TenantID"`
	Votes   []ReviewHelpfulness `json:"-" gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`
	Reports []ReviewReport      `json:"-" gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`

	// Derived, never stored
	Author             *UserSummary `json:"author,omitempty" gorm:"-"`
	RatingDisplay      string       `json:"rating_display" gorm:"-"`
	HelpfulnessPercent float64      `json:"helpfulness_percentage" gorm:"-"`
	StayDuration       *int         `json:"stay_duration_months" gorm:"-"`
}

func (Review) TableName() string {
	return "reviews"
}

// AfterFind fills the derived display fields
func (r *Review) AfterFind(tx *gorm.DB) error {
	r.RefreshDerived()
	return nil
}

// RefreshDerived recomputes the derived fields from the stored ones.
func (r *Review) RefreshDerived() {
	r.RatingDisplay = RatingLabel(r.Rating)
	r.HelpfulnessPercent = r.HelpfulnessPercentage()
	r.StayDuration = r.StayDurationMonths()
	if r.Tenant != nil {
		summary := r.Tenant.Summary()
		r.Author = &summary
	}
}

// HelpfulnessPercentage is helpful/total as a percentage rounded to one decimal.
func (r *Review) HelpfulnessPercentage() float64 {
	if r.TotalVotes <= 0 {
		return 0
	}
	return math.Round(float64(r.HelpfulVotes)/float64(r.TotalVotes)*1000) / 10
}

// StayDurationMonths returns the stay length in months, or nil when a date is missing.
func (r *Review) StayDurationMonths() *int {
	if r.MoveInDate == nil || r.MoveOutDate == nil {
		return nil
	}
	days := r.MoveOutDate.Sub(*r.MoveInDate).Hours() / 24
	months := int(math.Round(days / 30.44))
	return &months
}

// DefaultTitle is used when the author leaves the title blank.
func (r *Review) DefaultTitle() string {
	return RatingLabel(r.Rating) + " experience"
}

// ReviewHelpfulness is one user's helpful / not helpful vote on a review.
type ReviewHelpfulness struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ReviewID  uint      `json:"review_id" gorm:"not null;uniqueIndex:idx_vote_review_user"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_vote_review_user;index"`
	IsHelpful bool      `json:"is_helpful" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ReviewHelpfulness) TableName() string {
	return "review_helpfulness"
}

type ReportReason string

const (
	ReportSpam          ReportReason = "spam"
	ReportInappropriate ReportReason = "inappropriate"
	ReportOffensive     ReportReason = "offensive"
	ReportPersonal      ReportReason = "personal"
	ReportIrrelevant    ReportReason = "irrelevant"
	ReportFalse         ReportReason = "false"
	ReportOther         ReportReason = "other"
)

func IsValidReportReason(v string) bool {
	switch ReportReason(v) {
	case ReportSpam, ReportInappropriate, ReportOffensive, ReportPersonal,
		ReportIrrelevant, ReportFalse, ReportOther:
		return true
	}
	return false
}

type ReportStatus string

const (
	ReportStatusOpen      ReportStatus = "open"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// DismissNote is recorded as the admin action when a report is dismissed.
const DismissNote = "Report dismissed - no action required"

// ReviewReport flags a review for admin attention. open -> resolved | dismissed.
type ReviewReport struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	ReviewID    uint         `json:"review_id" gorm:"not null;uniqueIndex:idx_report_review_reporter"`
	ReporterID  uint         `json:"reporter_id" gorm:"not null;uniqueIndex:idx_report_review_reporter;index"`
	Reason      ReportReason `json:"reason" gorm:"type:varchar(20);not null"`
	Description string       `json:"description" gorm:"type:text"`
	Status      ReportStatus `json:"status" gorm:"type:varchar(10);not null;default:'open';index;check:status IN ('open','resolved','dismissed')"`
	AdminAction string       `json:"admin_action" gorm:"type:text"`
	ResolvedBy  *uint        `json:"resolved_by"`
	ResolvedAt  *time.Time   `json:"resolved_at"`
	CreatedAt   time.Time    `json:"created_at" gorm:"autoCreateTime;index"`

	Review   *Review `json:"review,omitempty" gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`
	Reporter *User   `json:"reporter,omitempty" gorm:"foreignKey:ReporterID"`
}

func (ReviewReport) TableName() string {
	return "review_reports"
}

// IsResolved reports whether the report left the open state.
func (r *ReviewReport) IsResolved() bool {
	return r.Status != ReportStatusOpen
}

// ReviewInput is the create/update payload for reviews
type ReviewInput struct {
	RentalID          uint   `json:"rental_id"`
	Rating            int    `json:"rating"`
	Comment           string `json:"comment"`
	CleanlinessRating *int   `json:"cleanliness_rating"`
	LocationRating    *int   `json:"location_rating"`
	ValueRating       *int   `json:"value_rating"`
	LandlordRating    *int   `json:"landlord_rating"`
	Title             string `json:"title" binding:"max=200"`
	Pros              string `json:"pros" binding:"max=500"`
	Cons              string `json:"cons" binding:"max=500"`
	MoveInDate        string `json:"move_in_date"`
	MoveOutDate       string `json:"move_out_date"`
	WouldRecommend    *bool  `json:"would_recommend"`
}

// ReviewStatistics summarizes the approved reviews of one rental
type ReviewStatistics struct {
	RentalID                 uint          `json:"rental_id"`
	TotalReviews             int64         `json:"total_reviews"`
	AverageRating            float64       `json:"average_rating"`
	AverageCleanliness       float64       `json:"average_cleanliness"`
	AverageLocation          float64       `json:"average_location"`
	AverageValue             float64       `json:"average_value"`
	AverageLandlord          float64       `json:"average_landlord"`
	RatingDistribution       map[int]int64 `json:"rating_distribution"`
	RecommendationPercentage float64       `json:"recommendation_percentage"`
}

// ModerationStatistics is the admin overview of the review subsystem
type ModerationStatistics struct {
	TotalReviews       int64         `json:"total_reviews"`
	ApprovedReviews    int64         `json:"approved_reviews"`
	VerifiedReviews    int64         `json:"verified_reviews"`
	PendingReports     int64         `json:"pending_reports"`
	AverageRating      float64       `json:"average_rating"`
	RatingDistribution map[int]int64 `json:"rating_distribution"`
}
