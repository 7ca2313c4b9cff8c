package services

import (
	"log"
	"math"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"rental-platform-server/models"
	"rental-platform-server/types"
	"rental-platform-server/utils"
)

const (
	minCommentLength = 10
	maxCommentLength = 1000
	maxTitleLength   = 200
	maxProsConsLen   = 500
)

var reviewOrderings = map[string]string{
	"-created_at":    "reviews.created_at DESC",
	"created_at":     "reviews.created_at ASC",
	"-rating":        "reviews.rating DESC",
	"rating":         "reviews.rating ASC",
	"-helpful_votes": "reviews.helpful_votes DESC",
}

// ReviewFilter narrows the public review list
type ReviewFilter struct {
	RentalID        *uint
	MinRating       *int
	MaxRating       *int
	VerifiedOnly    bool
	RecommendedOnly bool
	DateFrom        *time.Time
	DateTo          *time.Time
	Ordering        string
}

// ParseReviewFilter reads list options from query parameters
func ParseReviewFilter(values url.Values) (*ReviewFilter, error) {
	f := &ReviewFilter{
		Ordering:        strings.TrimSpace(values.Get("ordering")),
		VerifiedOnly:    parseTrueParam(values, "verified_only"),
		RecommendedOnly: parseTrueParam(values, "recommended_only"),
	}

	rentalID, err := parseIntParam(values, "rental_id")
	if err != nil {
		return nil, err
	}
	if rentalID != nil {
		if *rentalID < 1 {
			return nil, types.NewValidationError("rental_id", "must be a positive id")
		}
		id := uint(*rentalID)
		f.RentalID = &id
	}

	if f.MinRating, err = parseIntParam(values, "min_rating"); err != nil {
		return nil, err
	}
	if f.MaxRating, err = parseIntParam(values, "max_rating"); err != nil {
		return nil, err
	}
	if f.MinRating != nil && (*f.MinRating < 1 || *f.MinRating > 5) {
		return nil, types.NewValidationError("min_rating", "must be between 1 and 5")
	}
	if f.MaxRating != nil && (*f.MaxRating < 1 || *f.MaxRating > 5) {
		return nil, types.NewValidationError("max_rating", "must be between 1 and 5")
	}
	if f.MinRating != nil && f.MaxRating != nil && *f.MinRating > *f.MaxRating {
		return nil, types.NewValidationError("max_rating", "maximum rating must be greater than minimum rating")
	}

	for _, key := range []string{"date_from", "date_to"} {
		raw := strings.TrimSpace(values.Get(key))
		if raw == "" {
			continue
		}
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, types.NewValidationError(key, "must be a date in YYYY-MM-DD format")
		}
		if key == "date_from" {
			f.DateFrom = &day
		} else {
			f.DateTo = &day
		}
	}

	if f.Ordering == "" {
		f.Ordering = "-created_at"
	}
	if _, ok := reviewOrderings[f.Ordering]; !ok {
		return nil, types.NewValidationError("ordering", "unsupported ordering %q", f.Ordering)
	}
	return f, nil
}

func (f *ReviewFilter) scope(db *gorm.DB) *gorm.DB {
	if f.RentalID != nil {
		db = db.Where("reviews.rental_id = ?", *f.RentalID)
	}
	if f.MinRating != nil {
		db = db.Where("reviews.rating >= ?", *f.MinRating)
	}
	if f.MaxRating != nil {
		db = db.Where("reviews.rating <= ?", *f.MaxRating)
	}
	if f.VerifiedOnly {
		db = db.Where("reviews.is_verified = ?", true)
	}
	if f.RecommendedOnly {
		db = db.Where("reviews.would_recommend = ?", true)
	}
	if f.DateFrom != nil {
		db = db.Where("reviews.created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		db = db.Where("reviews.created_at < ?", f.DateTo.AddDate(0, 0, 1))
	}
	return db
}

func (f *ReviewFilter) order(db *gorm.DB) *gorm.DB {
	ordering, ok := reviewOrderings[f.Ordering]
	if !ok {
		ordering = reviewOrderings["-created_at"]
	}
	return db.Order(ordering).Order("reviews.id DESC")
}

// ReviewService owns the review aggregate
type ReviewService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db, now: time.Now}
}

// Create stores a tenant's first review of a rental
func (s *ReviewService) Create(actor *models.User, input models.ReviewInput) (*models.Review, error) {
	if !actor.IsTenant() {
		return nil, types.NewPermissionError("only tenants can write reviews")
	}
	if input.RentalID == 0 {
		return nil, types.NewValidationError("rental_id", "rental is required")
	}

	review := &models.Review{
		RentalID:   input.RentalID,
		TenantID:   actor.ID,
		IsApproved: true,
	}
	if err := s.applyInput(review, input); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rental models.Rental
		if err := tx.Select("id", "landlord_id").First(&rental, input.RentalID).Error; err != nil {
			return notFound(err, "rental")
		}

		var count int64
		if err := tx.Model(&models.Review{}).
			Where("rental_id = ? AND tenant_id = ?", input.RentalID, actor.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return types.NewConflictError("you have already reviewed this rental")
		}

		if err := tx.Create(review).Error; err != nil {
			if isUniqueViolation(err) {
				return types.NewConflictError("you have already reviewed this rental")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	review.Tenant = actor
	review.RefreshDerived()
	log.Printf("✅ Review created: ID=%d, Rental=%d, Tenant=%d", review.ID, review.RentalID, actor.ID)
	return review, nil
}

// Update replaces the editable fields. Only the author or an admin may update.
func (s *ReviewService) Update(actor *models.User, reviewID uint, input models.ReviewInput) (*models.Review, error) {
	review, err := s.load(reviewID)
	if err != nil {
		return nil, err
	}
	if review.TenantID != actor.ID && !actor.IsAdmin() {
		return nil, types.NewPermissionError("you can only edit your own reviews")
	}
	if input.RentalID != 0 && input.RentalID != review.RentalID {
		return nil, types.NewValidationError("rental_id", "a review cannot be moved to another rental")
	}

	if err := s.applyInput(review, input); err != nil {
		return nil, err
	}

	err = s.db.Model(&models.Review{}).Where("id = ?", review.ID).Updates(map[string]interface{}{
		"rating":             review.Rating,
		"comment":            review.Comment,
		"cleanliness_rating": review.CleanlinessRating,
		"location_rating":    review.LocationRating,
		"value_rating":       review.ValueRating,
		"landlord_rating":    review.LandlordRating,
		"title":              review.Title,
		"pros":               review.Pros,
		"cons":               review.Cons,
		"move_in_date":       review.MoveInDate,
		"move_out_date":      review.MoveOutDate,
		"would_recommend":    review.WouldRecommend,
	}).Error
	if err != nil {
		return nil, err
	}
	return s.load(reviewID)
}

// Delete removes the review with its votes and reports
func (s *ReviewService) Delete(actor *models.User, reviewID uint) error {
	review, err := s.load(reviewID)
	if err != nil {
		return err
	}
	if review.TenantID != actor.ID && !actor.IsAdmin() {
		return types.NewPermissionError("you can only delete your own reviews")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteReviewChildren(tx, []uint{review.ID}); err != nil {
			return err
		}
		return tx.Delete(&models.Review{}, review.ID).Error
	})
}

// deleteReviewChildren removes the votes and reports owned by the reviews
func deleteReviewChildren(tx *gorm.DB, reviewIDs []uint) error {
	if len(reviewIDs) == 0 {
		return nil
	}
	if err := tx.Where("review_id IN ?", reviewIDs).Delete(&models.ReviewHelpfulness{}).Error; err != nil {
		return err
	}
	return tx.Where("review_id IN ?", reviewIDs).Delete(&models.ReviewReport{}).Error
}

// Get returns a review. Hidden reviews are visible to their author and admins only.
func (s *ReviewService) Get(reviewID uint, viewer *models.User) (*models.Review, error) {
	review, err := s.load(reviewID)
	if err != nil {
		return nil, err
	}
	if !review.IsApproved {
		if viewer == nil || (viewer.ID != review.TenantID && !viewer.IsAdmin()) {
			return nil, types.NewNotFoundError("review")
		}
	}
	return review, nil
}

func (s *ReviewService) load(reviewID uint) (*models.Review, error) {
	var review models.Review
	if err := s.db.Preload("Tenant").First(&review, reviewID).Error; err != nil {
		return nil, notFound(err, "review")
	}
	return &review, nil
}

// List returns approved reviews matching the filter
func (s *ReviewService) List(filter *ReviewFilter, p Pagination) ([]models.Review, int64, error) {
	query := s.db.Model(&models.Review{}).
		Where("reviews.is_approved = ?", true).
		Scopes(filter.scope)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []models.Review
	err := query.Scopes(filter.order).
		Preload("Tenant").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&reviews).Error
	return reviews, total, err
}

// ForRental lists the approved reviews of one rental
func (s *ReviewService) ForRental(rentalID uint, filter *ReviewFilter, p Pagination) ([]models.Review, int64, error) {
	if err := s.requireRental(rentalID); err != nil {
		return nil, 0, err
	}
	filter.RentalID = &rentalID
	return s.List(filter, p)
}

// MyReviews lists every review written by the tenant, including hidden ones
func (s *ReviewService) MyReviews(tenantID uint, p Pagination) ([]models.Review, int64, error) {
	query := s.db.Model(&models.Review{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []models.Review
	err := query.Preload("Rental").
		Order("created_at DESC").Order("id DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&reviews).Error
	return reviews, total, err
}

// Recent returns the ten newest approved reviews
func (s *ReviewService) Recent() ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.Where("is_approved = ?", true).
		Preload("Tenant").
		Order("created_at DESC").Order("id DESC").
		Limit(highlightLimit).
		Find(&reviews).Error
	return reviews, err
}

// TopRated returns up to ten approved reviews rated 4 or higher
func (s *ReviewService) TopRated() ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.Where("is_approved = ? AND rating >= ?", true, 4).
		Preload("Tenant").
		Order("rating DESC").Order("helpful_votes DESC").Order("id DESC").
		Limit(highlightLimit).
		Find(&reviews).Error
	return reviews, err
}

// RentalStats summarizes the approved reviews of a rental
func (s *ReviewService) RentalStats(rentalID uint) (*models.ReviewStatistics, error) {
	if err := s.requireRental(rentalID); err != nil {
		return nil, err
	}

	base := func() *gorm.DB {
		return s.db.Model(&models.Review{}).Where("rental_id = ? AND is_approved = ?", rentalID, true)
	}

	var agg struct {
		Total          int64
		AvgRating      *float64
		AvgCleanliness *float64
		AvgLocation    *float64
		AvgValue       *float64
		AvgLandlord    *float64
		Recommended    int64
		Answered       int64
	}
	err := base().Select(`COUNT(*) AS total,
		AVG(rating) AS avg_rating,
		AVG(cleanliness_rating) AS avg_cleanliness,
		AVG(location_rating) AS avg_location,
		AVG(value_rating) AS avg_value,
		AVG(landlord_rating) AS avg_landlord,
		COALESCE(SUM(CASE WHEN would_recommend = ? THEN 1 ELSE 0 END), 0) AS recommended,
		COUNT(would_recommend) AS answered`, true).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}

	distribution, err := ratingDistribution(base())
	if err != nil {
		return nil, err
	}

	stats := &models.ReviewStatistics{
		RentalID:           rentalID,
		TotalReviews:       agg.Total,
		AverageRating:      roundOne(agg.AvgRating),
		AverageCleanliness: roundOne(agg.AvgCleanliness),
		AverageLocation:    roundOne(agg.AvgLocation),
		AverageValue:       roundOne(agg.AvgValue),
		AverageLandlord:    roundOne(agg.AvgLandlord),
		RatingDistribution: distribution,
	}
	if agg.Answered > 0 {
		stats.RecommendationPercentage = math.Round(float64(agg.Recommended)/float64(agg.Answered)*1000) / 10
	}
	return stats, nil
}

func (s *ReviewService) requireRental(rentalID uint) error {
	var count int64
	if err := s.db.Model(&models.Rental{}).Where("id = ?", rentalID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return types.NewNotFoundError("rental")
	}
	return nil
}

// ratingDistribution counts reviews per star, always returning keys 1..5
func ratingDistribution(query *gorm.DB) (map[int]int64, error) {
	var rows []struct {
		Rating int
		Count  int64
	}
	if err := query.Select("rating, COUNT(*) AS count").Group("rating").Scan(&rows).Error; err != nil {
		return nil, err
	}

	distribution := map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, row := range rows {
		distribution[row.Rating] = row.Count
	}
	return distribution, nil
}

func roundOne(v *float64) float64 {
	if v == nil {
		return 0
	}
	return math.Round(*v*10) / 10
}

// applyInput validates the payload and copies it onto review
func (s *ReviewService) applyInput(review *models.Review, input models.ReviewInput) error {
	if input.Rating < 1 || input.Rating > 5 {
		return types.NewValidationError("rating", "rating must be between 1 and 5")
	}
	subRatings := []struct {
		field string
		value *int
	}{
		{"cleanliness_rating", input.CleanlinessRating},
		{"location_rating", input.LocationRating},
		{"value_rating", input.ValueRating},
		{"landlord_rating", input.LandlordRating},
	}
	for _, sub := range subRatings {
		if sub.value != nil && (*sub.value < 1 || *sub.value > 5) {
			return types.NewValidationError(sub.field, "rating must be between 1 and 5")
		}
	}

	comment := utils.SanitizeText(input.Comment)
	if n := utf8.RuneCountInString(comment); n < minCommentLength {
		return types.NewValidationError("comment", "comment must be at least %d characters long", minCommentLength)
	} else if n > maxCommentLength {
		return types.NewValidationError("comment", "comment cannot exceed %d characters", maxCommentLength)
	}

	title := utils.SanitizeText(input.Title)
	if utf8.RuneCountInString(title) > maxTitleLength {
		return types.NewValidationError("title", "title cannot exceed %d characters", maxTitleLength)
	}
	pros := utils.SanitizeText(input.Pros)
	if utf8.RuneCountInString(pros) > maxProsConsLen {
		return types.NewValidationError("pros", "cannot exceed %d characters", maxProsConsLen)
	}
	cons := utils.SanitizeText(input.Cons)
	if utf8.RuneCountInString(cons) > maxProsConsLen {
		return types.NewValidationError("cons", "cannot exceed %d characters", maxProsConsLen)
	}

	moveIn, err := parseOptionalDate("move_in_date", input.MoveInDate)
	if err != nil {
		return err
	}
	moveOut, err := parseOptionalDate("move_out_date", input.MoveOutDate)
	if err != nil {
		return err
	}
	// Parsed dates are UTC midnights, so today is expressed the same way
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if moveIn != nil && moveIn.After(today) {
		return types.NewValidationError("move_in_date", "move-in date cannot be in the future")
	}
	if moveOut != nil && moveOut.After(today) {
		return types.NewValidationError("move_out_date", "move-out date cannot be in the future")
	}
	if moveIn != nil && moveOut != nil && !moveOut.After(*moveIn) {
		return types.NewValidationError("move_out_date", "move-out date must be after move-in date")
	}

	review.Rating = input.Rating
	review.Comment = comment
	review.CleanlinessRating = input.CleanlinessRating
	review.LocationRating = input.LocationRating
	review.ValueRating = input.ValueRating
	review.LandlordRating = input.LandlordRating
	review.Pros = pros
	review.Cons = cons
	review.MoveInDate = moveIn
	review.MoveOutDate = moveOut
	review.WouldRecommend = input.WouldRecommend
	review.Title = title
	if review.Title == "" {
		review.Title = review.DefaultTitle()
	}
	return nil
}

func parseOptionalDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, types.NewValidationError(field, "must be a date in YYYY-MM-DD format")
	}
	return &day, nil
}
