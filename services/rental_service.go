package services

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rental-platform-server/models"
	"rental-platform-server/types"
	"rental-platform-server/utils"
)

const (
	highlightLimit = 10

	featuredCacheKey = "rentals:featured"
	recentCacheKey   = "rentals:recent"
)

// Geocoder resolves an address to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*utils.GeocodingResult, error)
}

// RentalService owns listings, favorites and the listing caches
type RentalService struct {
	db       *gorm.DB
	cache    *utils.TTLCache
	geocoder Geocoder
	now      func() time.Time
}

// NewRentalService creates the service. cache and geocoder may be nil.
func NewRentalService(db *gorm.DB, cache *utils.TTLCache, geocoder Geocoder) *RentalService {
	return &RentalService{db: db, cache: cache, geocoder: geocoder, now: time.Now}
}

// Search runs a validated filter and returns one page of results
func (s *RentalService) Search(filter *RentalFilter, p Pagination) ([]models.Rental, int64, error) {
	query := s.db.Model(&models.Rental{}).Scopes(filter.FilterScope())

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rentals []models.Rental
	err := query.Scopes(filter.OrderScope()).
		Preload("Images", orderImages).
		Offset(p.Offset()).Limit(p.Limit).
		Find(&rentals).Error
	if err != nil {
		return nil, 0, err
	}

	if err := s.annotate(rentals); err != nil {
		return nil, 0, err
	}
	filter.annotateDistance(rentals)
	return rentals, total, nil
}

// GetDetail loads one rental for requester, who is nil for anonymous visitors.
// Unlisted rentals are only visible to their landlord and to admins. Views are
// counted unless the requester owns the listing.
func (s *RentalService) GetDetail(rentalID uint, requester *models.User) (*models.Rental, error) {
	var rental models.Rental
	err := s.db.Preload("Images", orderImages).Preload("Landlord").First(&rental, rentalID).Error
	if err != nil {
		return nil, notFound(err, "rental")
	}

	isOwner := requester != nil && requester.ID == rental.LandlordID
	if !rental.IsListed() && !isOwner && (requester == nil || !requester.IsAdmin()) {
		return nil, types.NewNotFoundError("rental")
	}

	if !isOwner {
		if err := s.db.Model(&models.Rental{}).Where("id = ?", rental.ID).
			UpdateColumn("views_count", gorm.Expr("views_count + ?", 1)).Error; err != nil {
			return nil, err
		}
		rental.ViewsCount++
	}

	list := []models.Rental{rental}
	if err := s.annotate(list); err != nil {
		return nil, err
	}
	rental = list[0]
	rental.DescriptionHTML = utils.RenderMarkdown(rental.Description)
	return &rental, nil
}

func orderImages(db *gorm.DB) *gorm.DB {
	return db.Order("is_primary DESC").Order("sort_order ASC").Order("id ASC")
}

// annotate fills the derived rating and availability fields
func (s *RentalService) annotate(rentals []models.Rental) error {
	if len(rentals) == 0 {
		return nil
	}

	ids := make([]uint, len(rentals))
	for i := range rentals {
		ids[i] = rentals[i].ID
	}

	var rows []struct {
		RentalID  uint
		AvgRating float64
		Count     int64
	}
	err := s.db.Model(&models.Review{}).
		Select("rental_id, AVG(rating) AS avg_rating, COUNT(*) AS count").
		Where("rental_id IN ? AND is_approved = ?", ids, true).
		Group("rental_id").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	byRental := make(map[uint]int, len(rows))
	for i, row := range rows {
		byRental[row.RentalID] = i
	}

	now := s.now()
	for i := range rentals {
		r := &rentals[i]
		r.IsAvailable = r.AvailableNow(now)
		if idx, ok := byRental[r.ID]; ok {
			r.AverageRating = math.Round(rows[idx].AvgRating*10) / 10
			r.ReviewCount = rows[idx].Count
		}
	}
	return nil
}

// Create adds a listing owned by the actor
func (s *RentalService) Create(ctx context.Context, actor *models.User, input models.RentalInput) (*models.Rental, error) {
	if !actor.IsLandlord() && !actor.IsAdmin() {
		return nil, types.NewPermissionError("only landlords can create rental listings")
	}

	rental := &models.Rental{
		LandlordID:       actor.ID,
		Country:          "USA",
		FurnishingStatus: models.Unfurnished,
		LeaseDurationMin: 12,
		Status:           models.RentalStatusAvailable,
	}
	if err := applyRentalInput(rental, input); err != nil {
		return nil, err
	}
	if rental.ContactEmail == "" {
		rental.ContactEmail = actor.Email
	}
	if err := validateRental(rental); err != nil {
		return nil, err
	}
	s.fillCoordinates(ctx, rental)

	if err := s.db.Omit(clause.Associations).Create(rental).Error; err != nil {
		return nil, err
	}

	s.invalidate()
	log.Printf("✅ Rental created: ID=%d, Landlord=%d", rental.ID, rental.LandlordID)
	return rental, nil
}

// Update applies a partial change. Only the owning landlord or an admin may update.
func (s *RentalService) Update(ctx context.Context, actor *models.User, rentalID uint, input models.RentalInput) (*models.Rental, error) {
	rental, err := s.loadManaged(actor, rentalID)
	if err != nil {
		return nil, err
	}

	addressBefore := rental.FullAddress()
	if err := applyRentalInput(rental, input); err != nil {
		return nil, err
	}
	if err := validateRental(rental); err != nil {
		return nil, err
	}
	if s.geocoder != nil && input.Latitude == nil && input.Longitude == nil && rental.FullAddress() != addressBefore {
		rental.Latitude, rental.Longitude = nil, nil
		s.fillCoordinates(ctx, rental)
	}

	if err := s.db.Omit(clause.Associations).Save(rental).Error; err != nil {
		return nil, err
	}

	s.invalidate()
	return rental, nil
}

// Delete removes a listing and everything it owns in one transaction
func (s *RentalService) Delete(actor *models.User, rentalID uint) error {
	rental, err := s.loadManaged(actor, rentalID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return deleteRentalRows(tx, []uint{rental.ID})
	})
	if err != nil {
		return err
	}

	s.invalidate()
	log.Printf("✅ Rental deleted: ID=%d by user %d", rental.ID, actor.ID)
	return nil
}

// deleteRentalRows removes rentals with their reviews, favorites, inquiries and images
func deleteRentalRows(tx *gorm.DB, rentalIDs []uint) error {
	if len(rentalIDs) == 0 {
		return nil
	}
	var reviewIDs []uint
	if err := tx.Model(&models.Review{}).Where("rental_id IN ?", rentalIDs).Pluck("id", &reviewIDs).Error; err != nil {
		return err
	}
	if err := deleteReviewChildren(tx, reviewIDs); err != nil {
		return err
	}
	for _, child := range []interface{}{
		&models.Review{},
		&models.RentalFavorite{},
		&models.RentalInquiry{},
		&models.RentalImage{},
	} {
		if err := tx.Where("rental_id IN ?", rentalIDs).Delete(child).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&models.Rental{}, rentalIDs).Error
}

// loadManaged returns the rental when the actor owns it or is an admin
func (s *RentalService) loadManaged(actor *models.User, rentalID uint) (*models.Rental, error) {
	var rental models.Rental
	if err := s.db.First(&rental, rentalID).Error; err != nil {
		return nil, notFound(err, "rental")
	}
	if !actor.IsAdmin() && rental.LandlordID != actor.ID {
		return nil, types.NewPermissionError("you can only manage your own rental listings")
	}
	return &rental, nil
}

func (s *RentalService) fillCoordinates(ctx context.Context, rental *models.Rental) {
	if s.geocoder == nil || (rental.Latitude != nil && rental.Longitude != nil) {
		return
	}

	result, err := s.geocoder.Geocode(ctx, rental.FullAddress())
	if err != nil {
		if !errors.Is(err, utils.ErrNoGeocodingResult) {
			log.Printf("⚠️ Geocoding failed for rental address %q: %v", rental.FullAddress(), err)
		}
		return
	}
	rental.Latitude = &result.Latitude
	rental.Longitude = &result.Longitude
}

// MyRentals lists the landlord's own listings in any status
func (s *RentalService) MyRentals(landlordID uint, p Pagination) ([]models.Rental, int64, error) {
	query := s.db.Model(&models.Rental{}).Where("landlord_id = ?", landlordID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rentals []models.Rental
	err := query.Preload("Images", orderImages).
		Order("created_at DESC").Order("id DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&rentals).Error
	if err != nil {
		return nil, 0, err
	}
	return rentals, total, s.annotate(rentals)
}

// ToggleFavorite adds or removes the favorite and reports the new state
func (s *RentalService) ToggleFavorite(userID, rentalID uint) (bool, error) {
	var favorited bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rental models.Rental
		if err := tx.Select("id").First(&rental, rentalID).Error; err != nil {
			return notFound(err, "rental")
		}

		var existing models.RentalFavorite
		err := tx.Where("user_id = ? AND rental_id = ?", userID, rentalID).First(&existing).Error
		switch {
		case err == nil:
			favorited = false
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			favorited = true
			if err := tx.Create(&models.RentalFavorite{UserID: userID, RentalID: rentalID}).Error; err != nil && !isUniqueViolation(err) {
				return err
			}
			return nil
		default:
			return err
		}
	})
	return favorited, err
}

// Favorites lists the user's favorites with their rentals
func (s *RentalService) Favorites(userID uint, p Pagination) ([]models.RentalFavorite, int64, error) {
	query := s.db.Model(&models.RentalFavorite{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var favorites []models.RentalFavorite
	err := query.Preload("Rental").Preload("Rental.Images", orderImages).
		Order("created_at DESC").Order("id DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&favorites).Error
	return favorites, total, err
}

// Featured returns up to ten featured available listings, newest first
func (s *RentalService) Featured() ([]models.Rental, error) {
	return s.cachedList(featuredCacheKey, func(db *gorm.DB) *gorm.DB {
		return db.Where("is_featured = ? AND status = ?", true, models.RentalStatusAvailable)
	})
}

// Recent returns up to ten available listings, newest first
func (s *RentalService) Recent() ([]models.Rental, error) {
	return s.cachedList(recentCacheKey, func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ?", models.RentalStatusAvailable)
	})
}

func (s *RentalService) cachedList(key string, scope func(*gorm.DB) *gorm.DB) ([]models.Rental, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(key).([]models.Rental); ok {
			return cached, nil
		}
	}

	var rentals []models.Rental
	err := s.db.Scopes(scope).
		Preload("Images", orderImages).
		Order("created_at DESC").Order("id DESC").
		Limit(highlightLimit).
		Find(&rentals).Error
	if err != nil {
		return nil, err
	}
	if err := s.annotate(rentals); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, rentals)
	}
	return rentals, nil
}

// PurgeCache drops cached listing highlights, e.g. after listings were
// removed outside this service
func (s *RentalService) PurgeCache() {
	s.invalidate()
}

// invalidate drops cached listing highlights after any mutation
func (s *RentalService) invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// ToggleFeatured flips is_featured (admin)
func (s *RentalService) ToggleFeatured(rentalID uint) (*models.Rental, error) {
	var rental models.Rental
	if err := s.db.First(&rental, rentalID).Error; err != nil {
		return nil, notFound(err, "rental")
	}

	rental.IsFeatured = !rental.IsFeatured
	if err := s.db.Model(&rental).Update("is_featured", rental.IsFeatured).Error; err != nil {
		return nil, err
	}

	s.invalidate()
	return &rental, nil
}

// UpdateStatus sets the listing status (admin)
func (s *RentalService) UpdateStatus(rentalID uint, status string) (*models.Rental, error) {
	if !models.IsValidRentalStatus(status) {
		return nil, types.NewValidationError("status", "unknown rental status %q", status)
	}

	var rental models.Rental
	if err := s.db.First(&rental, rentalID).Error; err != nil {
		return nil, notFound(err, "rental")
	}

	rental.Status = models.RentalStatus(status)
	if err := s.db.Model(&rental).Update("status", rental.Status).Error; err != nil {
		return nil, err
	}

	s.invalidate()
	return &rental, nil
}

// Statistics aggregates the listing store for admins
func (s *RentalService) Statistics() (*models.RentalStatistics, error) {
	stats := &models.RentalStatistics{
		ByStatus:       map[string]int64{},
		ByPropertyType: map[string]int64{},
	}

	if err := s.db.Model(&models.Rental{}).Count(&stats.TotalRentals).Error; err != nil {
		return nil, err
	}

	var groups []struct {
		Label string
		Count int64
	}
	if err := s.db.Model(&models.Rental{}).Select("status AS label, COUNT(*) AS count").Group("status").Scan(&groups).Error; err != nil {
		return nil, err
	}
	for _, g := range groups {
		stats.ByStatus[g.Label] = g.Count
	}

	groups = nil
	if err := s.db.Model(&models.Rental{}).Select("property_type AS label, COUNT(*) AS count").Group("property_type").Scan(&groups).Error; err != nil {
		return nil, err
	}
	for _, g := range groups {
		stats.ByPropertyType[g.Label] = g.Count
	}

	if err := s.db.Model(&models.Rental{}).Where("is_featured = ?", true).Count(&stats.FeaturedRentals).Error; err != nil {
		return nil, err
	}

	var totals struct {
		AveragePrice float64
		TotalViews   int64
	}
	if err := s.db.Model(&models.Rental{}).
		Select("COALESCE(AVG(price), 0) AS average_price, COALESCE(SUM(views_count), 0) AS total_views").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	stats.AveragePrice = math.Round(totals.AveragePrice*100) / 100
	stats.TotalViews = totals.TotalViews
	return stats, nil
}

// applyRentalInput copies the provided fields onto rental
func applyRentalInput(r *models.Rental, in models.RentalInput) error {
	if in.Title != nil {
		r.Title = utils.SanitizeText(*in.Title)
	}
	if in.Description != nil {
		r.Description = strings.TrimSpace(*in.Description)
	}
	if in.PropertyType != nil {
		r.PropertyType = models.PropertyType(*in.PropertyType)
	}
	if in.Price != nil {
		r.Price = *in.Price
	}
	if in.SecurityDeposit != nil {
		r.SecurityDeposit = *in.SecurityDeposit
	}
	if in.UtilitiesIncluded != nil {
		r.UtilitiesIncluded = *in.UtilitiesIncluded
	}
	if in.Address != nil {
		r.Address = utils.SanitizeText(*in.Address)
	}
	if in.City != nil {
		r.City = utils.SanitizeText(*in.City)
	}
	if in.State != nil {
		r.State = utils.SanitizeText(*in.State)
	}
	if in.ZipCode != nil {
		r.ZipCode = strings.TrimSpace(*in.ZipCode)
	}
	if in.Country != nil {
		r.Country = strings.TrimSpace(*in.Country)
	}
	if in.Latitude != nil {
		r.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		r.Longitude = in.Longitude
	}
	if in.Bedrooms != nil {
		r.Bedrooms = *in.Bedrooms
	}
	if in.Bathrooms != nil {
		r.Bathrooms = *in.Bathrooms
	}
	if in.SquareFootage != nil {
		r.SquareFootage = in.SquareFootage
	}
	if in.FurnishingStatus != nil {
		r.FurnishingStatus = models.FurnishingStatus(*in.FurnishingStatus)
	}
	if in.ParkingAvailable != nil {
		r.ParkingAvailable = *in.ParkingAvailable
	}
	if in.ParkingSpots != nil {
		r.ParkingSpots = *in.ParkingSpots
	}
	if in.PetsAllowed != nil {
		r.PetsAllowed = *in.PetsAllowed
	}
	if in.SmokingAllowed != nil {
		r.SmokingAllowed = *in.SmokingAllowed
	}
	if in.LaundryInUnit != nil {
		r.LaundryInUnit = *in.LaundryInUnit
	}
	if in.InternetIncluded != nil {
		r.InternetIncluded = *in.InternetIncluded
	}
	if in.GymAccess != nil {
		r.GymAccess = *in.GymAccess
	}
	if in.PoolAccess != nil {
		r.PoolAccess = *in.PoolAccess
	}
	if in.AvailableFrom != nil {
		day, err := time.Parse(dateLayout, strings.TrimSpace(*in.AvailableFrom))
		if err != nil {
			return types.NewValidationError("available_from", "must be a date in YYYY-MM-DD format")
		}
		r.AvailableFrom = day
	}
	if in.LeaseDurationMin != nil {
		r.LeaseDurationMin = *in.LeaseDurationMin
	}
	if in.LeaseDurationMax != nil {
		r.LeaseDurationMax = in.LeaseDurationMax
	}
	if in.ContactPhone != nil {
		r.ContactPhone = strings.TrimSpace(*in.ContactPhone)
	}
	if in.ContactEmail != nil {
		r.ContactEmail = strings.ToLower(strings.TrimSpace(*in.ContactEmail))
	}
	if in.DistanceToCampus != nil {
		r.DistanceToCampus = in.DistanceToCampus
	}
	if in.ShuttleService != nil {
		r.ShuttleService = *in.ShuttleService
	}
	return nil
}

// validateRental checks the listing as it would be stored
func validateRental(r *models.Rental) error {
	if l := len(r.Title); l < 5 || l > 200 {
		return types.NewValidationError("title", "title must be between 5 and 200 characters")
	}
	if r.Description == "" {
		return types.NewValidationError("description", "description is required")
	}
	if !models.IsValidPropertyType(string(r.PropertyType)) {
		return types.NewValidationError("property_type", "unknown property type %q", r.PropertyType)
	}
	if !models.IsValidFurnishingStatus(string(r.FurnishingStatus)) {
		return types.NewValidationError("furnishing_status", "unknown furnishing status %q", r.FurnishingStatus)
	}
	if r.Price <= 0 {
		return types.NewValidationError("price", "price must be greater than zero")
	}
	if r.SecurityDeposit < 0 {
		return types.NewValidationError("security_deposit", "security deposit cannot be negative")
	}
	if r.Address == "" {
		return types.NewValidationError("address", "address is required")
	}
	if r.City == "" {
		return types.NewValidationError("city", "city is required")
	}
	if r.State == "" {
		return types.NewValidationError("state", "state is required")
	}
	if r.Latitude != nil && !utils.IsValidLatitude(*r.Latitude) {
		return types.NewValidationError("latitude", "must be between -90 and 90")
	}
	if r.Longitude != nil && !utils.IsValidLongitude(*r.Longitude) {
		return types.NewValidationError("longitude", "must be between -180 and 180")
	}
	if r.Bedrooms < 0 || r.Bedrooms > 20 {
		return types.NewValidationError("bedrooms", "must be between 0 and 20")
	}
	if r.Bathrooms < 1 || r.Bathrooms > 20 {
		return types.NewValidationError("bathrooms", "must be between 1 and 20")
	}
	if r.AvailableFrom.IsZero() {
		return types.NewValidationError("available_from", "availability date is required")
	}
	if r.LeaseDurationMin < 1 || r.LeaseDurationMin > 60 {
		return types.NewValidationError("lease_duration_min", "must be between 1 and 60 months")
	}
	if r.LeaseDurationMax != nil {
		if *r.LeaseDurationMax < 1 || *r.LeaseDurationMax > 60 {
			return types.NewValidationError("lease_duration_max", "must be between 1 and 60 months")
		}
		if *r.LeaseDurationMax < r.LeaseDurationMin {
			return types.NewValidationError("lease_duration_max", "maximum lease duration must be greater than or equal to minimum")
		}
	}
	if r.ContactPhone != "" && !utils.ValidatePhoneNumber(r.ContactPhone) {
		return types.NewValidationError("contact_phone", "phone number must be entered in the format '+999999999', 9 to 15 digits")
	}
	if r.DistanceToCampus != nil && *r.DistanceToCampus < 0 {
		return types.NewValidationError("distance_to_campus", "cannot be negative")
	}
	return nil
}
