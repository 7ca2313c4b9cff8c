package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rental-platform-server/database"
	"rental-platform-server/models"
	"rental-platform-server/types"
)

// newTestDB opens a private in-memory database with the production schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, userType models.UserType) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     string(userType),
		PasswordHash: "not-a-real-hash",
		UserType:     userType,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func createRental(t *testing.T, db *gorm.DB, landlordID uint, mutate func(*models.Rental)) *models.Rental {
	t.Helper()
	rental := &models.Rental{
		Title:            "Bright two bedroom near campus",
		Description:      "A bright and quiet apartment a short walk from campus.",
		PropertyType:     models.PropertyApartment,
		LandlordID:       landlordID,
		Price:            1000,
		Address:          "12 College Ave",
		City:             "Springfield",
		State:            "IL",
		ZipCode:          "62701",
		Country:          "USA",
		Bedrooms:         2,
		Bathrooms:        1,
		FurnishingStatus: models.Unfurnished,
		AvailableFrom:    time.Now().Add(-24 * time.Hour),
		LeaseDurationMin: 12,
		Status:           models.RentalStatusAvailable,
	}
	if mutate != nil {
		mutate(rental)
	}
	if err := db.Omit("Landlord", "Images").Create(rental).Error; err != nil {
		t.Fatalf("create rental: %v", err)
	}
	return rental
}

func createReview(t *testing.T, db *gorm.DB, rentalID, tenantID uint, rating int) *models.Review {
	t.Helper()
	review := &models.Review{
		RentalID:   rentalID,
		TenantID:   tenantID,
		Rating:     rating,
		Comment:    "Great place to live, the landlord was responsive.",
		Title:      "Nice stay",
		IsApproved: true,
	}
	if err := db.Omit("Rental", "Tenant").Create(review).Error; err != nil {
		t.Fatalf("create review: %v", err)
	}
	return review
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }

func assertValidation(t *testing.T, err error, field string) {
	t.Helper()
	var ve *types.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError on %q, got %v", field, err)
	}
	if ve.Field != field {
		t.Fatalf("expected field %q, got %q (%s)", field, ve.Field, ve.Message)
	}
}

func assertPermission(t *testing.T, err error) {
	t.Helper()
	var pe *types.PermissionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
}

func assertConflict(t *testing.T, err error) {
	t.Helper()
	var ce *types.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	var nf *types.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
