package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type PropertyType string

const (
	PropertyApartment PropertyType = "apartment"
	PropertyHouse     PropertyType = "house"
	PropertyCondo     PropertyType = "condo"
	PropertyTownhouse PropertyType = "townhouse"
	PropertyStudio    PropertyType = "studio"
	PropertyRoom      PropertyType = "room"
	PropertyOther     PropertyType = "other"
)

type FurnishingStatus string

const (
	Furnished     FurnishingStatus = "furnished"
	SemiFurnished FurnishingStatus = "semi_furnished"
	Unfurnished   FurnishingStatus = "unfurnished"
)

type RentalStatus string

const (
	RentalStatusAvailable   RentalStatus = "available"
	RentalStatusRented      RentalStatus = "rented"
	RentalStatusPending     RentalStatus = "pending"
	RentalStatusMaintenance RentalStatus = "maintenance"
	RentalStatusInactive    RentalStatus = "inactive"
)

// ListedStatuses are the statuses visible in public search results
var ListedStatuses = []RentalStatus{RentalStatusAvailable, RentalStatusRented}

// IsListed reports whether the rental shows up publicly
func (r *Rental) IsListed() bool {
	for _, status := range ListedStatuses {
		if r.Status == status {
			return true
		}
	}
	return false
}

func IsValidPropertyType(v string) bool {
	switch PropertyType(v) {
	case PropertyApartment, PropertyHouse, PropertyCondo, PropertyTownhouse,
		PropertyStudio, PropertyRoom, PropertyOther:
		return true
	}
	return false
}

func IsValidFurnishingStatus(v string) bool {
	switch FurnishingStatus(v) {
	case Furnished, SemiFurnished, Unfurnished:
		return true
	}
	return false
}

func IsValidRentalStatus(v string) bool {
	switch RentalStatus(v) {
	case RentalStatusAvailable, RentalStatusRented, RentalStatusPending,
		RentalStatusMaintenance, RentalStatusInactive:
		return true
	}
	return false
}

type Rental struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	Title        string       `json:"title" gorm:"size:200;not null"`
	Description  string       `json:"description" gorm:"type:text;not null"`
	PropertyType PropertyType `json:"property_type" gorm:"type:varchar(20);not null;index;check:property_type IN ('apartment','house','condo','townhouse','studio','room','other')"`
	LandlordID   uint         `json:"landlord_id" gorm:"not null;index"`

	// Pricing
	Price             float64 `json:"price" gorm:"type:decimal(10,2);not null;index;check:price >= 0"`
	SecurityDeposit   float64 `json:"security_deposit" gorm:"type:decimal(10,2);default:0"`
	UtilitiesIncluded bool    `json:"utilities_included" gorm:"default:false"`

	// Location
	Address   string   `json:"address" gorm:"type:text;not null"`
	City      string   `json:"city" gorm:"size:100;not null;index"`
	State     string   `json:"state" gorm:"size:50;not null;index"`
	ZipCode   string   `json:"zip_code" gorm:"size:10"`
	Country   string   `json:"country" gorm:"size:50;default:'USA'"`
	Latitude  *float64 `json:"latitude" gorm:"type:decimal(9,6)"`
	Longitude *float64 `json:"longitude" gorm:"type:decimal(9,6)"`

	// Property details
	Bedrooms         int              `json:"bedrooms" gorm:"not null;check:bedrooms >= 0 AND bedrooms <= 20"`
	Bathrooms        int              `json:"bathrooms" gorm:"not null;check:bathrooms >= 1 AND bathrooms <= 20"`
	SquareFootage    *int             `json:"square_footage"`
	FurnishingStatus FurnishingStatus `json:"furnishing_status" gorm:"type:varchar(20);not null;default:'unfurnished'"`

	// Amenities
	ParkingAvailable bool `json:"parking_available" gorm:"default:false"`
	ParkingSpots     int  `json:"parking_spots" gorm:"default:0"`
	PetsAllowed      bool `json:"pets_allowed" gorm:"default:false"`
	SmokingAllowed   bool `json:"smoking_allowed" gorm:"default:false"`
	LaundryInUnit    bool `json:"laundry_in_unit" gorm:"default:false"`
	InternetIncluded bool `json:"internet_included" gorm:"default:false"`
	GymAccess        bool `json:"gym_access" gorm:"default:false"`
	PoolAccess       bool `json:"pool_access" gorm:"default:false"`

	// Availability and lease
	AvailableFrom    time.Time    `json:"available_from" gorm:"not null;index"`
	LeaseDurationMin int          `json:"lease_duration_min" gorm:"not null;default:12"`
	LeaseDurationMax *int         `json:"lease_duration_max"`
	Status           RentalStatus `json:"status" gorm:"type:varchar(20);not null;default:'available';index;check:status IN ('available','rented','pending','maintenance','inactive')"`
	IsFeatured       bool         `json:"is_featured" gorm:"default:false;index"`

	// Contact
	ContactPhone string `json:"contact_phone" gorm:"size:17"`
	ContactEmail string `json:"contact_email" gorm:"size:254"`

	// Student housing
	DistanceToCampus *float64 `json:"distance_to_campus"`
	ShuttleService   bool     `json:"shuttle_service" gorm:"default:false"`

	ViewsCount int       `json:"views_count" gorm:"default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Landlord *User         `json:"-" gorm:"foreignKey:LandlordID"`
	Images   []RentalImage `json:"images,omitempty" gorm:"foreignKey:RentalID;constraint:OnDelete:CASCADE"`

	// Derived, never stored
	AverageRating float64      `json:"average_rating" gorm:"-"`
	ReviewCount   int64        `json:"review_count" gorm:"-"`
	IsAvailable   bool         `json:"is_available" gorm:"-"`
	LandlordInfo  *UserSummary `json:"landlord,omitempty" gorm:"-"`

	// Set on detail views and geo searches only
	DescriptionHTML string   `json:"description_html,omitempty" gorm:"-"`
	DistanceMiles   *float64 `json:"distance_miles,omitempty" gorm:"-"`
}

func (Rental) TableName() string {
	return "rentals"
}

// AfterFind exposes the landlord as a public summary
func (r *Rental) AfterFind(tx *gorm.DB) error {
	if r.Landlord != nil {
		summary := r.Landlord.Summary()
		r.LandlordInfo = &summary
	}
	return nil
}

// FullAddress returns "address, city, state zip"
func (r *Rental) FullAddress() string {
	return fmt.Sprintf("%s, %s, %s %s", r.Address, r.City, r.State, r.ZipCode)
}

// AvailableNow reports whether the rental is available and its availability date has passed.
func (r *Rental) AvailableNow(now time.Time) bool {
	return r.Status == RentalStatusAvailable && !r.AvailableFrom.After(now)
}

// PrimaryImage returns the primary image, or the first one when none is marked.
func (r *Rental) PrimaryImage() *RentalImage {
	for i := range r.Images {
		if r.Images[i].IsPrimary {
			return &r.Images[i]
		}
	}
	if len(r.Images) > 0 {
		return &r.Images[0]
	}
	return nil
}

// RentalInput is the create/update payload. Pointer fields are optional on update.
type RentalInput struct {
	Title             *string  `json:"title" binding:"omitempty,min=5,max=200"`
	Description       *string  `json:"description" binding:"omitempty,min=20"`
	PropertyType      *string  `json:"property_type" binding:"omitempty,oneof=apartment house condo townhouse studio room other"`
	Price             *float64 `json:"price" binding:"omitempty,gt=0"`
	SecurityDeposit   *float64 `json:"security_deposit" binding:"omitempty,gte=0"`
	UtilitiesIncluded *bool    `json:"utilities_included"`
	Address           *string  `json:"address"`
	City              *string  `json:"city" binding:"omitempty,max=100"`
	State             *string  `json:"state" binding:"omitempty,max=50"`
	ZipCode           *string  `json:"zip_code" binding:"omitempty,max=10"`
	Country           *string  `json:"country" binding:"omitempty,max=50"`
	Latitude          *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude         *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	Bedrooms          *int     `json:"bedrooms" binding:"omitempty,gte=0,lte=20"`
	Bathrooms         *int     `json:"bathrooms" binding:"omitempty,gte=1,lte=20"`
	SquareFootage     *int     `json:"square_footage" binding:"omitempty,gte=0"`
	FurnishingStatus  *string  `json:"furnishing_status" binding:"omitempty,oneof=furnished semi_furnished unfurnished"`
	ParkingAvailable  *bool    `json:"parking_available"`
	ParkingSpots      *int     `json:"parking_spots" binding:"omitempty,gte=0"`
	PetsAllowed       *bool    `json:"pets_allowed"`
	SmokingAllowed    *bool    `json:"smoking_allowed"`
	LaundryInUnit     *bool    `json:"laundry_in_unit"`
	InternetIncluded  *bool    `json:"internet_included"`
	GymAccess         *bool    `json:"gym_access"`
	PoolAccess        *bool    `json:"pool_access"`
	AvailableFrom     *string  `json:"available_from"`
	LeaseDurationMin  *int     `json:"lease_duration_min" binding:"omitempty,gte=1,lte=60"`
	LeaseDurationMax  *int     `json:"lease_duration_max" binding:"omitempty,gte=1,lte=60"`
	ContactPhone      *string  `json:"contact_phone" binding:"omitempty,max=17"`
	ContactEmail      *string  `json:"contact_email" binding:"omitempty,email"`
	DistanceToCampus  *float64 `json:"distance_to_campus" binding:"omitempty,gte=0"`
	ShuttleService    *bool    `json:"shuttle_service"`
}

// RentalStatistics is the admin overview of the listing store
type RentalStatistics struct {
	TotalRentals    int64            `json:"total_rentals"`
	ByStatus        map[string]int64 `json:"by_status"`
	ByPropertyType  map[string]int64 `json:"by_property_type"`
	FeaturedRentals int64            `json:"featured_rentals"`
	AveragePrice    float64          `json:"average_price"`
	TotalViews      int64            `json:"total_views"`
}
