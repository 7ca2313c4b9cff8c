package services

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"rental-platform-server/models"
	"rental-platform-server/types"
	"rental-platform-server/utils"
)

const dateLayout = "2006-01-02"

// Search ordering keys
const (
	OrderNewest        = "-created_at"
	OrderOldest        = "created_at"
	OrderPriceAsc      = "price"
	OrderPriceDesc     = "-price"
	OrderDistanceAsc   = "distance_to_campus"
	OrderMostViewed    = "-views_count"
	DefaultRentalOrder = OrderNewest
)

var rentalOrderings = map[string]string{
	OrderNewest:      "created_at DESC",
	OrderOldest:      "created_at ASC",
	OrderPriceAsc:    "price ASC",
	OrderPriceDesc:   "price DESC",
	OrderDistanceAsc: "distance_to_campus ASC",
	OrderMostViewed:  "views_count DESC",
}

// GeoRadius is the all-or-nothing latitude/longitude/radius triple
type GeoRadius struct {
	Latitude  float64
	Longitude float64
	Radius    float64 // miles
}

// RentalFilter is a validated set of search options. Nil fields impose no constraint.
type RentalFilter struct {
	Query               string
	City                string
	State               string
	PropertyType        string
	FurnishingStatus    string
	MinPrice            *float64
	MaxPrice            *float64
	Bedrooms            *int
	Bathrooms           *int
	PetsAllowed         bool
	ParkingAvailable    bool
	UtilitiesIncluded   bool
	ShuttleService      bool
	MaxDistanceToCampus *float64
	AvailableFrom       *time.Time
	Geo                 *GeoRadius
	Ordering            string
}

// ParseRentalFilter reads a flat parameter set into a RentalFilter. Unknown keys
// are ignored. Every check runs here, before any query is built.
func ParseRentalFilter(values url.Values) (*RentalFilter, error) {
	f := &RentalFilter{
		Query:            strings.TrimSpace(firstNonEmpty(values.Get("search"), values.Get("query"))),
		City:             strings.TrimSpace(values.Get("city")),
		State:            strings.TrimSpace(values.Get("state")),
		PropertyType:     strings.TrimSpace(values.Get("property_type")),
		FurnishingStatus: strings.TrimSpace(values.Get("furnishing_status")),
		Ordering:         strings.TrimSpace(values.Get("ordering")),
	}

	var err error
	if f.MinPrice, err = parseFloatParam(values, "min_price"); err != nil {
		return nil, err
	}
	if f.MaxPrice, err = parseFloatParam(values, "max_price"); err != nil {
		return nil, err
	}
	if f.Bedrooms, err = parseIntParam(values, "bedrooms"); err != nil {
		return nil, err
	}
	if f.Bathrooms, err = parseIntParam(values, "bathrooms"); err != nil {
		return nil, err
	}
	if f.MaxDistanceToCampus, err = parseFloatParam(values, "max_distance_to_campus"); err != nil {
		return nil, err
	}
	if raw := strings.TrimSpace(values.Get("available_from")); raw != "" {
		day, perr := time.Parse(dateLayout, raw)
		if perr != nil {
			return nil, types.NewValidationError("available_from", "must be a date in YYYY-MM-DD format")
		}
		f.AvailableFrom = &day
	}

	f.PetsAllowed = parseTrueParam(values, "pets_allowed")
	f.ParkingAvailable = parseTrueParam(values, "parking_available")
	f.UtilitiesIncluded = parseTrueParam(values, "utilities_included")
	f.ShuttleService = parseTrueParam(values, "shuttle_service")

	lat, err := parseFloatParam(values, "latitude")
	if err != nil {
		return nil, err
	}
	lon, err := parseFloatParam(values, "longitude")
	if err != nil {
		return nil, err
	}
	radius, err := parseFloatParam(values, "radius")
	if err != nil {
		return nil, err
	}
	if lat != nil || lon != nil || radius != nil {
		switch {
		case lat == nil:
			return nil, types.NewValidationError("latitude", "latitude, longitude and radius must be provided together")
		case lon == nil:
			return nil, types.NewValidationError("longitude", "latitude, longitude and radius must be provided together")
		case radius == nil:
			return nil, types.NewValidationError("radius", "latitude, longitude and radius must be provided together")
		}
		f.Geo = &GeoRadius{Latitude: *lat, Longitude: *lon, Radius: *radius}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks ranges and cross-field rules
func (f *RentalFilter) Validate() error {
	if f.MinPrice != nil && *f.MinPrice < 0 {
		return types.NewValidationError("min_price", "must be zero or greater")
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		return types.NewValidationError("max_price", "must be zero or greater")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return types.NewValidationError("max_price", "maximum price must be greater than minimum price")
	}
	if f.Bedrooms != nil && *f.Bedrooms < 0 {
		return types.NewValidationError("bedrooms", "must be zero or greater")
	}
	if f.Bathrooms != nil && *f.Bathrooms < 1 {
		return types.NewValidationError("bathrooms", "must be at least 1")
	}
	if f.MaxDistanceToCampus != nil && *f.MaxDistanceToCampus < 0 {
		return types.NewValidationError("max_distance_to_campus", "must be zero or greater")
	}
	if f.PropertyType != "" && !models.IsValidPropertyType(f.PropertyType) {
		return types.NewValidationError("property_type", "unknown property type %q", f.PropertyType)
	}
	if f.FurnishingStatus != "" && !models.IsValidFurnishingStatus(f.FurnishingStatus) {
		return types.NewValidationError("furnishing_status", "unknown furnishing status %q", f.FurnishingStatus)
	}
	if f.Geo != nil {
		if !utils.IsValidLatitude(f.Geo.Latitude) {
			return types.NewValidationError("latitude", "must be between -90 and 90")
		}
		if !utils.IsValidLongitude(f.Geo.Longitude) {
			return types.NewValidationError("longitude", "must be between -180 and 180")
		}
		if f.Geo.Radius < 0.1 || f.Geo.Radius > 50 {
			return types.NewValidationError("radius", "must be between 0.1 and 50 miles")
		}
	}
	if f.Ordering == "" {
		f.Ordering = DefaultRentalOrder
	}
	if _, ok := rentalOrderings[f.Ordering]; !ok {
		return types.NewValidationError("ordering", "unsupported ordering %q", f.Ordering)
	}
	return nil
}

// FilterScope applies every filter conjunctively, restricted to listed statuses.
func (f *RentalFilter) FilterScope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("rentals.status IN ?", models.ListedStatuses)
		return f.applyConditions(db)
	}
}

// OrderScope orders by the chosen key with id as the tie-break
func (f *RentalFilter) OrderScope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		ordering, ok := rentalOrderings[f.Ordering]
		if !ok {
			ordering = rentalOrderings[DefaultRentalOrder]
		}
		return db.Order("rentals." + ordering).Order("rentals.id DESC")
	}
}

// annotateDistance sets DistanceMiles from the search center for rentals with coordinates
func (f *RentalFilter) annotateDistance(rentals []models.Rental) {
	if f.Geo == nil {
		return
	}
	for i := range rentals {
		r := &rentals[i]
		if r.Latitude == nil || r.Longitude == nil {
			continue
		}
		d := math.Round(utils.HaversineMiles(f.Geo.Latitude, f.Geo.Longitude, *r.Latitude, *r.Longitude)*100) / 100
		r.DistanceMiles = &d
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'.
// Wildcards in the input match literally.
func containsPattern(v string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(v)) + "%"
}

func (f *RentalFilter) applyConditions(db *gorm.DB) *gorm.DB {
	if f.Query != "" {
		like := containsPattern(f.Query)
		db = db.Where(
			`LOWER(rentals.title) LIKE ? ESCAPE '\' OR LOWER(rentals.description) LIKE ? ESCAPE '\' OR `+
				`LOWER(rentals.address) LIKE ? ESCAPE '\' OR LOWER(rentals.city) LIKE ? ESCAPE '\'`,
			like, like, like, like,
		)
	}
	if f.City != "" {
		db = db.Where(`LOWER(rentals.city) LIKE ? ESCAPE '\'`, containsPattern(f.City))
	}
	if f.State != "" {
		db = db.Where(`LOWER(rentals.state) LIKE ? ESCAPE '\'`, containsPattern(f.State))
	}
	if f.PropertyType != "" {
		db = db.Where("rentals.property_type = ?", f.PropertyType)
	}
	if f.FurnishingStatus != "" {
		db = db.Where("rentals.furnishing_status = ?", f.FurnishingStatus)
	}
	if f.MinPrice != nil {
		db = db.Where("rentals.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		db = db.Where("rentals.price <= ?", *f.MaxPrice)
	}
	if f.Bedrooms != nil {
		db = db.Where("rentals.bedrooms = ?", *f.Bedrooms)
	}
	if f.Bathrooms != nil {
		db = db.Where("rentals.bathrooms >= ?", *f.Bathrooms)
	}
	if f.PetsAllowed {
		db = db.Where("rentals.pets_allowed = ?", true)
	}
	if f.ParkingAvailable {
		db = db.Where("rentals.parking_available = ?", true)
	}
	if f.UtilitiesIncluded {
		db = db.Where("rentals.utilities_included = ?", true)
	}
	if f.ShuttleService {
		db = db.Where("rentals.shuttle_service = ?", true)
	}
	if f.MaxDistanceToCampus != nil {
		db = db.Where("rentals.distance_to_campus <= ?", *f.MaxDistanceToCampus)
	}
	if f.AvailableFrom != nil {
		// Inclusive upper bound on the whole day
		db = db.Where("rentals.available_from < ?", f.AvailableFrom.AddDate(0, 0, 1))
	}
	if f.Geo != nil {
		box := utils.RadiusBoundingBox(f.Geo.Latitude, f.Geo.Longitude, f.Geo.Radius)
		db = db.Where("rentals.latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat)
		if box.MinLon != nil && box.MaxLon != nil {
			db = db.Where("rentals.longitude BETWEEN ? AND ?", *box.MinLon, *box.MaxLon)
		}
	}
	return db
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseFloatParam(values url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, types.NewValidationError(key, "must be a number")
	}
	return &v, nil
}

func parseIntParam(values url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, types.NewValidationError(key, "must be a whole number")
	}
	return &v, nil
}

// parseTrueParam only recognizes an explicit true; false means "no constraint".
func parseTrueParam(values url.Values, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(values.Get(key)))
	return err == nil && v
}
