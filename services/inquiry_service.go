package services

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"rental-platform-server/models"
	"rental-platform-server/types"
	"rental-platform-server/utils"
)

const minInquiryMessage = 10

// InquiryService handles tenant messages to landlords about a listing
type InquiryService struct {
	db            *gorm.DB
	notifications *NotificationService
	now           func() time.Time
}

func NewInquiryService(db *gorm.DB, notifications *NotificationService) *InquiryService {
	return &InquiryService{db: db, notifications: notifications, now: time.Now}
}

// Create sends an inquiry from a tenant and notifies the landlord
func (s *InquiryService) Create(actor *models.User, input models.InquiryCreate) (*models.RentalInquiry, error) {
	if !actor.IsTenant() {
		return nil, types.NewPermissionError("only tenants can send inquiries")
	}

	var rental models.Rental
	if err := s.db.Select("id", "title", "landlord_id").First(&rental, input.RentalID).Error; err != nil {
		return nil, notFound(err, "rental")
	}

	message := utils.SanitizeText(input.Message)
	if utf8.RuneCountInString(message) < minInquiryMessage {
		return nil, types.NewValidationError("message", "message must be at least %d characters long", minInquiryMessage)
	}
	phone := strings.TrimSpace(input.ContactPhone)
	if phone != "" && !utils.ValidatePhoneNumber(phone) {
		return nil, types.NewValidationError("contact_phone", "phone number must be entered in the format '+999999999', 9 to 15 digits")
	}
	moveDate, err := parseOptionalDate("preferred_move_date", input.PreferredMoveDate)
	if err != nil {
		return nil, err
	}

	inquiry := &models.RentalInquiry{
		RentalID:          rental.ID,
		TenantID:          actor.ID,
		Message:           message,
		ContactPhone:      phone,
		PreferredMoveDate: moveDate,
		Status:            models.InquiryNew,
	}
	if err := s.db.Create(inquiry).Error; err != nil {
		return nil, err
	}

	s.notifications.notifyQuietly(rental.LandlordID, models.NotificationInquiry,
		"New inquiry",
		fmt.Sprintf("%s asked about \"%s\"", actor.FullName(), rental.Title),
		map[string]interface{}{"inquiry_id": inquiry.ID, "rental_id": rental.ID})
	return inquiry, nil
}

// List returns the inquiries visible to the actor: a tenant's own, those on a
// landlord's rentals, or all for admins.
func (s *InquiryService) List(actor *models.User, status string, p Pagination) ([]models.RentalInquiry, int64, error) {
	query := s.db.Model(&models.RentalInquiry{})
	switch {
	case actor.IsAdmin():
	case actor.IsLandlord():
		query = query.Where("rental_id IN (?)", s.db.Model(&models.Rental{}).Select("id").Where("landlord_id = ?", actor.ID))
	default:
		query = query.Where("tenant_id = ?", actor.ID)
	}
	if status != "" {
		if !isValidInquiryStatus(status) {
			return nil, 0, types.NewValidationError("status", "unknown inquiry status %q", status)
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var inquiries []models.RentalInquiry
	err := query.Preload("Rental").Preload("Tenant").
		Order("created_at DESC").Order("id DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&inquiries).Error
	return inquiries, total, err
}

// Get returns one inquiry. A landlord opening a new inquiry marks it read.
func (s *InquiryService) Get(actor *models.User, inquiryID uint) (*models.RentalInquiry, error) {
	inquiry, err := s.load(inquiryID)
	if err != nil {
		return nil, err
	}

	isLandlord := inquiry.Rental != nil && inquiry.Rental.LandlordID == actor.ID
	if !actor.IsAdmin() && !isLandlord && inquiry.TenantID != actor.ID {
		return nil, types.NewPermissionError("you do not have access to this inquiry")
	}

	if isLandlord && inquiry.Status == models.InquiryNew {
		if err := s.db.Model(&models.RentalInquiry{}).
			Where("id = ? AND status = ?", inquiry.ID, models.InquiryNew).
			Update("status", models.InquiryRead).Error; err != nil {
			return nil, err
		}
		inquiry.Status = models.InquiryRead
	}
	return inquiry, nil
}

// Reply stores the landlord's answer and notifies the tenant
func (s *InquiryService) Reply(actor *models.User, inquiryID uint, reply string) (*models.RentalInquiry, error) {
	inquiry, err := s.loadForLandlord(actor, inquiryID)
	if err != nil {
		return nil, err
	}
	if inquiry.Status == models.InquiryClosed {
		return nil, types.NewConflictError("inquiry is closed")
	}

	reply = utils.SanitizeText(reply)
	if reply == "" {
		return nil, types.NewValidationError("reply", "reply cannot be empty")
	}

	now := s.now()
	err = s.db.Model(&models.RentalInquiry{}).Where("id = ?", inquiry.ID).Updates(map[string]interface{}{
		"landlord_reply": reply,
		"status":         models.InquiryReplied,
		"replied_at":     now,
	}).Error
	if err != nil {
		return nil, err
	}
	inquiry.LandlordReply = reply
	inquiry.Status = models.InquiryReplied
	inquiry.RepliedAt = &now

	s.notifications.notifyQuietly(inquiry.TenantID, models.NotificationInquiryReplied,
		"Your inquiry was answered",
		fmt.Sprintf("The landlord of \"%s\" replied to your inquiry", inquiry.Rental.Title),
		map[string]interface{}{"inquiry_id": inquiry.ID, "rental_id": inquiry.RentalID})
	return inquiry, nil
}

// UpdateStatus lets the landlord mark an inquiry read or closed
func (s *InquiryService) UpdateStatus(actor *models.User, inquiryID uint, status string) (*models.RentalInquiry, error) {
	switch models.InquiryStatus(status) {
	case models.InquiryRead, models.InquiryClosed:
	default:
		return nil, types.NewValidationError("status", "status must be read or closed")
	}

	inquiry, err := s.loadForLandlord(actor, inquiryID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.RentalInquiry{}).Where("id = ?", inquiry.ID).Update("status", status).Error; err != nil {
		return nil, err
	}
	inquiry.Status = models.InquiryStatus(status)
	return inquiry, nil
}

func (s *InquiryService) load(inquiryID uint) (*models.RentalInquiry, error) {
	var inquiry models.RentalInquiry
	if err := s.db.Preload("Rental").Preload("Tenant").First(&inquiry, inquiryID).Error; err != nil {
		return nil, notFound(err, "inquiry")
	}
	return &inquiry, nil
}

func (s *InquiryService) loadForLandlord(actor *models.User, inquiryID uint) (*models.RentalInquiry, error) {
	inquiry, err := s.load(inquiryID)
	if err != nil {
		return nil, err
	}
	if inquiry.Rental == nil || inquiry.Rental.LandlordID != actor.ID {
		return nil, types.NewPermissionError("only the landlord of this rental can manage its inquiries")
	}
	return inquiry, nil
}

func isValidInquiryStatus(v string) bool {
	switch models.InquiryStatus(v) {
	case models.InquiryNew, models.InquiryRead, models.InquiryReplied, models.InquiryClosed:
		return true
	}
	return false
}
