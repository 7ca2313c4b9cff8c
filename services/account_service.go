package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"rental-platform-server/models"
	"rental-platform-server/types"
	"rental-platform-server/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("user account is deactivated")
)

// NewUser is the input for creating an account of any type
type NewUser struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	UserType    models.UserType
}

// UserListFilter narrows the admin user list
type UserListFilter struct {
	UserType string
	IsActive *bool
	Search   string
}

// AccountService owns users and their profiles
type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

// Register validates a sign-up payload and creates a tenant or landlord account
func (s *AccountService) Register(input models.UserRegistration) (*models.User, error) {
	if input.Password != input.PasswordConfirm {
		return nil, types.NewValidationError("password_confirm", "passwords do not match")
	}

	userType := models.UserType(input.UserType)
	if userType == "" {
		userType = models.UserTypeTenant
	}
	if userType == models.UserTypeAdmin {
		return nil, types.NewValidationError("user_type", "admin accounts cannot be registered")
	}

	return s.CreateUser(NewUser{
		Email:       input.Email,
		Password:    input.Password,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		PhoneNumber: input.PhoneNumber,
		UserType:    userType,
	})
}

// CreateUser inserts the user and its default profile in one transaction
func (s *AccountService) CreateUser(input NewUser) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, types.NewValidationError("email", "email is required")
	}
	if ok, problems := utils.ValidatePasswordStrength(input.Password); !ok {
		return nil, types.NewValidationError("password", "%s", problems[0])
	}
	if input.PhoneNumber != "" && !utils.ValidatePhoneNumber(input.PhoneNumber) {
		return nil, types.NewValidationError("phone_number", "phone number must be entered in the format '+999999999', 9 to 15 digits")
	}

	user := &models.User{
		Email:       email,
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		PhoneNumber: input.PhoneNumber,
		UserType:    input.UserType,
		IsActive:    true,
	}
	if user.UserType == "" {
		user.UserType = models.UserTypeTenant
	}
	if !user.IsValidUserType() {
		return nil, types.NewValidationError("user_type", "unknown user type %q", user.UserType)
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return types.NewConflictError("a user with this email already exists")
		}

		if err := tx.Create(user).Error; err != nil {
			if isUniqueViolation(err) {
				return types.NewConflictError("a user with this email already exists")
			}
			return err
		}

		profile := models.NewDefaultProfile(user.ID)
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ User created: ID=%d, Type=%s", user.ID, user.UserType)
	return user, nil
}

// Authenticate checks an email/password pair
func (s *AccountService) Authenticate(email, password string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return &user, nil
}

// GetUser loads a user with its profile
func (s *AccountService) GetUser(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Profile").First(&user, userID).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// UpdateProfile applies user and profile fields together
func (s *AccountService) UpdateProfile(userID uint, input models.UserUpdate) (*models.User, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	userUpdates, err := userFieldUpdates(input)
	if err != nil {
		return nil, err
	}
	profileUpdates, err := profileFieldUpdates(user, input, true)
	if err != nil {
		return nil, err
	}

	if err := s.saveUser(userID, userUpdates, profileUpdates); err != nil {
		return nil, err
	}
	return s.GetUser(userID)
}

func (s *AccountService) saveUser(userID uint, userUpdates, profileUpdates map[string]interface{}) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if len(userUpdates) > 0 {
			if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(userUpdates).Error; err != nil {
				if isUniqueViolation(err) {
					return types.NewConflictError("a user with this email already exists")
				}
				return err
			}
		}
		return s.applyProfileUpdates(tx, userID, profileUpdates)
	})
}

func userFieldUpdates(input models.UserUpdate) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.PhoneNumber != nil {
		if *input.PhoneNumber != "" && !utils.ValidatePhoneNumber(*input.PhoneNumber) {
			return nil, types.NewValidationError("phone_number", "phone number must be entered in the format '+999999999', 9 to 15 digits")
		}
		updates["phone_number"] = *input.PhoneNumber
	}
	if input.Bio != nil {
		updates["bio"] = utils.SanitizeText(*input.Bio)
	}
	if input.Address != nil {
		updates["address"] = utils.SanitizeText(*input.Address)
	}
	return updates, nil
}

// GetPreferences returns the user's profile, creating it when missing
func (s *AccountService) GetPreferences(userID uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created := models.NewDefaultProfile(userID)
		if err := s.db.Create(created).Error; err != nil {
			return nil, err
		}
		return created, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdatePreferences changes only contact and notification settings
func (s *AccountService) UpdatePreferences(userID uint, input models.UserUpdate) (*models.UserProfile, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	updates, err := profileFieldUpdates(user, input, false)
	if err != nil {
		return nil, err
	}
	if err := s.applyProfileUpdates(s.db, userID, updates); err != nil {
		return nil, err
	}
	return s.GetPreferences(userID)
}

func (s *AccountService) applyProfileUpdates(tx *gorm.DB, userID uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	var profile models.UserProfile
	err := tx.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := tx.Create(models.NewDefaultProfile(userID)).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return tx.Model(&models.UserProfile{}).Where("user_id = ?", userID).Updates(updates).Error
}

func profileFieldUpdates(user *models.User, input models.UserUpdate, includeDetails bool) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if input.PreferredContactMethod != nil {
		updates["preferred_contact_method"] = *input.PreferredContactMethod
	}
	if input.EmailNotifications != nil {
		updates["email_notifications"] = *input.EmailNotifications
	}
	if input.SMSNotifications != nil {
		updates["sms_notifications"] = *input.SMSNotifications
	}
	if !includeDetails {
		return updates, nil
	}

	if input.Website != nil {
		updates["website"] = strings.TrimSpace(*input.Website)
	}
	if input.LinkedInProfile != nil {
		updates["linkedin_profile"] = strings.TrimSpace(*input.LinkedInProfile)
	}
	if input.BusinessName != nil || input.BusinessLicense != nil {
		if !user.IsLandlord() {
			return nil, types.NewValidationError("business_name", "business details are only available to landlords")
		}
		if input.BusinessName != nil {
			updates["business_name"] = utils.SanitizeText(*input.BusinessName)
		}
		if input.BusinessLicense != nil {
			updates["business_license"] = strings.TrimSpace(*input.BusinessLicense)
		}
	}
	return updates, nil
}

// ChangePassword verifies the old password and stores the new hash
func (s *AccountService) ChangePassword(userID uint, oldPassword, newPassword, confirm string) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return notFound(err, "user")
	}

	if !CheckPasswordHash(oldPassword, user.PasswordHash) {
		return types.NewValidationError("old_password", "current password is incorrect")
	}
	if newPassword != confirm {
		return types.NewValidationError("new_password_confirm", "passwords do not match")
	}
	if ok, problems := utils.ValidatePasswordStrength(newPassword); !ok {
		return types.NewValidationError("new_password", "%s", problems[0])
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.db.Model(&models.User{}).Where("id = ?", userID).Update("password_hash", hash).Error
}

// ListUsers is the admin user listing
func (s *AccountService) ListUsers(filter UserListFilter, p Pagination) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})
	if filter.UserType != "" {
		query = query.Where("user_type = ?", filter.UserType)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := containsPattern(search)
		query = query.Where(`LOWER(email) LIKE ? ESCAPE '\' OR LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\'`, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&users).Error
	return users, total, err
}

// VerifyUser marks the account as verified
func (s *AccountService) VerifyUser(userID uint) (*models.User, error) {
	now := time.Now()
	result := s.db.Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"is_verified": true, "verification_date": now})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, types.NewNotFoundError("user")
	}
	return s.GetUser(userID)
}

// ToggleActive flips is_active. Admins cannot deactivate themselves.
func (s *AccountService) ToggleActive(adminID, userID uint) (*models.User, error) {
	if adminID == userID {
		return nil, types.NewPermissionError("you cannot deactivate your own account")
	}

	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).Update("is_active", !user.IsActive).Error; err != nil {
		return nil, err
	}
	user.IsActive = !user.IsActive
	return user, nil
}

// AdminUpdateUser edits any account, including email, role and status.
// Admins cannot demote or deactivate themselves.
func (s *AccountService) AdminUpdateUser(adminID, userID uint, input models.AdminUserUpdate) (*models.User, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if adminID == userID {
		if input.IsActive != nil && !*input.IsActive {
			return nil, types.NewPermissionError("you cannot deactivate your own account")
		}
		if input.UserType != nil && models.UserType(*input.UserType) != models.UserTypeAdmin {
			return nil, types.NewPermissionError("you cannot remove your own admin role")
		}
	}

	userUpdates, err := userFieldUpdates(input.UserUpdate)
	if err != nil {
		return nil, err
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, types.NewValidationError("email", "email is required")
		}
		if email != user.Email {
			var taken int64
			if err := s.db.Model(&models.User{}).Where("email = ? AND id <> ?", email, userID).Count(&taken).Error; err != nil {
				return nil, err
			}
			if taken > 0 {
				return nil, types.NewConflictError("a user with this email already exists")
			}
		}
		userUpdates["email"] = email
	}
	if input.UserType != nil {
		userType := models.UserType(*input.UserType)
		if !(&models.User{UserType: userType}).IsValidUserType() {
			return nil, types.NewValidationError("user_type", "unknown user type %q", userType)
		}
		userUpdates["user_type"] = userType
	}
	if input.IsActive != nil {
		userUpdates["is_active"] = *input.IsActive
	}
	if input.IsVerified != nil && *input.IsVerified != user.IsVerified {
		userUpdates["is_verified"] = *input.IsVerified
		if *input.IsVerified {
			userUpdates["verification_date"] = time.Now()
		} else {
			userUpdates["verification_date"] = nil
		}
	}

	// Business fields follow the role this request leaves the user with
	target := *user
	if input.UserType != nil {
		target.UserType = models.UserType(*input.UserType)
	}
	profileUpdates, err := profileFieldUpdates(&target, input.UserUpdate, true)
	if err != nil {
		return nil, err
	}
	if err := s.saveUser(userID, userUpdates, profileUpdates); err != nil {
		return nil, err
	}

	log.Printf("✅ User %d updated by admin %d", userID, adminID)
	return s.GetUser(userID)
}

// DeleteUser removes an account with everything it owns: listings with their
// reviews, inquiries and favorites, the user's own reviews, votes, reports,
// inquiries, favorites, notifications, tokens and profile. Helpfulness counters
// of reviews the user voted on are recomputed.
func (s *AccountService) DeleteUser(adminID, userID uint) error {
	if adminID == userID {
		return types.NewPermissionError("you cannot delete your own account")
	}
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var rentalIDs []uint
		if err := tx.Model(&models.Rental{}).Where("landlord_id = ?", userID).Pluck("id", &rentalIDs).Error; err != nil {
			return err
		}
		if err := deleteRentalRows(tx, rentalIDs); err != nil {
			return err
		}

		var reviewIDs []uint
		if err := tx.Model(&models.Review{}).Where("tenant_id = ?", userID).Pluck("id", &reviewIDs).Error; err != nil {
			return err
		}
		if err := deleteReviewChildren(tx, reviewIDs); err != nil {
			return err
		}
		if len(reviewIDs) > 0 {
			if err := tx.Delete(&models.Review{}, reviewIDs).Error; err != nil {
				return err
			}
		}

		var votedIDs []uint
		if err := tx.Model(&models.ReviewHelpfulness{}).Where("user_id = ?", userID).Distinct().Pluck("review_id", &votedIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.ReviewHelpfulness{}).Error; err != nil {
			return err
		}
		for _, id := range votedIDs {
			if err := recomputeHelpfulness(tx, &models.Review{ID: id}); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.ReviewReport{}).Where("resolved_by = ?", userID).Update("resolved_by", nil).Error; err != nil {
			return err
		}
		owned := []struct {
			column string
			model  interface{}
		}{
			{"reporter_id", &models.ReviewReport{}},
			{"tenant_id", &models.RentalInquiry{}},
			{"user_id", &models.RentalFavorite{}},
			{"user_id", &models.Notification{}},
			{"user_id", &models.RefreshToken{}},
			{"user_id", &models.UserProfile{}},
		}
		for _, o := range owned {
			if err := tx.Where(o.column+" = ?", userID).Delete(o.model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, userID).Error
	})
	if err != nil {
		return err
	}

	log.Printf("✅ User deleted: ID=%d (%s) by admin %d", userID, user.Email, adminID)
	return nil
}

// UserStatistics aggregates account counts
func (s *AccountService) UserStatistics() (*models.UserStatistics, error) {
	stats := &models.UserStatistics{ByType: map[string]int64{}}

	if err := s.db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		UserType string
		Count    int64
	}
	if err := s.db.Model(&models.User{}).Select("user_type, COUNT(*) AS count").Group("user_type").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ByType[row.UserType] = row.Count
	}

	if err := s.db.Model(&models.User{}).Where("is_verified = ?", true).Count(&stats.VerifiedUsers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.User{}).Where("is_active = ?", true).Count(&stats.ActiveUsers).Error; err != nil {
		return nil, err
	}
	since := time.Now().AddDate(0, 0, -30)
	if err := s.db.Model(&models.User{}).Where("created_at >= ?", since).Count(&stats.NewLast30Days).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
