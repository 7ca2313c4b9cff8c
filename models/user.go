package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type UserType string

const (
	UserTypeTenant   UserType = "tenant"
	UserTypeLandlord UserType = "landlord"
	UserTypeAdmin    UserType = "admin"
)

type User struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	Email             string     `json:"email" gorm:"size:254;uniqueIndex;not null"`
	FirstName         string     `json:"first_name" gorm:"size:150"`
	LastName          string     `json:"last_name" gorm:"size:150"`
	PhoneNumber       string     `json:"phone_number" gorm:"size:17"`
	PasswordHash      string     `json:"-" gorm:"size:255;not null"` // Hidden from JSON
	UserType          UserType   `json:"user_type" gorm:"type:varchar(10);not null;default:'tenant';check:user_type IN ('tenant','landlord','admin')"`
	Bio               string     `json:"bio" gorm:"type:text"`
	Address           string     `json:"address" gorm:"type:text"`
	ProfilePictureURL *string    `json:"profile_picture_url" gorm:"size:255"`
	IsVerified        bool       `json:"is_verified" gorm:"default:false"`
	VerificationDate  *time.Time `json:"verification_date"`
	IsActive          bool       `json:"is_active" gorm:"default:true"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Profile *UserProfile `json:"profile,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate is a GORM hook that runs before creating a user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserType == "" {
		u.UserType = UserTypeTenant
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

// IsValidUserType checks if the user type is valid
func (u *User) IsValidUserType() bool {
	switch u.UserType {
	case UserTypeTenant, UserTypeLandlord, UserTypeAdmin:
		return true
	default:
		return false
	}
}

func (u *User) IsTenant() bool {
	return u.UserType == UserTypeTenant
}

func (u *User) IsLandlord() bool {
	return u.UserType == UserTypeLandlord
}

func (u *User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}

// FullName returns "first last", falling back to the email.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// UserSummary is the public view of a user embedded in listings and reviews.
type UserSummary struct {
	ID         uint     `json:"id"`
	FullName   string   `json:"full_name"`
	UserType   UserType `json:"user_type"`
	IsVerified bool     `json:"is_verified"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		FullName:   u.FullName(),
		UserType:   u.UserType,
		IsVerified: u.IsVerified,
	}
}

// UserRegistration is the sign-up payload
type UserRegistration struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
	FirstName       string `json:"first_name" binding:"required,max=150"`
	LastName        string `json:"last_name" binding:"required,max=150"`
	PhoneNumber     string `json:"phone_number" binding:"omitempty,max=17"`
	UserType        string `json:"user_type" binding:"omitempty,oneof=tenant landlord"`
}

// UserUpdate carries the editable user and profile fields
type UserUpdate struct {
	FirstName              *string `json:"first_name" binding:"omitempty,max=150"`
	LastName               *string `json:"last_name" binding:"omitempty,max=150"`
	PhoneNumber            *string `json:"phone_number" binding:"omitempty,max=17"`
	Bio                    *string `json:"bio" binding:"omitempty,max=500"`
	Address                *string `json:"address" binding:"omitempty,max=500"`
	PreferredContactMethod *string `json:"preferred_contact_method" binding:"omitempty,oneof=email phone both"`
	EmailNotifications     *bool   `json:"email_notifications"`
	SMSNotifications       *bool   `json:"sms_notifications"`
	Website                *string `json:"website" binding:"omitempty,max=200"`
	LinkedInProfile        *string `json:"linkedin_profile" binding:"omitempty,max=200"`
	BusinessName           *string `json:"business_name" binding:"omitempty,max=200"`
	BusinessLicense        *string `json:"business_license" binding:"omitempty,max=100"`
}

// AdminUserUpdate is UserUpdate plus the account fields only admins may change
type AdminUserUpdate struct {
	UserUpdate
	Email      *string `json:"email" binding:"omitempty,email,max=254"`
	UserType   *string `json:"user_type" binding:"omitempty,oneof=tenant landlord admin"`
	IsActive   *bool   `json:"is_active"`
	IsVerified *bool   `json:"is_verified"`
}

// UserStatistics is the admin overview of accounts
type UserStatistics struct {
	TotalUsers    int64            `json:"total_users"`
	ByType        map[string]int64 `json:"by_type"`
	VerifiedUsers int64            `json:"verified_users"`
	ActiveUsers   int64            `json:"active_users"`
	NewLast30Days int64            `json:"new_last_30_days"`
}
