package models

import "time"

type ContactMethod string

const (
	ContactEmail ContactMethod = "email"
	ContactPhone ContactMethod = "phone"
	ContactBoth  ContactMethod = "both"
)

// UserProfile holds contact preferences and landlord business details
type UserProfile struct {
	ID                     uint          `json:"id" gorm:"primaryKey"`
	UserID                 uint          `json:"user_id" gorm:"uniqueIndex;not null"`
	PreferredContactMethod ContactMethod `json:"preferred_contact_method" gorm:"type:varchar(10);not null;default:'email'"`
	EmailNotifications     bool          `json:"email_notifications" gorm:"default:true"`
	SMSNotifications       bool          `json:"sms_notifications" gorm:"default:false"`
	Website                string        `json:"website" gorm:"size:200"`
	LinkedInProfile        string        `json:"linkedin_profile" gorm:"column:linkedin_profile;size:200"`
	BusinessName           string        `json:"business_name" gorm:"size:200"`
	BusinessLicense        string        `json:"business_license" gorm:"size:100"`
	CreatedAt              time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt              time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// NewDefaultProfile returns the profile every new user starts with.
func NewDefaultProfile(userID uint) *UserProfile {
	return &UserProfile{
		UserID:                 userID,
		PreferredContactMethod: ContactEmail,
		EmailNotifications:     true,
		SMSNotifications:       false,
	}
}
