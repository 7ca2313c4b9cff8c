package models

import "time"

type RentalImage struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	RentalID   uint      `json:"rental_id" gorm:"not null;index"`
	ImageURL   string    `json:"image_url" gorm:"size:500;not null"`
	PublicID   string    `json:"-" gorm:"size:255"`
	Caption    string    `json:"caption" gorm:"size:200"`
	IsPrimary  bool      `json:"is_primary" gorm:"default:false"`
	Order      int       `json:"order" gorm:"column:sort_order;default:0"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"autoCreateTime"`
}

func (RentalImage) TableName() string {
	return "rental_images"
}

type RentalFavorite struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_favorite_user_rental"`
	RentalID  uint      `json:"rental_id" gorm:"not null;uniqueIndex:idx_favorite_user_rental"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	Rental *Rental `json:"rental,omitempty" gorm:"foreignKey:RentalID;constraint:OnDelete:CASCADE"`
}

func (RentalFavorite) TableName() string {
	return "rental_favorites"
}

type InquiryStatus string

const (
	InquiryNew     InquiryStatus = "new"
	InquiryRead    InquiryStatus = "read"
	InquiryReplied InquiryStatus = "replied"
	InquiryClosed  InquiryStatus = "closed"
)

type RentalInquiry struct {
	ID                uint          `json:"id" gorm:"primaryKey"`
	RentalID          uint          `json:"rental_id" gorm:"not null;index"`
	TenantID          uint          `json:"tenant_id" gorm:"not null;index"`
	Message           string        `json:"message" gorm:"type:text;not null"`
	ContactPhone      string        `json:"contact_phone" gorm:"size:17"`
	PreferredMoveDate *time.Time    `json:"preferred_move_date"`
	Status            InquiryStatus `json:"status" gorm:"type:varchar(10);not null;default:'new';index;check:status IN ('new','read','replied','closed')"`
	LandlordReply     string        `json:"landlord_reply" gorm:"type:text"`
	RepliedAt         *time.Time    `json:"replied_at"`
	CreatedAt         time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time     `json:"updated_at" gorm:"autoUpdateTime"`

	Rental *Rental `json:"rental,omitempty" gorm:"foreignKey:RentalID;constraint:OnDelete:CASCADE"`
	Tenant *User   `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}

func (RentalInquiry) TableName() string {
	return "rental_inquiries"
}

// InquiryCreate is the tenant payload for contacting a landlord
type InquiryCreate struct {
	RentalID          uint   `json:"rental_id" binding:"required"`
	Message           string `json:"message" binding:"required,max=2000"`
	ContactPhone      string `json:"contact_phone" binding:"omitempty,max=17"`
	PreferredMoveDate string `json:"preferred_move_date"`
}
