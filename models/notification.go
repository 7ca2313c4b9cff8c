package models

import "time"

type NotificationType string

const (
	NotificationReviewReported NotificationType = "review_reported"
	NotificationReviewResponse NotificationType = "review_response"
	NotificationReportResolved NotificationType = "report_resolved"
	NotificationInquiry        NotificationType = "inquiry_received"
	NotificationInquiryReplied NotificationType = "inquiry_replied"
)

type Notification struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	UserID    uint             `json:"user_id" gorm:"not null;index"`
	Type      NotificationType `json:"type" gorm:"type:varchar(30);not null"`
	Title     string           `json:"title" gorm:"size:200;not null"`
	Body      string           `json:"body" gorm:"type:text;not null"`
	Data      string           `json:"data" gorm:"type:text"` // JSON data
	Read      bool             `json:"read" gorm:"default:false;index"`
	CreatedAt time.Time        `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
