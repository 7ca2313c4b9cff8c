package services

import (
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"

	"rental-platform-server/models"
	"rental-platform-server/types"
	ws "rental-platform-server/websocket"
)

// Pusher delivers a live message to a connected user
type Pusher interface {
	SendToUser(userID uint, message *ws.Message)
}

// NotificationService stores in-app notifications and pushes them to live sockets
type NotificationService struct {
	db     *gorm.DB
	pusher Pusher
}

// NewNotificationService creates the service. pusher may be nil.
func NewNotificationService(db *gorm.DB, pusher Pusher) *NotificationService {
	return &NotificationService{db: db, pusher: pusher}
}

// Notify persists a notification for userID and pushes it if the user is online
func (s *NotificationService) Notify(userID uint, kind models.NotificationType, title, body string, data map[string]interface{}) error {
	payload := ""
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		payload = string(raw)
	}

	notification := models.Notification{
		UserID: userID,
		Type:   kind,
		Title:  title,
		Body:   body,
		Data:   payload,
	}
	if err := s.db.Create(&notification).Error; err != nil {
		return err
	}

	if s.pusher != nil {
		s.pusher.SendToUser(userID, &ws.Message{
			Type:      string(kind),
			Timestamp: time.Now(),
			Data:      notification,
		})
	}
	return nil
}

// NotifyAdmins sends the same notification to every active admin
func (s *NotificationService) NotifyAdmins(kind models.NotificationType, title, body string, data map[string]interface{}) error {
	var adminIDs []uint
	if err := s.db.Model(&models.User{}).
		Where("user_type = ? AND is_active = ?", models.UserTypeAdmin, true).
		Pluck("id", &adminIDs).Error; err != nil {
		return err
	}

	for _, id := range adminIDs {
		if err := s.Notify(id, kind, title, body, data); err != nil {
			return err
		}
	}
	return nil
}

// notifyQuietly is used after a committed mutation; delivery failures are logged only.
func (s *NotificationService) notifyQuietly(userID uint, kind models.NotificationType, title, body string, data map[string]interface{}) {
	if s == nil {
		return
	}
	if err := s.Notify(userID, kind, title, body, data); err != nil {
		log.Printf("⚠️ Failed to notify user %d (%s): %v", userID, kind, err)
	}
}

func (s *NotificationService) notifyAdminsQuietly(kind models.NotificationType, title, body string, data map[string]interface{}) {
	if s == nil {
		return
	}
	if err := s.NotifyAdmins(kind, title, body, data); err != nil {
		log.Printf("⚠️ Failed to notify admins (%s): %v", kind, err)
	}
}

// List returns the user's notifications, newest first
func (s *NotificationService) List(userID uint, unreadOnly bool, p Pagination) ([]models.Notification, int64, error) {
	query := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&notifications).Error
	return notifications, total, err
}

func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks one of the user's notifications as read
func (s *NotificationService) MarkRead(userID, notificationID uint) error {
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.NewNotFoundError("notification")
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read
func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	result := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}
