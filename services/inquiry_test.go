package services

import (
	"testing"

	"rental-platform-server/models"
)

func TestInquiryLifecycle(t *testing.T) {
	db := newTestDB(t)
	notifications := NewNotificationService(db, nil)
	svc := NewInquiryService(db, notifications)
	landlord := createUser(t, db, "owner@example.com", models.UserTypeLandlord)
	tenant := createUser(t, db, "tenant@example.com", models.UserTypeTenant)
	stranger := createUser(t, db, "stranger@example.com", models.UserTypeTenant)
	rental := createRental(t, db, landlord.ID, nil)

	t.Run("landlords cannot send inquiries", func(t *testing.T) {
		_, err := svc.Create(landlord, models.InquiryCreate{RentalID: rental.ID, Message: "Is it still available?"})
		assertPermission(t, err)
	})

	t.Run("message too short", func(t *testing.T) {
		_, err := svc.Create(tenant, models.InquiryCreate{RentalID: rental.ID, Message: "Hi"})
		assertValidation(t, err, "message")
	})

	inquiry, err := svc.Create(tenant, models.InquiryCreate{
		RentalID:          rental.ID,
		Message:           "Is the apartment still available in September?",
		PreferredMoveDate: "2026-09-01",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inquiry.Status != models.InquiryNew {
		t.Fatalf("expected status new, got %s", inquiry.Status)
	}

	unread, err := notifications.UnreadCount(landlord.ID)
	if err != nil || unread != 1 {
		t.Fatalf("expected the landlord to have 1 unread notification, got %d (%v)", unread, err)
	}

	t.Run("visibility", func(t *testing.T) {
		_, err := svc.Get(stranger, inquiry.ID)
		assertPermission(t, err)

		got, err := svc.Get(tenant, inquiry.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status != models.InquiryNew {
			t.Fatalf("expected tenant view to leave status new, got %s", got.Status)
		}

		got, err = svc.Get(landlord, inquiry.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status != models.InquiryRead {
			t.Fatalf("expected landlord view to mark read, got %s", got.Status)
		}
	})

	t.Run("lists are scoped", func(t *testing.T) {
		p := NewPagination(1, 20, 20, 100)
		for _, tc := range []struct {
			actor *models.User
			want  int64
		}{
			{tenant, 1},
			{landlord, 1},
			{stranger, 0},
		} {
			_, total, err := svc.List(tc.actor, "", p)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if total != tc.want {
				t.Fatalf("expected %d inquiries for %s, got %d", tc.want, tc.actor.Email, total)
			}
		}

		_, _, err := svc.List(tenant, "archived", p)
		assertValidation(t, err, "status")
	})

	t.Run("reply", func(t *testing.T) {
		_, err := svc.Reply(stranger, inquiry.ID, "Yes it is")
		assertPermission(t, err)

		replied, err := svc.Reply(landlord, inquiry.ID, "Yes, it is available from the first.")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if replied.Status != models.InquiryReplied || replied.RepliedAt == nil {
			t.Fatalf("expected replied with timestamp, got %s", replied.Status)
		}

		count, _ := notifications.UnreadCount(tenant.ID)
		if count != 1 {
			t.Fatalf("expected the tenant to be notified, got %d", count)
		}
	})

	t.Run("closed inquiries cannot be answered", func(t *testing.T) {
		_, err := svc.UpdateStatus(landlord, inquiry.ID, "replied")
		assertValidation(t, err, "status")

		if _, err := svc.UpdateStatus(landlord, inquiry.ID, "closed"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = svc.Reply(landlord, inquiry.ID, "One more thing to add.")
		assertConflict(t, err)
	})
}
