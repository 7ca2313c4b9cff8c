package services

import (
	"errors"
	"testing"

	"rental-platform-server/models"
)

func registration(email string) models.UserRegistration {
	return models.UserRegistration{
		Email:           email,
		Password:        "s3cretpass",
		PasswordConfirm: "s3cretpass",
		FirstName:       "Ada",
		LastName:        "Lovelace",
	}
}

func TestRegister(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)

	user, err := svc.Register(registration("  Ada@Example.com "))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.UserType != models.UserTypeTenant {
		t.Fatalf("expected tenant by default, got %s", user.UserType)
	}
	if user.PasswordHash == "s3cretpass" {
		t.Fatal("expected the password to be hashed")
	}

	t.Run("default profile is created", func(t *testing.T) {
		var profile models.UserProfile
		if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
			t.Fatalf("expected profile: %v", err)
		}
		if profile.PreferredContactMethod != models.ContactEmail || !profile.EmailNotifications {
			t.Fatalf("unexpected default profile %+v", profile)
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := svc.Register(registration("ADA@example.com"))
		assertConflict(t, err)
	})

	cases := []struct {
		name   string
		mutate func(*models.UserRegistration)
		field  string
	}{
		{"password mismatch", func(r *models.UserRegistration) { r.PasswordConfirm = "different1" }, "password_confirm"},
		{"weak password", func(r *models.UserRegistration) { r.Password, r.PasswordConfirm = "lettersonly", "lettersonly" }, "password"},
		{"admin self sign-up", func(r *models.UserRegistration) { r.UserType = "admin" }, "user_type"},
		{"bad phone", func(r *models.UserRegistration) { r.PhoneNumber = "call me" }, "phone_number"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := registration("new@example.com")
			tc.mutate(&input)
			_, err := svc.Register(input)
			assertValidation(t, err, tc.field)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	admin := createUser(t, db, "admin@example.com", models.UserTypeAdmin)
	user, err := svc.Register(registration("ada@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authenticate("ADA@example.com", "s3cretpass"); err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
	if _, err := svc.Authenticate("ada@example.com", "wrongpass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected %v, got %v", ErrInvalidCredentials, err)
	}
	if _, err := svc.Authenticate("nobody@example.com", "s3cretpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected %v, got %v", ErrInvalidCredentials, err)
	}

	if _, err := svc.ToggleActive(admin.ID, user.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Authenticate("ada@example.com", "s3cretpass"); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected %v, got %v", ErrAccountInactive, err)
	}

	_, err = svc.ToggleActive(admin.ID, admin.ID)
	assertPermission(t, err)
}

func TestProfileAndPassword(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	tenant, err := svc.Register(registration("ada@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	t.Run("update profile", func(t *testing.T) {
		updated, err := svc.UpdateProfile(tenant.ID, models.UserUpdate{
			FirstName: strPtr("Augusta"),
			Bio:       strPtr("<b>Mathematician</b>"),
			Website:   strPtr("https://example.com"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.FirstName != "Augusta" || updated.Bio != "Mathematician" {
			t.Fatalf("unexpected user %q / %q", updated.FirstName, updated.Bio)
		}
		if updated.Profile == nil || updated.Profile.Website != "https://example.com" {
			t.Fatalf("expected website on profile, got %+v", updated.Profile)
		}
	})

	t.Run("tenants have no business details", func(t *testing.T) {
		_, err := svc.UpdateProfile(tenant.ID, models.UserUpdate{BusinessName: strPtr("Ada Homes")})
		assertValidation(t, err, "business_name")
	})

	t.Run("preferences", func(t *testing.T) {
		profile, err := svc.UpdatePreferences(tenant.ID, models.UserUpdate{
			PreferredContactMethod: strPtr("phone"),
			EmailNotifications:     boolPtr(false),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if profile.PreferredContactMethod != models.ContactPhone || profile.EmailNotifications {
			t.Fatalf("unexpected preferences %+v", profile)
		}
	})

	t.Run("change password", func(t *testing.T) {
		err := svc.ChangePassword(tenant.ID, "wrong", "n3wpassword", "n3wpassword")
		assertValidation(t, err, "old_password")

		err = svc.ChangePassword(tenant.ID, "s3cretpass", "n3wpassword", "n3wpasswort")
		assertValidation(t, err, "new_password_confirm")

		if err := svc.ChangePassword(tenant.ID, "s3cretpass", "n3wpassword", "n3wpassword"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := svc.Authenticate("ada@example.com", "n3wpassword"); err != nil {
			t.Fatalf("expected new password to work, got %v", err)
		}
	})
}

func TestAdminUserQueries(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	createUser(t, db, "admin@example.com", models.UserTypeAdmin)
	landlord := createUser(t, db, "landlord@example.com", models.UserTypeLandlord)
	createUser(t, db, "tenant@example.com", models.UserTypeTenant)

	users, total, err := svc.ListUsers(UserListFilter{UserType: "landlord"}, NewPagination(1, 20, 20, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || users[0].ID != landlord.ID {
		t.Fatalf("expected only the landlord, got %d", total)
	}

	verified, err := svc.VerifyUser(landlord.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verified.IsVerified || verified.VerificationDate == nil {
		t.Fatal("expected the landlord to be verified with a date")
	}

	_, err = svc.VerifyUser(9999)
	assertNotFound(t, err)

	stats, err := svc.UserStatistics()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalUsers != 3 || stats.VerifiedUsers != 1 || stats.ByType["tenant"] != 1 {
		t.Fatalf("unexpected statistics %+v", stats)
	}
}

func TestListUsersSearchIsLiteral(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	underscored := createUser(t, db, "a_b@example.com", models.UserTypeTenant)
	createUser(t, db, "axb@example.com", models.UserTypeTenant)

	users, total, err := svc.ListUsers(UserListFilter{Search: "a_b"}, NewPagination(1, 20, 20, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || users[0].ID != underscored.ID {
		t.Fatalf("expected only a_b@example.com, got %d users", total)
	}
}

func TestAdminUpdateUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	admin := createUser(t, db, "admin@example.com", models.UserTypeAdmin)
	tenant := createUser(t, db, "tenant@example.com", models.UserTypeTenant)
	createUser(t, db, "taken@example.com", models.UserTypeTenant)

	t.Run("admin cannot demote or deactivate self", func(t *testing.T) {
		_, err := svc.AdminUpdateUser(admin.ID, admin.ID, models.AdminUserUpdate{IsActive: boolPtr(false)})
		assertPermission(t, err)
		_, err = svc.AdminUpdateUser(admin.ID, admin.ID, models.AdminUserUpdate{UserType: strPtr("tenant")})
		assertPermission(t, err)
	})

	t.Run("email already in use", func(t *testing.T) {
		_, err := svc.AdminUpdateUser(admin.ID, tenant.ID, models.AdminUserUpdate{Email: strPtr("Taken@Example.com")})
		assertConflict(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.AdminUpdateUser(admin.ID, 9999, models.AdminUserUpdate{})
		assertNotFound(t, err)
	})

	t.Run("promote to landlord with business details", func(t *testing.T) {
		input := models.AdminUserUpdate{
			UserUpdate: models.UserUpdate{BusinessName: strPtr("Acme Lettings")},
			Email:      strPtr(" Renamed@Example.com "),
			UserType:   strPtr("landlord"),
			IsVerified: boolPtr(true),
		}
		user, err := svc.AdminUpdateUser(admin.ID, tenant.ID, input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.Email != "renamed@example.com" || user.UserType != models.UserTypeLandlord {
			t.Fatalf("expected renamed landlord, got %s / %s", user.Email, user.UserType)
		}
		if !user.IsVerified || user.VerificationDate == nil {
			t.Fatal("expected the user to be verified with a date")
		}
		if user.Profile == nil || user.Profile.BusinessName != "Acme Lettings" {
			t.Fatalf("expected business name on the profile, got %+v", user.Profile)
		}
	})

	t.Run("clearing verification drops the date", func(t *testing.T) {
		user, err := svc.AdminUpdateUser(admin.ID, tenant.ID, models.AdminUserUpdate{IsVerified: boolPtr(false)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.IsVerified || user.VerificationDate != nil {
			t.Fatalf("expected unverified without a date, got %v / %v", user.IsVerified, user.VerificationDate)
		}
	})
}

func TestDeleteUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	votes := NewHelpfulnessService(db)
	admin := createUser(t, db, "admin@example.com", models.UserTypeAdmin)
	landlord := createUser(t, db, "landlord@example.com", models.UserTypeLandlord)
	owner := createUser(t, db, "owner@example.com", models.UserTypeLandlord)
	leaving := createUser(t, db, "leaving@example.com", models.UserTypeTenant)
	staying := createUser(t, db, "staying@example.com", models.UserTypeTenant)

	kept := createRental(t, db, owner.ID, nil)
	dropped := createRental(t, db, landlord.ID, nil)
	ownReview := createReview(t, db, kept.ID, leaving.ID, 4)
	otherReview := createReview(t, db, kept.ID, staying.ID, 5)
	createReview(t, db, dropped.ID, staying.ID, 3)

	if _, err := votes.Vote(otherReview.ID, leaving.ID, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := votes.Vote(ownReview.ID, staying.ID, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	rows := []interface{}{
		&models.ReviewReport{ReviewID: otherReview.ID, ReporterID: leaving.ID, Reason: models.ReportSpam},
		&models.RentalFavorite{UserID: leaving.ID, RentalID: kept.ID},
		&models.RentalFavorite{UserID: staying.ID, RentalID: dropped.ID},
		&models.RentalInquiry{RentalID: kept.ID, TenantID: leaving.ID, Message: "Is it still available?"},
		&models.Notification{UserID: leaving.ID, Type: models.NotificationInquiry, Title: "Hello", Body: "Hello"},
	}
	for _, row := range rows {
		if err := db.Omit("Review", "Reporter", "Rental", "Tenant").Create(row).Error; err != nil {
			t.Fatalf("seed %T: %v", row, err)
		}
	}

	t.Run("admin cannot delete self", func(t *testing.T) {
		assertPermission(t, svc.DeleteUser(admin.ID, admin.ID))
	})

	t.Run("unknown user", func(t *testing.T) {
		assertNotFound(t, svc.DeleteUser(admin.ID, 9999))
	})

	t.Run("tenant data is removed and counters recounted", func(t *testing.T) {
		if err := svc.DeleteUser(admin.ID, leaving.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, check := range []struct {
			name  string
			model interface{}
			where string
		}{
			{"user", &models.User{}, "id = ?"},
			{"reviews", &models.Review{}, "tenant_id = ?"},
			{"votes", &models.ReviewHelpfulness{}, "user_id = ?"},
			{"reports", &models.ReviewReport{}, "reporter_id = ?"},
			{"favorites", &models.RentalFavorite{}, "user_id = ?"},
			{"inquiries", &models.RentalInquiry{}, "tenant_id = ?"},
			{"notifications", &models.Notification{}, "user_id = ?"},
		} {
			var count int64
			db.Model(check.model).Where(check.where, leaving.ID).Count(&count)
			if count != 0 {
				t.Fatalf("expected no %s left, got %d", check.name, count)
			}
		}

		var votesOnOwn int64
		db.Model(&models.ReviewHelpfulness{}).Where("review_id = ?", ownReview.ID).Count(&votesOnOwn)
		if votesOnOwn != 0 {
			t.Fatalf("expected votes on the deleted review to go, got %d", votesOnOwn)
		}

		var review models.Review
		db.First(&review, otherReview.ID)
		if review.HelpfulVotes != 0 || review.TotalVotes != 0 {
			t.Fatalf("expected counters 0/0, got %d/%d", review.HelpfulVotes, review.TotalVotes)
		}
	})

	t.Run("landlord listings go with the account", func(t *testing.T) {
		if err := svc.DeleteUser(admin.ID, landlord.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var rentals, reviews, favorites int64
		db.Model(&models.Rental{}).Where("id = ?", dropped.ID).Count(&rentals)
		db.Model(&models.Review{}).Where("rental_id = ?", dropped.ID).Count(&reviews)
		db.Model(&models.RentalFavorite{}).Where("rental_id = ?", dropped.ID).Count(&favorites)
		if rentals != 0 || reviews != 0 || favorites != 0 {
			t.Fatalf("expected the listing and its rows gone, got %d/%d/%d", rentals, reviews, favorites)
		}

		var remaining int64
		db.Model(&models.Rental{}).Where("id = ?", kept.ID).Count(&remaining)
		if remaining != 1 {
			t.Fatalf("expected the other landlord's listing to stay, got %d", remaining)
		}
	})
}
