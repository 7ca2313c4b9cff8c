package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rental-platform-server/config"
	"rental-platform-server/database"
	"rental-platform-server/models"
	"rental-platform-server/services"
	ws "rental-platform-server/websocket"
)

type testServer struct {
	router *gin.Engine
	h      *Handler
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, Options{})
}

func newTestServerWith(t *testing.T, opts Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	h := NewHandler(db, config.JWTConfig{Secret: "route-test", ExpiryHours: 1, RefreshExpiryDays: 1}, opts)
	return &testServer{
		router: SetupRouter(h, []string{"http://localhost:3000"}),
		h:      h,
		db:     db,
	}
}

func (s *testServer) user(t *testing.T, email string, userType models.UserType) (*models.User, string) {
	t.Helper()
	user := &models.User{Email: email, FirstName: "Route", LastName: "Test", PasswordHash: "x", UserType: userType, IsActive: true}
	if err := s.db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	pair, err := s.h.JWT.GenerateTokenPair(user, services.DeviceInfo{})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return user, pair.AccessToken
}

func (s *testServer) rental(t *testing.T, landlordID uint, price float64) *models.Rental {
	t.Helper()
	rental := &models.Rental{
		Title:            "Quiet studio downtown",
		Description:      "Small studio close to the bus line.",
		PropertyType:     models.PropertyStudio,
		LandlordID:       landlordID,
		Price:            price,
		Address:          "4 Main St",
		City:             "Springfield",
		State:            "IL",
		Country:          "USA",
		Bedrooms:         0,
		Bathrooms:        1,
		FurnishingStatus: models.Furnished,
		AvailableFrom:    time.Now().Add(-24 * time.Hour),
		LeaseDurationMin: 6,
		Status:           models.RentalStatusAvailable,
	}
	if err := s.db.Omit("Landlord", "Images").Create(rental).Error; err != nil {
		t.Fatalf("create rental: %v", err)
	}
	return rental
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if status := decode(t, w)["status"]; status != "ok" {
		t.Fatalf("expected ok, got %v", status)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	register := map[string]string{
		"email":            "New.Tenant@Example.com",
		"password":         "campus2026",
		"password_confirm": "campus2026",
		"first_name":       "New",
		"last_name":        "Tenant",
	}

	w := s.do(http.MethodPost, "/api/v1/auth/register", "", register)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := decode(t, w)["data"].(map[string]interface{})
	if data["access_token"] == "" || data["refresh_token"] == "" {
		t.Fatalf("expected a token pair, got %v", data)
	}

	t.Run("duplicate email", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/auth/register", "", register)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "x@example.com"})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("login", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "new.tenant@example.com",
			"password": "campus2026",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		token := decode(t, w)["data"].(map[string]interface{})["access_token"].(string)

		me := s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
		if me.Code != http.StatusOK {
			t.Fatalf("expected 200 from /me, got %d", me.Code)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "new.tenant@example.com",
			"password": "wrong-password1",
		})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})
}

func TestRentalRoutes(t *testing.T) {
	s := newTestServer(t)
	landlord, _ := s.user(t, "landlord@example.com", models.UserTypeLandlord)
	_, tenantToken := s.user(t, "tenant@example.com", models.UserTypeTenant)
	for _, price := range []float64{700, 900, 1100} {
		s.rental(t, landlord.ID, price)
	}

	t.Run("paginated search", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/v1/rentals?ordering=price&page_size=2", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		body := decode(t, w)
		items := body["data"].([]interface{})
		if len(items) != 2 {
			t.Fatalf("expected 2 rentals, got %d", len(items))
		}
		if price := items[0].(map[string]interface{})["price"]; price != 700.0 {
			t.Fatalf("expected cheapest first, got %v", price)
		}
		pagination := body["pagination"].(map[string]interface{})
		if pagination["total"] != 3.0 || pagination["total_pages"] != 2.0 {
			t.Fatalf("unexpected pagination %v", pagination)
		}
	})

	t.Run("partial geo filter", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/v1/rentals?latitude=40&longitude=-88", "", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if field := decode(t, w)["field"]; field != "radius" {
			t.Fatalf("expected field radius, got %v", field)
		}
	})

	t.Run("tenants cannot list rentals", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/rentals", tenantToken, map[string]interface{}{"title": "Mine now"})
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("unknown rental", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/v1/rentals/9999", "", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}

func TestReviewRoutes(t *testing.T) {
	s := newTestServer(t)
	landlord, _ := s.user(t, "landlord@example.com", models.UserTypeLandlord)
	author, authorToken := s.user(t, "author@example.com", models.UserTypeTenant)
	_, voterToken := s.user(t, "voter@example.com", models.UserTypeTenant)
	rental := s.rental(t, landlord.ID, 950)

	review := &models.Review{
		RentalID:   rental.ID,
		TenantID:   author.ID,
		Rating:     4,
		Comment:    "Good light and a fair landlord.",
		IsApproved: true,
	}
	if err := s.db.Omit("Rental", "Tenant").Create(review).Error; err != nil {
		t.Fatalf("create review: %v", err)
	}
	base := fmt.Sprintf("/api/v1/reviews/%d", review.ID)

	t.Run("self vote is forbidden", func(t *testing.T) {
		w := s.do(http.MethodPost, base+"/vote", authorToken, map[string]bool{"is_helpful": true})
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("vote requires is_helpful", func(t *testing.T) {
		w := s.do(http.MethodPost, base+"/vote", voterToken, map[string]string{})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("vote updates counters", func(t *testing.T) {
		w := s.do(http.MethodPost, base+"/vote", voterToken, map[string]bool{"is_helpful": true})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		body := decode(t, w)
		if body["helpful_votes"] != 1.0 || body["total_votes"] != 1.0 {
			t.Fatalf("unexpected counters %v", body)
		}
		if body["helpfulness_percentage"] != 100.0 {
			t.Fatalf("expected 100, got %v", body["helpfulness_percentage"])
		}
	})

	t.Run("report once", func(t *testing.T) {
		report := map[string]string{"reason": "spam", "description": "Looks like an advertisement for a moving company."}
		w := s.do(http.MethodPost, base+"/report", voterToken, report)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}

		w = s.do(http.MethodPost, base+"/report", voterToken, report)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409 for a second report, got %d", w.Code)
		}
	})

	t.Run("only landlords respond", func(t *testing.T) {
		w := s.do(http.MethodPost, base+"/respond", voterToken, map[string]string{"response": "Thanks"})
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("rental reviews are public", func(t *testing.T) {
		w := s.do(http.MethodGet, fmt.Sprintf("/api/v1/reviews/rental/%d", rental.ID), "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestAdminUserRoutes(t *testing.T) {
	s := newTestServer(t)
	admin, adminToken := s.user(t, "admin@example.com", models.UserTypeAdmin)
	landlord, _ := s.user(t, "landlord@example.com", models.UserTypeLandlord)
	_, tenantToken := s.user(t, "tenant@example.com", models.UserTypeTenant)
	rental := s.rental(t, landlord.ID, 800)
	base := fmt.Sprintf("/api/v1/admin/users/%d", landlord.ID)

	t.Run("admins only", func(t *testing.T) {
		w := s.do(http.MethodGet, base, tenantToken, nil)
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("get user", func(t *testing.T) {
		w := s.do(http.MethodGet, base, adminToken, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		data := decode(t, w)["data"].(map[string]interface{})
		if data["email"] != "landlord@example.com" {
			t.Fatalf("expected landlord@example.com, got %v", data["email"])
		}
	})

	t.Run("update user", func(t *testing.T) {
		w := s.do(http.MethodPatch, base, adminToken, map[string]interface{}{"first_name": "Lena", "is_verified": true})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		data := decode(t, w)["data"].(map[string]interface{})
		if data["first_name"] != "Lena" || data["is_verified"] != true {
			t.Fatalf("unexpected user %v", data)
		}
	})

	t.Run("admin cannot delete self", func(t *testing.T) {
		w := s.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/users/%d", admin.ID), adminToken, nil)
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("delete removes the account and its listings", func(t *testing.T) {
		w := s.do(http.MethodDelete, base, adminToken, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if w := s.do(http.MethodGet, base, adminToken, nil); w.Code != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", w.Code)
		}
		var count int64
		s.db.Model(&models.Rental{}).Where("id = ?", rental.ID).Count(&count)
		if count != 0 {
			t.Fatalf("expected the listing to be gone, got %d", count)
		}
	})
}

func TestAdminResolveUnknownReport(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.user(t, "admin@example.com", models.UserTypeAdmin)

	w := s.do(http.MethodPost, "/api/v1/admin/reports/9999/resolve", adminToken, map[string]string{"admin_action": ""})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestNotificationSocket(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run()
	s := newTestServerWith(t, Options{Hub: hub})
	user, token := s.user(t, "live@example.com", models.UserTypeLandlord)

	if err := s.h.Notifications.Notify(user.ID, models.NotificationInquiry, "New inquiry", "Is it still available?", nil); err != nil {
		t.Fatalf("notify: %v", err)
	}
	var notification models.Notification
	s.db.Where("user_id = ?", user.ID).First(&notification)

	server := httptest.NewServer(s.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws/notifications?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() map[string]interface{} {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	t.Run("unknown notification", func(t *testing.T) {
		conn.WriteJSON(map[string]interface{}{"type": "mark_read", "data": map[string]uint{"notification_id": 9999}})
		if msg := read(); msg["type"] != ws.MessageError {
			t.Fatalf("expected error, got %v", msg)
		}
	})

	t.Run("mark read", func(t *testing.T) {
		conn.WriteJSON(map[string]interface{}{"type": "mark_read", "data": map[string]uint{"notification_id": notification.ID}})
		msg := read()
		if msg["type"] != ws.MessageUnreadCount {
			t.Fatalf("expected unread_count, got %v", msg)
		}
		if count := msg["data"].(map[string]interface{})["unread_count"]; count != 0.0 {
			t.Fatalf("expected 0 unread, got %v", count)
		}
	})

	t.Run("unknown message type", func(t *testing.T) {
		conn.WriteJSON(map[string]string{"type": "subscribe"})
		if msg := read(); msg["type"] != ws.MessageError {
			t.Fatalf("expected error, got %v", msg)
		}
	})
}
