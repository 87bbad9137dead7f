package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/micaelmi/blog/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func postJSON(t *testing.T, s *Server, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestRegister_AcceptedAndStaged(t *testing.T) {
	mailer := &mockMailer{}
	s := newTestServer(t, mailer)

	w := postJSON(t, s, "/users", map[string]string{
		"name":     "Maria Silva",
		"username": "maria",
		"email":    "Maria@Example.com",
		"password": "secret123",
	}, nil)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	var staged model.UnconfirmedUser
	if err := s.db.Where("username = ?", "maria").First(&staged).Error; err != nil {
		t.Fatalf("staged row not found: %v", err)
	}
	if staged.Email != "maria@example.com" {
		t.Errorf("email not normalized: %q", staged.Email)
	}
	if staged.Password == "secret123" {
		t.Errorf("password stored in plaintext")
	}
	if len(mailer.confirmations) != 1 {
		t.Fatalf("expected 1 confirmation email, got %d", len(mailer.confirmations))
	}
	if !strings.Contains(mailer.links[0], "/users/confirm-email?user_id="+staged.ID) {
		t.Errorf("confirmation link missing staged id: %s", mailer.links[0])
	}

	// 正式用户表不应有任何行
	var userCount int64
	s.db.Model(&model.User{}).Count(&userCount)
	if userCount != 0 {
		t.Errorf("expected no confirmed users, got %d", userCount)
	}
}

func TestRegister_RejectsExistingConfirmedUser(t *testing.T) {
	mailer := &mockMailer{}
	s := newTestServer(t, mailer)
	seedUser(t, s.db, "joao", "joao@example.com")

	for _, body := range []map[string]string{
		{"name": "X", "username": "joao", "email": "other@example.com", "password": "secret123"},
		{"name": "X", "username": "other", "email": "joao@example.com", "password": "secret123"},
	} {
		w := postJSON(t, s, "/users", body, nil)
		if w.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", w.Code)
		}
	}

	var stagedCount int64
	s.db.Model(&model.UnconfirmedUser{}).Count(&stagedCount)
	if stagedCount != 0 {
		t.Errorf("expected no staged rows, got %d", stagedCount)
	}
	if len(mailer.confirmations) != 0 {
		t.Errorf("expected no emails, got %d", len(mailer.confirmations))
	}
}

func TestRegister_EmailFailureRollsBackStagedRow(t *testing.T) {
	mailer := &mockMailer{failSend: true}
	s := newTestServer(t, mailer)

	w := postJSON(t, s, "/users", map[string]string{
		"name":     "Maria",
		"username": "maria",
		"email":    "maria@example.com",
		"password": "secret123",
	}, nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var stagedCount int64
	s.db.Model(&model.UnconfirmedUser{}).Count(&stagedCount)
	if stagedCount != 0 {
		t.Errorf("staged row not rolled back, got %d rows", stagedCount)
	}
}

func TestConfirmEmail_NotFound(t *testing.T) {
	s := newTestServer(t, &mockMailer{})
	seedCommonType(t, s.db)

	req := httptest.NewRequest(http.MethodGet, "/users/confirm-email?user_id="+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestConfirmEmail_ExpiredDeletesStagedRow(t *testing.T) {
	s := newTestServer(t, &mockMailer{})
	seedCommonType(t, s.db)

	staged := model.UnconfirmedUser{
		ID:       uuid.NewString(),
		Name:     "Maria",
		Username: "maria",
		Email:    "maria@example.com",
		Password: "hash",
	}
	if err := s.db.Create(&staged).Error; err != nil {
		t.Fatalf("create staged: %v", err)
	}
	// 把创建时间拨回窗口之外
	expired := time.Now().Add(-16 * time.Minute)
	if err := s.db.Model(&model.UnconfirmedUser{}).Where("id = ?", staged.ID).Update("created_at", expired).Error; err != nil {
		t.Fatalf("backdate staged: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/confirm-email?user_id="+staged.ID, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusGone {
		t.Fatalf("expected 410, got %d: %s", w.Code, w.Body.String())
	}

	var stagedCount int64
	s.db.Model(&model.UnconfirmedUser{}).Count(&stagedCount)
	if stagedCount != 0 {
		t.Errorf("expired staged row not deleted")
	}

	// 过期后再次访问：暂存行已不存在
	w2 := httptest.NewRecorder()
	s.router.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/users/confirm-email?user_id="+staged.ID, nil))
	if w2.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second attempt, got %d", w2.Code)
	}
}

func TestConfirmEmail_PromotesExactlyOnce(t *testing.T) {
	mailer := &mockMailer{}
	s := newTestServer(t, mailer)
	common := seedCommonType(t, s.db)

	staged := model.UnconfirmedUser{
		ID:       uuid.NewString(),
		Name:     "Maria",
		Username: "maria",
		Email:    "maria@example.com",
		Password: "hash",
	}
	if err := s.db.Create(&staged).Error; err != nil {
		t.Fatalf("create staged: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/confirm-email?user_id="+staged.ID, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var user model.User
	if err := s.db.Where("username = ?", "maria").First(&user).Error; err != nil {
		t.Fatalf("promoted user not found: %v", err)
	}
	if user.UserTypeID != common.ID {
		t.Errorf("expected common type %d, got %d", common.ID, user.UserTypeID)
	}
	var stagedCount int64
	s.db.Model(&model.UnconfirmedUser{}).Count(&stagedCount)
	if stagedCount != 0 {
		t.Errorf("staged row not deleted after promotion")
	}
	if len(mailer.welcomes) != 1 || mailer.welcomes[0] != "maria@example.com" {
		t.Errorf("welcome email not sent: %v", mailer.welcomes)
	}

	// 第二次访问同一链接：暂存行已删除
	w2 := httptest.NewRecorder()
	s.router.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/users/confirm-email?user_id="+staged.ID, nil))
	if w2.Code != http.StatusNotFound {
		t.Errorf("expected 404 after promotion, got %d", w2.Code)
	}
}

func TestConfirmEmail_MissingCommonTypeFails(t *testing.T) {
	s := newTestServer(t, &mockMailer{})

	staged := model.UnconfirmedUser{
		ID:       uuid.NewString(),
		Name:     "Maria",
		Username: "maria",
		Email:    "maria@example.com",
		Password: "hash",
	}
	if err := s.db.Create(&staged).Error; err != nil {
		t.Fatalf("create staged: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/confirm-email?user_id="+staged.ID, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without common type, got %d", w.Code)
	}
}

func TestLogin_TokenSubjectAndExpiry(t *testing.T) {
	s := newTestServer(t, &mockMailer{})
	user, password := seedUser(t, s.db, "maria", "maria@example.com")

	for _, credential := range []string{"maria", "maria@example.com"} {
		w := postJSON(t, s, "/users/login", map[string]string{
			"credential": credential,
			"password":   password,
		}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("login with %q: expected 200, got %d: %s", credential, w.Code, w.Body.String())
		}

		var resp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("parse response: %v", err)
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(resp.Token, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(testSecret), nil
		})
		if err != nil {
			t.Fatalf("parse token: %v", err)
		}
		if sub, _ := claims["sub"].(string); sub != strconv.FormatUint(uint64(user.ID), 10) {
			t.Errorf("subject = %v, want %d", claims["sub"], user.ID)
		}
		exp, _ := claims["exp"].(float64)
		want := time.Now().Add(30 * 24 * time.Hour).Unix()
		if diff := int64(exp) - want; diff < -60 || diff > 60 {
			t.Errorf("expiry off by %d seconds", diff)
		}
	}
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t, &mockMailer{})
	seedUser(t, s.db, "maria", "maria@example.com")

	w := postJSON(t, s, "/users/login", map[string]string{
		"credential": "maria",
		"password":   "wrongpass",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", w.Code)
	}

	w = postJSON(t, s, "/users/login", map[string]string{
		"credential": "nobody",
		"password":   "whatever",
	}, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown credential: expected 404, got %d", w.Code)
	}
}

func TestProtectedRoutes_RequireBearerToken(t *testing.T) {
	s := newTestServer(t, &mockMailer{})
	user, _ := seedUser(t, s.db, "maria", "maria@example.com")

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, user))
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	s := newTestServer(t, &mockMailer{})

	w := postJSON(t, s, "/users/logout", map[string]string{}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" && c.MaxAge < 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected expired token cookie, got %v", w.Result().Cookies())
	}
}
