package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/micaelmi/blog/internal/model"
)

func TestTags_CreateDuplicateConflicts(t *testing.T) {
	s := newTestServer(t, &mockMailer{})
	user, _ := seedUser(t, s.db, "admin", "admin@example.com")
	token := bearerToken(t, user)

	w := postJSON(t, s, "/tags", map[string]string{"name": "go"}, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = postJSON(t, s, "/tags", map[string]string{"name": "go"}, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", w.Code)
	}
}

func TestTags_DeleteRemovesArticleAssociations(t *testing.T) {
	s := newTestServer(t, &mockMailer{})
	user, _ := seedUser(t, s.db, "admin", "admin@example.com")
	tags := seedTags(t, s, "go")
	article := seedArticle(t, s, user.ID, "hello", tags[0].ID)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/tags/%d", tags[0].ID), nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, user))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := articleTagIDs(t, s, article.ID); len(got) != 0 {
		t.Errorf("expected associations removed, got %v", got)
	}
}

func TestUserTypes_UpdateAndDelete(t *testing.T) {
	s := newTestServer(t, &mockMailer{})
	user, _ := seedUser(t, s.db, "admin", "admin@example.com")
	token := bearerToken(t, user)

	w := postJSON(t, s, "/user-types", map[string]string{"type": "Editor"}, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("parse response: %v", err)
	}

	// 名称统一转小写存储
	var ut model.UserType
	if err := s.db.First(&ut, created.ID).Error; err != nil {
		t.Fatalf("reload user type: %v", err)
	}
	if ut.Type != "editor" {
		t.Errorf("type = %q, want lowercase", ut.Type)
	}

	w = putJSON(t, s, fmt.Sprintf("/user-types/%d", created.ID), map[string]string{"type": "moderator"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/user-types/%d", created.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/user-types/%d", created.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestComments_CreateListAndAuthorOnlyDelete(t *testing.T) {
	s := newTestServer(t, &mockMailer{})
	author, _ := seedUser(t, s.db, "author", "author@example.com")
	other, _ := seedUser(t, s.db, "other", "other@example.com")
	article := seedArticle(t, s, author.ID, "hello")

	w := postJSON(t, s, fmt.Sprintf("/articles/%d/comments", article.ID),
		map[string]string{"content": "great post"},
		map[string]string{"Authorization": "Bearer " + bearerToken(t, author)})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("parse response: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/articles/%d/comments", article.ID), nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	var list []commentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if len(list) != 1 || list[0].Username != "author" {
		t.Errorf("unexpected comment list: %+v", list)
	}

	// 非作者删除：按作者过滤后找不到行
	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/comments/%d", created.ID), nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, other))
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("non-author delete: expected 404, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/comments/%d", created.ID), nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, author))
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("author delete: expected 200, got %d", rec.Code)
	}
}

func TestComments_OnMissingArticle(t *testing.T) {
	s := newTestServer(t, &mockMailer{})
	user, _ := seedUser(t, s.db, "author", "author@example.com")

	w := postJSON(t, s, "/articles/9999/comments",
		map[string]string{"content": "hello"},
		map[string]string{"Authorization": "Bearer " + bearerToken(t, user)})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestFeedbacks_Lifecycle(t *testing.T) {
	s := newTestServer(t, &mockMailer{})
	user, _ := seedUser(t, s.db, "maria", "maria@example.com")
	token := bearerToken(t, user)

	w := postJSON(t, s, "/feedbacks", map[string]string{
		"title":   "dark mode",
		"message": "please add a dark theme",
	}, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("parse response: %v", err)
	}

	w = putJSON(t, s, fmt.Sprintf("/feedbacks/%d", created.ID), map[string]bool{"visualized": true}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/feedbacks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	var list []feedbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if len(list) != 1 || !list[0].Visualized || list[0].UserID != user.ID {
		t.Errorf("unexpected feedback list: %+v", list)
	}

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/feedbacks/%d", created.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
}

func TestEmailList_SubscribeAndDuplicate(t *testing.T) {
	s := newTestServer(t, &mockMailer{})

	w := postJSON(t, s, "/email-list", map[string]string{"email": "News@Example.com"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var entry model.EmailList
	if err := s.db.First(&entry).Error; err != nil {
		t.Fatalf("reload entry: %v", err)
	}
	if entry.Email != "news@example.com" {
		t.Errorf("email not normalized: %q", entry.Email)
	}
	if !entry.Active {
		t.Errorf("expected active subscription")
	}

	w = postJSON(t, s, "/email-list", map[string]string{"email": "news@example.com"}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", w.Code)
	}
}

func TestUsers_UpdateRehashesPassword(t *testing.T) {
	s := newTestServer(t, &mockMailer{})
	user, oldPassword := seedUser(t, s.db, "maria", "maria@example.com")
	token := bearerToken(t, user)

	w := putJSON(t, s, fmt.Sprintf("/users/%d", user.ID), map[string]string{
		"bio":      "writer",
		"password": "newsecret1",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 旧密码失效，新密码可登录
	w = postJSON(t, s, "/users/login", map[string]string{"credential": "maria", "password": oldPassword}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("old password: expected 401, got %d", w.Code)
	}
	w = postJSON(t, s, "/users/login", map[string]string{"credential": "maria", "password": "newsecret1"}, nil)
	if w.Code != http.StatusOK {
		t.Errorf("new password: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated model.User
	if err := s.db.First(&updated, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if updated.Bio != "writer" {
		t.Errorf("bio = %q", updated.Bio)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &mockMailer{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}
