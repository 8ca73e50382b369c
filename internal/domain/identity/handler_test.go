package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/meditrust/meditrust/internal/platform/auth"
)

func postJSON(t *testing.T, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandlerRegister(t *testing.T) {
	h := NewHandler(newTestService(&mockRepo{}, &mockRecorder{}))

	c, rec := postJSON(t, "/auth/register",
		`{"email":"a@b.com","username":"alice","password":"longenough","role":"patient"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var u User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if u.Email != "a@b.com" {
		t.Errorf("unexpected email %q", u.Email)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response must not contain password material")
	}
}

func TestHandlerRegister_BadRole(t *testing.T) {
	h := NewHandler(newTestService(&mockRepo{}, &mockRecorder{}))

	c, _ := postJSON(t, "/auth/register",
		`{"email":"a@b.com","username":"alice","password":"longenough","role":"root"}`)
	err := h.Register(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestHandlerRegister_DuplicateEmail(t *testing.T) {
	svc := newTestService(&mockRepo{}, &mockRecorder{})
	h := NewHandler(svc)

	body := `{"email":"a@b.com","username":"alice","password":"longenough","role":"patient"}`
	c, _ := postJSON(t, "/auth/register", body)
	if err := h.Register(c); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	c, _ = postJSON(t, "/auth/register",
		`{"email":"a@b.com","username":"bob","password":"longenough","role":"patient"}`)
	err := h.Register(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409 HTTPError, got %v", err)
	}
}

func TestHandlerLogin(t *testing.T) {
	svc := newTestService(&mockRepo{}, &mockRecorder{})
	h := NewHandler(svc)

	if _, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@b.com", Username: "alice", Password: "longenough", Role: RolePatient,
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	c, rec := postJSON(t, "/auth/login", `{"email":"a@b.com","password":"longenough"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken == "" || resp.TokenType != "bearer" {
		t.Errorf("unexpected token payload: %+v", resp)
	}
}

func TestHandlerLogin_BadCredentials(t *testing.T) {
	h := NewHandler(newTestService(&mockRepo{}, &mockRecorder{}))

	c, _ := postJSON(t, "/auth/login", `{"email":"ghost@b.com","password":"whatever1"}`)
	err := h.Login(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestHandlerMe(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, &mockRecorder{})
	h := NewHandler(svc)

	u, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@b.com", Username: "alice", Password: "longenough", Role: RolePatient,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	ctx := context.WithValue(c.Request().Context(), auth.UserIDKey, u.ID.String())
	c.SetRequest(c.Request().WithContext(ctx))

	if err := h.Me(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got User
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != u.ID {
		t.Error("wrong user returned")
	}
}
