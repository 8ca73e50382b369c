package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/meditrust/meditrust/internal/platform/auth"
)

func newTestContext(t *testing.T, userID string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/audit/my-record-access-history", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		ctx := context.WithValue(c.Request().Context(), auth.UserIDKey, userID)
		c.SetRequest(c.Request().WithContext(ctx))
	}
	return c, rec
}

func TestMyRecordAccessHistory(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, zerolog.Nop())
	svc.Record(context.Background(), Entry{ActorID: "u1", OwnerID: "u1", ActionType: ActionViewRecordSuccess})
	svc.Record(context.Background(), Entry{ActorID: "u2", OwnerID: "u2", ActionType: ActionViewRecordSuccess})
	h := NewHandler(svc)

	c, rec := newTestContext(t, "u1")
	if err := h.MyRecordAccessHistory(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data  []Entry `json:"data"`
		Total int     `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Total != 1 || len(body.Data) != 1 {
		t.Fatalf("expected 1 entry for u1, got %d (total %d)", len(body.Data), body.Total)
	}
	if body.Data[0].OwnerID != "u1" {
		t.Errorf("expected owner u1, got %q", body.Data[0].OwnerID)
	}
}

func TestMyRecordAccessHistory_Unauthenticated(t *testing.T) {
	h := NewHandler(NewService(&mockRepo{}, zerolog.Nop()))

	c, _ := newTestContext(t, "")
	err := h.MyRecordAccessHistory(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestOwnerRecordAccessHistory_AdminOnly(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, zerolog.Nop())
	ownerID := uuid.NewString()
	svc.Record(context.Background(), Entry{ActorID: "d1", OwnerID: ownerID, ActionType: ActionViewRecordDeniedOracle})
	h := NewHandler(svc)

	do := func(role, target string) *httptest.ResponseRecorder {
		e := echo.New()
		g := e.Group("", func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				ctx := context.WithValue(c.Request().Context(), auth.UserIDKey, "a1")
				ctx = context.WithValue(ctx, auth.UserRoleKey, role)
				c.SetRequest(c.Request().WithContext(ctx))
				return next(c)
			}
		})
		h.RegisterRoutes(g)
		req := httptest.NewRequest(http.MethodGet, "/audit/record-access-history/"+target, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := do("admin", ownerID)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin request = %d, want 200", rec.Code)
	}
	var body struct {
		Data  []Entry `json:"data"`
		Total int     `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Total != 1 || len(body.Data) != 1 || body.Data[0].OwnerID != ownerID {
		t.Errorf("expected the owner's single entry, got %+v", body)
	}

	if rec := do("doctor", ownerID); rec.Code != http.StatusForbidden {
		t.Errorf("doctor request = %d, want 403", rec.Code)
	}
	if rec := do("admin", "not-a-uuid"); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed owner id = %d, want 400", rec.Code)
	}
}

func TestMyRecordAccessHistory_EmptyList(t *testing.T) {
	h := NewHandler(NewService(&mockRepo{}, zerolog.Nop()))

	c, rec := newTestContext(t, "nobody")
	if err := h.MyRecordAccessHistory(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Data  []Entry `json:"data"`
		Total int     `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data == nil {
		t.Error("expected empty array, not null")
	}
	if body.Total != 0 {
		t.Errorf("expected total 0, got %d", body.Total)
	}
}
