package audit

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/meditrust/meditrust/internal/platform/auth"
	"github.com/meditrust/meditrust/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/audit/my-record-access-history", h.MyRecordAccessHistory)
	api.GET("/audit/record-access-history/:owner_id", h.OwnerRecordAccessHistory,
		auth.RequireRole("admin"))
}

// MyRecordAccessHistory lists audit entries for records the requester owns,
// newest first.
func (h *Handler) MyRecordAccessHistory(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.HistoryForOwner(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load audit history")
	}
	if items == nil {
		items = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

// OwnerRecordAccessHistory lists the audit trail of an arbitrary owner.
// Admin-only; the route guard enforces the role.
func (h *Handler) OwnerRecordAccessHistory(c echo.Context) error {
	ownerID := c.Param("owner_id")
	if _, err := uuid.Parse(ownerID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid owner id")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.HistoryForOwner(c.Request().Context(), ownerID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load audit history")
	}
	if items == nil {
		items = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
