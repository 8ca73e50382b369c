package record

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/meditrust/meditrust/internal/platform/auth"
	"github.com/meditrust/meditrust/internal/platform/crypto"
	"github.com/meditrust/meditrust/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/records", h.Create)
	api.GET("/records/mine", h.ListMine)
	api.GET("/records/anchored", h.ReconcileAnchored)
	api.GET("/records/:id", h.Read)
	api.POST("/records/:id/grant", h.Grant)
	api.POST("/records/:id/revoke", h.Revoke)
}

// requester builds the principal from the authenticated request context.
func requester(c echo.Context) (Requester, error) {
	ctx := c.Request().Context()
	id, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return Requester{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return Requester{
		ID:       id,
		Role:     auth.RoleFromContext(ctx),
		Wallet:   auth.WalletFromContext(ctx),
		SourceIP: c.RealIP(),
	}, nil
}

// mapError translates service errors to transport status codes. Messages stay
// generic: no plaintext, no key material, no raw oracle text.
func mapError(err error) error {
	var fe *ForbiddenError
	var ie *InvalidInputError
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	case errors.As(err, &fe):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	case errors.As(err, &ie):
		return echo.NewHTTPError(http.StatusBadRequest, ie.Msg)
	case errors.Is(err, ErrOracleUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "access oracle unavailable")
	case errors.Is(err, crypto.ErrDecryptionFailed):
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read record")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) Create(c echo.Context) error {
	req, err := requester(c)
	if err != nil {
		return err
	}

	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rec, err := h.svc.Create(c.Request().Context(), req, in)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Read(c echo.Context) error {
	req, err := requester(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}

	view, err := h.svc.Read(c.Request().Context(), req, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) ListMine(c echo.Context) error {
	req, err := requester(c)
	if err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMine(c.Request().Context(), req, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	if items == nil {
		items = []*Record{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ReconcileAnchored(c echo.Context) error {
	req, err := requester(c)
	if err != nil {
		return err
	}

	result, err := h.svc.ReconcileAnchored(c.Request().Context(), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type delegateRequest struct {
	DelegateAddress string `json:"delegate_address"`
}

type delegateResponse struct {
	AnchorID string `json:"anchor_id"`
}

func (h *Handler) Grant(c echo.Context) error {
	return h.handleDelegate(c, h.svc.Grant)
}

func (h *Handler) Revoke(c echo.Context) error {
	return h.handleDelegate(c, h.svc.Revoke)
}

func (h *Handler) handleDelegate(c echo.Context, call func(ctx context.Context, req Requester, recordID uuid.UUID, delegate string) (string, error)) error {
	req, err := requester(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}

	var body delegateRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if body.DelegateAddress == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "delegate_address is required")
	}

	anchorID, err := call(c.Request().Context(), req, id, body.DelegateAddress)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, delegateResponse{AnchorID: anchorID})
}
