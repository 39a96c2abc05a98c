package medicalhistory

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/patients/me/medical-history", h.ListOwn, auth.RequireRole(auth.RolePatient))
	g.GET("/patients/:id/medical-history", h.ListForPatient, auth.RequireRole(
		auth.RoleDoctor, auth.RoleNurse, auth.RoleBranchAdmin, auth.RoleOrgAdmin))
}

func (h *Handler) ListOwn(c echo.Context) error {
	p := pagination.FromContext(c)
	records, total, err := h.svc.ListOwn(c.Request().Context(), p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(records, total, p.Limit, p.Offset))
}

func (h *Handler) ListForPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p := pagination.FromContext(c)
	records, total, err := h.svc.ListForPatient(c.Request().Context(), patientID, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(records, total, p.Limit, p.Offset))
}
