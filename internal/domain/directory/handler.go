package directory

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/labstack/echo/v4"
)

// Handler exposes the directory over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/organizations", h.CreateOrganization, auth.RequireRole(auth.RoleSuperAdmin))
	g.GET("/organizations", h.ListOrganizations, auth.RequireRole(auth.RoleSuperAdmin))
	g.POST("/branches", h.CreateBranch, auth.RequireRole(auth.RoleOrgAdmin))
	g.GET("/organizations/:id/branches", h.ListBranches, auth.RequireRole(auth.RoleOrgAdmin, auth.RoleBranchAdmin))
	g.POST("/staff", h.CreateStaff, auth.RequireRole(auth.RoleOrgAdmin, auth.RoleBranchAdmin))
	g.PATCH("/users/:id/state", h.SetUserState, auth.RequireRole(auth.RoleOrgAdmin, auth.RoleBranchAdmin))
	g.POST("/patients", h.RegisterPatient, auth.RequireRole(auth.RoleReceptionist, auth.RoleBranchAdmin))
	g.GET("/patients/me", h.GetMyProfile, auth.RequireRole(auth.RolePatient))
	g.GET("/patients/:id", h.GetPatient, auth.RequireRole(
		auth.RoleDoctor, auth.RoleNurse, auth.RoleReceptionist, auth.RoleBranchAdmin, auth.RoleOrgAdmin))
	g.GET("/branches/:id/patients", h.ListPatients, auth.RequireRole(
		auth.RoleDoctor, auth.RoleNurse, auth.RoleReceptionist, auth.RoleBranchAdmin, auth.RoleOrgAdmin))
}

func (h *Handler) CreateOrganization(c echo.Context) error {
	var o Organization
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateOrganization(c.Request().Context(), &o); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) ListOrganizations(c echo.Context) error {
	p := pagination.FromContext(c)
	orgs, total, err := h.svc.ListOrganizations(c.Request().Context(), p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(orgs, total, p.Limit, p.Offset))
}

func (h *Handler) CreateBranch(c echo.Context) error {
	var b Branch
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateBranch(c.Request().Context(), &b); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) ListBranches(c echo.Context) error {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid organization id")
	}
	p := pagination.FromContext(c)
	branches, total, err := h.svc.ListBranches(c.Request().Context(), orgID, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(branches, total, p.Limit, p.Offset))
}

func (h *Handler) CreateStaff(c echo.Context) error {
	var in CreateStaffInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	user, err := h.svc.CreateStaff(c.Request().Context(), &in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) SetUserState(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var body struct {
		State UserState `json:"state"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.SetUserState(c.Request().Context(), userID, body.State); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.RegisterPatient(c.Request().Context(), &p); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetMyProfile(c echo.Context) error {
	p, err := h.svc.GetOwnPatient(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), patientID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid branch id")
	}
	p := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), branchID, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, p.Limit, p.Offset))
}
