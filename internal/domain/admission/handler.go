package admission

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// Handler exposes rooms and the admission workflow over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	admins := auth.RequireRole(auth.RoleBranchAdmin, auth.RoleOrgAdmin)

	g.POST("/rooms", h.CreateRoom, admins)
	g.GET("/branches/:id/rooms", h.ListRooms, auth.RequireRole(
		auth.RoleBranchAdmin, auth.RoleOrgAdmin, auth.RoleDoctor, auth.RoleNurse, auth.RoleReceptionist))
	g.PATCH("/rooms/:id/availability", h.SetAvailability, admins)

	g.POST("/appointments/:id/admit", h.Admit, auth.RequireRole(auth.RoleDoctor))
	g.GET("/admissions/:id", h.Get, auth.RequireRole(
		auth.RoleBranchAdmin, auth.RoleOrgAdmin, auth.RoleDoctor, auth.RoleNurse))
	g.GET("/branches/:id/admissions", h.List, auth.RequireRole(
		auth.RoleBranchAdmin, auth.RoleOrgAdmin, auth.RoleDoctor, auth.RoleNurse))
	g.POST("/admissions/:id/discharge-request", h.RequestDischarge, auth.RequireRole(auth.RoleNurse))
	g.GET("/admissions/discharge-requests", h.ListDischargeRequests, auth.RequireRole(auth.RoleDoctor))
	g.POST("/admissions/:id/discharge-decision", h.DecideDischarge, auth.RequireRole(auth.RoleDoctor))
}

type createRoomRequest struct {
	BranchID  uuid.UUID       `json:"branch_id"`
	Number    string          `json:"number"`
	Type      string          `json:"type"`
	DailyRate decimal.Decimal `json:"daily_rate"`
}

func (h *Handler) CreateRoom(c echo.Context) error {
	var req createRoomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rm, err := h.svc.CreateRoom(c.Request().Context(), &CreateRoomInput{
		BranchID:  req.BranchID,
		Number:    req.Number,
		Type:      req.Type,
		DailyRate: req.DailyRate,
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, rm)
}

func (h *Handler) ListRooms(c echo.Context) error {
	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid branch id")
	}
	p := pagination.FromContext(c)
	rooms, total, err := h.svc.ListRooms(c.Request().Context(), branchID, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(rooms, total, p.Limit, p.Offset))
}

type availabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}

func (h *Handler) SetAvailability(c echo.Context) error {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid room id")
	}
	var req availabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rm, err := h.svc.SetRoomAvailability(c.Request().Context(), roomID, req.IsAvailable)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rm)
}

type admitRequest struct {
	RoomType string `json:"room_type"`
}

func (h *Handler) Admit(c echo.Context) error {
	apptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	var req admitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	adm, err := h.svc.AdmitPatient(c.Request().Context(), apptID, req.RoomType)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, adm)
}

func (h *Handler) Get(c echo.Context) error {
	admissionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid admission id")
	}
	adm, err := h.svc.GetAdmission(c.Request().Context(), admissionID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, adm)
}

func (h *Handler) List(c echo.Context) error {
	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid branch id")
	}
	p := pagination.FromContext(c)
	activeOnly := c.QueryParam("active") == "true"
	views, total, err := h.svc.ListAdmissions(c.Request().Context(), branchID, activeOnly, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, p.Limit, p.Offset))
}

func (h *Handler) RequestDischarge(c echo.Context) error {
	admissionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid admission id")
	}
	adm, err := h.svc.RequestDischarge(c.Request().Context(), admissionID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, adm)
}

func (h *Handler) ListDischargeRequests(c echo.Context) error {
	views, err := h.svc.ListDischargeRequests(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, views)
}

type decisionRequest struct {
	Approve bool   `json:"approve"`
	Summary string `json:"summary"`
}

func (h *Handler) DecideDischarge(c echo.Context) error {
	admissionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid admission id")
	}
	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	adm, err := h.svc.DecideDischarge(c.Request().Context(), admissionID, req.Approve, req.Summary)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, adm)
}
