package telemetry

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/labstack/echo/v4"
)

// Handler exposes vital sign recording and alert queries over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	clinical := auth.RequireRole(auth.RoleDoctor, auth.RoleNurse)

	g.POST("/patients/:id/vitals", h.Record, clinical)
	g.GET("/patients/:id/vitals", h.ListForPatient, auth.RequireRole(
		auth.RoleDoctor, auth.RoleNurse, auth.RoleBranchAdmin, auth.RoleOrgAdmin))
	g.GET("/branches/:id/vitals/alerts", h.ListAlerts, auth.RequireRole(
		auth.RoleDoctor, auth.RoleNurse, auth.RoleBranchAdmin, auth.RoleOrgAdmin))
}

type recordRequest struct {
	AppointmentID    *uuid.UUID `json:"appointment_id,omitempty"`
	HeartRate        *int       `json:"heart_rate,omitempty"`
	BPSystolic       *int       `json:"bp_systolic,omitempty"`
	BPDiastolic      *int       `json:"bp_diastolic,omitempty"`
	Temperature      *float64   `json:"temperature,omitempty"`
	OxygenSaturation *int       `json:"oxygen_saturation,omitempty"`
	RespiratoryRate  *int       `json:"respiratory_rate,omitempty"`
	RecordedAt       *time.Time `json:"recorded_at,omitempty"`
}

func (h *Handler) Record(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	v, err := h.svc.RecordVitals(c.Request().Context(), &RecordVitalsInput{
		PatientID:        patientID,
		AppointmentID:    req.AppointmentID,
		HeartRate:        req.HeartRate,
		BPSystolic:       req.BPSystolic,
		BPDiastolic:      req.BPDiastolic,
		Temperature:      req.Temperature,
		OxygenSaturation: req.OxygenSaturation,
		RespiratoryRate:  req.RespiratoryRate,
		RecordedAt:       req.RecordedAt,
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p := pagination.FromContext(c)
	vitals, total, err := h.svc.ListForPatient(c.Request().Context(), patientID, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(vitals, total, p.Limit, p.Offset))
}

func (h *Handler) ListAlerts(c echo.Context) error {
	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid branch id")
	}
	p := pagination.FromContext(c)
	vitals, total, err := h.svc.ListAlerts(c.Request().Context(), branchID, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(vitals, total, p.Limit, p.Offset))
}
