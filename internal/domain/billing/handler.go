package billing

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// Handler exposes billing over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	billingStaff := auth.RequireRole(auth.RoleReceptionist, auth.RoleBranchAdmin, auth.RoleOrgAdmin)

	g.POST("/bills", h.Generate, billingStaff)
	g.GET("/bills/:id", h.Get, auth.RequireRole(
		auth.RoleReceptionist, auth.RoleBranchAdmin, auth.RoleOrgAdmin, auth.RolePatient))
	g.POST("/bills/:id/payments", h.RecordPayment, billingStaff)
	g.GET("/patients/:id/bills", h.ListForPatient, auth.RequireRole(
		auth.RoleReceptionist, auth.RoleBranchAdmin, auth.RoleOrgAdmin, auth.RolePatient))
	g.GET("/branches/:id/bills", h.ListForBranch, billingStaff)
	g.GET("/branches/:id/revenue", h.Revenue, auth.RequireRole(auth.RoleBranchAdmin, auth.RoleOrgAdmin))
}

type generateRequest struct {
	AppointmentID     uuid.UUID       `json:"appointment_id"`
	ConsultationFee   decimal.Decimal `json:"consultation_fee"`
	RoomCharges       decimal.Decimal `json:"room_charges"`
	MedicationCharges decimal.Decimal `json:"medication_charges"`
	LabCharges        decimal.Decimal `json:"lab_charges"`
	OtherCharges      decimal.Decimal `json:"other_charges"`
	Discount          decimal.Decimal `json:"discount"`
}

func (h *Handler) Generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b, err := h.svc.GenerateBill(c.Request().Context(), &GenerateBillInput{
		AppointmentID:     req.AppointmentID,
		ConsultationFee:   req.ConsultationFee,
		RoomCharges:       req.RoomCharges,
		MedicationCharges: req.MedicationCharges,
		LabCharges:        req.LabCharges,
		OtherCharges:      req.OtherCharges,
		Discount:          req.Discount,
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) Get(c echo.Context) error {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bill id")
	}
	b, err := h.svc.GetBill(c.Request().Context(), billID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, b)
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) RecordPayment(c echo.Context) error {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bill id")
	}
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b, err := h.svc.RecordPayment(c.Request().Context(), billID, req.Amount)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p := pagination.FromContext(c)
	bills, total, err := h.svc.ListForPatient(c.Request().Context(), patientID, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(bills, total, p.Limit, p.Offset))
}

func (h *Handler) ListForBranch(c echo.Context) error {
	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid branch id")
	}
	p := pagination.FromContext(c)
	bills, total, err := h.svc.ListForBranch(c.Request().Context(), branchID, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(bills, total, p.Limit, p.Offset))
}

func (h *Handler) Revenue(c echo.Context) error {
	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid branch id")
	}
	rev, err := h.svc.BranchRevenue(c.Request().Context(), branchID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rev)
}
