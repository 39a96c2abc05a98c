package pharmacy

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// Handler exposes pharmacy stock and orders over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	pharmacists := auth.RequireRole(auth.RolePharmacyStaff, auth.RoleBranchAdmin, auth.RoleOrgAdmin)

	g.POST("/pharmacy/stock", h.AddStock, pharmacists)
	g.POST("/pharmacy/stock/:id/adjust", h.AdjustStock, pharmacists)
	g.GET("/branches/:id/pharmacy/stock", h.ListStock, pharmacists)
	g.GET("/branches/:id/pharmacy/stock/low", h.ListLowStock, pharmacists)

	g.POST("/pharmacy/orders", h.CreateOrder, auth.RequireRole(
		auth.RolePharmacyStaff, auth.RoleDoctor, auth.RoleNurse))
	g.GET("/pharmacy/orders/:id", h.GetOrder, pharmacists)
	g.POST("/pharmacy/orders/:id/fulfill", h.FulfillOrder, auth.RequireRole(auth.RolePharmacyStaff))
	g.POST("/pharmacy/orders/:id/cancel", h.CancelOrder, pharmacists)
	g.GET("/branches/:id/pharmacy/orders", h.ListOrders, pharmacists)
}

type addStockRequest struct {
	BranchID     uuid.UUID       `json:"branch_id"`
	Name         string          `json:"name"`
	Strength     string          `json:"strength"`
	Quantity     int             `json:"quantity"`
	ReorderLevel int             `json:"reorder_level"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

func (h *Handler) AddStock(c echo.Context) error {
	var req addStockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.AddStock(c.Request().Context(), &AddStockInput{
		BranchID:     req.BranchID,
		Name:         req.Name,
		Strength:     req.Strength,
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
		UnitPrice:    req.UnitPrice,
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, m)
}

type adjustRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

func (h *Handler) AdjustStock(c echo.Context) error {
	stockID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid stock id")
	}
	var req adjustRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.AdjustStock(c.Request().Context(), stockID, req.Delta, req.Reason)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListStock(c echo.Context) error {
	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid branch id")
	}
	p := pagination.FromContext(c)
	stock, total, err := h.svc.ListStock(c.Request().Context(), branchID, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(stock, total, p.Limit, p.Offset))
}

func (h *Handler) ListLowStock(c echo.Context) error {
	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid branch id")
	}
	stock, err := h.svc.ListLowStock(c.Request().Context(), branchID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, stock)
}

type orderItemRequest struct {
	StockID  uuid.UUID `json:"stock_id"`
	Quantity int       `json:"quantity"`
}

type createOrderRequest struct {
	PatientID *uuid.UUID         `json:"patient_id,omitempty"`
	BranchID  uuid.UUID          `json:"branch_id"`
	Items     []orderItemRequest `json:"items"`
}

func (h *Handler) CreateOrder(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	in := &CreateOrderInput{PatientID: req.PatientID, BranchID: req.BranchID}
	for _, item := range req.Items {
		in.Items = append(in.Items, OrderItemInput{StockID: item.StockID, Quantity: item.Quantity})
	}
	o, err := h.svc.CreateOrder(c.Request().Context(), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetOrder(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	o, err := h.svc.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) FulfillOrder(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	o, err := h.svc.FulfillOrder(c.Request().Context(), orderID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) CancelOrder(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	o, err := h.svc.CancelOrder(c.Request().Context(), orderID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListOrders(c echo.Context) error {
	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid branch id")
	}
	p := pagination.FromContext(c)
	orders, total, err := h.svc.ListOrders(c.Request().Context(), branchID, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(orders, total, p.Limit, p.Offset))
}
