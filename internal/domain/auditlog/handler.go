package auditlog

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/auth"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/labstack/echo/v4"
)

// Handler exposes the audit trail to administrators. Rows are read-only;
// nothing in the API can alter or delete them.
type Handler struct {
	reader Reader
}

func NewHandler(reader Reader) *Handler {
	return &Handler{reader: reader}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	admins := auth.RequireRole(auth.RoleOrgAdmin)

	g.GET("/audit/logs", h.ListActions, admins)
	g.GET("/audit/patient-access", h.ListPatientAccess, admins)
}

// callerOrg pins the query to the caller's organization. Super admins read
// across organizations; everyone else sees only their own rows.
func callerOrg(c echo.Context) *uuid.UUID {
	id := auth.IdentityFromContext(c.Request().Context())
	if id == nil || id.Role == auth.RoleSuperAdmin {
		return nil
	}
	return &id.OrgID
}

func (h *Handler) ListActions(c echo.Context) error {
	var f Filter
	f.OrgID = callerOrg(c)
	f.Action = c.QueryParam("action")
	f.EntityType = c.QueryParam("entity_type")
	f.EntityID = c.QueryParam("entity_id")

	var err error
	if f.UserID, err = uuidFilter(c, "user_id"); err != nil {
		return err
	}
	if f.From, err = timeFilter(c, "from"); err != nil {
		return err
	}
	if f.To, err = timeFilter(c, "to"); err != nil {
		return err
	}

	p := pagination.FromContext(c)
	entries, total, err := h.reader.ListActions(c.Request().Context(), f, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, p.Limit, p.Offset))
}

func (h *Handler) ListPatientAccess(c echo.Context) error {
	var f AccessFilter
	f.OrgID = callerOrg(c)

	var err error
	if f.PatientID, err = uuidFilter(c, "patient_id"); err != nil {
		return err
	}
	if f.AccessedBy, err = uuidFilter(c, "accessed_by"); err != nil {
		return err
	}
	if f.From, err = timeFilter(c, "from"); err != nil {
		return err
	}
	if f.To, err = timeFilter(c, "to"); err != nil {
		return err
	}

	p := pagination.FromContext(c)
	accesses, total, err := h.reader.ListPatientAccess(c.Request().Context(), f, p)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(accesses, total, p.Limit, p.Offset))
}

func uuidFilter(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &id, nil
}

func timeFilter(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+", expected RFC 3339")
	}
	return &ts, nil
}
