package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims() *Claims {
	return &Claims{
		Role:  RoleDoctor,
		OrgID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func invokeJWT(t *testing.T, secret, header string) (*Identity, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var got *Identity
	handler := JWTMiddleware(secret)(func(c echo.Context) error {
		got = IdentityFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	return got, handler(c)
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	claims := validClaims()
	branchID := uuid.New()
	claims.BranchID = branchID.String()

	id, err := invokeJWT(t, testSecret, "Bearer "+signToken(t, testSecret, claims))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == nil {
		t.Fatal("expected identity in context")
	}
	if id.Role != RoleDoctor {
		t.Errorf("expected role %s, got %s", RoleDoctor, id.Role)
	}
	if id.UserID.String() != claims.Subject {
		t.Errorf("expected user id %s, got %s", claims.Subject, id.UserID)
	}
	if id.BranchID == nil || *id.BranchID != branchID {
		t.Errorf("expected branch id %s, got %v", branchID, id.BranchID)
	}
}

func TestJWTMiddleware_NoBranchClaim(t *testing.T) {
	id, err := invokeJWT(t, testSecret, "Bearer "+signToken(t, testSecret, validClaims()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.BranchID != nil {
		t.Errorf("expected nil branch id, got %v", id.BranchID)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, err := invokeJWT(t, testSecret, "")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_MalformedHeader(t *testing.T) {
	_, err := invokeJWT(t, testSecret, "Token abc")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_WrongSecret(t *testing.T) {
	token := signToken(t, "another-secret-another-secret-ab", validClaims())
	_, err := invokeJWT(t, testSecret, "Bearer "+token)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err := invokeJWT(t, testSecret, "Bearer "+signToken(t, testSecret, claims))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_BadSubject(t *testing.T) {
	claims := validClaims()
	claims.Subject = "not-a-uuid"
	_, err := invokeJWT(t, testSecret, "Bearer "+signToken(t, testSecret, claims))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestDevAuthMiddleware_InjectsSuperAdmin(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	orgID := uuid.New()
	var got *Identity
	handler := DevAuthMiddleware(orgID)(func(c echo.Context) error {
		got = IdentityFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Role != RoleSuperAdmin {
		t.Fatalf("expected super_admin identity, got %+v", got)
	}
	if got.OrgID != orgID {
		t.Errorf("expected org id %s, got %s", orgID, got.OrgID)
	}
}
