package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{NotFoundf("patient not found: %s", "abc"), KindNotFound},
		{Forbiddenf("cross-tenant access denied"), KindForbidden},
		{Conflictf("doctor is not available at this time"), KindConflict},
		{Validationf("cannot reschedule completed appointment"), KindValidation},
		{errors.New("boom"), KindUnknown},
		{nil, KindUnknown},
	}

	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("create appointment: %w", Conflictf("slot taken"))
	if got := KindOf(err); got != KindConflict {
		t.Errorf("wrapped KindOf = %d, want KindConflict", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	if got := HTTPStatus(NotFoundf("x")); got != http.StatusNotFound {
		t.Errorf("not found status = %d", got)
	}
	if got := HTTPStatus(Forbiddenf("x")); got != http.StatusForbidden {
		t.Errorf("forbidden status = %d", got)
	}
	if got := HTTPStatus(Conflictf("x")); got != http.StatusConflict {
		t.Errorf("conflict status = %d", got)
	}
	if got := HTTPStatus(Validationf("x")); got != http.StatusUnprocessableEntity {
		t.Errorf("validation status = %d", got)
	}
	if got := HTTPStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("unknown status = %d", got)
	}
}

func TestMessage(t *testing.T) {
	err := NotFoundf("appointment not found: %d", 42)
	if err.Error() != "appointment not found: 42" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}
