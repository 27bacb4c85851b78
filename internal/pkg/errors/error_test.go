package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		kind   Kind
		want   error
	}{
		{http.StatusBadRequest, KindBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, KindUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, KindForbidden, ErrForbidden},
		{http.StatusNotFound, KindNotFound, ErrNotFound},
		{http.StatusConflict, KindConflict, ErrConflict},
		{http.StatusGone, KindGone, ErrGone},
		{http.StatusFailedDependency, KindFailedDependency, ErrFailedDependency},
		{http.StatusTeapot, KindBadRequest, ErrBadRequest},
		{http.StatusServiceUnavailable, KindServiceUnavailable, ErrServiceUnavailable},
		{http.StatusBadGateway, KindInternal, ErrInternal},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			t.Parallel()
			err := FromStatus(tc.status, "boom")
			if err.Kind != tc.kind {
				t.Fatalf("kind = %s, want %s", err.Kind, tc.kind)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("FromStatus(%d) does not match %v", tc.status, tc.want)
			}
			if StatusOf(fmt.Errorf("wrapped: %w", err)) != tc.status {
				t.Fatalf("StatusOf lost the status %d", tc.status)
			}
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := FromStatus(http.StatusConflict, "role exists")
	if got := err.Error(); got != "conflict: resource already exists (409): role exists" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := FromStatus(http.StatusUnauthorized, "").Error(); got != "unauthorized access (401)" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestStatusOfSentinels(t *testing.T) {
	if StatusOf(ErrSessionExpired) != http.StatusUnauthorized {
		t.Fatalf("session expired should map to 401")
	}
	if StatusOf(errors.New("plain")) != http.StatusInternalServerError {
		t.Fatalf("plain errors should map to 500")
	}
}
