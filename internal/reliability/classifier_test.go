package reliability

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsOverloadStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{429, true},
		{500, false},
		{529, true},
	}
	for _, tc := range cases {
		got := IsOverloadStatus(tc.code)
		if got != tc.want {
			t.Fatalf("IsOverloadStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestErrorHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{New(KindRequest, "bad body"), http.StatusBadRequest},
		{New(KindProcessing, "empty"), http.StatusInternalServerError},
		{&Error{Kind: KindOverloaded, Status: 529}, 529},
		{&Error{Kind: KindOverloaded}, http.StatusServiceUnavailable},
		{&Error{Kind: KindUpstream, Status: 401}, http.StatusUnauthorized},
		{&Error{Kind: KindUpstream}, http.StatusBadGateway},
		{New(KindStore, "down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Fatalf("%s HTTPStatus() = %d, want %d", tc.err.Kind, got, tc.want)
		}
	}
}

func TestAsFindsWrappedError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("save: %w", Wrap(KindStore, "insert failed", cause))

	e, ok := As(err)
	if !ok {
		t.Fatalf("As() did not find classified error")
	}
	if e.Kind != KindStore {
		t.Fatalf("Kind = %q, want %q", e.Kind, KindStore)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(cause) = false, want true")
	}
	if _, ok := As(cause); ok {
		t.Fatalf("As() on plain error should be false")
	}
}
