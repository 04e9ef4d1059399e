package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var captured string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	RequestID(next).ServeHTTP(rec, req)

	if captured == "" {
		t.Fatal("expected a generated request id in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != captured {
		t.Errorf("expected response header %q, got %q", captured, got)
	}
}

func TestRequestID_PreservesIncoming(t *testing.T) {
	var captured string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "incoming-id")
	rec := httptest.NewRecorder()

	RequestID(next).ServeHTTP(rec, req)

	if captured != "incoming-id" {
		t.Errorf("expected incoming id to be preserved, got %q", captured)
	}
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetRequestID(req.Context()); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}
}
