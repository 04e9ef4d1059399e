package notify

import (
	"net/http"
	"testing"
)

func TestSetDeliveryHeaders(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, "http://peer.local/admin/books", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	SetDeliveryHeaders(req, "01HTEST", "book.added")

	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("unexpected content type: %s", got)
	}
	if got := req.Header.Get(HeaderDeliveryID); got != "01HTEST" {
		t.Errorf("unexpected delivery id header: %s", got)
	}
	if got := req.Header.Get(HeaderEventKind); got != "book.added" {
		t.Errorf("unexpected event kind header: %s", got)
	}
	if got := req.Header.Get("User-Agent"); got != "Lendr-Notify/1.0" {
		t.Errorf("unexpected user agent: %s", got)
	}
}

func TestNewHTTPClient_DoesNotFollowRedirects(t *testing.T) {
	client := NewHTTPClient()
	if client.CheckRedirect == nil {
		t.Fatal("expected CheckRedirect to be set")
	}

	if err := client.CheckRedirect(nil, nil); err != http.ErrUseLastResponse {
		t.Errorf("expected ErrUseLastResponse, got %v", err)
	}
}
