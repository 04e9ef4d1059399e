// Package notify pushes catalogue mutations to the sibling service.
//
// Mutations are recorded in a notifications table (an outbox) in the
// same database, right after the mutation commits; a background worker
// drains the outbox and POSTs each event to the peer with retries. The
// initiating request therefore never blocks on, nor fails with, the
// sibling service.
package notify

import (
	"net"
	"net/http"
	"time"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 15 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 10 * time.Second
)

// HeaderDeliveryID carries the outbox row id to the receiver, which uses
// it as an idempotency key so retried deliveries are applied at most once.
const HeaderDeliveryID = "X-Lendr-Delivery-Id"

// HeaderEventKind names the mirrored event, for receiver-side logging.
const HeaderEventKind = "X-Lendr-Event"

// NewHTTPClient creates an HTTP client configured for peer delivery.
// It has appropriate timeouts and does not follow redirects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// SetDeliveryHeaders applies the standard delivery headers to a request.
func SetDeliveryHeaders(req *http.Request, deliveryID, kind string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderDeliveryID, deliveryID)
	req.Header.Set(HeaderEventKind, kind)
	req.Header.Set("User-Agent", "Lendr-Notify/1.0")
}
