package waybler

import (
	"net/http"
)

type wayblerRoundTripper struct {
	inner  http.RoundTripper
	client *Client
}

func (w wayblerRoundTripper) RoundTrip(request *http.Request) (*http.Response, error) {
	// RoundTrip must not modify the caller's request
	request = request.Clone(request.Context())

	request.Header.Set("x-app-uuid", AppUUID)
	request.Header.Set("User-Agent", userAgent)
	if token := w.client.getToken(); token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	if request.Body != nil && request.Body != http.NoBody {
		request.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	inner := w.inner
	if inner == nil {
		inner = http.DefaultTransport
	}
	return inner.RoundTrip(request)
}

var _ http.RoundTripper = &wayblerRoundTripper{}
