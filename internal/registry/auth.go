package registry

import "net/http"

// authTransport injects a bearer token into every outbound request,
// shared by both the REST client and the raw GraphQL-over-HTTP client so
// neither needs its own credential plumbing.
type authTransport struct {
	token     string
	transport http.RoundTripper
}

func newAuthTransport(token string, transport http.RoundTripper) *authTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &authTransport{token: token, transport: transport}
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())
	if t.token != "" {
		reqCopy.Header.Set("Authorization", "Bearer "+t.token)
	}
	return t.transport.RoundTrip(reqCopy)
}
