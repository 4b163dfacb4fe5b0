package testing

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

// Test credentials shared by the fixtures
const (
	TestGatewayKey       = "test-gateway-key"
	TestOperator         = "operator1"
	TestOperatorPassword = "plazma-test-pass"
)

// GatewayRequest is one request received by the fake gateway
type GatewayRequest struct {
	Path     string
	RawQuery string
	Query    url.Values
}

// FakeGateway is an httptest server that answers like the SMS gateway
type FakeGateway struct {
	Server *httptest.Server

	mu       sync.Mutex
	requests []GatewayRequest
	respond  func(q url.Values) (status int, body string)
}

// NewFakeGateway starts a gateway that accepts every message
func NewFakeGateway() *FakeGateway {
	g := &FakeGateway{
		respond: func(url.Values) (int, string) {
			return http.StatusOK, `{"result":"OK","code":0,"message":"Message queued"}`
		},
	}
	g.Server = httptest.NewServer(http.HandlerFunc(g.handle))
	return g
}

// TestWithGateway runs fn against a fresh fake gateway and closes it afterwards
func TestWithGateway(fn func(g *FakeGateway) error) error {
	g := NewFakeGateway()
	defer g.Close()
	return fn(g)
}

// URL returns the base URL to put in the gateway configuration
func (g *FakeGateway) URL() string {
	return g.Server.URL
}

// RespondWith replaces the response function
func (g *FakeGateway) RespondWith(fn func(q url.Values) (status int, body string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.respond = fn
}

// Requests returns a copy of the received requests in arrival order
func (g *FakeGateway) Requests() []GatewayRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]GatewayRequest, len(g.requests))
	copy(out, g.requests)
	return out
}

// Close shuts the server down
func (g *FakeGateway) Close() {
	g.Server.Close()
}

func (g *FakeGateway) handle(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.requests = append(g.requests, GatewayRequest{
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Query:    r.URL.Query(),
	})
	respond := g.respond
	g.mu.Unlock()

	status, body := respond(r.URL.Query())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
