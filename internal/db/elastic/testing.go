package elastic

import (
	"io"
	"net/http"
	"strings"
)

// RoundTripFunc adapts a function to http.RoundTripper (test-only).
type RoundTripFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Respond builds a backend response that passes the client's product check (test-only).
func Respond(status int, body string) *http.Response {
	h := http.Header{}
	h.Set("X-Elastic-Product", "Elasticsearch")
	h.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// NewStoreForTest creates a Store whose requests are served by rt (test-only).
func NewStoreForTest(rt http.RoundTripper) *Store {
	s, err := NewStore(Config{Addrs: []string{"http://es.test:9200"}, Transport: rt})
	if err != nil {
		panic(err)
	}
	return s
}
