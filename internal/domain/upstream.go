package domain

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// Upstream is a named backend address the router can forward requests to.
// It is created at configuration load and never mutated afterwards.
type Upstream struct {
	Name        string
	Host        string
	Port        int
	Keepalive   int           // idle connections kept per upstream
	MaxFails    int           // failed attempts within FailTimeout before the upstream is marked down, 0 disables
	FailTimeout time.Duration // accounting window and down period
}

// Address returns host:port of the upstream.
func (u Upstream) Address() string {
	return net.JoinHostPort(u.Host, strconv.Itoa(u.Port))
}

// URL returns the base URL requests are forwarded to.
func (u Upstream) URL() *url.URL {
	return &url.URL{Scheme: "http", Host: u.Address()}
}

// UpstreamHealth is the passive health snapshot of an upstream, derived from
// the outcome of proxied requests.
type UpstreamHealth struct {
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Down        bool      `json:"down"`
	Fails       int       `json:"fails"`
	LastFailure time.Time `json:"last_failure,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}
