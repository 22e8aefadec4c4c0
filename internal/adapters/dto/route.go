// Package dto provides shared data transfer objects for API responses.
package dto

// RouteInfo represents a route table entry in CLI and API output.
type RouteInfo struct {
	Name        string   `json:"name"`
	Prefix      string   `json:"prefix"`
	StripPrefix bool     `json:"strip_prefix"`
	Upstream    string   `json:"upstream"`
	Address     string   `json:"address"`
	Attempts    int      `json:"attempts"`
	Budget      string   `json:"budget,omitempty"`
	RetryOn     []string `json:"retry_on,omitempty"`
}
