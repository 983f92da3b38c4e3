package api

import (
	"github.com/ssargent/freyjadoc/pkg/model"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

// ListResponse is the data of a collection listing
type ListResponse struct {
	Model     string        `json:"model"`
	Count     int           `json:"count"`
	Documents []interface{} `json:"documents"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string // empty disables authentication
	// MaxBodyBytes caps request bodies; zero means 1 MiB
	MaxBodyBytes int64
}

// Catalog resolves the record types served by the API
type Catalog interface {
	Model(name string) (*model.Model, error)
	Collections() []string
}
