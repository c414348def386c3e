// Package protocol defines the API request/response types.
package protocol

import "github.com/fruitsalade/filebrowser/pkg/models"

// API routes.
const (
	FilesPrefix = "/api/files/"
	LoginPath   = "/api/login"
	LogoutPath  = "/api/logout"
	HealthPath  = "/health"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session"

// FileInfo is returned by GET /api/files/{path}.
// Directories carry their entries in Contents; files have no Contents.
type FileInfo struct {
	Name     string                  `json:"name"`
	Type     models.Kind             `json:"type"`
	Size     int64                   `json:"size"`
	Contents []models.DirectoryEntry `json:"contents,omitempty"`
}

// LoginRequest is the body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ErrorResponse is returned on API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
