package types

// ErrorResponse is the error body rendered by the error-handler middleware.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// StatusResponse is a minimal acknowledgment body.
type StatusResponse struct {
	Status string `json:"status"`
}

// AppInfo is returned by the root endpoint for smoke checks.
type AppInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
}
