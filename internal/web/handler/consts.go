package handler

const (
	// APIPath is the mount point of the RBAC admin API.
	APIPath = "/api/rbac"

	// StatusSuccess and StatusError are the values of the "status" field of every response.
	StatusSuccess = "success"
	StatusError   = "error"

	// ErrNilACDFatalLogMsg is used if router, cfg or service pointer is nil.
	ErrNilACDFatalLogMsg = "router, cfg or rbac service is nil"

	msgInternal = "Internal Server Error"
)
