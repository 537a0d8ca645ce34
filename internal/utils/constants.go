package utils

import "time"

const (
	AppName = "BuggyDispatch"

	// API response statuses
	StatusSuccess = "success"
	StatusError   = "error"

	// Common error messages
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrValidationFailed = "validation failed"

	// Collections
	CollectionUsers        = "users"
	CollectionBuggies      = "buggies"
	CollectionAssignments  = "buggy_assignments"
	CollectionLocations    = "locations"
	CollectionRequests     = "guest_requests"
	CollectionAuditLogs    = "audit_logs"

	// Session cache keys
	SessionKeyPrefix = "session:driver:"

	DefaultJWTAccessTokenTTL = 24 * time.Hour
)
