package services

// Broadcast event types pushed to admin dashboards and driver devices.
const (
	EventDriverLoggedIn    = "driver_logged_in"
	EventDriverLoggedOut   = "driver_logged_out"
	EventBuggyStatusChange = "buggy_status_changed"
	EventBuggyStatusUpdate = "buggy_status_update"
	EventLocationDeleted   = "location_deleted"

	EventGuestRequestCreated = "guest_request_created"
	EventGuestRequestUpdated = "guest_request_updated"
)

// Reasons carried in buggy_status_changed payloads.
const (
	ReasonDriverLogout  = "driver_logout"
	ReasonDriverEvicted = "driver_evicted"
	ReasonAdminOverride = "admin_override"
)

// Broadcaster pushes state-change events to subscribed sessions. Delivery is
// best-effort and at-most-once; a Publish error is something for the caller
// to log, never a reason to roll back the state transition that produced the
// event.
type Broadcaster interface {
	Publish(topic string, eventType string, payload map[string]interface{}) error
}
