package logging

// Standard field names for structured logging, so call sites don't drift on
// spelling ("client_id" vs "clientID") across packages.
const (
	FieldComponent = "component"
	FieldUserID    = "user_id"
	FieldClientID  = "client_id"
	FieldHost      = "host"
	FieldX         = "x"
	FieldY         = "y"
	FieldColorID   = "color_id"
	FieldAction    = "action"
	FieldReason    = "reason"
	FieldError     = "error"
	FieldCount     = "count"
	FieldDuration  = "duration_ms"
)
