package enums

import "fmt"

// LogAction maps to the log_action enum in Postgres.
type LogAction string

const (
	LogActionInward     LogAction = "inward"
	LogActionOutward    LogAction = "outward"
	LogActionAdjustment LogAction = "adjustment"
	LogActionCreated    LogAction = "created"
	LogActionUpdated    LogAction = "updated"
	LogActionDeleted    LogAction = "deleted"
)

var validLogActions = []LogAction{
	LogActionInward,
	LogActionOutward,
	LogActionAdjustment,
	LogActionCreated,
	LogActionUpdated,
	LogActionDeleted,
}

// String implements fmt.Stringer.
func (a LogAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known LogAction.
func (a LogAction) IsValid() bool {
	for _, candidate := range validLogActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseLogAction converts raw input into a LogAction.
func ParseLogAction(value string) (LogAction, error) {
	for _, candidate := range validLogActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid log action %q", value)
}
