package events

// Status is the lifecycle state the backend reports for an event.
type Status string

const (
	StatusActive    Status = "activo"
	StatusScheduled Status = "programado"
	StatusCancelled Status = "cancelado"
	StatusFinished  Status = "finalizado"
)

var statusLabels = map[Status]struct{ label, color string }{
	StatusActive:    {"Activo", "#10b981"},
	StatusScheduled: {"Próximamente", "#3b82f6"},
	StatusCancelled: {"Cancelado", "#ef4444"},
	StatusFinished:  {"Finalizado", "#6b7280"},
}

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Label returns the display label. Unknown statuses are shown raw.
func (s Status) Label() string {
	if v, ok := statusLabels[s]; ok {
		return v.label
	}
	return string(s)
}

// Color returns the badge color.
func (s Status) Color() string {
	if v, ok := statusLabels[s]; ok {
		return v.color
	}
	return "#6b7280"
}

// AllowsPurchase reports whether tickets can be bought
func (s Status) AllowsPurchase() bool {
	return s == StatusActive
}
