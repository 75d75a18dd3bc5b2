package tickets

import "fmt"

// Status is the backend's ticket state. The client never changes it; it
// only re-fetches and renders.
type Status string

const (
	StatusPurchased      Status = "comprada"
	StatusUsed           Status = "usada"
	StatusPendingPayment Status = "pendiente"
	StatusCancelled      Status = "cancelada"
)

// IsValid checks if the status is one the client knows about
func (s Status) IsValid() bool {
	_, ok := statusTable[s]
	return ok
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition can happen
func (s Status) IsTerminal() bool {
	return s == StatusUsed || s == StatusCancelled
}

// CanTransitionTo reports whether the backend may move a ticket from s to
// next. Used to flag surprising observations; never enforced.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPendingPayment:
		return next == StatusPurchased || next == StatusCancelled
	case StatusPurchased:
		return next == StatusUsed
	}
	return false
}

// StatusInfo is everything the client derives from a status.
type StatusInfo struct {
	Status Status
	Known  bool
	Label  string
	Color  string
	Title  string
	// Message explains why the QR is hidden. Empty when it is shown.
	Message           string
	CanDisplayQR      bool
	CanDownload       bool
	ShowPendingNotice bool
	Terminal          bool
}

const unknownColor = "#6b7280"

var statusTable = map[Status]StatusInfo{
	StatusPurchased: {
		Label:        "Activa",
		Color:        "#10b981",
		Title:        "Ticket listo",
		CanDisplayQR: true,
		CanDownload:  true,
	},
	StatusPendingPayment: {
		Label:             "Pendiente",
		Color:             "#f59e0b",
		Title:             "Ticket pendiente de pago",
		Message:           "Debes completar el pago antes de poder usar este ticket.",
		ShowPendingNotice: true,
	},
	StatusUsed: {
		Label:    "Usada",
		Color:    "#6b7280",
		Title:    "Ticket ya utilizado",
		Message:  "Este ticket ya fue escaneado y utilizado en el evento.",
		Terminal: true,
	},
	StatusCancelled: {
		Label:    "Cancelada",
		Color:    "#ef4444",
		Title:    "Ticket cancelado",
		Message:  "Este ticket ha sido cancelado y no puede utilizarse.",
		Terminal: true,
	},
}

// Describe maps a raw status string to its presentation and permitted
// actions. Unknown values never allow the QR.
func Describe(raw string) StatusInfo {
	s := Status(raw)
	if info, ok := statusTable[s]; ok {
		info.Status = s
		info.Known = true
		return info
	}
	return StatusInfo{
		Status:  s,
		Label:   raw,
		Color:   unknownColor,
		Title:   "Estado desconocido",
		Message: fmt.Sprintf("Estado actual: %s", raw),
	}
}

// CanDisplayQr reports whether a ticket's QR may be shown. Only purchased
// tickets qualify.
func CanDisplayQr(status Status) bool {
	return Describe(string(status)).CanDisplayQR
}
