package tickets

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// View is a ticket ready to render: its status presentation plus the
// decoded QR image when the status allows showing it.
type View struct {
	Ticket Ticket
	Info   StatusInfo
	// QRAction is false when the QR button must be disabled.
	QRAction bool
	// Notice is set for tickets waiting for payment or missing their QR.
	Notice string
	QRPNG  []byte
}

// PendingNotice is shown next to tickets whose payment has not settled.
const PendingNotice = "Este ticket está pendiente de pago. Completa el pago en \"Mis Eventos\" para poder usarlo."

// QRMissingNotice replaces the QR of a purchased ticket whose image did
// not arrive or could not be decoded.
const QRMissingNotice = "El código QR de este ticket no está disponible. Actualiza más tarde."

// Present builds the View for a ticket. The QR payload is only decoded
// when the status permits it.
func Present(t Ticket) View {
	info := Describe(string(t.Status))
	v := View{
		Ticket:   t,
		Info:     info,
		QRAction: info.CanDisplayQR,
	}
	if info.ShowPendingNotice {
		v.Notice = PendingNotice
	}
	if info.CanDisplayQR {
		png, err := DecodeQR(t.QRBase64)
		if err != nil || len(png) == 0 {
			v.QRAction = false
			v.Notice = QRMissingNotice
		} else {
			v.QRPNG = png
		}
	}
	return v
}

// DecodeQR decodes a base64 PNG, with or without a data URI prefix.
func DecodeQR(encoded string) ([]byte, error) {
	if i := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && i >= 0 {
		encoded = encoded[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("invalid qr payload: %w", err)
	}
	return data, nil
}
