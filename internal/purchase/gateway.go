package purchase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Hosted checkout endpoints of the payment gateway.
const (
	SandboxCheckoutURL    = "https://sandbox.checkout.payulatam.com/ppp-web-gateway-payu/"
	ProductionCheckoutURL = "https://checkout.payulatam.com/ppp-web-gateway-payu/"
)

// ErrGatewayDeclined is returned when the gateway reports a rejected
// payment. The tickets stay pending so the caller may retry or cancel.
var ErrGatewayDeclined = errors.New("payment declined by gateway")

// Text is a gateway field the backend may send as a JSON string or number.
// The original text is kept so signed values are never reformatted.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("gateway field: %w", err)
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }

// GatewaySession is the descriptor returned by /events/{id}/pay/.
type GatewaySession struct {
	Sandbox         bool   `json:"sandbox"`
	MerchantID      Text   `json:"merchantId"`
	AccountID       Text   `json:"accountId"`
	Description     string `json:"description"`
	ReferenceCode   string `json:"referenceCode"`
	Amount          Text   `json:"amount"`
	Currency        string `json:"currency"`
	Signature       string `json:"signature"`
	BuyerEmail      string `json:"buyerEmail"`
	ConfirmationURL string `json:"confirmationUrl"`
	ResponseURL     string `json:"responseUrl"`

	// CheckoutURLOverride replaces the hosted checkout endpoint. The
	// sandbox backend uses it to point at its own gateway page.
	CheckoutURLOverride string `json:"checkoutUrl,omitempty"`
}

// CheckoutURL returns where the form is posted.
func (g GatewaySession) CheckoutURL() string {
	if g.CheckoutURLOverride != "" {
		return g.CheckoutURLOverride
	}
	if g.Sandbox {
		return SandboxCheckoutURL
	}
	return ProductionCheckoutURL
}

// AmountValue parses the amount for display.
func (g GatewaySession) AmountValue() float64 {
	v, _ := strconv.ParseFloat(string(g.Amount), 64)
	return v
}

// FormOptions tweaks how the checkout form is rendered.
type FormOptions struct {
	// ResponseURL replaces the session's responseUrl, letting a local
	// listener observe the gateway redirect.
	ResponseURL string

	// AutoSubmit is the delay before the form posts itself. Zero disables it.
	AutoSubmit time.Duration
}

// DefaultFormOptions submits after two seconds.
func DefaultFormOptions() FormOptions {
	return FormOptions{AutoSubmit: 2 * time.Second}
}

var checkoutForm = template.Must(template.New("checkout").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Procesando pago...</title>
</head>
<body>
<h1>Resumen de tu compra</h1>
<dl>
<dt>Evento</dt><dd>{{.Session.Description}}</dd>
<dt>Total a pagar</dt><dd>{{.DisplayAmount}} {{.Session.Currency}}</dd>
<dt>Referencia</dt><dd>{{.Session.ReferenceCode}}</dd>
</dl>
<form id="payuForm" method="post" action="{{.Action}}">
<input name="merchantId" type="hidden" value="{{.Session.MerchantID}}">
<input name="accountId" type="hidden" value="{{.Session.AccountID}}">
<input name="description" type="hidden" value="{{.Session.Description}}">
<input name="referenceCode" type="hidden" value="{{.Session.ReferenceCode}}">
<input name="amount" type="hidden" value="{{.Session.Amount}}">
<input name="tax" type="hidden" value="0">
<input name="taxReturnBase" type="hidden" value="0">
<input name="currency" type="hidden" value="{{.Session.Currency}}">
<input name="signature" type="hidden" value="{{.Session.Signature}}">
<input name="test" type="hidden" value="{{.Test}}">
<input name="buyerEmail" type="hidden" value="{{.Session.BuyerEmail}}">
<input name="responseUrl" type="hidden" value="{{.ResponseURL}}">
<input name="confirmationUrl" type="hidden" value="{{.Session.ConfirmationURL}}">
<button type="submit">Continuar al pago seguro</button>
</form>
{{if .AutoSubmitMs}}<script>
setTimeout(function() { document.getElementById('payuForm').submit(); }, {{.AutoSubmitMs}});
</script>{{end}}
</body>
</html>
`))

type formData struct {
	Session       GatewaySession
	Action        string
	Test          string
	ResponseURL   string
	DisplayAmount string
	AutoSubmitMs  int64
}

// RenderCheckoutForm writes the self-submitting HTML form that hands the
// buyer over to the gateway.
func (g GatewaySession) RenderCheckoutForm(w io.Writer, opts FormOptions) error {
	data := formData{
		Session:       g,
		Action:        g.CheckoutURL(),
		Test:          "0",
		ResponseURL:   g.ResponseURL,
		DisplayAmount: FormatCOP(g.AmountValue()),
		AutoSubmitMs:  opts.AutoSubmit.Milliseconds(),
	}
	if g.Sandbox {
		data.Test = "1"
	}
	if opts.ResponseURL != "" {
		data.ResponseURL = opts.ResponseURL
	}
	if err := checkoutForm.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render checkout form: %w", err)
	}
	return nil
}

// FormatCOP formats an amount the way Colombian pesos are shown, with dot
// thousands separators and no decimals.
func FormatCOP(amount float64) string {
	n := strconv.FormatInt(int64(amount+0.5), 10)
	neg := strings.HasPrefix(n, "-")
	n = strings.TrimPrefix(n, "-")

	var b strings.Builder
	for i, r := range n {
		if i > 0 && (len(n)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}

// Signal is what the gateway redirect tells about the payment.
type Signal int

const (
	SignalNone Signal = iota
	SignalApproved
	SignalDeclined
)

func (s Signal) String() string {
	switch s {
	case SignalApproved:
		return "approved"
	case SignalDeclined:
		return "declined"
	default:
		return "none"
	}
}

// Gateway transaction states carried on the response URL.
const (
	transactionApproved = "4"
	transactionDeclined = "6"
)

// DetectSignal inspects a URL the buyer landed on. Only the response page
// is considered: the backend's pago-exitoso page or responseURL when given.
// Any other URL yields SignalNone.
func DetectSignal(rawURL, responseURL string) Signal {
	if rawURL == "" || !isResponsePage(rawURL, responseURL) {
		return SignalNone
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return SignalNone
	}
	q := u.Query()
	state := q.Get("transactionState")
	estado := strings.ToLower(q.Get("estado"))

	switch {
	case state == transactionApproved || estado == "aprobado" || estado == transactionApproved:
		return SignalApproved
	case state == transactionDeclined || estado == "rechazado" || estado == transactionDeclined:
		return SignalDeclined
	default:
		return SignalNone
	}
}

func isResponsePage(rawURL, responseURL string) bool {
	if strings.Contains(rawURL, "pago-exitoso") || strings.Contains(rawURL, "responseUrl") {
		return true
	}
	if responseURL == "" {
		return false
	}
	target, err := url.Parse(responseURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Host == target.Host && strings.TrimSuffix(u.Path, "/") == strings.TrimSuffix(target.Path, "/")
}
