package sandbox

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// Gateway transaction states, as reported on redirects and webhooks.
const (
	StateApproved = "4"
	StateDeclined = "6"
)

// GatewayConfig identifies the merchant towards the simulated gateway.
type GatewayConfig struct {
	MerchantID string
	AccountID  string
	APIKey     string
	Currency   string
	// PublicURL is the externally reachable base of the sandbox.
	PublicURL string
}

// EncodeQR renders code as a base64 PNG.
func EncodeQR(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// SignCheckout computes the checkout form signature:
// md5(apiKey~merchantId~referenceCode~amount~currency).
func SignCheckout(apiKey, merchantID, reference, amount, currency string) string {
	return md5Hex(strings.Join([]string{apiKey, merchantID, reference, amount, currency}, "~"))
}

// SignConfirmation computes the webhook signature:
// md5(apiKey~merchantId~reference~value~currency~state).
func SignConfirmation(apiKey, merchantID, reference, value, currency, state string) string {
	return md5Hex(strings.Join([]string{apiKey, merchantID, reference, value, currency, state}, "~"))
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// FormatAmount writes an amount the way it is signed.
func FormatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// redirectURL appends the gateway outcome to the merchant response URL.
func redirectURL(responseURL, reference, state, amount, currency string) (string, error) {
	u, err := url.Parse(responseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("transactionState", state)
	q.Set("referenceCode", reference)
	q.Set("TX_VALUE", amount)
	q.Set("currency", currency)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var gatewayPage = template.Must(template.New("gateway").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Pasarela de pruebas</title></head>
<body>
<h1>Pasarela de pruebas</h1>
<p>{{.Description}}</p>
<p>Referencia {{.Reference}} por {{.Amount}} {{.Currency}}</p>
<form method="post" action="{{.DecideURL}}">
<input type="hidden" name="referenceCode" value="{{.Reference}}">
<input type="hidden" name="responseUrl" value="{{.ResponseURL}}">
<button type="submit" name="decision" value="approve">Aprobar pago</button>
<button type="submit" name="decision" value="decline">Rechazar pago</button>
</form>
</body>
</html>
`))

type gatewayPageData struct {
	Description string
	Reference   string
	Amount      string
	Currency    string
	ResponseURL string
	DecideURL   string
}

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html><head><meta charset="UTF-8"><title>{{.}}</title></head><body><h1>{{.}}</h1></body></html>
`))
