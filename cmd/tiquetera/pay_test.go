package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"tiquetera/internal/purchase"
	"tiquetera/internal/sandbox"
	"tiquetera/internal/tickets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	checkoutURLPattern = regexp.MustCompile(`http://127\.0\.0\.1:\d+/checkout`)
	referencePattern   = regexp.MustCompile(`name="referenceCode" type="hidden" value="([^"]+)"`)
)

// syncBuffer lets the test read output while the command still writes it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// liveCLI is a command running in the background, as a buyer would leave
// it waiting in the terminal while paying in the browser.
type liveCLI struct {
	out    *syncBuffer
	errOut *syncBuffer
	done   chan int
	cancel context.CancelFunc
}

func startCLI(t *testing.T, stdin string, args ...string) *liveCLI {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	c := &liveCLI{
		out:    &syncBuffer{},
		errOut: &syncBuffer{},
		done:   make(chan int, 1),
		cancel: cancel,
	}
	go func() {
		c.done <- runContext(ctx, args, strings.NewReader(stdin), c.out, c.errOut)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-c.done:
		case <-time.After(5 * time.Second):
		}
	})
	return c
}

func (c *liveCLI) waitFor(t *testing.T, text string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.Contains(c.out.String(), text)
	}, 5*time.Second, 5*time.Millisecond, "waiting for %q", text)
}

func (c *liveCLI) checkoutURL(t *testing.T) string {
	t.Helper()
	c.waitFor(t, "/checkout")
	url := checkoutURLPattern.FindString(c.out.String())
	require.NotEmpty(t, url, c.out.String())
	return url
}

func (c *liveCLI) exitCode(t *testing.T) int {
	t.Helper()
	select {
	case code := <-c.done:
		c.done <- code
		return code
	case <-time.After(5 * time.Second):
		t.Fatalf("command did not finish\nstdout:\n%s\nstderr:\n%s", c.out.String(), c.errOut.String())
		return -1
	}
}

// land visits the local response page the way the gateway redirects the
// browser after an attempt. State 4 is approved, 6 is declined.
func land(t *testing.T, checkoutURL, state string) {
	t.Helper()
	base := strings.TrimSuffix(checkoutURL, "/checkout")
	resp, err := http.Get(base + "/respuesta?transactionState=" + state)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// checkoutReference reads the gateway reference from the served form.
func checkoutReference(t *testing.T, checkoutURL string) string {
	t.Helper()
	resp, err := http.Get(checkoutURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	m := referencePattern.FindSubmatch(body)
	require.Len(t, m, 2, string(body))
	return string(m[1])
}

func loginDemo(t *testing.T) {
	t.Helper()
	code, _, errOut := runCLI(t, "", "login", "-e", "demo@tiquetera.test", "-p", "demo12345")
	require.Equal(t, 0, code, errOut)
}

func TestPayRetryAfterDeclineReusesSession(t *testing.T) {
	backend := startSandbox(t)
	loginDemo(t)

	cli := startCLI(t, "s\n", "buy", "1", "--type", "11=1", "--yes")
	url := cli.checkoutURL(t)
	ref := checkoutReference(t, url)

	land(t, url, "6")
	cli.waitFor(t, "Vuelve a abrir el enlace")
	assert.Equal(t, ref, checkoutReference(t, url))

	// The buyer pays again on the same reference and the gateway settles it.
	require.NoError(t, backend.sb.Store.Settle(ref, true))
	land(t, url, "4")

	require.Equal(t, 0, cli.exitCode(t), cli.errOut.String())
	out := cli.out.String()
	assert.Contains(t, out, "El pago fue rechazado.")
	assert.Equal(t, 2, strings.Count(out, url))
	assert.Contains(t, out, "¡Pago confirmado! Tus tickets:")
	assert.Contains(t, out, "ESTADO")
	assert.Contains(t, out, "Activa")
	assert.Contains(t, out, "disponible")

	assert.EqualValues(t, 1, backend.payCalls.Load())
	p, err := backend.sb.Store.Payment(ref)
	require.NoError(t, err)
	assert.Equal(t, sandbox.PaymentApproved, p.State)
}

func TestPayDeclineThenGiveUp(t *testing.T) {
	backend := startSandbox(t)
	loginDemo(t)

	cli := startCLI(t, "n\n", "buy", "1", "--type", "11=2", "--yes")
	url := cli.checkoutURL(t)
	land(t, url, "6")

	require.Equal(t, 0, cli.exitCode(t), cli.errOut.String())
	out := cli.out.String()
	assert.Contains(t, out, "El pago fue rechazado.")
	assert.Contains(t, out, "Pago cancelado. Tus tickets quedan pendientes")
	assert.NotContains(t, out, "Pago aprobado")
	assert.EqualValues(t, 1, backend.payCalls.Load())

	code, out, errOut := runCLI(t, "", "tickets", "--event", "1")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Pendiente")
	assert.Contains(t, out, tickets.PendingNotice)
}

func TestPayApprovedButNotSettledYet(t *testing.T) {
	backend := startSandbox(t)
	loginDemo(t)

	cli := startCLI(t, "", "buy", "1", "--type", "11=1", "--yes")
	url := cli.checkoutURL(t)
	land(t, url, "4")

	require.Equal(t, 0, cli.exitCode(t), cli.errOut.String())
	out := cli.out.String()
	assert.Contains(t, out, "Pago aprobado. Verificando con el servidor...")
	assert.NotContains(t, out, "¡Pago confirmado!")

	table := strings.Index(out, "ESTADO")
	notice := strings.Index(out, purchase.NoticeStillPending)
	require.GreaterOrEqual(t, table, 0, out)
	require.GreaterOrEqual(t, notice, 0, out)
	assert.Less(t, table, notice)
	assert.Contains(t, out[table:notice], "Pendiente")
	assert.EqualValues(t, 1, backend.payCalls.Load())
}

func TestPayInterruptedWhileWaiting(t *testing.T) {
	backend := startSandbox(t)
	loginDemo(t)

	cli := startCLI(t, "", "buy", "1", "--type", "11=1", "--yes")
	cli.checkoutURL(t)
	cli.waitFor(t, "Ctrl+C para cancelar")
	cli.cancel()

	require.Equal(t, 0, cli.exitCode(t), cli.errOut.String())
	assert.Contains(t, cli.out.String(), "Pago cancelado. Tus tickets quedan pendientes")
	assert.EqualValues(t, 1, backend.payCalls.Load())

	code, out, errOut := runCLI(t, "", "tickets", "--event", "1")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Pendiente")
}
