package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tiquetera/internal/sandbox"
	"tiquetera/pkg/clock"
	"tiquetera/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBackend struct {
	sb       *sandbox.Sandbox
	payCalls atomic.Int32
}

// startSandbox serves the in-memory backend and points the CLI at it.
func startSandbox(t *testing.T) *testBackend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := &testBackend{}
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if strings.HasSuffix(c.Request.URL.Path, "/pay/") {
			backend.payCalls.Add(1)
		}
		c.Next()
	})
	srv := httptest.NewUnstartedServer(engine)
	publicURL := "http://" + srv.Listener.Addr().String()

	sb, err := sandbox.New(sandbox.Options{
		Gateway: sandbox.GatewayConfig{
			MerchantID: "508029",
			AccountID:  "512321",
			APIKey:     "test-key",
			PublicURL:  publicURL,
		},
		Settlement: &sandbox.SettlementJobConfig{},
		Clock:      clock.Fake(time.Date(2029, 1, 15, 12, 0, 0, 0, time.UTC)),
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)
	backend.sb = sb
	sb.Register(engine)
	srv.Start()
	t.Cleanup(srv.Close)

	t.Setenv("API_BASE_URL", publicURL+"/api")
	t.Setenv("SESSION_STORE", "file")
	t.Setenv("SESSION_PATH", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("CATALOG_SNAPSHOT", "false")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CHECKOUT_ADDR", "127.0.0.1:0")
	t.Setenv("PAYMENT_GRACE_PERIOD", "10ms")
	t.Setenv("PAYMENT_POLL_INTERVAL", "10ms")
	t.Setenv("PAYMENT_SETTLEMENT_TIMEOUT", "50ms")
	return backend
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestHelpAndUnknownCommand(t *testing.T) {
	startSandbox(t)

	code, out, _ := runCLI(t, "")
	assert.Equal(t, 2, code)
	assert.Contains(t, out, "Commands:")

	code, out, _ = runCLI(t, "", "events", "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "--query")

	code, _, errOut := runCLI(t, "", "refund")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `unknown command "refund"`)
}

func TestEventsAndTypes(t *testing.T) {
	startSandbox(t)

	code, out, errOut := runCLI(t, "", "events")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Festival Cordillera")
	assert.NotContains(t, out, "Carnaval Tour")

	code, out, _ = runCLI(t, "", "events", "--all")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Carnaval Tour")

	code, out, _ = runCLI(t, "", "types", "1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "VIP")
	assert.Contains(t, out, "$450.000")

	code, _, errOut = runCLI(t, "", "types", "abc")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid event id")
}

func TestLoginFreePurchaseAndTickets(t *testing.T) {
	startSandbox(t)

	code, out, errOut := runCLI(t, "demo12345\n", "login", "--email", "demo@tiquetera.test")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Contraseña: ")
	assert.Contains(t, out, "Hola")

	code, out, errOut = runCLI(t, "", "buy", "2", "--type", "21=2", "--yes")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Compra exitosa")

	code, out, errOut = runCLI(t, "", "tickets", "--event", "2")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Charla de emprendimiento")
	assert.Contains(t, out, "Activa")
	assert.Contains(t, out, "disponible")

	code, _, _ = runCLI(t, "", "logout")
	require.Equal(t, 0, code)

	code, _, errOut = runCLI(t, "", "tickets")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "tiquetera login")
}

func TestBuyDeclinedAtConfirmation(t *testing.T) {
	startSandbox(t)

	code, _, errOut := runCLI(t, "", "login", "-e", "demo@tiquetera.test", "-p", "demo12345")
	require.Equal(t, 0, code, errOut)

	code, out, errOut := runCLI(t, "n\n", "buy", "1", "--type", "11=1")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Compra cancelada.")

	code, _, errOut = runCLI(t, "", "buy", "1", "--type", "12=5", "--yes")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "solo quedan 2 tickets de VIP")
}

func TestCatalogs(t *testing.T) {
	startSandbox(t)

	code, out, errOut := runCLI(t, "", "catalogs")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Antioquia")

	code, out, _ = runCLI(t, "", "catalogs", "--department", "5")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Medellín")

	code, out, _ = runCLI(t, "", "catalogs", "--documents")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "CC")
}

func TestParseQuantities(t *testing.T) {
	got, err := parseQuantities([]string{"11=2", "12", "11=1"})
	require.NoError(t, err)
	assert.Equal(t, map[int]int{11: 3, 12: 1}, got)

	for _, bad := range [][]string{nil, {"x=1"}, {"11=0"}, {"11=-2"}, {"=3"}} {
		_, err := parseQuantities(bad)
		assert.Error(t, err, bad)
	}
}
