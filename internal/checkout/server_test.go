package checkout

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"tiquetera/internal/purchase"
	"tiquetera/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testSession() purchase.GatewaySession {
	return purchase.GatewaySession{
		Sandbox:       true,
		MerchantID:    "508029",
		AccountID:     "512321",
		Description:   "Concierto",
		ReferenceCode: "TQ-9",
		Amount:        "45000.00",
		Currency:      "COP",
		Signature:     "sig",
		ResponseURL:   "https://api.example.com/pago-exitoso/",
	}
}

func TestCheckoutPageUsesLocalResponseURL(t *testing.T) {
	s := New("127.0.0.1:9999", testSession(), logger.Discard())

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, CheckoutPath, nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `value="http://127.0.0.1:9999/respuesta"`)
	assert.NotContains(t, body, "pago-exitoso")
	assert.Contains(t, body, "TQ-9")
}

func TestResponsePageForwardsSignal(t *testing.T) {
	s := New("127.0.0.1:9999", testSession(), logger.Discard())
	handler := s.Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, ResponsePath+"?transactionState=6", nil))
	assert.Contains(t, w.Body.String(), "Pago rechazado")

	landing := <-s.Landings()
	assert.Equal(t, purchase.SignalDeclined, landing.Signal)
	assert.Contains(t, landing.URL, "transactionState=6")
}

func TestResponsePageAcceptsPostedState(t *testing.T) {
	s := New("127.0.0.1:9999", testSession(), logger.Discard())

	form := url.Values{"transactionState": {"4"}}
	req := httptest.NewRequest(http.MethodPost, ResponsePath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), "Pago aprobado")
	assert.Equal(t, purchase.SignalApproved, (<-s.Landings()).Signal)
}

func TestWaitIgnoresLandingsWithoutState(t *testing.T) {
	s := New("127.0.0.1:0", testSession(), logger.Discard())
	checkoutURL, err := s.Start()
	require.NoError(t, err)
	defer s.Shutdown(context.Background())
	assert.True(t, strings.HasSuffix(checkoutURL, CheckoutPath))

	for _, q := range []string{"?transactionState=7", "?estado=aprobado"} {
		resp, err := http.Get(s.ResponseURL() + q)
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sig, err := s.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, purchase.SignalApproved, sig)
}

func TestWaitCancelled(t *testing.T) {
	s := New("127.0.0.1:0", testSession(), logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Shutdown(context.Background()), ErrNotStarted)
}
