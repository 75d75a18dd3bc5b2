// Package checkout serves the gateway hand-off form on a loopback address
// and watches the gateway redirect come back to it.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"tiquetera/internal/purchase"
	"tiquetera/internal/shared/middleware"
	"tiquetera/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Paths served by the loopback server
const (
	CheckoutPath = "/checkout"
	ResponsePath = "/respuesta"
)

// ErrNotStarted is returned when the server is used before Start.
var ErrNotStarted = errors.New("checkout server not started")

// Landing is one visit to the response page.
type Landing struct {
	URL    string
	Signal purchase.Signal
}

// Server hosts the checkout form for one gateway session.
type Server struct {
	addr    string
	session purchase.GatewaySession
	log     *logger.Logger

	mu       sync.Mutex
	baseURL  string
	srv      *http.Server
	landings chan Landing
}

// New creates a server that will listen on addr, e.g. 127.0.0.1:0.
func New(addr string, session purchase.GatewaySession, log *logger.Logger) *Server {
	return &Server{
		addr:     addr,
		session:  session,
		log:      log.WithComponent("checkout"),
		landings: make(chan Landing, 8),
	}
}

// Start listens and serves in the background. It returns the URL the
// buyer should open.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.baseURL = "http://" + ln.Addr().String()
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Checkout server failed", "error", err.Error())
		}
	}()

	s.log.Info("Checkout server listening", "url", s.CheckoutURL())
	return s.CheckoutURL(), nil
}

// Handler returns the gin engine serving both pages.
func (s *Server) Handler() http.Handler {
	engine := gin.New()
	engine.Use(middleware.RequestLogger(s.log), gin.Recovery())
	engine.GET(CheckoutPath, s.checkout)
	engine.GET(ResponsePath, s.respond)
	engine.POST(ResponsePath, s.respond)
	return engine
}

// CheckoutURL is where the form is served.
func (s *Server) CheckoutURL() string { return s.base() + CheckoutPath }

// ResponseURL is what the gateway redirects to after payment.
func (s *Server) ResponseURL() string { return s.base() + ResponsePath }

// Landings delivers every visit to the response page.
func (s *Server) Landings() <-chan Landing { return s.landings }

// Wait blocks until the response page reports an approval or a decline.
func (s *Server) Wait(ctx context.Context) (purchase.Signal, error) {
	for {
		select {
		case <-ctx.Done():
			return purchase.SignalNone, ctx.Err()
		case l := <-s.landings:
			if l.Signal != purchase.SignalNone {
				return l.Signal, nil
			}
		}
	}
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return ErrNotStarted
	}
	return srv.Shutdown(ctx)
}

func (s *Server) base() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseURL != "" {
		return s.baseURL
	}
	return "http://" + s.addr
}

func (s *Server) checkout(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	opts := purchase.DefaultFormOptions()
	opts.ResponseURL = s.ResponseURL()
	if err := s.session.RenderCheckoutForm(c.Writer, opts); err != nil {
		s.log.LogHTTPError(c, err, http.StatusInternalServerError)
	}
}

var landingPage = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html><head><meta charset="UTF-8"><title>{{.Title}}</title></head>
<body><h1>{{.Title}}</h1><p>{{.Message}}</p></body></html>
`))

func (s *Server) respond(c *gin.Context) {
	full := s.base() + c.Request.URL.RequestURI()
	if c.Request.Method == http.MethodPost {
		if err := c.Request.ParseForm(); err == nil && len(c.Request.PostForm) > 0 {
			full = s.ResponseURL() + "?" + c.Request.PostForm.Encode()
		}
	}
	sig := purchase.DetectSignal(full, s.ResponseURL())

	select {
	case s.landings <- Landing{URL: full, Signal: sig}:
	default:
		s.log.Warn("Dropped checkout landing", "signal", sig.String())
	}

	page := struct{ Title, Message string }{
		Title:   "Pago en proceso",
		Message: "Estamos esperando la confirmación de la pasarela. Puedes volver a la terminal.",
	}
	switch sig {
	case purchase.SignalApproved:
		page.Title, page.Message = "Pago aprobado", "Estamos confirmando tus tickets. Puedes volver a la terminal."
	case purchase.SignalDeclined:
		page.Title, page.Message = "Pago rechazado", "El pago no pudo ser procesado. Vuelve a la terminal para reintentar o cancelar."
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	_ = landingPage.Execute(c.Writer, page)
}
