package sandbox

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tiquetera/internal/api"
	"tiquetera/internal/purchase"
	"tiquetera/internal/shared/middleware"
	"tiquetera/internal/shared/utils/response"
	"tiquetera/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Paths of the simulated gateway, outside the API prefix.
const (
	GatewayCheckoutPath = "/gateway/checkout/"
	GatewayDecidePath   = "/gateway/decide/"
)

type Controller struct {
	store      *Store
	settlement *SettlementJob
	gateway    GatewayConfig
	apiPrefix  string
	log        *logger.Logger
}

func NewController(store *Store, settlement *SettlementJob, gateway GatewayConfig, apiPrefix string, log *logger.Logger) *Controller {
	if gateway.Currency == "" {
		gateway.Currency = "COP"
	}
	return &Controller{
		store:      store,
		settlement: settlement,
		gateway:    gateway,
		apiPrefix:  apiPrefix,
		log:        log,
	}
}

// Users

func (c *Controller) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(ctx, http.StatusBadRequest, err)
		return
	}

	token, profile, err := c.store.Login(req.Email, req.Password)
	if err != nil {
		c.log.LogAuthFailure(ctx.Request.Context(), err.Error(), ctx.ClientIP())
		response.RespondDetail(ctx, http.StatusBadRequest, "Credenciales inválidas.")
		return
	}

	response.RespondJSON(ctx, http.StatusOK, gin.H{
		"token":    token,
		"user_id":  profile.ID,
		"username": profile.Username,
		"message":  "Inicio de sesión exitoso",
	})
}

func (c *Controller) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(ctx, http.StatusBadRequest, err)
		return
	}

	id, token, err := c.store.Register(NewUser{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	switch {
	case errors.Is(err, ErrEmailTaken):
		response.RespondFieldErrors(ctx, http.StatusBadRequest, map[string][]string{
			"email": {"Ya existe un usuario con este email."},
		})
		return
	case errors.Is(err, ErrUsernameTaken):
		response.RespondFieldErrors(ctx, http.StatusBadRequest, map[string][]string{
			"username": {"Ya existe un usuario con este nombre."},
		})
		return
	case err != nil:
		response.RespondDetail(ctx, http.StatusInternalServerError, err.Error())
		return
	}

	// No mail goes out; the token is logged instead.
	c.log.Info("Verification email", "email", req.Email, "token", token)
	response.RespondJSON(ctx, http.StatusCreated, gin.H{
		"message": "Usuario registrado. Revisa tu correo para verificar tu cuenta.",
		"user_id": id,
		"email":   strings.ToLower(req.Email),
	})
}

func (c *Controller) VerifyEmail(ctx *gin.Context) {
	token := strings.TrimSpace(ctx.Query("token"))
	err := c.store.VerifyEmail(token)
	switch {
	case errors.Is(err, ErrUserNotFound):
		response.RespondDetail(ctx, http.StatusNotFound, "Usuario no encontrado.")
	case err != nil:
		response.RespondDetail(ctx, http.StatusBadRequest, "Token inválido o expirado.")
	default:
		response.RespondMessage(ctx, http.StatusOK, "Correo verificado exitosamente.", nil)
	}
}

func (c *Controller) ResendVerification(ctx *gin.Context) {
	var req resendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(ctx, http.StatusBadRequest, err)
		return
	}

	token, err := c.store.ResendVerification(req.Email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		response.RespondDetail(ctx, http.StatusNotFound, "Usuario no encontrado.")
		return
	case errors.Is(err, ErrTooManyResends):
		response.RespondDetail(ctx, http.StatusTooManyRequests, "Demasiados intentos. Intenta más tarde.")
		return
	case err != nil:
		response.RespondDetail(ctx, http.StatusInternalServerError, err.Error())
		return
	}

	c.log.Info("Verification email", "email", req.Email, "token", token)
	response.RespondMessage(ctx, http.StatusOK, "Código de verificación reenviado.", nil)
}

func (c *Controller) Profile(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	profile, err := c.store.Profile(userID)
	if err != nil {
		response.RespondDetail(ctx, http.StatusNotFound, "Usuario no encontrado.")
		return
	}
	response.RespondJSON(ctx, http.StatusOK, profile)
}

// Catalogs

func (c *Controller) Departments(ctx *gin.Context) {
	response.RespondJSON(ctx, http.StatusOK, c.store.Departments())
}

func (c *Controller) Cities(ctx *gin.Context) {
	department := ctx.Query("department_id")
	if department == "" {
		response.RespondFieldErrors(ctx, http.StatusBadRequest, map[string][]string{
			"department_id": {"Este campo es requerido."},
		})
		return
	}
	response.RespondJSON(ctx, http.StatusOK, c.store.Cities(department))
}

func (c *Controller) DocumentTypes(ctx *gin.Context) {
	types := c.store.DocumentTypes()
	if len(types) == 0 {
		response.RespondDetail(ctx, http.StatusNotFound, "No encontrado.")
		return
	}
	response.RespondJSON(ctx, http.StatusOK, types)
}

// Events

func (c *Controller) ListEvents(ctx *gin.Context) {
	response.RespondJSON(ctx, http.StatusOK, c.store.Events())
}

// GetEvent also serves /events/my/, which shares the route segment.
func (c *Controller) GetEvent(ctx *gin.Context) {
	if ctx.Param("id") == "my" {
		c.MyEvents(ctx)
		return
	}
	id, ok := eventID(ctx)
	if !ok {
		return
	}
	ev, err := c.store.Event(id)
	if err != nil {
		response.RespondDetail(ctx, http.StatusNotFound, "No encontrado.")
		return
	}
	response.RespondJSON(ctx, http.StatusOK, ev)
}

func (c *Controller) TicketTypes(ctx *gin.Context) {
	id, ok := eventID(ctx)
	if !ok {
		return
	}
	ev, err := c.store.Event(id)
	if err != nil {
		response.RespondDetail(ctx, http.StatusNotFound, "No encontrado.")
		return
	}
	response.RespondJSON(ctx, http.StatusOK, ev.TicketTypes)
}

func (c *Controller) MyEvents(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondDetail(ctx, http.StatusUnauthorized, "Las credenciales de autenticación no se proveyeron.")
		return
	}
	response.RespondJSON(ctx, http.StatusOK, c.store.MyEvents(userID))
}

// Purchases

func (c *Controller) Buy(ctx *gin.Context) {
	id, ok := eventID(ctx)
	if !ok {
		return
	}
	var req buyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(ctx, http.StatusBadRequest, err)
		return
	}
	userID, _ := middleware.CurrentUserID(ctx)

	result, err := c.store.Buy(userID, id, req.ConfigTypeID, req.Amount)
	switch {
	case errors.Is(err, ErrEventNotFound):
		response.RespondDetail(ctx, http.StatusNotFound, "No encontrado.")
		return
	case errors.Is(err, ErrInsufficientCapacity):
		response.RespondDetail(ctx, http.StatusBadRequest, "No hay suficientes tickets disponibles.")
		return
	case errors.Is(err, ErrTicketTypeNotFound):
		response.RespondFieldErrors(ctx, http.StatusBadRequest, map[string][]string{
			"config_type_id": {"Tipo de ticket inválido."},
		})
		return
	case errors.Is(err, ErrNotOnSale):
		response.RespondDetail(ctx, http.StatusBadRequest, "El evento no está disponible para la venta.")
		return
	case err != nil:
		response.RespondDetail(ctx, http.StatusBadRequest, err.Error())
		return
	}

	response.RespondJSON(ctx, http.StatusCreated, gin.H{
		"message":       result.Message,
		"total_a_pagar": api.Decimal(result.AmountDue),
		"ticket_ids":    result.TicketIDs,
	})
}

func (c *Controller) Pay(ctx *gin.Context) {
	id, ok := eventID(ctx)
	if !ok {
		return
	}
	var req payRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(ctx, http.StatusBadRequest, err)
		return
	}
	userID, _ := middleware.CurrentUserID(ctx)

	payment, err := c.store.StartPayment(userID, id)
	switch {
	case errors.Is(err, ErrEventNotFound):
		response.RespondDetail(ctx, http.StatusNotFound, "No encontrado.")
		return
	case errors.Is(err, ErrNothingToPay):
		response.RespondDetail(ctx, http.StatusBadRequest, "No tienes tickets pendientes de pago para este evento.")
		return
	case err != nil:
		response.RespondDetail(ctx, http.StatusInternalServerError, err.Error())
		return
	}

	ev, _ := c.store.Event(id)
	profile, _ := c.store.Profile(userID)
	amount := FormatAmount(payment.Amount)
	base := strings.TrimRight(c.gateway.PublicURL, "/")

	session := purchase.GatewaySession{
		Sandbox:             true,
		MerchantID:          purchase.Text(c.gateway.MerchantID),
		AccountID:           purchase.Text(c.gateway.AccountID),
		Description:         ev.Name,
		ReferenceCode:       payment.Reference,
		Amount:              purchase.Text(amount),
		Currency:            c.gateway.Currency,
		Signature:           SignCheckout(c.gateway.APIKey, c.gateway.MerchantID, payment.Reference, amount, c.gateway.Currency),
		BuyerEmail:          profile.Email,
		ConfirmationURL:     base + c.apiPrefix + "/payments/confirmation/",
		ResponseURL:         base + "/pago-exitoso/",
		CheckoutURLOverride: base + GatewayCheckoutPath,
	}
	c.log.Info("Payment started",
		"reference", payment.Reference,
		"amount", amount,
		"quantity", req.Amount,
		"tickets", len(payment.TicketIDs),
	)
	response.RespondJSON(ctx, http.StatusOK, session)
}

// Confirmation is the gateway webhook. The signature must match.
func (c *Controller) Confirmation(ctx *gin.Context) {
	var form confirmationForm
	if err := ctx.ShouldBind(&form); err != nil {
		response.RespondBindError(ctx, http.StatusBadRequest, err)
		return
	}
	expected := SignConfirmation(c.gateway.APIKey, c.gateway.MerchantID, form.Reference, form.Value, form.Currency, form.State)
	if !strings.EqualFold(expected, form.Sign) {
		response.RespondDetail(ctx, http.StatusBadRequest, "Firma inválida.")
		return
	}

	if err := c.store.Settle(form.Reference, form.State == StateApproved); err != nil {
		response.RespondDetail(ctx, http.StatusNotFound, "Transacción no encontrada.")
		return
	}
	ctx.String(http.StatusOK, "OK")
}

// Response page the gateway redirects to when no local listener replaces it.
func (c *Controller) PaymentLanding(ctx *gin.Context) {
	title := "Pago en proceso"
	switch ctx.Query("transactionState") {
	case StateApproved:
		title = "Pago aprobado"
	case StateDeclined:
		title = "Pago rechazado"
	}
	ctx.Header("Content-Type", "text/html; charset=utf-8")
	ctx.Status(http.StatusOK)
	_ = resultPage.Execute(ctx.Writer, title)
}

// Gateway

// GatewayCheckout receives the merchant form and asks the buyer to approve
// or decline.
func (c *Controller) GatewayCheckout(ctx *gin.Context) {
	reference := ctx.PostForm("referenceCode")
	amount := ctx.PostForm("amount")
	currency := ctx.PostForm("currency")
	merchantID := ctx.PostForm("merchantId")

	expected := SignCheckout(c.gateway.APIKey, merchantID, reference, amount, currency)
	if merchantID != c.gateway.MerchantID || !strings.EqualFold(expected, ctx.PostForm("signature")) {
		ctx.Header("Content-Type", "text/html; charset=utf-8")
		ctx.Status(http.StatusBadRequest)
		_ = resultPage.Execute(ctx.Writer, "Firma inválida")
		return
	}
	if _, err := c.store.Payment(reference); err != nil {
		ctx.Header("Content-Type", "text/html; charset=utf-8")
		ctx.Status(http.StatusNotFound)
		_ = resultPage.Execute(ctx.Writer, "Transacción no encontrada")
		return
	}

	ctx.Header("Content-Type", "text/html; charset=utf-8")
	ctx.Status(http.StatusOK)
	_ = gatewayPage.Execute(ctx.Writer, gatewayPageData{
		Description: ctx.PostForm("description"),
		Reference:   reference,
		Amount:      amount,
		Currency:    currency,
		ResponseURL: ctx.PostForm("responseUrl"),
		DecideURL:   GatewayDecidePath,
	})
}

// GatewayDecide records the buyer's choice, schedules the webhook and
// sends the buyer back to the merchant.
func (c *Controller) GatewayDecide(ctx *gin.Context) {
	reference := ctx.PostForm("referenceCode")
	payment, err := c.store.Payment(reference)
	if err != nil {
		ctx.Header("Content-Type", "text/html; charset=utf-8")
		ctx.Status(http.StatusNotFound)
		_ = resultPage.Execute(ctx.Writer, "Transacción no encontrada")
		return
	}

	approved := ctx.PostForm("decision") == "approve"
	state := StateDeclined
	if approved {
		state = StateApproved
	}
	c.settlement.Enqueue(reference, approved)

	responseURL := ctx.PostForm("responseUrl")
	if responseURL == "" {
		responseURL = strings.TrimRight(c.gateway.PublicURL, "/") + "/pago-exitoso/"
	}
	target, err := redirectURL(responseURL, reference, state, FormatAmount(payment.Amount), c.gateway.Currency)
	if err != nil {
		response.RespondDetail(ctx, http.StatusBadRequest, "responseUrl inválida.")
		return
	}
	ctx.Redirect(http.StatusSeeOther, target)
}

// HealthCheck reports the job status
func (c *Controller) HealthCheck(ctx *gin.Context) {
	response.RespondJSON(ctx, http.StatusOK, gin.H{
		"status":     "healthy",
		"settlement": c.settlement.GetJobStatus(),
	})
}

func eventID(ctx *gin.Context) (int, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		response.RespondDetail(ctx, http.StatusNotFound, "No encontrado.")
		return 0, false
	}
	return id, true
}
