package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tiquetera/internal/api"
	"tiquetera/internal/catalogs"
	"tiquetera/internal/events"
	"tiquetera/internal/shared/middleware"
	"tiquetera/internal/tickets"
	"tiquetera/pkg/clock"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Error definitions
var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrUsernameTaken        = errors.New("username already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserNotFound         = errors.New("user not found")
	ErrVerificationToken    = errors.New("invalid or expired verification token")
	ErrTooManyResends       = errors.New("too many verification emails")
	ErrEventNotFound        = errors.New("event not found")
	ErrTicketTypeNotFound   = errors.New("ticket type not found")
	ErrNotOnSale            = errors.New("event is not on sale")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInsufficientCapacity = errors.New("not enough tickets left")
	ErrNothingToPay         = errors.New("no pending tickets to pay")
	ErrPaymentNotFound      = errors.New("payment not found")
)

// Verification emails allowed per user within resendWindow.
const (
	maxResends   = 3
	resendWindow = time.Hour
)

// PaymentState tracks a gateway transaction.
type PaymentState string

const (
	PaymentPending  PaymentState = "pending"
	PaymentApproved PaymentState = "approved"
	PaymentDeclined PaymentState = "declined"
)

type user struct {
	ID           int
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte
	Verified     bool
}

type ticket struct {
	tickets.Ticket
	UserID  int
	EventID int
	TypeID  int
}

// Payment is one gateway transaction covering a user's pending tickets.
type Payment struct {
	Reference string
	UserID    int
	EventID   int
	TicketIDs []int
	Amount    float64
	State     PaymentState
}

// Profile is what /users/profile/ returns.
type Profile struct {
	ID            int    `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailVerified bool   `json:"email_verified"`
}

// NewUser is a registration accepted by the handler.
type NewUser struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// BuyResult is what a purchase request reports.
type BuyResult struct {
	Message   string  `json:"message"`
	AmountDue float64 `json:"-"`
	TicketIDs []int   `json:"ticket_ids"`
}

// Store holds every sandbox record in memory. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	clock clock.Clock
	qr    func(code string) (string, error)

	nextUserID   int
	nextTicketID int

	users        map[int]*user
	byEmail      map[string]int
	byUsername   map[string]int
	tokens       map[string]int
	verifyTokens map[string]int
	resends      map[int][]time.Time

	departments   []catalogs.Entry
	cities        map[string][]catalogs.Entry
	documentTypes []catalogs.Entry

	events   []events.Event
	tickets  []*ticket
	payments map[string]*Payment
}

// NewStore seeds a store from fixtures.
func NewStore(f *Fixtures, clk clock.Clock) (*Store, error) {
	s := &Store{
		clock:         clk,
		qr:            EncodeQR,
		nextUserID:    1,
		nextTicketID:  1,
		users:         make(map[int]*user),
		byEmail:       make(map[string]int),
		byUsername:    make(map[string]int),
		tokens:        make(map[string]int),
		verifyTokens:  make(map[string]int),
		resends:       make(map[int][]time.Time),
		departments:   f.Departments,
		cities:        f.Cities,
		documentTypes: f.DocumentTypes,
		events:        append([]events.Event(nil), f.Events...),
		payments:      make(map[string]*Payment),
	}
	for _, fu := range f.Users {
		id, _, err := s.Register(NewUser{
			Username:  fu.Username,
			Email:     fu.Email,
			FirstName: fu.FirstName,
			LastName:  fu.LastName,
			Password:  fu.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("fixture user %s: %w", fu.Email, err)
		}
		s.users[id].Verified = fu.Verified
	}
	return s, nil
}

// Users

// Register creates an unverified account and returns its id and
// verification token.
func (s *Store) Register(in NewUser) (int, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, ok := s.byEmail[email]; ok {
		return 0, "", ErrEmailTaken
	}
	if _, ok := s.byUsername[in.Username]; ok {
		return 0, "", ErrUsernameTaken
	}

	u := &user{
		ID:           s.nextUserID,
		Username:     in.Username,
		Email:        email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	}
	s.nextUserID++
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	s.byUsername[u.Username] = u.ID

	token := uuid.NewString()
	s.verifyTokens[token] = u.ID
	return u.ID, token, nil
}

// Login checks a password and issues a new access token.
func (s *Store) Login(email, password string) (string, Profile, error) {
	s.mu.RLock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	var u *user
	if ok {
		u = s.users[id]
	}
	s.mu.RUnlock()

	if u == nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return "", Profile{}, ErrInvalidCredentials
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.mu.Lock()
	s.tokens[token] = u.ID
	s.mu.Unlock()
	return token, Profile{ID: u.ID, Username: u.Username, Email: u.Email}, nil
}

// ResolveToken implements middleware.TokenResolver.
func (s *Store) ResolveToken(_ context.Context, token string) (middleware.Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	if !ok {
		return middleware.Principal{}, false
	}
	u := s.users[id]
	return middleware.Principal{UserID: u.ID, Username: u.Username, Email: u.Email}, true
}

// RevokeToken forgets an access token.
func (s *Store) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// VerifyEmail consumes a verification token.
func (s *Store) VerifyEmail(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.verifyTokens[token]
	if !ok {
		return ErrVerificationToken
	}
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Verified = true
	delete(s.verifyTokens, token)
	return nil
}

// ResendVerification issues a fresh verification token.
func (s *Store) ResendVerification(email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return "", ErrUserNotFound
	}

	now := s.clock.Now()
	recent := s.resends[id][:0]
	for _, at := range s.resends[id] {
		if now.Sub(at) < resendWindow {
			recent = append(recent, at)
		}
	}
	if len(recent) >= maxResends {
		s.resends[id] = recent
		return "", ErrTooManyResends
	}
	s.resends[id] = append(recent, now)

	for t, uid := range s.verifyTokens {
		if uid == id {
			delete(s.verifyTokens, t)
		}
	}
	token := uuid.NewString()
	s.verifyTokens[token] = id
	return token, nil
}

// VerificationToken returns the pending verification token for email.
// It stands in for reading the verification email.
func (s *Store) VerificationToken(email string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return "", false
	}
	for t, uid := range s.verifyTokens {
		if uid == id {
			return t, true
		}
	}
	return "", false
}

// Profile returns the account of userID.
func (s *Store) Profile(userID int) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return Profile{}, ErrUserNotFound
	}
	return Profile{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		EmailVerified: u.Verified,
	}, nil
}

// Catalogs

func (s *Store) Departments() []catalogs.Entry { return s.departments }

func (s *Store) DocumentTypes() []catalogs.Entry { return s.documentTypes }

// Cities returns the cities of a department, empty when unknown.
func (s *Store) Cities(departmentID string) []catalogs.Entry {
	if c, ok := s.cities[departmentID]; ok {
		return c
	}
	return []catalogs.Entry{}
}

// Events

// Events returns every event with current sales figures.
func (s *Store) Events() []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]events.Event, len(s.events))
	for i, e := range s.events {
		out[i] = copyEvent(e)
	}
	return out
}

// Event returns one event.
func (s *Store) Event(id int) (events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.eventIndex(id)
	if !ok {
		return events.Event{}, ErrEventNotFound
	}
	return copyEvent(s.events[idx]), nil
}

func (s *Store) eventIndex(id int) (int, bool) {
	for i, e := range s.events {
		if e.ID == id {
			return i, true
		}
	}
	return 0, false
}

func copyEvent(e events.Event) events.Event {
	e.TicketTypes = append([]events.TicketType(nil), e.TicketTypes...)
	return e
}

// Purchases

// Buy reserves quantity tickets of one type. Free tickets are issued as
// comprada, paid ones as pendiente until the gateway settles them.
func (s *Store) Buy(userID, eventID, typeID, quantity int) (BuyResult, error) {
	if quantity < 1 {
		return BuyResult{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.eventIndex(eventID)
	if !ok {
		return BuyResult{}, ErrEventNotFound
	}
	ev := &s.events[idx]
	if !ev.IsAvailable(s.clock.Now()) {
		return BuyResult{}, ErrNotOnSale
	}

	var tt *events.TicketType
	for i := range ev.TicketTypes {
		if ev.TicketTypes[i].ID == typeID {
			tt = &ev.TicketTypes[i]
		}
	}
	if tt == nil {
		return BuyResult{}, ErrTicketTypeNotFound
	}
	if quantity > tt.Remaining() {
		return BuyResult{}, fmt.Errorf("%w: %d left", ErrInsufficientCapacity, tt.Remaining())
	}

	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	qr, err := s.qr(code)
	if err != nil {
		return BuyResult{}, fmt.Errorf("failed to issue qr: %w", err)
	}

	price := tt.Price.Float64() * float64(quantity)
	status := tickets.StatusPendingPayment
	if price <= 0 {
		status = tickets.StatusPurchased
	}

	t := &ticket{
		Ticket: tickets.Ticket{
			ID:           s.nextTicketID,
			Type:         tt.Name(),
			Amount:       quantity,
			Status:       status,
			UniqueCode:   code,
			QRBase64:     qr,
			PurchaseDate: s.clock.Now().UTC().Format(time.RFC3339),
		},
		UserID:  userID,
		EventID: eventID,
		TypeID:  typeID,
	}
	t.PricePaid = api.Decimal(price)
	s.nextTicketID++
	s.tickets = append(s.tickets, t)
	tt.CapacitySold += quantity

	result := BuyResult{Message: "Compra registrada", AmountDue: price, TicketIDs: []int{t.ID}}
	if price > 0 {
		result.Message = "Compra registrada, pendiente de pago"
	}
	return result, nil
}

// StartPayment opens a gateway transaction for the user's pending tickets
// of an event.
func (s *Store) StartPayment(userID, eventID int) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.eventIndex(eventID); !ok {
		return nil, ErrEventNotFound
	}

	p := &Payment{
		Reference: fmt.Sprintf("TQ-%d-%s", eventID, uuid.NewString()[:8]),
		UserID:    userID,
		EventID:   eventID,
		State:     PaymentPending,
	}
	for _, t := range s.tickets {
		if t.UserID == userID && t.EventID == eventID && t.Status == tickets.StatusPendingPayment {
			p.TicketIDs = append(p.TicketIDs, t.ID)
			p.Amount += t.PricePaid.Float64()
		}
	}
	if len(p.TicketIDs) == 0 {
		return nil, ErrNothingToPay
	}
	s.payments[p.Reference] = p
	return p, nil
}

// Payment returns a transaction by reference.
func (s *Store) Payment(reference string) (Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[reference]
	if !ok {
		return Payment{}, ErrPaymentNotFound
	}
	return *p, nil
}

// Settle applies the gateway outcome. Approval moves the covered tickets
// to comprada and is final; a decline leaves them pendiente and a later
// attempt on the same reference may still be approved.
func (s *Store) Settle(reference string, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[reference]
	if !ok {
		return ErrPaymentNotFound
	}
	if p.State == PaymentApproved {
		return nil
	}
	if !approved {
		p.State = PaymentDeclined
		return nil
	}

	p.State = PaymentApproved
	covered := make(map[int]bool, len(p.TicketIDs))
	for _, id := range p.TicketIDs {
		covered[id] = true
	}
	for _, t := range s.tickets {
		if covered[t.ID] && t.Status.CanTransitionTo(tickets.StatusPurchased) {
			t.Status = tickets.StatusPurchased
		}
	}
	return nil
}

// MyEvents groups the user's tickets by event.
func (s *Store) MyEvents(userID int) []tickets.MyEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grouped := make(map[int][]tickets.Ticket)
	for _, t := range s.tickets {
		if t.UserID == userID {
			grouped[t.EventID] = append(grouped[t.EventID], t.Ticket)
		}
	}

	out := make([]tickets.MyEvent, 0, len(grouped))
	for _, ev := range s.events {
		list, ok := grouped[ev.ID]
		if !ok {
			continue
		}
		date := ev.Start
		if date == "" {
			date = ev.Date
		}
		out = append(out, tickets.MyEvent{
			Event:   ev.Name,
			EventID: ev.ID,
			Date:    date,
			City:    ev.City,
			Country: ev.Country,
			Status:  string(ev.Status),
			Tickets: list,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
