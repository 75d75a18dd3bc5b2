package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"tiquetera/internal/api"
	"tiquetera/internal/session"
	"tiquetera/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// Backend is the part of api.Client the service needs.
type Backend interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}, opts ...api.RequestOption) error
	Post(ctx context.Context, path string, body, out interface{}, opts ...api.RequestOption) error
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (session.User, error)
	VerifyEmail(ctx context.Context, token string) (*MessageResponse, error)
	ResendVerification(ctx context.Context, email string) (*MessageResponse, error)
	EmailStatus(ctx context.Context) (bool, error)
}

type service struct {
	backend  Backend
	store    session.Store
	validate *validator.Validate
	log      *logger.Logger
}

func NewService(backend Backend, store session.Store, log *logger.Logger) Service {
	return &service{
		backend:  backend,
		store:    store,
		validate: newValidator(),
		log:      log,
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	var resp LoginResponse
	if err := s.backend.Post(ctx, "/users/login/", req, &resp, api.Anonymous()); err != nil {
		s.log.LogAuthFailure(ctx, err.Error(), "")
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.New("login response carried no token")
	}

	sess := session.Session{
		Token: resp.Token,
		User:  session.User{ID: resp.UserID, Username: resp.Username, Email: req.Email},
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.log.LogAuthSuccess(ctx, strconv.Itoa(resp.UserID), "password")
	return &resp, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	req = req.normalize()
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	var resp RegisterResponse
	if err := s.backend.Post(ctx, "/users/register/", req, &resp, api.Anonymous()); err != nil {
		return nil, registrationError(err)
	}
	return &resp, nil
}

// Logout forgets the stored session. The backend token is not revoked.
func (s *service) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.log.LogSessionCleared(ctx, "logout")
	return nil
}

func (s *service) CurrentUser(ctx context.Context) (session.User, error) {
	sess, err := s.store.Load(ctx)
	if errors.Is(err, session.ErrNoSession) || (err == nil && sess.Token == "") {
		return session.User{}, ErrNotAuthenticated
	}
	if err != nil {
		return session.User{}, err
	}
	return sess.User, nil
}

func (s *service) VerifyEmail(ctx context.Context, token string) (*MessageResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	var resp MessageResponse
	query := url.Values{"token": {token}}
	err := s.backend.Get(ctx, "/users/verify-email/", query, &resp, api.Anonymous())
	switch {
	case err == nil:
		return &resp, nil
	case api.IsStatus(err, http.StatusBadRequest):
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case api.IsStatus(err, http.StatusNotFound):
		return nil, fmt.Errorf("%w: %v", ErrUserNotFound, err)
	default:
		return nil, err
	}
}

func (s *service) ResendVerification(ctx context.Context, email string) (*MessageResponse, error) {
	req := ResendVerificationRequest{Email: strings.TrimSpace(email)}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	var resp MessageResponse
	err := s.backend.Post(ctx, "/users/resend-verification-email/", req, &resp, api.Anonymous())
	switch {
	case err == nil:
		return &resp, nil
	case api.IsStatus(err, http.StatusNotFound):
		return nil, fmt.Errorf("%w: %v", ErrUserNotFound, err)
	case api.IsStatus(err, http.StatusTooManyRequests):
		return nil, fmt.Errorf("%w: %v", ErrTooManyAttempts, err)
	default:
		return nil, err
	}
}

// EmailStatus reports whether the logged in user's email is verified.
func (s *service) EmailStatus(ctx context.Context) (bool, error) {
	var profile ProfileResponse
	if err := s.backend.Get(ctx, "/users/profile/", nil, &profile); err != nil {
		return false, err
	}
	return profile.EmailVerified, nil
}
