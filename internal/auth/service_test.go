package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"tiquetera/internal/api"
	"tiquetera/internal/session"
	"tiquetera/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Get(ctx context.Context, path string, query url.Values, out interface{}, opts ...api.RequestOption) error {
	args := m.Called(path, query, out)
	return args.Error(0)
}

func (m *mockBackend) Post(ctx context.Context, path string, body, out interface{}, opts ...api.RequestOption) error {
	args := m.Called(path, body, out)
	return args.Error(0)
}

func newTestService(b Backend) (Service, *session.MemoryStore) {
	store := session.NewMemoryStore()
	return NewService(b, store, logger.Discard()), store
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Username:        "ana",
		Email:           "ana@example.com",
		FirstName:       "Ana",
		LastName:        "Pérez",
		Department:      5,
		City:            101,
		DepartmentText:  "ignored",
		Password:        "secreto123",
		PasswordConfirm: "secreto123",
	}
}

func TestLoginStoresSession(t *testing.T) {
	backend := &mockBackend{}
	svc, store := newTestService(backend)

	backend.On("Post", "/users/login/", LoginRequest{Email: "ana@example.com", Password: "pw"}, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*LoginResponse) = LoginResponse{Token: "tok", UserID: 3, Username: "ana", Message: "Bienvenida"}
		}).Return(nil)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " ana@example.com ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Bienvenida", resp.Message)

	sess, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.Token)
	assert.Equal(t, session.User{ID: 3, Username: "ana", Email: "ana@example.com"}, sess.User)

	user, err := svc.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, user.ID)

	require.NoError(t, svc.Logout(context.Background()))
	_, err = svc.CurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLoginRejectedKeepsNoSession(t *testing.T) {
	backend := &mockBackend{}
	svc, store := newTestService(backend)

	backend.On("Post", "/users/login/", mock.Anything, mock.Anything).
		Return(&api.StatusError{Status: 400, Message: "Credenciales inválidas"})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "bad"})
	assert.ErrorIs(t, err, api.ErrValidation)
	assert.Equal(t, "Credenciales inválidas", UserMessage(err))

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLoginValidatesEmail(t *testing.T) {
	svc, _ := newTestService(&mockBackend{})
	_, err := svc.Login(context.Background(), LoginRequest{Email: "nope", Password: "pw"})

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "email", fe.Field)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterColombiaSendsIDs(t *testing.T) {
	backend := &mockBackend{}
	svc, _ := newTestService(backend)

	backend.On("Post", "/users/register/", mock.MatchedBy(func(r RegisterRequest) bool {
		return r.Country == CountryColombia && r.Department == 5 && r.City == 101 && r.DepartmentText == ""
	}), mock.Anything).Return(nil)

	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	backend.AssertExpectations(t)
}

func TestRegisterAbroadSendsText(t *testing.T) {
	backend := &mockBackend{}
	svc, _ := newTestService(backend)

	req := validRegistration()
	req.Country = "México"
	req.DepartmentText = "Jalisco"
	req.CityText = "Guadalajara"

	backend.On("Post", "/users/register/", mock.MatchedBy(func(r RegisterRequest) bool {
		return r.Department == 0 && r.City == 0 && r.CityText == "Guadalajara"
	}), mock.Anything).Return(nil)

	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	backend.AssertExpectations(t)
}

func TestRegisterClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RegisterRequest)
		field   string
		message string
	}{
		{"short password", func(r *RegisterRequest) { r.Password, r.PasswordConfirm = "corta", "corta" }, "password", "Contraseña debe tener al menos 8 caracteres"},
		{"mismatch", func(r *RegisterRequest) { r.PasswordConfirm = "otra12345" }, "password_confirm", "Las contraseñas no coinciden"},
		{"missing city", func(r *RegisterRequest) { r.City = 0 }, "city", "Ciudad es requerida"},
		{"abroad without text", func(r *RegisterRequest) { r.Country, r.DepartmentText = "Perú", "" }, "department_text", "Departamento es requerido"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{}
			svc, _ := newTestService(backend)
			req := validRegistration()
			tt.mutate(&req)

			_, err := svc.Register(context.Background(), req)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
			assert.Equal(t, tt.message, fe.Message)
			backend.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRegisterSurfacesFirstFieldError(t *testing.T) {
	backend := &mockBackend{}
	svc, _ := newTestService(backend)

	backend.On("Post", "/users/register/", mock.Anything, mock.Anything).Return(&api.StatusError{
		Status:  400,
		Message: "Ya existe un usuario con este nombre.",
		Fields: []api.FieldError{
			{Field: "username", Messages: []string{"Ya existe un usuario con este nombre."}},
			{Field: "email", Messages: []string{"Ya existe un usuario con este email."}},
		},
	})

	_, err := svc.Register(context.Background(), validRegistration())
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "email", fe.Field)
	assert.Equal(t, "Ya existe un usuario con este email.", UserMessage(err))
	assert.ErrorIs(t, err, api.ErrValidation)
}

func TestVerifyEmail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"invalid token", 400, ErrInvalidToken},
		{"unknown user", 404, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{}
			svc, _ := newTestService(backend)
			backend.On("Get", "/users/verify-email/", url.Values{"token": {"abc"}}, mock.Anything).
				Return(&api.StatusError{Status: tt.status})

			_, err := svc.VerifyEmail(context.Background(), "  abc ")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	svc, _ := newTestService(&mockBackend{})
	_, err := svc.VerifyEmail(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResendVerificationRateLimited(t *testing.T) {
	backend := &mockBackend{}
	svc, _ := newTestService(backend)
	backend.On("Post", "/users/resend-verification-email/", ResendVerificationRequest{Email: "ana@example.com"}, mock.Anything).
		Return(&api.StatusError{Status: 429})

	_, err := svc.ResendVerification(context.Background(), "ana@example.com")
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Equal(t, "Demasiados intentos. Intenta más tarde.", UserMessage(err))
}

func TestEmailStatus(t *testing.T) {
	backend := &mockBackend{}
	svc, _ := newTestService(backend)
	backend.On("Get", "/users/profile/", url.Values(nil), mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(2).(*ProfileResponse).EmailVerified = true
		}).Return(nil).Once()
	backend.On("Get", "/users/profile/", url.Values(nil), mock.Anything).
		Return(errors.New("boom")).Once()

	ok, err := svc.EmailStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.EmailStatus(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
