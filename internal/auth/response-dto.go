package auth

// represents the login response
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// represents the registration response
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  int    `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
}

// represents the profile of the logged in user
type ProfileResponse struct {
	ID            int    `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailVerified bool   `json:"email_verified"`
}

// represents a bare acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Text returns whichever of message and detail is set.
func (m MessageResponse) Text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Detail
}
