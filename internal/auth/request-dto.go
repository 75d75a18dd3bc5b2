package auth

import "strings"

// CountryColombia selects catalog-backed department and city ids on
// registration. Any other country sends free text.
const CountryColombia = "Colombia"

// login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// registration request payload
type RegisterRequest struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Phone           string `json:"phone,omitempty"`
	BirthDate       string `json:"birth_date,omitempty"`
	DocumentType    string `json:"document_type,omitempty"`
	Document        string `json:"document,omitempty"`
	Country         string `json:"country"`
	Department      int    `json:"department,omitempty" validate:"required_if=Country Colombia"`
	City            int    `json:"city,omitempty" validate:"required_if=Country Colombia"`
	DepartmentText  string `json:"department_text,omitempty" validate:"required_unless=Country Colombia"`
	CityText        string `json:"city_text,omitempty" validate:"required_unless=Country Colombia"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// normalize fills the default country and keeps only the location fields
// that apply to it.
func (r RegisterRequest) normalize() RegisterRequest {
	r.Email = strings.TrimSpace(r.Email)
	r.Username = strings.TrimSpace(r.Username)
	if strings.TrimSpace(r.Country) == "" {
		r.Country = CountryColombia
	}
	if r.Country == CountryColombia {
		r.DepartmentText, r.CityText = "", ""
	} else {
		r.Department, r.City = 0, 0
	}
	return r
}

// represents resend verification request
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}
