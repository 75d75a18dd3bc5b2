package sandbox

// login request payload
type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// registration request payload
type registerRequest struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name" binding:"required"`
	Phone           string `json:"phone"`
	BirthDate       string `json:"birth_date"`
	DocumentType    string `json:"document_type"`
	Document        string `json:"document"`
	Country         string `json:"country" binding:"required"`
	Department      int    `json:"department" binding:"required_if=Country Colombia"`
	City            int    `json:"city" binding:"required_if=Country Colombia"`
	DepartmentText  string `json:"department_text" binding:"required_unless=Country Colombia"`
	CityText        string `json:"city_text" binding:"required_unless=Country Colombia"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=Password"`
}

// resend verification request payload
type resendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// purchase request payload
type buyRequest struct {
	ConfigTypeID int `json:"config_type_id" binding:"required"`
	Amount       int `json:"amount" binding:"required,gte=1"`
}

// payment request payload; amount is the total ticket quantity
type payRequest struct {
	Amount int `json:"amount" binding:"required,gte=1"`
}

// gateway confirmation webhook form
type confirmationForm struct {
	MerchantID string `form:"merchant_id"`
	Reference  string `form:"reference_sale" binding:"required"`
	State      string `form:"state_pol" binding:"required"`
	Value      string `form:"value"`
	Currency   string `form:"currency"`
	Sign       string `form:"sign" binding:"required"`
}
