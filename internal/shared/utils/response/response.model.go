package response

// ErrorBody is the error shape clients parse for non-field failures.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// MessageBody acknowledges an action.
type MessageBody struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
