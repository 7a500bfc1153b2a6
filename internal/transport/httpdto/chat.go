package httpdto

// ChatRequest is used for POST /api/chatbot. A non-empty SystemRole is stored
// on the user and applies to later requests too.
type ChatRequest struct {
	Message    string  `json:"message"`
	SystemRole *string `json:"systemRole,omitempty"`
}

type ChatResponse struct {
	Response string `json:"response"`
}
