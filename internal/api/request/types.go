package request

// JoinRequest is the request body for joining a session
type JoinRequest struct {
	ClientID    string `json:"client_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// SecretRequest is the request body for submitting a secret word
type SecretRequest struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

// GuessRequest is the request body for submitting a guess
type GuessRequest struct {
	ClientID string `json:"client_id"`
	Guess    string `json:"guess"`
}
