package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ListEnvelope carries a collection with its size, used by catalog listings.
type ListEnvelope struct {
	Data  any `json:"data"`
	Count int `json:"count"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
