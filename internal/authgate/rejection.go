package authgate

import "net/http"

// Rejection ends a request before any handler runs. Message is returned to
// the client verbatim.
type Rejection struct {
	Status  int
	Message string
}

func (r *Rejection) Error() string   { return r.Message }
func (r *Rejection) StatusCode() int { return r.Status }

func badRequest(msg string) *Rejection {
	return &Rejection{Status: http.StatusBadRequest, Message: msg}
}

func unauthorized(msg string) *Rejection {
	return &Rejection{Status: http.StatusUnauthorized, Message: msg}
}

const (
	MsgMissingPlacement = "Missing PLACEMENT"
	MsgMissingAuthID    = "Missing AUTH_ID"
	MsgInvalidPlacement = "Invalid placement auth data"
	MsgInvalidToken     = "Invalid JWT token"
	MsgTokenExpired     = "JWT token has expired"
)
