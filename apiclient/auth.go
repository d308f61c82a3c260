package apiclient

import (
	"context"
	"encoding/json"

	"go.vocdoni.io/guardians/types"
)

// Login authenticates against the voting platform. On success the session
// cookie is kept in the client's jar and the confirmed email is returned.
// A rejected login is returned as *ServerError with the server message.
func (c *HTTPclient) Login(ctx context.Context, email, password string) (string, error) {
	req := &types.LoginRequest{Email: email, Password: password}
	data, status, err := c.Request(ctx, HTTPPOST, req, "auth", "login")
	if err != nil {
		return "", &TransportError{Err: err}
	}
	resp := &types.LoginResponse{}
	decodeErr := json.Unmarshal(data, resp)
	if !statusOK(status) {
		msg := ""
		if decodeErr == nil {
			msg = resp.Message
		}
		if msg == "" {
			msg = statusMessage("log in", status)
		}
		return "", &ServerError{Status: status, Message: msg}
	}
	if decodeErr != nil {
		return "", &ServerError{Status: status, Message: "invalid response from login service", Err: decodeErr}
	}
	if resp.Email == "" {
		return email, nil
	}
	return resp.Email, nil
}
