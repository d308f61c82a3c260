package apiclient

import (
	"context"
	"encoding/json"
	"fmt"

	"go.vocdoni.io/guardians/log"
	"go.vocdoni.io/guardians/types"
)

// ElectionGuardians returns the guardian records of an election, in the order
// sent by the service.
//
// A network failure is returned as *TransportError. A non 2xx status is
// returned as *ServerError with a fixed message naming the status, the body
// is only logged. A payload with success=false is returned as *ServerError
// carrying the server message.
func (c *HTTPclient) ElectionGuardians(ctx context.Context, electionID string) ([]types.Guardian, error) {
	if electionID == "" {
		return nil, fmt.Errorf("empty election id")
	}
	data, status, err := c.Request(ctx, HTTPGET, nil, "guardians", "election", electionID)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	resp := &types.GuardiansResponse{}
	decodeErr := json.Unmarshal(data, resp)
	if !statusOK(status) {
		log.Warnw("guardian service returned an error status",
			"electionID", electionID, "status", status, "body", string(truncate(data, 256)))
		return nil, &ServerError{Status: status, Message: statusMessage("fetch guardians", status)}
	}
	if decodeErr != nil {
		log.Debugf("undecodable guardians payload: %q", truncate(data, 256))
		return nil, &ServerError{
			Status:  status,
			Message: "invalid response from guardian service",
			Err:     decodeErr,
		}
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = types.UnknownErrorText
		}
		return nil, &ServerError{Status: status, Message: msg}
	}
	if resp.Guardians == nil {
		return []types.Guardian{}, nil
	}
	return resp.Guardians, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
