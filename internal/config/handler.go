package config

import (
	"encoding/json"

	"github.com/go-scripts/liimport/internal/protocol"
)

type getBody struct {
	APIBase string `json:"apiBase"`
}

type setBody struct {
	APIBase string `json:"apiBase"`
}

// HandleMessage serves the configuration-read/write message kinds used by
// UI-facing callers. Anything else is rejected.
func (r *Resolver) HandleMessage(msg protocol.Message) protocol.Response {
	switch msg.Kind {
	case protocol.KindConfigGet:
		payload, err := json.Marshal(getBody{APIBase: r.Resolve()})
		if err != nil {
			return errResponse(msg, err.Error())
		}
		return protocol.Response{OK: true, CorrelationID: msg.CorrelationID, Payload: payload}

	case protocol.KindConfigSet:
		var body setBody
		if err := json.Unmarshal(msg.Payload, &body); err != nil {
			return errResponse(msg, "malformed config-set payload")
		}
		if body.APIBase == "" {
			return errResponse(msg, "apiBase is required")
		}
		if err := r.Update(body.APIBase); err != nil {
			return errResponse(msg, err.Error())
		}
		return protocol.Response{OK: true, CorrelationID: msg.CorrelationID}

	default:
		return errResponse(msg, "unsupported kind: "+string(msg.Kind))
	}
}

func errResponse(msg protocol.Message, reason string) protocol.Response {
	return protocol.Response{OK: false, CorrelationID: msg.CorrelationID, Error: reason}
}
