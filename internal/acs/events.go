package acs

import (
	"encoding/json"
	"fmt"
)

// EventTypeIncomingCall is the callback event announcing a new inbound call.
const EventTypeIncomingCall = "Microsoft.Communication.IncomingCall"

// CallbackEvent is one envelope from the provider's callback batch.
type CallbackEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// IncomingCallData is the payload of an IncomingCall event.
type IncomingCallData struct {
	IncomingCallContext string `json:"incomingCallContext"`
	CorrelationID       string `json:"correlationId"`
	From                struct {
		RawID string `json:"rawId"`
	} `json:"from"`
	To struct {
		RawID string `json:"rawId"`
	} `json:"to"`
}

// ParseCallbackEvents decodes a callback request body, which is always a
// batch of envelopes.
func ParseCallbackEvents(body []byte) ([]CallbackEvent, error) {
	var batch []CallbackEvent
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("decode callback batch: %w", err)
	}
	return batch, nil
}

// IncomingCall decodes the event's payload as IncomingCallData.
func (e CallbackEvent) IncomingCall() (IncomingCallData, error) {
	var data IncomingCallData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return data, fmt.Errorf("decode incoming call data: %w", err)
	}
	if data.IncomingCallContext == "" {
		return data, fmt.Errorf("incoming call event missing context")
	}
	return data, nil
}
