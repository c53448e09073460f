package sysaction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidSysAction is returned when data cannot be decoded as a SysAction.
var ErrInvalidSysAction = errors.New("invalid system action payload")

// Decode parses a SysAction from raw bytes.
func Decode(data []byte) (*SysAction, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrInvalidSysAction)
	}
	var sa SysAction
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSysAction, err)
	}
	if sa.Action == "" {
		return nil, fmt.Errorf("%w: missing action field", ErrInvalidSysAction)
	}
	return &sa, nil
}

// DecodePayload unmarshals sa.Payload into dst. Unknown fields are rejected.
func DecodePayload(sa *SysAction, dst interface{}) error {
	if len(sa.Payload) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(sa.Payload))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// Encode serialises a SysAction to JSON bytes.
func Encode(sa *SysAction) ([]byte, error) {
	return json.Marshal(sa)
}

// MakeSysAction is a convenience helper that creates a SysAction with the
// JSON encoding of payload.
func MakeSysAction(kind ActionKind, payload interface{}) (*SysAction, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &SysAction{Action: kind, Payload: raw}, nil
}
