package snapshot

import (
	"encoding/json"

	"codeberg.org/nevala/sysprobe/internal/errors"
)

// Kind identifies a snapshot type on the wire
type Kind string

const (
	KindCPU         Kind = "cpu"
	KindDisk        Kind = "disk"
	KindTemperature Kind = "temperature"
	KindPong        Kind = "pong"
)

// allowedKinds is the closed allow-list of types permitted to cross the
// wire boundary. Anything else is rejected before it reaches manager
// logic, never coerced.
var allowedKinds = map[Kind]bool{
	KindCPU:         true,
	KindDisk:        true,
	KindTemperature: true,
	KindPong:        true,
}

type envelope struct {
	Kind    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeCPU encodes a CPU snapshot into a wire envelope
func EncodeCPU(s *CPU) ([]byte, error) {
	return encode(KindCPU, s)
}

// EncodeDisk encodes a disk snapshot into a wire envelope
func EncodeDisk(s *Disk) ([]byte, error) {
	return encode(KindDisk, s)
}

// EncodeTemperature encodes a temperature snapshot into a wire envelope
func EncodeTemperature(s *Temperature) ([]byte, error) {
	return encode(KindTemperature, s)
}

// EncodePong encodes a ping reply
func EncodePong() ([]byte, error) {
	return encode(KindPong, nil)
}

// DecodeCPU decodes a wire envelope into a CPU snapshot
func DecodeCPU(data []byte) (*CPU, error) {
	s := &CPU{}
	if err := decode(data, KindCPU, s); err != nil {
		return nil, err
	}

	return s, nil
}

// DecodeDisk decodes a wire envelope into a disk snapshot
func DecodeDisk(data []byte) (*Disk, error) {
	s := &Disk{}
	if err := decode(data, KindDisk, s); err != nil {
		return nil, err
	}

	return s, nil
}

// DecodeTemperature decodes a wire envelope into a temperature snapshot
func DecodeTemperature(data []byte) (*Temperature, error) {
	s := &Temperature{}
	if err := decode(data, KindTemperature, s); err != nil {
		return nil, err
	}

	return s, nil
}

// DecodePong validates a ping reply
func DecodePong(data []byte) error {
	return decode(data, KindPong, nil)
}

func encode(kind Kind, payload any) ([]byte, error) {
	errFactory := errors.New()

	env := envelope{Kind: kind}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errFactory.Wrap(ErrEncodeFailed, err)
		}
		env.Payload = raw
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, errFactory.Wrap(ErrEncodeFailed, err)
	}

	return data, nil
}

func decode(data []byte, want Kind, payload any) error {
	errFactory := errors.New()

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errFactory.Wrap(ErrDecodeFailed, err)
	}

	if !allowedKinds[env.Kind] {
		return errFactory.WithData(ErrKindNotAllowed, string(env.Kind))
	}

	if env.Kind != want {
		return errFactory.WithData(ErrKindMismatch, string(env.Kind))
	}

	if payload == nil {
		return nil
	}

	if len(env.Payload) == 0 {
		return errFactory.New(ErrDecodeFailed)
	}

	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return errFactory.Wrap(ErrDecodeFailed, err)
	}

	return nil
}
