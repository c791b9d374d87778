package wire

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// SubprotocolCBOR selects the CBOR encoding during the websocket handshake.
const SubprotocolCBOR = "relay.cbor"

// Subprotocols lists what the relay accepts, in preference order.
var Subprotocols = []string{SubprotocolCBOR}

// Codec encodes and decodes envelopes.
type Codec interface {
	// Name is the negotiated subprotocol, empty for JSON.
	Name() string
	// Binary reports whether frames are sent as binary messages.
	Binary() bool
	Encode(msg Message) ([]byte, error)
	// DecodeFromClient reads a message sent to the relay.
	DecodeFromClient(data []byte) (Message, error)
	// DecodeFromRelay reads a message sent by the relay.
	DecodeFromRelay(data []byte) (Message, error)
}

// Negotiate returns the codec for the subprotocol agreed on the connection.
func Negotiate(subprotocol string) Codec {
	if subprotocol == SubprotocolCBOR {
		return CBOR
	}
	return JSON
}

var (
	JSON Codec = jsonCodec{}
	CBOR Codec = newCBORCodec()
)

type jsonEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "" }

func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonEnvelope{Type: msg.Type(), Payload: payload})
}

func (c jsonCodec) DecodeFromClient(data []byte) (Message, error) {
	return c.decode(fromClient, data)
}

func (c jsonCodec) DecodeFromRelay(data []byte) (Message, error) {
	return c.decode(fromRelay, data)
}

func (jsonCodec) decode(registry map[string]func() Message, data []byte) (Message, error) {
	var envelope jsonEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	msg, err := newPayload(registry, envelope.Type)
	if err != nil {
		return nil, err
	}

	if len(envelope.Payload) == 0 {
		return nil, fmt.Errorf("%w: %s has no payload", ErrMalformed, envelope.Type)
	}
	if err = json.Unmarshal(envelope.Payload, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, envelope.Type, err)
	}

	if err = msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

type cborEnvelope struct {
	Type    string          `cbor:"type"`
	Payload cbor.RawMessage `cbor:"payload"`
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// newCBORCodec uses core deterministic encoding with RFC 3339 timestamps, so a
// timestamp keeps its sub-second part.
func newCBORCodec() cborCodec {
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	enc, err := encOptions.EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}

	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("wire: CBOR decoder initialization failed: " + err.Error())
	}

	return cborCodec{enc: enc, dec: dec}
}

func (cborCodec) Name() string { return SubprotocolCBOR }

func (cborCodec) Binary() bool { return true }

func (c cborCodec) Encode(msg Message) ([]byte, error) {
	payload, err := c.enc.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return c.enc.Marshal(cborEnvelope{Type: msg.Type(), Payload: payload})
}

func (c cborCodec) DecodeFromClient(data []byte) (Message, error) {
	return c.decode(fromClient, data)
}

func (c cborCodec) DecodeFromRelay(data []byte) (Message, error) {
	return c.decode(fromRelay, data)
}

func (c cborCodec) decode(registry map[string]func() Message, data []byte) (Message, error) {
	var envelope cborEnvelope
	if err := c.dec.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	msg, err := newPayload(registry, envelope.Type)
	if err != nil {
		return nil, err
	}

	if len(envelope.Payload) == 0 {
		return nil, fmt.Errorf("%w: %s has no payload", ErrMalformed, envelope.Type)
	}
	if err = c.dec.Unmarshal(envelope.Payload, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, envelope.Type, err)
	}

	if err = msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}
