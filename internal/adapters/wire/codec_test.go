package wire_test

import (
	"testing"
	"time"

	"tracking/internal/adapters/wire"
	"tracking/internal/core/domain/model/order"
	"tracking/internal/core/domain/model/tracking"
	"tracking/internal/core/ports"
	"tracking/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestNegotiate(t *testing.T) {
	assert.Equal(t, wire.CBOR, wire.Negotiate(wire.SubprotocolCBOR))
	assert.Equal(t, wire.JSON, wire.Negotiate(""))
	assert.Equal(t, wire.JSON, wire.Negotiate("something-else"))
	assert.True(t, wire.CBOR.Binary())
	assert.False(t, wire.JSON.Binary())
}

func TestJSON_DecodeFromClient_LocationUpdate(t *testing.T) {
	data := []byte(`{"type":"location_update","payload":{"agentId":"A1","orderId":"O1","lat":28.6139,"lng":77.2090}}`)

	msg, err := wire.JSON.DecodeFromClient(data)

	require.NoError(t, err)
	update, ok := msg.(*wire.LocationUpdate)
	require.True(t, ok)
	assert.Equal(t, "A1", update.AgentID)
	assert.Equal(t, "O1", update.OrderID)
	assert.InDelta(t, 28.6139, *update.Lat, 1e-12)
	assert.InDelta(t, 77.2090, *update.Lng, 1e-12)
}

func TestJSON_DecodeFromClient_ZeroCoordinatesArePresent(t *testing.T) {
	data := []byte(`{"type":"location_update","payload":{"agentId":"A1","orderId":"O1","lat":0,"lng":0}}`)

	msg, err := wire.JSON.DecodeFromClient(data)

	require.NoError(t, err)
	update := msg.(*wire.LocationUpdate)
	require.NotNil(t, update.Lat)
	assert.Zero(t, *update.Lat)
}

func TestJSON_DecodeFromClient_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{"type":`, wire.ErrMalformed},
		{"missing type", `{"payload":{"orderId":"O1"}}`, wire.ErrMalformed},
		{"unknown type", `{"type":"teleport","payload":{}}`, wire.ErrUnknownType},
		{"relay only type", `{"type":"tracking_stopped","payload":{"orderId":"O1"}}`, wire.ErrUnknownType},
		{"missing payload", `{"type":"subscribe"}`, wire.ErrMalformed},
		{"payload of wrong shape", `{"type":"subscribe","payload":{"orderId":42}}`, wire.ErrMalformed},
		{"missing lat", `{"type":"location_update","payload":{"agentId":"A1","orderId":"O1","lng":1}}`, errs.ErrValueIsRequired},
		{"missing order", `{"type":"subscribe","payload":{}}`, errs.ErrValueIsRequired},
		{"missing status", `{"type":"order_status_update","payload":{"orderId":"O1"}}`, errs.ErrValueIsRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := wire.JSON.DecodeFromClient([]byte(tt.data))

			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, msg)
		})
	}
}

func TestJSON_Encode_Envelope(t *testing.T) {
	data, err := wire.JSON.Encode(&wire.StatusBroadcast{OrderID: "O1", Status: "in_transit"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"order_status_update","payload":{"orderId":"O1","status":"in_transit"}}`, string(data))
}

func TestCodecs_RelayMessagesSurviveEncoding(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 30, 15, 123456789, time.UTC)
	messages := []wire.Message{
		&wire.LocationBroadcast{OrderID: "O1", AgentID: "A1", Lat: 28.6139, Lng: 77.2090, Timestamp: ts},
		&wire.StatusBroadcast{OrderID: "O1", Status: "delivered"},
		&wire.Subscribed{OrderID: "O1"},
		&wire.TrackingStopped{OrderID: "O1", Status: "cancelled"},
		&wire.Error{Code: "invalid_transition", Message: "pending -> in_transit"},
	}

	for _, codec := range []wire.Codec{wire.JSON, wire.CBOR} {
		for _, msg := range messages {
			t.Run(codec.Name()+"/"+msg.Type(), func(t *testing.T) {
				data, err := codec.Encode(msg)
				require.NoError(t, err)

				decoded, err := codec.DecodeFromRelay(data)
				require.NoError(t, err)
				assert.Equal(t, msg, decoded)
			})
		}
	}
}

func TestCBOR_ClientMessages(t *testing.T) {
	sent := &wire.LocationUpdate{AgentID: "A1", OrderID: "O1", Lat: ptr(28.6), Lng: ptr(77.2)}

	data, err := wire.CBOR.Encode(sent)
	require.NoError(t, err)
	decoded, err := wire.CBOR.DecodeFromClient(data)

	require.NoError(t, err)
	assert.Equal(t, sent, decoded)

	t.Run("validation applies", func(t *testing.T) {
		data, err := wire.CBOR.Encode(&wire.StatusUpdate{OrderID: "O1"})
		require.NoError(t, err)

		_, err = wire.CBOR.DecodeFromClient(data)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := wire.CBOR.DecodeFromClient([]byte{0xff, 0x00})
		require.ErrorIs(t, err, wire.ErrMalformed)
	})
}

func TestFromFrame(t *testing.T) {
	received := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		frame ports.Frame
		want  wire.Message
	}{
		{
			name: "location event",
			frame: ports.EventFrame{Event: tracking.LocationEvent{
				OrderID: "O1", AgentID: "A1", Lat: 1.5, Lng: 2.5, ReceivedAt: received,
			}},
			want: &wire.LocationBroadcast{OrderID: "O1", AgentID: "A1", Lat: 1.5, Lng: 2.5, Timestamp: received},
		},
		{
			name:  "status event",
			frame: ports.EventFrame{Event: tracking.StatusEvent{OrderID: "O1", Status: order.InTransit}},
			want:  &wire.StatusBroadcast{OrderID: "O1", Status: "in_transit"},
		},
		{
			name:  "subscribed",
			frame: ports.SubscribedFrame{OrderID: "O1"},
			want:  &wire.Subscribed{OrderID: "O1"},
		},
		{
			name:  "tracking stopped",
			frame: ports.TrackingStoppedFrame{OrderID: "O1", Status: "delivered"},
			want:  &wire.TrackingStopped{OrderID: "O1", Status: "delivered"},
		},
		{
			name:  "error",
			frame: ports.ErrorFrame{Code: "forbidden", Message: "no"},
			want:  &wire.Error{Code: "forbidden", Message: "no"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := wire.FromFrame(tt.frame)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
