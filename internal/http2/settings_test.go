package http2_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelsolaorbaiceta/h2cli/internal/http2"
)

func TestEncodeDefaultSettingsPayload(t *testing.T) {
	payload := http2.EncodeSettingsPayload(http2.DefaultSettings())

	want := []byte{
		0x00, 0x01, 0x00, 0x00, 0x10, 0x00, // HEADER_TABLE_SIZE = 4096
		0x00, 0x02, 0x00, 0x00, 0x00, 0x01, // ENABLE_PUSH = 1
		0x00, 0x04, 0x00, 0x00, 0xFF, 0xFF, // INITIAL_WINDOW_SIZE = 65535
		0x00, 0x05, 0x00, 0x00, 0x40, 0x00, // MAX_FRAME_SIZE = 16384
	}
	assert.Equal(t, want, payload)
}

func TestEncodeSettingsPayloadEmpty(t *testing.T) {
	assert.Empty(t, http2.EncodeSettingsPayload(nil))
}

func TestSettingsRoundTrip(t *testing.T) {
	settings := []http2.Setting{
		{ID: http2.SettingMaxConcurrentStreams, Value: 100},
		{ID: http2.SettingMaxHeaderListSize, Value: 1 << 20},
		{ID: http2.SettingEnablePush, Value: 0},
	}

	frame, err := http2.NewSettingsFrame(0, settings)
	require.NoError(t, err)
	assert.Equal(t, http2.FrameSettings, frame.Type)
	assert.Equal(t, uint32(0), frame.StreamID)
	assert.Equal(t, uint32(len(settings)*6), frame.Length)

	decoded, err := http2.DecodeSettings(frame)
	require.NoError(t, err)
	assert.Equal(t, map[http2.SettingID]uint32{
		http2.SettingMaxConcurrentStreams: 100,
		http2.SettingMaxHeaderListSize:    1 << 20,
		http2.SettingEnablePush:           0,
	}, decoded)
}

func TestDecodeSettingsEmptyPayload(t *testing.T) {
	frame, err := http2.NewSettingsFrame(0, nil)
	require.NoError(t, err)

	decoded, err := http2.DecodeSettings(frame)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeSettingsLastSeenWins(t *testing.T) {
	frame, err := http2.NewSettingsFrame(0, []http2.Setting{
		{ID: http2.SettingMaxFrameSize, Value: 16384},
		{ID: http2.SettingMaxFrameSize, Value: 65536},
	})
	require.NoError(t, err)

	decoded, err := http2.DecodeSettings(frame)
	require.NoError(t, err)
	assert.Equal(t, map[http2.SettingID]uint32{http2.SettingMaxFrameSize: 65536}, decoded)
}

func TestDecodeSettingsErrors(t *testing.T) {
	tests := []struct {
		name      string
		frame     func(t *testing.T) http2.Frame
		wantField string
	}{
		{
			name: "not a SETTINGS frame",
			frame: func(t *testing.T) http2.Frame {
				f, err := http2.NewFrame(http2.FrameData, 0, 1, nil)
				require.NoError(t, err)
				return f
			},
			wantField: "type",
		},
		{
			name: "nonzero stream id",
			frame: func(t *testing.T) http2.Frame {
				f, err := http2.NewFrame(http2.FrameSettings, 0, 3, nil)
				require.NoError(t, err)
				return f
			},
			wantField: "stream_id",
		},
		{
			name: "payload not a multiple of 6",
			frame: func(t *testing.T) http2.Frame {
				f, err := http2.NewFrame(http2.FrameSettings, 0, 0, []byte{0x00, 0x01, 0x00, 0x00})
				require.NoError(t, err)
				return f
			},
			wantField: "length",
		},
		{
			name: "unrecognized setting identifier",
			frame: func(t *testing.T) http2.Frame {
				f, err := http2.NewFrame(http2.FrameSettings, 0, 0, []byte{0x00, 0x09, 0x00, 0x00, 0x00, 0x01})
				require.NoError(t, err)
				return f
			},
			wantField: "setting_id",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := http2.DecodeSettings(tc.frame(t))

			var formatErr *http2.FormatError
			require.ErrorAs(t, err, &formatErr)
			assert.Equal(t, tc.wantField, formatErr.Field)
		})
	}
}

func TestNewSettingsFrameAckRequiresEmptySettings(t *testing.T) {
	_, err := http2.NewSettingsFrame(http2.FlagAck, http2.DefaultSettings())

	var formatErr *http2.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "flags", formatErr.Field)
}

func TestNewSettingsAck(t *testing.T) {
	ack := http2.NewSettingsAck()

	assert.Equal(t, http2.FrameSettings, ack.Type)
	assert.True(t, ack.Flags.Has(http2.FlagAck))
	assert.Equal(t, uint32(0), ack.Length)
	assert.Equal(t, uint32(0), ack.StreamID)
	assert.Empty(t, ack.Payload)
}

func TestDefaultSettingsFreshPerCall(t *testing.T) {
	first := http2.DefaultSettings()
	first[0].Value = 1

	second := http2.DefaultSettings()
	assert.Equal(t, uint32(4096), second[0].Value)
}
