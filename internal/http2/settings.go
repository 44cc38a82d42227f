package http2

import (
	"encoding/binary"
	"fmt"
)

// SettingID represents a SETTINGS parameter identifier.
type SettingID uint16

// SETTINGS parameters from RFC 7540, Section 6.5.2.
const (
	// SettingHeaderTableSize (0x1): Initial size of the HPACK header table.
	SettingHeaderTableSize SettingID = 0x1
	// SettingEnablePush (0x2): Whether server push is enabled.
	SettingEnablePush SettingID = 0x2
	// SettingMaxConcurrentStreams (0x3): Maximum number of concurrent streams.
	SettingMaxConcurrentStreams SettingID = 0x3
	// SettingInitialWindowSize (0x4): Initial window size for flow control.
	SettingInitialWindowSize SettingID = 0x4
	// SettingMaxFrameSize (0x5): Maximum size of a frame payload.
	SettingMaxFrameSize SettingID = 0x5
	// SettingMaxHeaderListSize (0x6): Maximum size of header list.
	SettingMaxHeaderListSize SettingID = 0x6
)

// String returns the string representation of the SettingID.
func (s SettingID) String() string {
	switch s {
	case SettingHeaderTableSize:
		return "SETTINGS_HEADER_TABLE_SIZE"
	case SettingEnablePush:
		return "SETTINGS_ENABLE_PUSH"
	case SettingMaxConcurrentStreams:
		return "SETTINGS_MAX_CONCURRENT_STREAMS"
	case SettingInitialWindowSize:
		return "SETTINGS_INITIAL_WINDOW_SIZE"
	case SettingMaxFrameSize:
		return "SETTINGS_MAX_FRAME_SIZE"
	case SettingMaxHeaderListSize:
		return "SETTINGS_MAX_HEADER_LIST_SIZE"
	default:
		return fmt.Sprintf("UNKNOWN_SETTING_ID_%d", uint16(s))
	}
}

// valid reports whether the identifier is one defined by RFC 7540.
func (s SettingID) valid() bool {
	return s >= SettingHeaderTableSize && s <= SettingMaxHeaderListSize
}

// Setting is one configuration parameter carried in a SETTINGS frame.
type Setting struct {
	ID    SettingID
	Value uint32
}

// String returns a "NAME=value" rendering of the setting.
func (s Setting) String() string {
	return fmt.Sprintf("%s=%d", s.ID, s.Value)
}

const settingEntrySize = 6 // 2 bytes for ID, 4 bytes for Value

// DefaultSettings returns the parameters a client advertises in its opening
// SETTINGS frame, in their wire order. A fresh slice is built on every call
// so callers can modify the result freely.
func DefaultSettings() []Setting {
	return []Setting{
		{SettingHeaderTableSize, 4096},
		{SettingEnablePush, 1},
		{SettingInitialWindowSize, 65535},
		{SettingMaxFrameSize, 16384},
	}
}

// EncodeSettingsPayload produces the SETTINGS frame payload for the given
// parameters: per entry, a 2-byte big-endian identifier followed by a 4-byte
// big-endian value (RFC 7540, Section 6.5.1). Slice order is wire order, and
// zero entries yield an empty payload. Value ranges beyond the 32-bit width
// are not validated here; settings are advisory and protocol-level legality
// (e.g. ENABLE_PUSH being 0 or 1) is the caller's concern.
func EncodeSettingsPayload(settings []Setting) []byte {
	payload := make([]byte, 0, len(settings)*settingEntrySize)
	for _, s := range settings {
		var entry [settingEntrySize]byte
		binary.BigEndian.PutUint16(entry[0:2], uint16(s.ID))
		binary.BigEndian.PutUint32(entry[2:6], s.Value)
		payload = append(payload, entry[:]...)
	}
	return payload
}

// NewSettingsFrame wraps the given parameters in a SETTINGS frame on stream
// 0. Only the ACK flag is meaningful for SETTINGS; setting it requires the
// parameter list to be empty, since an ACK payload must be zero-length
// (RFC 7540, Section 6.5). Violating that rule is a FormatError and no bytes
// are produced.
func NewSettingsFrame(flags Flags, settings []Setting) (Frame, error) {
	if flags.Has(FlagAck) && len(settings) > 0 {
		return Frame{}, NewFormatError("flags", "SETTINGS frame with ACK must carry no parameters, got %d", len(settings))
	}
	return NewFrame(FrameSettings, flags, 0, EncodeSettingsPayload(settings))
}

// NewSettingsAck builds the empty SETTINGS frame that acknowledges the
// peer's parameters.
func NewSettingsAck() Frame {
	f, err := NewSettingsFrame(FlagAck, nil)
	if err != nil {
		// Unreachable: ACK with an empty list always validates.
		panic(err)
	}
	return f
}

// DecodeSettings interprets the payload of a SETTINGS frame as a mapping of
// setting identifier to value.
//
// SETTINGS frames are connection-scoped, so a nonzero stream id is a
// FormatError, as is a payload whose length is not a multiple of 6 (the
// protocol's FRAME_SIZE_ERROR condition). Parameters are folded in encounter
// order and a later record for the same identifier replaces the earlier one,
// matching the protocol rule that the value of a setting is the last one
// seen. An unrecognized identifier is a FormatError rather than being
// skipped: encountering one means a version mismatch or a decode bug that
// must surface.
func DecodeSettings(f Frame) (map[SettingID]uint32, error) {
	if f.Type != FrameSettings {
		return nil, NewFormatError("type", "expected a SETTINGS frame, got %s", f.Type)
	}
	if f.StreamID != 0 {
		return nil, NewFormatError("stream_id", "SETTINGS frames must be on stream 0, got %d", f.StreamID)
	}
	if len(f.Payload)%settingEntrySize != 0 {
		return nil, NewFormatError("length", "SETTINGS payload length %d is not a multiple of %d", len(f.Payload), settingEntrySize)
	}

	settings := make(map[SettingID]uint32, len(f.Payload)/settingEntrySize)
	for off := 0; off < len(f.Payload); off += settingEntrySize {
		id := SettingID(binary.BigEndian.Uint16(f.Payload[off : off+2]))
		if !id.valid() {
			return nil, NewFormatError("setting_id", "unrecognized setting identifier 0x%x", uint16(id))
		}
		settings[id] = binary.BigEndian.Uint32(f.Payload[off+2 : off+6])
	}
	return settings, nil
}
