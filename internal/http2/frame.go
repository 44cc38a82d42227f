package http2

import (
	"encoding/binary"
	"fmt"
)

// ClientPreface is the fixed byte sequence a client sends immediately after
// the transport is established, before any frame (RFC 7540, Section 3.5).
const ClientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

const (
	// FrameHeaderLen is the length of the HTTP/2 frame header.
	FrameHeaderLen = 9

	// MaxFramePayloadLen is the largest payload a frame can declare: the
	// length field is a 24-bit unsigned integer (RFC 7540, Section 4.1).
	MaxFramePayloadLen uint32 = 1<<24 - 1

	// MaxStreamID is the largest stream identifier: stream ids are 31-bit
	// unsigned integers, the top bit of the wire field is reserved.
	MaxStreamID uint32 = 1<<31 - 1
)

// FrameType represents an HTTP/2 frame type.
type FrameType uint8

// Frame types from RFC 7540, Section 6. Only the types a client needs for
// the opening exchange are modeled; payload interpretation exists solely for
// SETTINGS, the rest round-trip through the generic codec.
const (
	// FrameData is for DATA frames (0x0).
	FrameData FrameType = 0x0
	// FrameHeaders is for HEADERS frames (0x1).
	FrameHeaders FrameType = 0x1
	// FrameRSTStream is for RST_STREAM frames (0x3).
	FrameRSTStream FrameType = 0x3
	// FrameSettings is for SETTINGS frames (0x4).
	FrameSettings FrameType = 0x4
)

// String returns the string representation of the FrameType.
func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "DATA"
	case FrameHeaders:
		return "HEADERS"
	case FrameRSTStream:
		return "RST_STREAM"
	case FrameSettings:
		return "SETTINGS"
	default:
		return fmt.Sprintf("UNKNOWN_FRAME_TYPE_%d", uint8(t))
	}
}

// Flags represents the 8-bit flags field of an HTTP/2 frame. Which bits are
// meaningful depends on the frame type.
type Flags uint8

// Frame header flags. ACK and END_STREAM share bit 0; they are distinguished
// by the type of the frame that carries them.
const (
	// FlagEndStream indicates that a DATA or HEADERS frame is the last the
	// sender will send on the identified stream.
	FlagEndStream Flags = 0x1
	// FlagAck indicates that a SETTINGS frame acknowledges receipt and
	// application of the peer's SETTINGS frame.
	FlagAck Flags = 0x1
	// FlagEndHeaders indicates that a HEADERS frame contains an entire
	// header block and is not followed by CONTINUATION frames.
	FlagEndHeaders Flags = 0x4
	// FlagPadded indicates that a DATA or HEADERS frame is padded.
	FlagPadded Flags = 0x8
	// FlagPriority indicates that a HEADERS frame includes the Exclusive
	// flag, Stream Dependency and Weight fields.
	FlagPriority Flags = 0x20
)

// Has reports whether all bits in mask are set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// legalFlags maps each frame type to the union of flag bits that type
// defines (RFC 7540, Section 6). Bits outside the set are illegal to send
// and are silently masked out on receipt, mirroring the rule that flags
// without defined semantics for a frame type must be ignored.
var legalFlags = map[FrameType]Flags{
	FrameData:      FlagEndStream | FlagPadded,
	FrameHeaders:   FlagEndStream | FlagEndHeaders | FlagPadded | FlagPriority,
	FrameRSTStream: 0,
	FrameSettings:  FlagAck,
}

// flagsLegalFor reports whether every bit in flags is defined for the given
// frame type.
func flagsLegalFor(flags Flags, t FrameType) bool {
	return flags&^legalFlags[t] == 0
}

// Frame is one unit of wire exchange: the 9-octet header fields plus the raw
// payload (RFC 7540, Section 4.1). A Frame is a transient value: it is built
// fresh per encode or decode call and never mutated afterwards.
type Frame struct {
	// Length is the declared payload length. It always equals len(Payload)
	// for frames built through NewFrame or DeserializeFrame.
	Length uint32
	Type   FrameType
	Flags  Flags
	// StreamID identifies the stream the frame belongs to; 0 is the
	// connection-level scope. The reserved high bit is never set.
	StreamID uint32
	Payload  []byte
}

// NewFrame builds a Frame from its parts, validating the field bounds and
// the flag legality for the frame type. It returns a FormatError naming the
// violated constraint, if any.
func NewFrame(ftype FrameType, flags Flags, streamID uint32, payload []byte) (Frame, error) {
	f := Frame{
		Length:   uint32(len(payload)),
		Type:     ftype,
		Flags:    flags,
		StreamID: streamID,
		Payload:  payload,
	}
	if err := f.validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// validate checks the constraints NewFrame enforces. Serialize re-runs it so
// a Frame assembled or mutated outside NewFrame cannot produce malformed
// bytes.
func (f Frame) validate() error {
	if _, known := legalFlags[f.Type]; !known {
		return NewFormatError("type", "unrecognized frame type code 0x%x", uint8(f.Type))
	}
	if uint64(len(f.Payload)) > uint64(MaxFramePayloadLen) {
		return NewFormatError("length", "payload length %d exceeds 24-bit maximum %d", len(f.Payload), MaxFramePayloadLen)
	}
	if f.Length != uint32(len(f.Payload)) {
		return NewFormatError("length", "declared length %d does not match payload length %d", f.Length, len(f.Payload))
	}
	if f.StreamID > MaxStreamID {
		return NewFormatError("stream_id", "stream id %d exceeds 31-bit maximum %d", f.StreamID, MaxStreamID)
	}
	if !flagsLegalFor(f.Flags, f.Type) {
		return NewFormatError("flags", "flags 0x%x contain bits not defined for %s frames", uint8(f.Flags), f.Type)
	}
	return nil
}

// Serialize converts the frame to its canonical wire representation:
//
//	+-----------------------------------------------+
//	|                 Length (24)                   |
//	+---------------+---------------+---------------+
//	|   Type (8)    |   Flags (8)   |
//	+-+-------------+---------------+-------------------------------+
//	|R|                 Stream Identifier (31)                      |
//	+=+=============================================================+
//	|                   Frame Payload (0...)                      ...
//	+---------------------------------------------------------------+
//
// All multi-byte fields are big-endian and the reserved bit is written as 0.
// On success the result is exactly FrameHeaderLen+Length bytes.
func (f Frame) Serialize() ([]byte, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, FrameHeaderLen+len(f.Payload))
	buf[0] = byte(f.Length >> 16)
	buf[1] = byte(f.Length >> 8)
	buf[2] = byte(f.Length)
	buf[3] = byte(f.Type)
	buf[4] = byte(f.Flags)
	binary.BigEndian.PutUint32(buf[5:9], f.StreamID&MaxStreamID)
	copy(buf[FrameHeaderLen:], f.Payload)
	return buf, nil
}

// DeserializeFrame decodes the next frame from data and returns it together
// with the unconsumed remainder, so back-to-back frames in one buffer can be
// extracted incrementally.
//
// If data holds fewer bytes than a complete frame (header plus declared
// payload), it returns a TruncatedInputError; the caller should read more
// bytes and retry. An unrecognized frame type code is a FormatError. Flag
// bits not defined for the decoded type are dropped, and the reserved bit of
// the stream id field is ignored.
func DeserializeFrame(data []byte) (Frame, []byte, error) {
	if len(data) < FrameHeaderLen {
		return Frame{}, nil, NewTruncatedInputError(FrameHeaderLen, len(data))
	}

	length := uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
	ftype := FrameType(data[3])
	switch ftype {
	case FrameData, FrameHeaders, FrameRSTStream, FrameSettings:
	default:
		return Frame{}, nil, NewFormatError("type", "unrecognized frame type code 0x%x", data[3])
	}
	flags := Flags(data[4]) & legalFlags[ftype]
	streamID := binary.BigEndian.Uint32(data[5:9]) & MaxStreamID

	total := FrameHeaderLen + int(length)
	if len(data) < total {
		return Frame{}, nil, NewTruncatedInputError(total, len(data))
	}

	f := Frame{
		Length:   length,
		Type:     ftype,
		Flags:    flags,
		StreamID: streamID,
		Payload:  data[FrameHeaderLen:total],
	}
	return f, data[total:], nil
}
