// Package conn drives the client side of the HTTP/2 connection handshake:
// transport setup, connection preface and the opening SETTINGS exchange
// (RFC 7540, Section 3.5).
package conn

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/angelsolaorbaiceta/h2cli/internal/http2"
	"github.com/angelsolaorbaiceta/h2cli/internal/util"
)

// readChunkSize is how many bytes RecvFrame asks the transport for per read.
const readChunkSize = 4096

// State is the handshake progress of a Conn. Transitions are strictly
// linear; only Closed, which is terminal, is reachable from every state.
type State int

const (
	StateDisconnected State = iota
	StateTransportReady
	StatePrefaceSent
	StateConnected
	StateClosed
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateTransportReady:
		return "transport-ready"
	case StatePrefaceSent:
		return "preface-sent"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown-state-%d", int(s))
	}
}

// Conn models exactly one end-to-end handshake session with an HTTP/2
// server. It is not safe for concurrent use: the handshake is a strictly
// ordered, blocking sequence and the receive buffer is owned by the single
// calling goroutine.
type Conn struct {
	host string
	port int

	transport io.ReadWriteCloser
	// recvBuf accumulates raw transport bytes until a complete frame can be
	// extracted; the unconsumed remainder carries over between reads.
	recvBuf []byte
	state   State

	settings       []http2.Setting
	serverSettings map[http2.SettingID]uint32

	tlsConfig   *tls.Config
	dialTimeout time.Duration
	log         zerolog.Logger
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Conn) { c.log = log }
}

// WithSettings replaces the parameters advertised in the client's opening
// SETTINGS frame. The default is http2.DefaultSettings().
func WithSettings(settings []http2.Setting) Option {
	return func(c *Conn) { c.settings = settings }
}

// WithTLSConfig sets the TLS client configuration. Connect clones it and
// forces ALPN to offer only "h2", so the dial fails against servers that do
// not speak HTTP/2.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Conn) { c.tlsConfig = cfg }
}

// WithDialTimeout bounds the TCP and TLS establishment. Zero means no bound.
// Frame reads are not subject to it; a caller wanting bounded waits there
// must impose deadlines on the transport.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Conn) { c.dialTimeout = d }
}

// WithTransport supplies an already-established byte-stream transport, in
// which case Connect skips the TCP/TLS dial and starts at the preface. The
// transport must be reliable, ordered, and already negotiated to speak
// HTTP/2 exclusively.
func WithTransport(t io.ReadWriteCloser) Option {
	return func(c *Conn) { c.transport = t }
}

// New creates a connection to the given target. The target is parsed per
// util.ParseTarget; nothing is dialed until Connect is called.
func New(target string, opts ...Option) (*Conn, error) {
	host, port, err := util.ParseTarget(target)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		host:  host,
		port:  port,
		state: StateDisconnected,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.settings == nil {
		c.settings = http2.DefaultSettings()
	}
	return c, nil
}

// Host returns the target hostname.
func (c *Conn) Host() string { return c.host }

// Port returns the target port.
func (c *Conn) Port() int { return c.port }

// State returns the current handshake state.
func (c *Conn) State() State { return c.state }

// ServerSettings returns a copy of the parameters the server advertised in
// its opening SETTINGS frame. It is nil before Connect succeeds.
func (c *Conn) ServerSettings() map[http2.SettingID]uint32 {
	if c.serverSettings == nil {
		return nil
	}
	settings := make(map[http2.SettingID]uint32, len(c.serverSettings))
	for id, v := range c.serverSettings {
		settings[id] = v
	}
	return settings
}

// Connect performs the full opening sequence:
//
//  1. Establish the transport (TLS over TCP with ALPN restricted to "h2"),
//     unless one was supplied with WithTransport.
//  2. Send the connection preface.
//  3. Send the client's SETTINGS frame.
//  4. Receive the server's first frame, which must be SETTINGS, and
//     acknowledge it.
//
// Any failure leaves the connection unusable; the caller must Close it. A
// Conn runs the sequence at most once.
func (c *Conn) Connect() error {
	if c.state != StateDisconnected {
		return fmt.Errorf("connect called in state %s, want %s", c.state, StateDisconnected)
	}

	if c.transport == nil {
		if err := c.dial(); err != nil {
			return err
		}
	}
	c.state = StateTransportReady

	if err := c.writeAll([]byte(http2.ClientPreface)); err != nil {
		return fmt.Errorf("sending connection preface: %w", err)
	}
	c.state = StatePrefaceSent
	c.log.Info().Msg(">>> HTTP/2 connection preface")

	if err := c.exchangeSettings(); err != nil {
		return err
	}
	c.state = StateConnected
	return nil
}

// dial establishes the encrypted transport. ALPN offers only "h2": a server
// that does not support HTTP/2 fails the handshake instead of silently
// speaking something else.
func (c *Conn) dial() error {
	addr := util.JoinHostPort(c.host, c.port)
	rawConn, err := net.DialTimeout("tcp", addr, c.dialTimeout)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	c.log.Info().Str("addr", addr).Msg("TCP connection established")

	tlsCfg := &tls.Config{}
	if c.tlsConfig != nil {
		tlsCfg = c.tlsConfig.Clone()
	}
	tlsCfg.NextProtos = []string{"h2"}
	if tlsCfg.ServerName == "" {
		tlsCfg.ServerName = c.host
	}

	tlsConn := tls.Client(rawConn, tlsCfg)
	if c.dialTimeout > 0 {
		if err := tlsConn.SetDeadline(time.Now().Add(c.dialTimeout)); err != nil {
			rawConn.Close()
			return fmt.Errorf("setting TLS handshake deadline: %w", err)
		}
	}
	if err := tlsConn.Handshake(); err != nil {
		rawConn.Close()
		return fmt.Errorf("TLS handshake with %s: %w", addr, err)
	}
	if err := tlsConn.SetDeadline(time.Time{}); err != nil {
		tlsConn.Close()
		return fmt.Errorf("clearing TLS handshake deadline: %w", err)
	}

	cs := tlsConn.ConnectionState()
	if cs.NegotiatedProtocol != "h2" {
		tlsConn.Close()
		return NewProtocolError("server did not negotiate h2 via ALPN (got %q)", cs.NegotiatedProtocol)
	}
	c.log.Info().
		Str("version", tls.VersionName(cs.Version)).
		Str("cipher_suite", tls.CipherSuiteName(cs.CipherSuite)).
		Msg("TLS handshake complete, h2 negotiated")

	c.transport = tlsConn
	return nil
}

// exchangeSettings sends the client's SETTINGS frame, receives the server's
// and acknowledges it. The first frame a server sends must be SETTINGS
// (RFC 7540, Section 3.5); anything else aborts the handshake.
func (c *Conn) exchangeSettings() error {
	clientSettings, err := http2.NewSettingsFrame(0, c.settings)
	if err != nil {
		return fmt.Errorf("building client SETTINGS frame: %w", err)
	}
	if err := c.SendFrame(clientSettings); err != nil {
		return fmt.Errorf("sending client SETTINGS frame: %w", err)
	}
	c.logSettingsEvent(">>> SETTINGS frame", settingsAsMap(c.settings))

	frame, err := c.RecvFrame()
	if err != nil {
		return fmt.Errorf("receiving server SETTINGS frame: %w", err)
	}
	if frame.Type != http2.FrameSettings {
		return NewProtocolError("expected SETTINGS as the server's first frame, got %s", frame.Type)
	}

	serverSettings, err := http2.DecodeSettings(frame)
	if err != nil {
		return fmt.Errorf("decoding server SETTINGS frame: %w", err)
	}
	c.serverSettings = serverSettings
	c.logSettingsEvent("<<< SETTINGS frame", serverSettings)

	if err := c.SendFrame(http2.NewSettingsAck()); err != nil {
		return fmt.Errorf("acknowledging server SETTINGS frame: %w", err)
	}
	c.log.Info().Msg(">>> SETTINGS frame (ACK)")
	return nil
}

// SendFrame serializes the frame and writes it to the transport.
func (c *Conn) SendFrame(frame http2.Frame) error {
	if c.transport == nil {
		return fmt.Errorf("send in state %s: no transport", c.state)
	}
	wire, err := frame.Serialize()
	if err != nil {
		return err
	}
	return c.writeAll(wire)
}

// RecvFrame reads the next frame from the connection, blocking until a
// complete frame is buffered. Bytes past the frame boundary are kept for the
// next call, so back-to-back frames and frames spanning multiple reads are
// both handled. A transport that closes mid-frame yields a
// ConnectionClosedError.
func (c *Conn) RecvFrame() (http2.Frame, error) {
	if c.transport == nil {
		return http2.Frame{}, fmt.Errorf("receive in state %s: no transport", c.state)
	}

	for {
		frame, rest, err := http2.DeserializeFrame(c.recvBuf)
		if err == nil {
			c.recvBuf = rest
			return frame, nil
		}
		var truncated *http2.TruncatedInputError
		if !errors.As(err, &truncated) {
			return http2.Frame{}, err
		}

		chunk := make([]byte, readChunkSize)
		n, readErr := c.transport.Read(chunk)
		if n > 0 {
			c.recvBuf = append(c.recvBuf, chunk[:n]...)
			continue
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return http2.Frame{}, &ConnectionClosedError{Buffered: len(c.recvBuf)}
			}
			return http2.Frame{}, fmt.Errorf("reading from transport: %w", readErr)
		}
	}
}

// Close releases the transport if present and moves to Closed. It is
// idempotent and reachable from any state.
func (c *Conn) Close() error {
	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed
	if c.transport == nil {
		return nil
	}
	err := c.transport.Close()
	c.transport = nil
	c.log.Info().Msg("connection closed")
	return err
}

func (c *Conn) writeAll(data []byte) error {
	// net.Conn writes either complete or return an error, so a single Write
	// suffices at this layer.
	if _, err := c.transport.Write(data); err != nil {
		return err
	}
	return nil
}

func (c *Conn) logSettingsEvent(msg string, settings map[http2.SettingID]uint32) {
	event := c.log.Info()
	for id, value := range settings {
		event = event.Uint32(id.String(), value)
	}
	event.Msg(msg)
}

func settingsAsMap(settings []http2.Setting) map[http2.SettingID]uint32 {
	m := make(map[http2.SettingID]uint32, len(settings))
	for _, s := range settings {
		m[s.ID] = s.Value
	}
	return m
}
