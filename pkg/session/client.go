package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/storygear/storygear/pkg/audio/pcm"
	"github.com/storygear/storygear/pkg/capture"
	"github.com/storygear/storygear/pkg/playback"
	"github.com/storygear/storygear/pkg/storywire"
)

// ErrNotConnected reports a send attempted outside the connected state.
var ErrNotConnected = errors.New("session: not connected")

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHandshakeTimeout bounds the websocket handshake. Defaults to 10s.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) { c.handshakeTimeout = d }
}

// WithCaptureOptions sets the capture session options. The sample rate
// also selects the uplink mime type. Defaults request 16 kHz with
// echo cancellation, noise suppression, and auto gain.
func WithCaptureOptions(opts capture.Options) Option {
	return func(c *Client) { c.captureOpts = opts }
}

// WithCaptureVolumeFunc sets the callback receiving the smoothed input
// volume in [0, 1] while talking.
func WithCaptureVolumeFunc(fn func(volume float64)) Option {
	return func(c *Client) { c.captureVolumeFn = fn }
}

// WithStateFunc sets the callback observing connection state changes.
func WithStateFunc(fn func(state ConnState)) Option {
	return func(c *Client) { c.stateFn = fn }
}

// WithStoryFunc sets the callback receiving each storyboard unit as it
// is created or grows.
func WithStoryFunc(fn func(unit Unit)) Option {
	return func(c *Client) { c.storyFn = fn }
}

// WithStatusFunc sets the callback receiving peer status hints such as
// "thinking" or "drawing".
func WithStatusFunc(fn func(status string)) Option {
	return func(c *Client) { c.statusFn = fn }
}

// WithPeerErrorFunc sets the callback receiving error messages the
// peer reports in-band.
func WithPeerErrorFunc(fn func(msg string)) Option {
	return func(c *Client) { c.peerErrorFn = fn }
}

// WithProtocolErrorFunc sets the callback receiving decode failures
// for dropped frames. The connection stays open.
func WithProtocolErrorFunc(fn func(err error)) Option {
	return func(c *Client) { c.protoErrorFn = fn }
}

// Client is one story session. It owns the websocket, the storyboard,
// and the capture session; the playback scheduler is shared in so the
// caller can wire its sink and volume tap.
type Client struct {
	url       string
	sessionID string
	sched     *playback.Scheduler
	rec       *capture.Recorder
	board     *Storyboard
	logger    *slog.Logger

	handshakeTimeout time.Duration
	captureOpts      capture.Options
	captureVolumeFn  func(float64)
	uplink           pcm.Format

	stateFn      func(ConnState)
	storyFn      func(Unit)
	statusFn     func(string)
	peerErrorFn  func(string)
	protoErrorFn func(error)

	closeCh   chan struct{}
	closeOnce sync.Once

	writeMu sync.Mutex

	mu    sync.Mutex
	conn  *websocket.Conn
	state ConnState
}

// New creates a Client for the given websocket URL. Playback flows
// into sched; capture input is acquired through openSource when a
// press-to-talk session starts.
func New(url string, sched *playback.Scheduler, openSource capture.OpenSourceFunc, opts ...Option) *Client {
	c := &Client{
		url:       url,
		sessionID: "sess_" + uuid.New().String()[:12],
		sched:     sched,
		board:     &Storyboard{},
		logger:    slog.Default(),

		handshakeTimeout: 10 * time.Second,
		captureOpts: capture.Options{
			EchoCancellation: true,
			NoiseSuppression: true,
			AutoGainControl:  true,
		},
		closeCh: make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}

	if f, ok := pcm.FormatForRate(c.captureOpts.SampleRate); ok {
		c.uplink = f
	} else {
		c.uplink = pcm.L16Mono16K
	}

	c.rec = capture.NewRecorder(openSource, c.captureOpts,
		capture.WithLogger(c.logger),
		capture.WithChunkFunc(c.sendAudioChunk),
		capture.WithVolumeFunc(c.captureVolumeFn))
	return c
}

// SessionID returns the client-assigned session identifier.
func (c *Client) SessionID() string { return c.sessionID }

// Story returns the accumulated storyboard.
func (c *Client) Story() *Storyboard { return c.board }

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dial opens the websocket and starts the read loop. The connection
// uses fixed asymmetric rates (16 kHz up, 24 kHz down); nothing is
// negotiated.
func (c *Client) Dial(ctx context.Context) error {
	c.setState(StateConnecting)

	dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.url, http.Header{})
	if err != nil {
		c.setState(StateError)
		if resp != nil {
			return fmt.Errorf("session: connect %s: status %d: %w", c.url, resp.StatusCode, err)
		}
		return fmt.Errorf("session: connect %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected)
	c.logger.Info("session connected", "session_id", c.sessionID, "url", c.url)

	go c.readLoop(conn)
	return nil
}

// Close tears the session down: capture stops, playback clears, the
// websocket closes, and the state becomes disconnected. Idempotent.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		c.rec.Stop()
		c.sched.Clear()

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()
		if conn != nil {
			err = conn.Close()
		}
		c.setState(StateDisconnected)
		c.logger.Info("session closed", "session_id", c.sessionID)
	})
	return err
}

// SendText sends a user text message.
func (c *Client) SendText(text string) error {
	return c.send(storywire.Text(text))
}

// Interrupt is the barge-in operation: local playback is cleared
// first, then the interrupt frame tells the peer to stop producing.
// The order matters; audio must stop rendering even if the peer keeps
// streaming for a moment.
func (c *Client) Interrupt() error {
	c.sched.Clear()
	return c.send(storywire.Interrupt())
}

// StartTalking begins a press-to-talk turn: barge in, then start the
// capture session streaming audio chunks to the peer. A no-op if
// already talking.
func (c *Client) StartTalking(ctx context.Context) error {
	if c.rec.Recording() {
		return nil
	}
	if err := c.Interrupt(); err != nil {
		return err
	}
	return c.rec.Start(ctx)
}

// StopTalking ends the press-to-talk turn. Idempotent.
func (c *Client) StopTalking() error {
	return c.rec.Stop()
}

// Talking reports whether a capture session is open.
func (c *Client) Talking() bool {
	return c.rec.Recording()
}

func (c *Client) sendAudioChunk(chunk []byte) {
	if err := c.send(storywire.AudioChunk(chunk, c.uplink)); err != nil {
		c.logger.Warn("audio chunk dropped", "error", err)
	}
}

func (c *Client) send(m *storywire.Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	frame, err := m.Encode()
	if err != nil {
		return fmt.Errorf("session: encode %s frame: %w", m.Type, err)
	}

	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		c.logger.Debug("sending frame", "type", m.Type, "len", len(frame))
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("session: write %s frame: %w", m.Type, err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closeCh:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("peer closed session", "session_id", c.sessionID)
				c.setState(StateDisconnected)
			} else {
				c.logger.Error("session transport failed", "session_id", c.sessionID, "error", err)
				c.setState(StateError)
			}
			return
		}

		if c.logger.Enabled(context.Background(), slog.LevelDebug) {
			dump := string(frame)
			if len(dump) > 200 {
				dump = dump[:200] + "..."
			}
			c.logger.Debug("received frame", "len", len(frame), "content", dump)
		}

		m, err := storywire.Decode(frame)
		if err != nil {
			c.logger.Warn("dropping malformed frame", "error", err)
			if c.protoErrorFn != nil {
				c.protoErrorFn(err)
			}
			continue
		}
		c.dispatch(m)
	}
}

func (c *Client) dispatch(m *storywire.Message) {
	switch m.Type {
	case storywire.TypeAudio:
		c.sched.Enqueue(m.Seq, m.Audio)

	case storywire.TypeText:
		u := c.board.AppendText(m.Data)
		if c.storyFn != nil {
			c.storyFn(u)
		}

	case storywire.TypeImage:
		img, err := m.ImageBytes()
		if err != nil {
			// Decode already validated the payload.
			c.logger.Warn("dropping image frame", "error", err)
			return
		}
		u := c.board.AppendImage(img, m.MimeType)
		if c.storyFn != nil {
			c.storyFn(u)
		}

	case storywire.TypeStatus:
		if c.statusFn != nil {
			c.statusFn(m.Data)
		}

	case storywire.TypeError:
		c.logger.Warn("peer reported error", "message", m.Data)
		if c.peerErrorFn != nil {
			c.peerErrorFn(m.Data)
		}

	default:
		// Interrupt is client-to-peer only; anything else was already
		// rejected by Decode.
		c.logger.Debug("ignoring frame", "type", m.Type)
	}
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	if c.stateFn != nil {
		c.stateFn(s)
	}
}
