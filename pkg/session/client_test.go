package session

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/storygear/storygear/pkg/audio/pcm"
	"github.com/storygear/storygear/pkg/capture"
	"github.com/storygear/storygear/pkg/playback"
	"github.com/storygear/storygear/pkg/storywire"
)

// testSink records rendered playback bytes.
type testSink struct {
	mu  sync.Mutex
	buf []byte
}

func (s *testSink) WriteBytes(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *testSink) Close() error { return nil }

func (s *testSink) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf...)
}

func newTestScheduler() (*playback.Scheduler, *testSink) {
	sink := &testSink{}
	s := playback.NewScheduler(pcm.L16Mono24K, func() (playback.Sink, error) {
		return sink, nil
	})
	return s, sink
}

// fakeMic feeds scripted float32 frames into press-to-talk capture.
type fakeMic struct {
	frames    chan []float32
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeMic() *fakeMic {
	return &fakeMic{frames: make(chan []float32, 16), closed: make(chan struct{})}
}

func (m *fakeMic) ReadFloats(buf []float32) (int, error) {
	select {
	case f := <-m.frames:
		return copy(buf, f), nil
	case <-m.closed:
		return 0, io.EOF
	}
}

func (m *fakeMic) SampleRate() int { return 16000 }

func (m *fakeMic) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

// testPeer is a websocket server handing its accepted connection to
// the test.
type testPeer struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func newTestPeer(t *testing.T) *testPeer {
	t.Helper()
	p := &testPeer{conns: make(chan *websocket.Conn, 1)}
	upgrader := websocket.Upgrader{}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		p.conns <- conn
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *testPeer) url() string {
	return "ws" + strings.TrimPrefix(p.srv.URL, "http")
}

func (p *testPeer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-p.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
		return nil
	}
}

func sendFrame(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	frame, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatal(err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("peer read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(frame, &m); err != nil {
		t.Fatalf("peer frame %q: %v", frame, err)
	}
	return m
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDialRoutesIncomingFrames(t *testing.T) {
	peer := newTestPeer(t)
	sched, sink := newTestScheduler()

	var mu sync.Mutex
	var statuses, peerErrs []string
	c := New(peer.url(), sched, nil,
		WithStatusFunc(func(s string) {
			mu.Lock()
			statuses = append(statuses, s)
			mu.Unlock()
		}),
		WithPeerErrorFunc(func(s string) {
			mu.Lock()
			peerErrs = append(peerErrs, s)
			mu.Unlock()
		}))

	if err := c.Dial(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	conn := peer.accept(t)

	audio := make([]byte, 480)
	for i := range audio {
		audio[i] = byte(i)
	}
	seq := 0
	sendFrame(t, conn, storywire.Message{Type: storywire.TypeStatus, Data: "thinking"})
	sendFrame(t, conn, storywire.Message{Type: storywire.TypeText, Data: "Once upon"})
	sendFrame(t, conn, storywire.Message{Type: storywire.TypeText, Data: " a time"})
	sendFrame(t, conn, storywire.Message{
		Type:     storywire.TypeImage,
		Data:     base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'}),
		MimeType: "image/png",
	})
	sendFrame(t, conn, storywire.Message{
		Type:     storywire.TypeAudio,
		Data:     base64.StdEncoding.EncodeToString(audio),
		MimeType: "audio/pcm;rate=24000",
		Sequence: &seq,
	})
	sendFrame(t, conn, storywire.Message{Type: storywire.TypeError, Data: "backend hiccup"})

	waitFor(t, "peer error routed", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(peerErrs) == 1
	})
	waitFor(t, "audio rendered", func() bool { return len(sink.bytes()) == len(audio) })

	mu.Lock()
	if len(statuses) != 1 || statuses[0] != "thinking" {
		t.Errorf("statuses = %v", statuses)
	}
	if peerErrs[0] != "backend hiccup" {
		t.Errorf("peer errors = %v", peerErrs)
	}
	mu.Unlock()

	units := c.Story().Units()
	if len(units) != 2 {
		t.Fatalf("got %d story units, want 2", len(units))
	}
	if units[0].Kind != UnitText || units[0].Text != "Once upon a time" {
		t.Errorf("unit 0 = %+v", units[0])
	}
	if units[1].Kind != UnitImage || units[1].MimeType != "image/png" {
		t.Errorf("unit 1 = %+v", units[1])
	}
}

func TestMalformedFrameIsDroppedNotFatal(t *testing.T) {
	peer := newTestPeer(t)
	sched, _ := newTestScheduler()

	var mu sync.Mutex
	var protoErrs []error
	c := New(peer.url(), sched, nil,
		WithProtocolErrorFunc(func(err error) {
			mu.Lock()
			protoErrs = append(protoErrs, err)
			mu.Unlock()
		}))

	if err := c.Dial(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	conn := peer.accept(t)

	// Audio without a sequence number is a protocol violation.
	sendFrame(t, conn, map[string]any{"type": "audio", "data": "AAAA"})
	sendFrame(t, conn, storywire.Message{Type: storywire.TypeText, Data: "still here"})

	waitFor(t, "text after bad frame", func() bool { return c.Story().Len() == 1 })

	mu.Lock()
	defer mu.Unlock()
	if len(protoErrs) != 1 {
		t.Fatalf("got %d protocol errors, want 1: %v", len(protoErrs), protoErrs)
	}
	var de *storywire.DecodeError
	if !errors.As(protoErrs[0], &de) {
		t.Errorf("protocol error = %v, want *storywire.DecodeError", protoErrs[0])
	}
	if c.State() != StateConnected {
		t.Errorf("State = %v after dropped frame, want connected", c.State())
	}
}

func TestInterruptClearsPlaybackThenNotifiesPeer(t *testing.T) {
	peer := newTestPeer(t)
	sched, _ := newTestScheduler()
	c := New(peer.url(), sched, nil)

	if err := c.Dial(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	conn := peer.accept(t)

	// A second of queued audio that barge-in must discard.
	sched.Enqueue(0, make([]byte, pcm.L16Mono24K.BytesRate()))
	sched.Enqueue(1, make([]byte, pcm.L16Mono24K.BytesRate()))

	if err := c.Interrupt(); err != nil {
		t.Fatal(err)
	}

	// The local queue is empty by the time Interrupt returns.
	if got := sched.Pending(); got != 0 {
		t.Errorf("Pending = %d after Interrupt, want 0", got)
	}
	if got := sched.State(); got != playback.Idle {
		t.Errorf("scheduler state = %v after Interrupt, want idle", got)
	}
	if m := readFrame(t, conn); m["type"] != "interrupt" {
		t.Errorf("peer received %v, want interrupt", m)
	}
}

func TestStartTalkingBargesInThenStreams(t *testing.T) {
	peer := newTestPeer(t)
	sched, _ := newTestScheduler()
	mic := newFakeMic()
	open := func(capture.Options) (capture.Source, error) { return mic, nil }

	c := New(peer.url(), sched, open)
	if err := c.Dial(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	conn := peer.accept(t)

	if err := c.StartTalking(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !c.Talking() {
		t.Error("Talking() = false after StartTalking")
	}
	mic.frames <- []float32{0.5, -0.5}

	if m := readFrame(t, conn); m["type"] != "interrupt" {
		t.Fatalf("first peer frame = %v, want interrupt", m)
	}

	m := readFrame(t, conn)
	if m["type"] != "audio" {
		t.Fatalf("second peer frame = %v, want audio", m)
	}
	if m["mime_type"] != "audio/pcm;rate=16000" {
		t.Errorf("mime_type = %v", m["mime_type"])
	}
	raw, err := base64.StdEncoding.DecodeString(m["data"].(string))
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{16383, -16384}
	if len(raw) != len(want)*2 {
		t.Fatalf("audio payload is %d bytes, want %d", len(raw), len(want)*2)
	}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(raw[i*2:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}

	if err := c.StopTalking(); err != nil {
		t.Fatal(err)
	}
	if c.Talking() {
		t.Error("Talking() = true after StopTalking")
	}
	if err := c.StopTalking(); err != nil {
		t.Errorf("second StopTalking: %v", err)
	}
}

func TestStartTalkingWhileTalkingIsNoop(t *testing.T) {
	peer := newTestPeer(t)
	sched, _ := newTestScheduler()
	mic := newFakeMic()
	var opens int
	open := func(capture.Options) (capture.Source, error) {
		opens++
		return mic, nil
	}

	c := New(peer.url(), sched, open)
	if err := c.Dial(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	peer.accept(t)

	if err := c.StartTalking(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.StartTalking(context.Background()); err != nil {
		t.Fatal(err)
	}
	if opens != 1 {
		t.Errorf("mic opened %d times, want 1", opens)
	}
}

func TestPeerCloseTransitionsToDisconnected(t *testing.T) {
	peer := newTestPeer(t)
	sched, _ := newTestScheduler()

	var mu sync.Mutex
	var states []ConnState
	c := New(peer.url(), sched, nil,
		WithStateFunc(func(s ConnState) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		}))

	if err := c.Dial(context.Background()); err != nil {
		t.Fatal(err)
	}
	conn := peer.accept(t)

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	conn.Close()

	waitFor(t, "disconnected state", func() bool { return c.State() == StateDisconnected })

	mu.Lock()
	defer mu.Unlock()
	want := []ConnState{StateConnecting, StateConnected, StateDisconnected}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
}

func TestAbruptPeerFailureTransitionsToError(t *testing.T) {
	peer := newTestPeer(t)
	sched, _ := newTestScheduler()
	c := New(peer.url(), sched, nil)

	if err := c.Dial(context.Background()); err != nil {
		t.Fatal(err)
	}
	conn := peer.accept(t)

	// Kill the TCP stream without a close handshake.
	conn.UnderlyingConn().Close()

	waitFor(t, "error state", func() bool { return c.State() == StateError })
}

func TestSendBeforeDialFails(t *testing.T) {
	sched, _ := newTestScheduler()
	c := New("ws://127.0.0.1:0", sched, nil)

	if err := c.SendText("hello"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendText = %v, want ErrNotConnected", err)
	}
}

func TestDialFailureSetsErrorState(t *testing.T) {
	sched, _ := newTestScheduler()
	c := New("ws://127.0.0.1:1", sched, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Dial(ctx); err == nil {
		t.Fatal("Dial succeeded against a dead endpoint")
	}
	if got := c.State(); got != StateError {
		t.Errorf("State = %v after failed Dial, want error", got)
	}
}
