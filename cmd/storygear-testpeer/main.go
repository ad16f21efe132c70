// Package main is a scripted story peer for local development.
//
// It serves the story websocket protocol and answers every user turn
// (text, or a pause after streamed audio) with a canned story:
// status hints, text deltas, an illustration, and paced 24 kHz PCM16
// audio chunks carrying the shared sequence counter. An interrupt
// frame aborts the story mid-stream, like the real backend.
//
// Usage:
//
//	storygear-testpeer [-addr :8000] [-path /ws] [-chunk-ms 250] [-v]
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/storygear/storygear/pkg/audio/pcm"
	"github.com/storygear/storygear/pkg/storywire"
)

var (
	addr    = flag.String("addr", ":8000", "listen address")
	path    = flag.String("path", "/ws", "websocket path")
	chunkMS = flag.Int("chunk-ms", 250, "audio chunk duration in milliseconds")
	verbose = flag.Bool("v", false, "verbose output")
)

const storyText = "Once upon a time, a small fox found a lantern in the snow. " +
	"The lantern hummed with a warm golden light, and wherever the fox " +
	"carried it, the winter woods woke up and listened."

// turnGap is how long after the last audio chunk a voice turn is
// considered finished.
const turnGap = 700 * time.Millisecond

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: level})))

	http.HandleFunc(*path, handle)
	slog.Info("test peer listening", "addr", *addr, "path", *path)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("upgrade failed", "error", err)
		return
	}
	s := &peerSession{
		conn:   conn,
		logger: slog.Default().With("remote", conn.RemoteAddr().String()),
	}
	s.logger.Info("client connected")
	s.run()
	s.logger.Info("client gone")
}

// peerSession serves one client connection.
type peerSession struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	// seq is the shared monotonic sequence stamped on story chunks.
	seqMu sync.Mutex
	seq   int

	// story tracks the in-flight story so a new turn or an interrupt
	// can abort it.
	storyMu     sync.Mutex
	storyCancel context.CancelFunc

	// turn tracks streamed voice input; the turn timer fires after the
	// client goes quiet.
	turnMu    sync.Mutex
	turnBytes int
	turnTimer *time.Timer
}

func (s *peerSession) run() {
	defer s.conn.Close()
	defer s.stopStory()

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		m, err := storywire.Decode(frame)
		if err != nil {
			s.logger.Warn("dropping malformed frame", "error", err)
			s.send(&storywire.Message{Type: storywire.TypeError, Data: err.Error()})
			continue
		}

		switch m.Type {
		case storywire.TypeText:
			s.logger.Info("text turn", "text", m.Data)
			s.startStory(fmt.Sprintf("You said: %q. ", m.Data))

		case storywire.TypeAudio:
			s.logger.Debug("audio chunk", "bytes", len(m.Audio))
			s.voiceChunk(len(m.Audio))

		case storywire.TypeInterrupt:
			s.logger.Info("interrupted")
			s.stopStory()

		default:
			s.logger.Debug("ignoring frame", "type", m.Type)
		}
	}
}

// voiceChunk accumulates a voice turn and (re)arms the end-of-turn
// timer. Streaming input implicitly interrupts the current story.
func (s *peerSession) voiceChunk(n int) {
	s.stopStory()

	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	s.turnBytes += n
	if s.turnTimer == nil {
		s.turnTimer = time.AfterFunc(turnGap, s.endVoiceTurn)
		return
	}
	s.turnTimer.Reset(turnGap)
}

func (s *peerSession) endVoiceTurn() {
	s.turnMu.Lock()
	total := s.turnBytes
	s.turnBytes = 0
	s.turnTimer = nil
	s.turnMu.Unlock()

	if total == 0 {
		return
	}
	dur := pcm.L16Mono16K.Duration(int64(total))
	s.logger.Info("voice turn ended", "bytes", total, "duration", dur)
	s.startStory(fmt.Sprintf("I heard %.1f seconds of you. ", dur.Seconds()))
}

func (s *peerSession) startStory(prefix string) {
	s.stopStory()

	ctx, cancel := context.WithCancel(context.Background())
	s.storyMu.Lock()
	s.storyCancel = cancel
	s.storyMu.Unlock()

	go s.tellStory(ctx, prefix)
}

func (s *peerSession) stopStory() {
	s.storyMu.Lock()
	if s.storyCancel != nil {
		s.storyCancel()
		s.storyCancel = nil
	}
	s.storyMu.Unlock()
}

// tellStory streams the scripted story: status, text deltas, an
// illustration, then paced audio. Every step checks ctx so an
// interrupt stops the stream mid-flight.
func (s *peerSession) tellStory(ctx context.Context, prefix string) {
	s.send(&storywire.Message{Type: storywire.TypeStatus, Data: "thinking"})
	if !pace(ctx, 300*time.Millisecond) {
		return
	}

	for _, word := range strings.SplitAfter(prefix+storyText, " ") {
		if word == "" {
			continue
		}
		s.send(&storywire.Message{Type: storywire.TypeText, Data: word, Sequence: s.nextSeq()})
		if !pace(ctx, 40*time.Millisecond) {
			return
		}
	}

	s.send(&storywire.Message{Type: storywire.TypeStatus, Data: "drawing"})
	img, err := illustration()
	if err != nil {
		s.logger.Error("render illustration", "error", err)
	} else {
		s.sendImage(img)
	}
	if !pace(ctx, 200*time.Millisecond) {
		return
	}

	s.send(&storywire.Message{Type: storywire.TypeStatus, Data: "speaking"})
	s.streamNarration(ctx)

	if ctx.Err() == nil {
		s.send(&storywire.Message{Type: storywire.TypeStatus, Data: "done"})
	}
}

// streamNarration sends ~3s of 24 kHz sine narration in chunk-ms
// chunks, paced at realtime so barge-in is observable.
func (s *peerSession) streamNarration(ctx context.Context) {
	format := pcm.L16Mono24K
	chunkDur := time.Duration(*chunkMS) * time.Millisecond
	samplesPerChunk := int(format.SamplesInDuration(chunkDur))
	chunks := int(3 * time.Second / chunkDur)

	phase := 0.0
	samples := make([]float32, samplesPerChunk)
	buf := make([]byte, samplesPerChunk*2)

	ticker := time.NewTicker(chunkDur)
	defer ticker.Stop()

	for i := 0; i < chunks; i++ {
		// Warbling tone, so playback gaps are audible.
		freq := 220.0 + 110.0*math.Sin(2*math.Pi*float64(i)/8)
		step := 2 * math.Pi * freq / float64(format.SampleRate())
		for j := range samples {
			samples[j] = float32(0.3 * math.Sin(phase))
			phase += step
		}
		msg := storywire.AudioChunk(pcm.EncodeFloat32(buf, samples), format)
		msg.Sequence = s.nextSeq()
		s.send(msg)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *peerSession) sendImage(data []byte) {
	s.send(&storywire.Message{
		Type:     storywire.TypeImage,
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: "image/png",
		Sequence: s.nextSeq(),
	})
}

func (s *peerSession) nextSeq() *int {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	n := s.seq
	s.seq++
	return &n
}

func (s *peerSession) send(m *storywire.Message) {
	frame, err := m.Encode()
	if err != nil {
		s.logger.Error("encode frame", "type", m.Type, "error", err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		s.logger.Debug("write failed", "error", err)
	}
}

// pace sleeps for d unless the story is cancelled first.
func pace(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// illustration renders a small gradient PNG.
func illustration() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(4 * x),
				G: uint8(255 - 4*y),
				B: 0x9f,
				A: 0xff,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
