package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"

	"github.com/storygear/storygear/cmd/storygear/internal/ui"
	"github.com/storygear/storygear/pkg/audio/pcm"
	"github.com/storygear/storygear/pkg/audio/portaudio"
	"github.com/storygear/storygear/pkg/capture"
	"github.com/storygear/storygear/pkg/playback"
	"github.com/storygear/storygear/pkg/session"
)

var talkURL string

var talkCmd = &cobra.Command{
	Use:   "talk",
	Short: "Start an interactive story session",
	Long: `Connect to a story peer and hold a voice conversation.

Type a message and press enter to send it as text. Commands:
  /talk   start speaking (barges in on playback)
  /done   finish speaking
  /stop   interrupt the current story
  /quit   leave the session`,
	RunE: runTalk,
}

func init() {
	talkCmd.Flags().StringVar(&talkURL, "url", "", "story peer websocket url (overrides config)")
	rootCmd.AddCommand(talkCmd)
}

// talkView serializes terminal output from the session callbacks and
// tracks how much of the current text unit is already printed.
type talkView struct {
	styles ui.Styles

	mu       sync.Mutex
	printed  int
	metering bool
}

func (v *talkView) status(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.endMeter()
	fmt.Println(v.styles.Status.Render("· " + s))
}

func (v *talkView) unit(u session.Unit) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.endMeter()
	switch u.Kind {
	case session.UnitText:
		if len(u.Text) > v.printed {
			fmt.Print(v.styles.Story.Render(u.Text[v.printed:]))
			v.printed = len(u.Text)
		}
	case session.UnitImage:
		fmt.Println()
		fmt.Println(v.styles.Image.Render(ui.ImageNote(u.MimeType, len(u.Image))))
		v.printed = 0
	}
}

func (v *talkView) peerError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.endMeter()
	fmt.Println(v.styles.Error.Render("peer error: " + msg))
}

func (v *talkView) state(s session.ConnState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.endMeter()
	fmt.Println(v.styles.Help.Render("(" + s.String() + ")"))
}

func (v *talkView) meter(vol float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.metering = true
	fmt.Printf("\r%s %s", v.styles.Label.Render("mic"),
		v.styles.Meter.Render(ui.VolumeBar(vol, 24)))
}

// endMeter terminates an in-progress meter line. Caller holds mu.
func (v *talkView) endMeter() {
	if v.metering {
		fmt.Println()
		v.metering = false
	}
}

func (v *talkView) help(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Println(v.styles.Help.Render(s))
}

func runTalk(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	url := cfg.Server.URL
	if talkURL != "" {
		url = talkURL
	}

	playFormat, ok := pcm.FormatForRate(cfg.Playback.SampleRate)
	if !ok {
		return fmt.Errorf("unsupported playback sample rate %d", cfg.Playback.SampleRate)
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize audio: %w", err)
	}
	defer portaudio.Terminate()

	view := &talkView{styles: ui.NewStyles(ui.DefaultTheme)}

	sched := playback.NewScheduler(playFormat,
		func() (playback.Sink, error) {
			return portaudio.NewOutputStream(playFormat, cfg.Playback.BufferDuration())
		})

	openSource := func(o capture.Options) (capture.Source, error) {
		return portaudio.NewInputStream(o.SampleRate, o.BufferDuration)
	}

	client := session.New(url, sched, openSource,
		session.WithCaptureOptions(capture.Options{
			SampleRate:       cfg.Capture.SampleRate,
			BufferDuration:   cfg.Capture.BufferDuration(),
			EchoCancellation: cfg.Capture.EchoCancellation,
			NoiseSuppression: cfg.Capture.NoiseSuppression,
			AutoGainControl:  cfg.Capture.AutoGainControl,
		}),
		session.WithCaptureVolumeFunc(view.meter),
		session.WithStoryFunc(view.unit),
		session.WithStatusFunc(view.status),
		session.WithPeerErrorFunc(view.peerError),
		session.WithStateFunc(view.state))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := client.Dial(ctx); err != nil {
		return err
	}
	defer client.Close()

	if err := sched.Unlock(); err != nil {
		slog.Warn("output device not ready, will retry on first chunk", "error", err)
	}

	view.help("connected to " + url)
	view.help("/talk to speak, /done to finish, /stop to interrupt, /quit to leave")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := handleTalkLine(ctx, client, view, line); err != nil {
				if err == errQuit {
					return nil
				}
				view.peerError(err.Error())
			}
		}
	}
}

var errQuit = fmt.Errorf("quit")

func handleTalkLine(ctx context.Context, client *session.Client, view *talkView, line string) error {
	switch line {
	case "":
		return nil
	case "/quit":
		return errQuit
	case "/talk":
		return client.StartTalking(ctx)
	case "/done":
		view.mu.Lock()
		view.endMeter()
		view.mu.Unlock()
		return client.StopTalking()
	case "/stop":
		return client.Interrupt()
	default:
		return client.SendText(line)
	}
}
