package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storygear/storygear/cmd/storygear/internal/ui"
	"github.com/storygear/storygear/pkg/audio/portaudio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input and output devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("initialize audio: %w", err)
		}
		defer portaudio.Terminate()

		devices, err := portaudio.Devices()
		if err != nil {
			return fmt.Errorf("list devices: %w", err)
		}

		styles := ui.NewStyles(ui.DefaultTheme)
		fmt.Println(styles.Title.Render("Audio devices"))
		for _, d := range devices {
			mark := " "
			if d.IsDefaultInput || d.IsDefaultOutput {
				mark = "*"
			}
			caps := ""
			if d.MaxInputChannels > 0 {
				caps += fmt.Sprintf(" in:%d", d.MaxInputChannels)
			}
			if d.MaxOutputChannels > 0 {
				caps += fmt.Sprintf(" out:%d", d.MaxOutputChannels)
			}
			fmt.Printf("%s [%2d] %s%s\n", mark, d.Index,
				styles.Label.Render(d.Name),
				styles.Help.Render(fmt.Sprintf("%s @ %.0f Hz", caps, d.DefaultSampleRate)))
		}
		fmt.Println(styles.Help.Render("* default device"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
