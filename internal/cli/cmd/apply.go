package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dustpile/fresco/internal/ipc"
	"github.com/dustpile/fresco/internal/spec"
)

// addTransitionFlags registers the flags shared by every wallpaper-changing
// subcommand.
func addTransitionFlags(c *cobra.Command) {
	c.Flags().StringP("transition", "t", "none", "Transition kind (none|fade|wipe)")
	c.Flags().Int("duration", -1, "Transition duration in milliseconds (default from config)")
	c.Flags().String("from", "left", "Wipe origin (left|right)")
	c.Flags().StringP("output", "o", "", "Target a single output by name (default all)")
}

// transitionFromFlags resolves the shared flags. An unset duration falls
// back to the named config key, so the defaults stay in fresco.toml.
func transitionFromFlags(c *cobra.Command, durationKey string) (spec.TransitionSpec, string, error) {
	kindStr, _ := c.Flags().GetString("transition")
	kind, err := spec.ParseTransition(kindStr)
	if err != nil {
		return spec.TransitionSpec{}, "", err
	}

	duration, _ := c.Flags().GetInt("duration")
	if duration < 0 {
		duration = viper.GetInt(durationKey)
	}

	dirStr, _ := c.Flags().GetString("from")
	dir, err := spec.ParseDirection(dirStr)
	if err != nil {
		return spec.TransitionSpec{}, "", err
	}

	output, _ := c.Flags().GetString("output")
	return spec.TransitionSpec{Kind: kind, Duration: duration, From: dir}, output, nil
}

// submit sends the spec to the daemon and reports each output's outcome.
func submit(s spec.Spec) {
	resp, err := ipc.Apply(s)
	if err != nil {
		log.Fatalf("Is the daemon running? %v", err)
	}

	failed := false
	for _, r := range resp.Results {
		if r.OK {
			log.Infof("%s: ok", r.Output)
		} else {
			log.Errorf("%s: %s", r.Output, r.Error)
			failed = true
		}
	}
	if len(resp.Results) == 0 {
		log.Warn("No outputs are connected; the wallpaper will apply when one appears")
	}
	if failed {
		os.Exit(1)
	}
}
