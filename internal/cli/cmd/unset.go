package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dustpile/fresco/internal/spec"
)

func NewUnsetCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "unset",
		Short: "Clear the wallpaper",
		Long:  `Clears the wallpaper to black on all outputs, or one output with --output.`,
		Run: func(cmd *cobra.Command, args []string) {
			tr, output, err := transitionFromFlags(cmd, "colour_duration_ms")
			if err != nil {
				log.Fatalf("%v", err)
			}

			submit(spec.Unset(output, tr))
		},
	}
	addTransitionFlags(c)
	return c
}
