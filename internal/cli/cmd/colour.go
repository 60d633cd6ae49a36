package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dustpile/fresco/internal/spec"
)

func NewColourCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "colour [#rrggbb]",
		Aliases: []string{"color"},
		Short:   "Set a solid colour as the wallpaper",
		Long: `Fills outputs with a solid colour. Accepts #rgb, #rrggbb and
#rrggbbaa hex notation; any alpha component is ignored.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			colour, err := spec.ParseRGB(args[0])
			if err != nil {
				log.Fatalf("%v", err)
			}

			tr, output, err := transitionFromFlags(cmd, "colour_duration_ms")
			if err != nil {
				log.Fatalf("%v", err)
			}

			submit(spec.Colour(colour, output, tr))
		},
	}
	addTransitionFlags(c)
	return c
}
