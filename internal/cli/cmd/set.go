package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dustpile/fresco/internal/paths"
	"github.com/dustpile/fresco/internal/spec"
)

func NewSetCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "set [image]",
		Short: "Set an image as the wallpaper",
		Long: `Sets an image wallpaper on all outputs, or one output with
--output. Bare filenames are searched through the directories in
$FRESCO_DIRS before the usual picture locations.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path, err := paths.ResolveImage(args[0])
			if err != nil {
				log.Fatalf("%v", err)
			}

			modeStr, _ := cmd.Flags().GetString("mode")
			mode, err := spec.ParseMode(modeStr)
			if err != nil {
				log.Fatalf("%v", err)
			}

			bgStr, _ := cmd.Flags().GetString("bg")
			bg, err := spec.ParseRGB(bgStr)
			if err != nil {
				log.Fatalf("%v", err)
			}

			tr, output, err := transitionFromFlags(cmd, "image_duration_ms")
			if err != nil {
				log.Fatalf("%v", err)
			}

			submit(spec.Image(path, mode, bg, output, tr))
		},
	}
	c.Flags().StringP("mode", "m", "fill", "Scaling mode (fill|fit|stretch|center|tile)")
	c.Flags().String("bg", "#000000", "Letterbox background colour")
	addTransitionFlags(c)
	return c
}
