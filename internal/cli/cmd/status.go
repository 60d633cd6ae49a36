package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dustpile/fresco/internal/cli/cmd/utils"
	"github.com/dustpile/fresco/internal/ipc"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get fresco status",
		Long:  `Returns the daemon's outputs, current wallpapers and cache occupancy.`,
		Run: func(cmd *cobra.Command, args []string) {
			response, err := ipc.Status()
			if err != nil {
				log.Fatalf("fresco is not running: %v", err)
			}

			utils.PrintJSONColored(response)
		},
	}
}
