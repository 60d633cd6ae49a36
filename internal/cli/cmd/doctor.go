package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dustpile/fresco/internal/cli/cmd/utils"
	"github.com/dustpile/fresco/internal/ipc"
	"github.com/dustpile/fresco/internal/wayland"
)

func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment and daemon health",
		Long: `Asks the running daemon for its health report. With no daemon
running, probes the compositor directly and reports whether fresco
could run here.`,
		Run: func(cmd *cobra.Command, args []string) {
			if response, err := ipc.Doctor(); err == nil {
				utils.PrintJSONColored(response)
				return
			}

			log.Warn("Daemon is not running; probing the compositor directly")
			report := wayland.Probe()
			utils.PrintJSONColored(report)
			if len(report.Problems) > 0 {
				log.Errorf("%d problems found", len(report.Problems))
			} else {
				log.Info("Environment looks good; start the daemon with 'fresco start'")
			}
		},
	}
}
