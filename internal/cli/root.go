package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dustpile/fresco"
	"github.com/dustpile/fresco/internal/cli/cmd"
	"github.com/dustpile/fresco/internal/cli/cmd/utils"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fresco",
	Short: "A Wayland wallpaper daemon with smooth transitions",
	Long: `Fresco paints wallpapers onto every output of a wlroots compositor
through the layer-shell protocol, with timed fade and wipe transitions.
The daemon is driven over a unix socket by the same binary's subcommands.`,
	Run: func(c *cobra.Command, args []string) {
		if v, err := c.Flags().GetBool("show-config"); err == nil && v {
			log.Infof("Using config file: %v", viper.ConfigFileUsed())
			utils.PrintJSONColored(viper.AllSettings())
			return
		}

		if v, err := c.Flags().GetBool("installconfig"); err == nil && v {
			utils.InstallDefaultConfig()
			return
		}

		babyBlue := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
		green := lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
		if v, err := c.Flags().GetBool("version"); err == nil && v {
			log.Infof("%v version %v",
				babyBlue.Render("fresco"),
				green.Render(strings.Trim(fresco.Version, "\n\r ")))
			return
		}

		c.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cfgFile string

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/fresco/fresco.toml)")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	rootCmd.PersistentFlags().BoolP("installconfig", "i", false, "Install a default config file")
	rootCmd.PersistentFlags().Bool("show-config", false, "Dump resolved config")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Print version")
	rootCmd.PersistentFlags().BoolP("help", "h", false, "Print usage")

	rootCmd.AddCommand(
		cmd.NewStartCmd(),
		cmd.NewSetCmd(),
		cmd.NewColourCmd(),
		cmd.NewUnsetCmd(),
		cmd.NewStatusCmd(),
		cmd.NewDoctorCmd(),
		cmd.NewStopCmd(),
		cmd.NewGenManCmd(rootCmd),
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fresco")
		viper.SetConfigType("toml")
		if viper.GetString("config") != "" {
			viper.SetConfigFile(viper.GetString("config"))
		} else {
			viper.AddConfigPath("$HOME/.config/fresco")
			viper.AddConfigPath("/etc/xdg/fresco")
		}
	}

	viper.SetDefault("image_duration_ms", 550)
	viper.SetDefault("colour_duration_ms", 200)
	viper.SetDefault("framerate_limit", 60)
	viper.SetDefault("frame_grace_ms", 100)
	viper.SetDefault("layer", "background")
	viper.SetDefault("debug", false)

	viper.AutomaticEnv() // read environment variables that match

	if err := viper.ReadInConfig(); err != nil {
		// The daemon runs fine on defaults; only a broken file is fatal.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			cobra.CheckErr(err)
		}
	}

	if viper.GetBool("debug") || flagSet(rootCmd, "debug") {
		log.SetLevel(log.DebugLevel)
	}
}

func flagSet(c *cobra.Command, name string) bool {
	v, err := c.PersistentFlags().GetBool(name)
	return err == nil && v
}
