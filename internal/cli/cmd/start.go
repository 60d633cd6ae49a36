package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	godaemon "github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dustpile/fresco/internal/engine"
	"github.com/dustpile/fresco/internal/ipc"
	"github.com/dustpile/fresco/internal/paths"
	"github.com/dustpile/fresco/internal/wayland"
)

func NewStartCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "start",
		Short: "Start the fresco daemon",
		Long: `Connects to the Wayland compositor and paints wallpapers until
stopped. With --background the process detaches and logs to
~/.local/share/fresco/.`,
		Run: func(cmd *cobra.Command, args []string) {
			background, _ := cmd.Flags().GetBool("background")
			if background && os.Getenv("BACKGROUND_PROCESS") != "1" {
				daemonize()
				return
			}
			runDaemon()
		},
	}
	c.Flags().BoolP("background", "b", false, "Detach and run in the background")
	return c
}

func daemonize() {
	cntxt := &godaemon.Context{
		Env: append(os.Environ(), "BACKGROUND_PROCESS=1"),
	}

	child, err := cntxt.Reborn()
	if err != nil {
		log.Fatalf("Failed to daemonize: %v", err)
	}
	if child != nil {
		log.Infof("fresco started in the background (PID %d)", child.Pid)
		return
	}
	defer cntxt.Release()

	runDaemon()
}

func runDaemon() {
	log.Infof("starting in PID %d", os.Getpid())

	if os.Getenv("BACKGROUND_PROCESS") == "1" {
		setupRotatingLogger()
	}

	if ipc.IsRunning() {
		log.Infof("fresco is already running, exiting")
		os.Exit(0)
	}

	client, err := wayland.Connect(viper.GetString("layer"))
	if err != nil {
		log.Fatalf("Failed to connect to compositor: %v", err)
	}

	eng := engine.New(client, engine.Config{
		FramerateLimit: viper.GetInt("framerate_limit"),
		FrameGrace:     time.Duration(viper.GetInt("frame_grace_ms")) * time.Millisecond,
	})

	go func() {
		log.Info("Starting socket server")
		ipc.Start(eng)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("engine exited: %v", err)
	}

	os.Remove(paths.Socket())
	log.Infof("fresco exited")
}

func setupRotatingLogger() {
	home := os.Getenv("HOME")
	logDir := filepath.Join(home, ".local", "share", "fresco")
	logPath := filepath.Join(logDir, "fresco.log")

	writer, err := rotatelogs.New(
		logPath+".%Y%m%d%H%M",
		rotatelogs.WithLinkName(logPath),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationSize(10*1024*1024),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		log.Fatalf("failed to configure log rotation: %v", err)
	}

	log.SetOutput(writer)
	if !viper.GetBool("debug") {
		log.SetLevel(log.InfoLevel)
	}
}
