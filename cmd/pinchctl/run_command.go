package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/pinchctl/internal/config"
)

// runOptions are command-line overrides for the loaded configuration.
type runOptions struct {
	demo      bool
	camera    int
	bind      string
	noServer  bool
	journal   bool
	tray      bool
	console   bool
	logLevel  string
	logFormat string
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	flags := cmd.Flags()
	flags.BoolVar(&opts.demo, "demo", false, "Run with a synthetic camera, detector and backends")
	flags.IntVar(&opts.camera, "camera", 0, "Camera device ID")
	flags.StringVar(&opts.bind, "bind", "", "Status API listen address")
	flags.BoolVar(&opts.noServer, "no-server", false, "Disable the status API")
	flags.BoolVar(&opts.journal, "journal", false, "Record diagnostics to the sqlite journal")
	flags.BoolVar(&opts.tray, "tray", false, "Show the system tray menu")
	flags.BoolVar(&opts.console, "console", false, "Show the live terminal status view")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (console, json)")
}

// apply copies every flag the user set onto cfg.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("demo") {
		cfg.Actuator.Demo = o.demo
	}
	if flags.Changed("camera") {
		cfg.Camera.DeviceID = o.camera
	}
	if flags.Changed("bind") {
		cfg.Server.Bind = o.bind
	}
	if flags.Changed("no-server") {
		cfg.Server.Enabled = !o.noServer
	}
	if flags.Changed("journal") {
		cfg.Journal.Enabled = o.journal
	}
	if flags.Changed("tray") {
		cfg.Triggers.Tray = o.tray
	}
	if flags.Changed("console") {
		cfg.Triggers.Console = o.console
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(o.logLevel))
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = strings.ToLower(strings.TrimSpace(o.logFormat))
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pinch control loop",
		Long: `Run reads webcam frames and maps the pinch distance of each hand to a level.
The right hand drives system volume and the left hand drives display
brightness. A channel whose backend is unavailable is disabled and the other
keeps working.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, ctx, &opts)
		},
	}
	addRunFlags(cmd, &opts)
	return cmd
}

func runCommand(cmd *cobra.Command, ctx *commandContext, opts *runOptions) error {
	loaded, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg := *loaded
	opts.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return runLoop(cmd.Context(), &cfg)
}
