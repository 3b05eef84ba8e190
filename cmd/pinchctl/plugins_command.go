package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/pinchctl/internal/plugin"
)

func newPluginsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List discovered actuator plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			mgr := plugin.NewManager(cfg.Actuator.PluginDir)
			if err := mgr.Discover(); err != nil {
				return fmt.Errorf("discover plugins: %w", err)
			}

			out := cmd.OutOrStdout()
			plugins := mgr.List()
			if len(plugins) == 0 {
				fmt.Fprintf(out, "No plugins found in %s\n", mgr.PluginDir())
				return nil
			}

			volume := selectedPlugin(mgr, cfg.Volume.Plugin, plugin.ActionSetVolume)
			brightness := selectedPlugin(mgr, cfg.Brightness.Plugin, plugin.ActionSetBrightness)

			rows := make([][]string, 0, len(plugins))
			for _, p := range plugins {
				var uses []string
				if p.Manifest.Name == volume {
					uses = append(uses, "volume")
				}
				if p.Manifest.Name == brightness {
					uses = append(uses, "brightness")
				}
				rows = append(rows, []string{
					p.Manifest.Name,
					p.Manifest.Version,
					strings.Join(p.Manifest.Actions, ", "),
					strings.Join(uses, ", "),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Name", "Version", "Actions", "Drives"}, rows, nil))
			return nil
		},
	}
}

// selectedPlugin names the plugin a channel would bind to, or "".
func selectedPlugin(mgr *plugin.Manager, name, action string) string {
	if name != "" {
		p, err := mgr.Get(name)
		if err != nil || !p.Supports(action) {
			return ""
		}
		return p.Manifest.Name
	}
	p, err := mgr.Find(action)
	if err != nil {
		return ""
	}
	return p.Manifest.Name
}
