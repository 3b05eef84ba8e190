package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/pinchctl/internal/app"
)

var apiClient = &http.Client{Timeout: 3 * time.Second}

func apiURL(ctx *commandContext, path string) (string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return "", err
	}
	return "http://" + cfg.Server.Bind + path, nil
}

func wrapDialError(err error, addr string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to pinchctl: %s refused the connection; start it with `pinchctl run`", addr)
	}
	return fmt.Errorf("connect to pinchctl: %w", err)
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the levels of a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := apiURL(ctx, "/api/levels")
			if err != nil {
				return err
			}
			resp, err := apiClient.Get(url)
			if err != nil {
				return wrapDialError(err, url)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status request failed: %s", resp.Status)
			}

			var lv app.Levels
			if err := json.NewDecoder(resp.Body).Decode(&lv); err != nil {
				return fmt.Errorf("decode levels: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(lv)
			}
			fmt.Fprintln(out, renderLevels(lv))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print raw JSON")
	return cmd
}

func renderLevels(lv app.Levels) string {
	rows := make([][]string, 0, 2)
	for _, c := range []app.ChannelLevel{lv.Volume, lv.Brightness} {
		value, percent := "-", "-"
		if c.Enabled {
			value = fmt.Sprintf("%.2f", c.Value)
			percent = fmt.Sprintf("%.0f%%", c.Percent)
		}
		rows = append(rows, []string{
			string(c.Channel),
			yesNo(c.Enabled),
			value,
			percent,
			fmt.Sprintf("%.2f..%.2f", c.Min, c.Max),
			fmt.Sprintf("%d", c.Failures),
			c.Error,
		})
	}
	table := renderTable(
		[]string{"Channel", "Enabled", "Level", "Percent", "Range", "Failures", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
	return fmt.Sprintf("%s\n%d frames, %.1f fps", table, lv.Frames, lv.FPS)
}

// newTriggerCommand posts to /api/<name> on a running instance.
func newTriggerCommand(ctx *commandContext, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := apiURL(ctx, "/api/"+name)
			if err != nil {
				return err
			}
			resp, err := apiClient.Post(url, "application/json", strings.NewReader("{}"))
			if err != nil {
				return wrapDialError(err, url)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusAccepted {
				return fmt.Errorf("%s request failed: %s", name, resp.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s requested\n", name)
			return nil
		},
	}
}
