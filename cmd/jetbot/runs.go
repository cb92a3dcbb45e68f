package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-jetbot/pkg/telemetry"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func withStore(fn func(ctx context.Context, s *telemetry.Store) error) error {
	s, err := telemetry.Open(cfg.Telemetry)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := signalContext()
	defer cancel()
	return fn(ctx, s)
}

// findRun resolves a run by full id or unique prefix.
func findRun(ctx context.Context, s *telemetry.Store, id string) (telemetry.Run, error) {
	if r, err := s.Run(ctx, id); err == nil {
		return r, nil
	}
	runs, err := s.Runs(ctx)
	if err != nil {
		return telemetry.Run{}, err
	}
	var match []telemetry.Run
	for _, r := range runs {
		if strings.HasPrefix(r.ID, id) {
			match = append(match, r)
		}
	}
	switch len(match) {
	case 0:
		return telemetry.Run{}, fmt.Errorf("%w: %s", telemetry.ErrRunNotFound, id)
	case 1:
		return match[0], nil
	}
	return telemetry.Run{}, fmt.Errorf("run prefix %q is ambiguous (%d matches)", id, len(match))
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded lane following runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, s *telemetry.Store) error {
			runs, err := s.Runs(ctx)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded")
				return nil
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "LABEL", "BACKEND", "STARTED", "DURATION", "FRAMES").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				})
			for _, r := range runs {
				dur := "active"
				if !r.Active() {
					dur = r.Duration().Round(time.Second).String()
				}
				t.Row(r.ID[:8], r.Label, r.Backend,
					r.StartedAt.Local().Format(time.DateTime), dur, strconv.Itoa(r.Frames))
			}
			fmt.Println(t.Render())
			return nil
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Summarise one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, s *telemetry.Store) error {
			run, err := findRun(ctx, s, args[0])
			if err != nil {
				return err
			}
			frames, err := s.Frames(ctx, run.ID)
			if err != nil {
				return err
			}
			sum := telemetry.Summarize(frames)
			fmt.Printf("Run %s (%s)\n", run.ID, run.Label)
			fmt.Printf("  backend     %s\n", run.Backend)
			fmt.Printf("  started     %s\n", run.StartedAt.Local().Format(time.DateTime))
			fmt.Printf("  frames      %d, lane found in %.0f%%\n", sum.Frames, 100*sum.FoundRatio())
			fmt.Printf("  faults      %d\n", sum.Faults)
			fmt.Printf("  rate        %.1f fps\n", sum.FPS)
			fmt.Printf("  latency     avg %s, max %s\n", sum.AvgLatency, sum.MaxLatency)
			return nil
		})
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete runs and their frames",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, s *telemetry.Store) error {
			for _, id := range args {
				run, err := findRun(ctx, s, id)
				if err != nil {
					return err
				}
				if err := s.DeleteRun(ctx, run.ID); err != nil {
					return err
				}
				fmt.Printf("Deleted %s\n", run.ID)
			}
			return nil
		})
	},
}

func init() {
	runsCmd.AddCommand(runsShowCmd, runsDeleteCmd)
}
