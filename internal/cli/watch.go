package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/sweep/internal/domain"
)

// NewWatchCmd создаёт команду, опрашивающую API работающего запуска.
func NewWatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var interval time.Duration
	var project string
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the progress of a run started with --listen",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()
			ctx := cmd.Context()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				if project != "" {
					p, err := client.Project(ctx, project)
					if err != nil {
						return err
					}
					out.Progress(&domain.Progress{Projects: []domain.ProjectProgress{*p}})
				} else {
					p, err := client.Progress(ctx)
					if err != nil {
						return err
					}
					out.Progress(p)
					if finished(p) {
						out.Success("Run is finished")
						return nil
					}
				}
				if once {
					return nil
				}

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					fmt.Fprintln(out.w)
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Polling interval")
	cmd.Flags().StringVar(&project, "project", "", "Show a single project")
	cmd.Flags().BoolVar(&once, "once", false, "Print the progress once and exit")

	return cmd
}

// finished сообщает, что все проекты запуска в финальном статусе.
func finished(p *domain.Progress) bool {
	if len(p.Projects) == 0 {
		return false
	}
	for _, pp := range p.Projects {
		switch pp.Status {
		case domain.ProjectStatusCompleted, domain.ProjectStatusSkipped, domain.ProjectStatusFailed:
		default:
			return false
		}
	}
	return true
}
