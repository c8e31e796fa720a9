package cli

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/sweep/internal/convert"
)

// NewConvertMeshCmd создаёт команду конвертации сетки .unv через ElmerGrid.
func NewConvertMeshCmd(outputFn func() *Output) *cobra.Command {
	var elmerDir string
	var vtu bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "convert-mesh [MESH]",
		Short: "Convert a .unv mesh to the Elmer mesh format",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mesh := "FEMMesh"
			if len(args) == 1 {
				mesh = args[0]
			}

			c := convert.New(convert.Config{
				ElmerDir: elmerDir,
				Timeout:  timeout,
				Logger:   slog.Default(),
			})
			result, err := c.Convert(cmd.Context(), mesh, vtu)
			out := outputFn()
			if result != nil {
				rows := make([][]string, len(result.Commands))
				for i, command := range result.Commands {
					rows[i] = []string{command, result.Output[i]}
				}
				out.Print([]string{"COMMAND", "OUTPUT"}, rows, result)
			}
			if err != nil {
				return err
			}

			dir, name := convert.MeshName(mesh)
			out.Success("Mesh written to " + dir + "/" + name)
			return nil
		},
	}

	cmd.Flags().StringVar(&elmerDir, "elmer-dir", "", "Directory containing ElmerGrid (default: search PATH)")
	cmd.Flags().BoolVar(&vtu, "vtu", false, "Also write a .vtu file for ParaView")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Timeout of one ElmerGrid call")

	return cmd
}
