package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/merak-travel/merak/internal/buildinfo"
)

// Command creates a new cobra.Command to print build information.
func Command(build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of Merak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), build.String())
			return err
		},
	}

	return cmd
}
