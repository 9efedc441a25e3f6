package cli

import (
	"fmt"

	"github.com/soyeahso/gork/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of gork",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Println(version.Short())
				return
			}
			fmt.Println(version.Info())
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print only the abbreviated commit")
	return cmd
}
