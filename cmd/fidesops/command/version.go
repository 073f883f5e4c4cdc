package command

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/iamkelllly/fidesops/version"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("fidesops:")
			fmt.Printf("  version: %s\n", version.Version)
			if version.GitHash != "" {
				fmt.Printf("  git hash: %s\n", version.GitHash)
			}
			if version.BuildDate != "" {
				fmt.Printf("  build date: %s\n", version.BuildDate)
			}
			fmt.Printf("  go version: %s\n", runtime.Version())
		},
	}
}
