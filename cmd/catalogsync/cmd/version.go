package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show catalogsync build information",
	Long: `Print the catalogsync release, the commit and date it was built from,
and the Go toolchain and platform of the binary. Include this output when
reporting a failed extraction or sync.`,
	Run: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	cmd.Printf("catalogsync %s\n", Version)
	cmd.Printf("  Commit:     %s\n", Commit)
	cmd.Printf("  Built:      %s\n", BuildDate)
	cmd.Printf("  Go version: %s\n", runtime.Version())
	cmd.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
