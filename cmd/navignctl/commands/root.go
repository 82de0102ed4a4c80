package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// client is the unlocker HTTP client, initialized in PersistentPreRunE.
	client *unlockerClient

	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// serverAddr is the navign-server HTTP address (host:port).
	serverAddr string

	// bearerToken authenticates requests against navign-server's JWT middleware.
	bearerToken string
)

// rootCmd is the top-level cobra command for navignctl.
var rootCmd = &cobra.Command{
	Use:   "navignctl",
	Short: "CLI client for the navign-server unlock API",
	Long:  "navignctl communicates with the navign-server daemon over HTTP to drive the beacon unlock handshake.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		client = newUnlockerClient("http://"+serverAddr, bearerToken)
		return nil
	},
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:8443",
		"navign-server address (host:port)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", os.Getenv("NAVIGNCTL_TOKEN"),
		"bearer token for navign-server's JWT middleware (defaults to $NAVIGNCTL_TOKEN)")

	rootCmd.AddCommand(unlockCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(pathCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(shellCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
