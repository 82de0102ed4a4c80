package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// shellCommands lists the available commands for the interactive shell help output.
var shellCommands = []struct {
	name string
	desc string
}{
	{"unlock initiate --entity <e> --beacon <b> --device-id <d> --beacon-nonce <hex> --identifier <hex>", "Start an unlock instance"},
	{"unlock status --entity <e> --beacon <b> --instance <id> --device-signature <hex>", "Submit the device signature"},
	{"unlock outcome --entity <e> --beacon <b> --instance <id> --success", "Report the physical unlock outcome"},
	{"route --entity <e> --start <area> --end <area>", "Query the inter-area router"},
	{"path --entity <e> --area <a> --start-x <x> --start-y <y> --end-x <x> --end-y <y>", "Query the intra-area pathfinder"},
	{"version", "Print build information"},
	{"help", "Show this help message"},
	{"exit / quit", "Leave the interactive shell"},
}

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive navignctl shell",
		Long:  "Launches a simple REPL that accepts navignctl subcommands. Type 'help', 'exit', or 'quit'.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			printShellBanner()
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("navignctl> ")

			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())

				switch {
				case line == "exit" || line == "quit":
					return nil
				case line == "help" || line == "?":
					printShellHelp()
				case line != "":
					args := strings.Fields(line)
					rootCmd.SetArgs(args)

					if err := rootCmd.Execute(); err != nil {
						fmt.Fprintln(os.Stderr, "Error:", err)
					}
				}

				fmt.Print("navignctl> ")
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			return nil
		},
	}
}

// printShellBanner prints a welcome message when the shell starts.
func printShellBanner() {
	fmt.Println("navignctl interactive shell. Type 'help' for available commands, 'exit' to quit.")
	fmt.Println()
}

// printShellHelp prints a formatted list of available shell commands.
func printShellHelp() {
	fmt.Println("Available commands:")
	fmt.Println()

	for _, cmd := range shellCommands {
		fmt.Printf("  %-90s %s\n", cmd.name, cmd.desc)
	}

	fmt.Println()
}
