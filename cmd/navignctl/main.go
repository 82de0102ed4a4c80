// Command navignctl is the CLI client for navign-server's unlock HTTP API.
package main

import "github.com/indoor-mall-nav/navign-sub000/cmd/navignctl/commands"

func main() {
	commands.Execute()
}
