// Command scrollfollow previews a markdown file with section-synchronized
// scrolling and inspects how the file splits into sections.
package main

import (
	"fmt"
	"os"

	"github.com/livetemplate/scrollfollow/cmd/scrollfollow/commands"
)

const version = "0.1.0-dev"

func main() {
	if err := commands.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
