// Command fieldbase is the command-line interface to a fieldbase store.
package main

import "github.com/mesh-intelligence/fieldbase/internal/cli"

func main() {
	cli.Execute()
}
