// Command schedule queries and maintains a local conference schedule store.
package main

import "github.com/mesh-intelligence/confsched/internal/cli"

func main() {
	cli.Execute()
}
