package main

import "fxpilot/internal/cli"

func main() {
	cli.Execute()
}
