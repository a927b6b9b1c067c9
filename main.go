package main

import "memviz/internal/cli"

func main() {
	cli.Execute()
}
