package main

import "github.com/mcoot/diamondsgame/internal/cli"

func main() {
	cli.Execute()
}
