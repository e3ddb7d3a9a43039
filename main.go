package main

import (
	"ai_registry/presentation/cli"
)

func main() {
	cli.Execute()
}
