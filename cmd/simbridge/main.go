package main

import (
	"github.com/simbridge/simbridge/internal/cli"
)

func main() {
	cli.Execute()
}
