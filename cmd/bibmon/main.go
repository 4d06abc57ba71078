package main

import (
	"github.com/lukeeey/bibliothek-build-monitor/cmd/bibmon/cmd"
)

func main() {
	cmd.Execute()
}
