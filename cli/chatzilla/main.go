package main

import (
	"os"

	chatzillacmder "github.com/papercomputeco/chatzilla/cmd/chatzilla"
)

func main() {
	cmd := chatzillacmder.NewChatzillaCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
