package main

import (
	"os"

	"github.com/nerdrew/zk-recipes-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
