package main

import (
	"os"

	"docstore/log"
)

func main() {
	err := newRootCmd(os.Stdout).Execute()
	log.Sync()
	if err != nil {
		os.Exit(1)
	}
}
