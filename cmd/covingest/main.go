package main

import (
	"fmt"
	"os"

	"github.com/zjy-dev/covingest/cmd/covingest/app"
)

func main() {
	if err := app.NewCovingestCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
