package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hitoshi/nytreact/internal/app"
)

func main() {
	if err := app.Run(context.Background(), os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "nytreact: %v\n", err)
		os.Exit(1)
	}
}
