package main

import (
	"fmt"
	"os"

	"inferd/internal/inferctl"
)

func main() {
	if err := inferctl.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "inferctl: %v\n", err)
		os.Exit(1)
	}
}
