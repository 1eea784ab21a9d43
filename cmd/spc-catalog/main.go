package main

import (
	"context"
	"os"

	"spc-catalog/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cli := New(os.Stdout)
	cli.SetArgs(args)
	if err := cli.Execute(context.Background()); err != nil {
		logging.Error("%v", err)
		return 1
	}
	return 0
}
