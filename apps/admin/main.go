package main

import (
	"context"
	"fmt"
	"os"

	"github.com/24vibes/vibes/apps/container"
	"github.com/24vibes/vibes/core"
)

func main() {
	conf := core.NewConfig()
	logger := container.NewLogger("ADMIN : ", conf)

	cli := &commandLine{conf: conf, logger: logger}
	err := cli.rootCmd().ExecuteContext(context.Background())
	if cerr := cli.close(); cerr != nil {
		logger.Error(fmt.Sprintf("releasing dependencies: %v", cerr), cerr)
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		os.Exit(1)
	}
}
