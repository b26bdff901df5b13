package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lexify-app/lexify-server/internal/ctl"
)

func main() {
	cmd := ctl.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
