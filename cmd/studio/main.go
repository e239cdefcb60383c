package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/learndb-studio/internal/app"
	"github.com/yungbote/learndb-studio/internal/platform/shutdown"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		application.Log.Error("studio exited", "error", err)
		application.Close()
		os.Exit(1)
	}
}
