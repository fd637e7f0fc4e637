package main

import (
	"context"
	"time"

	"github.com/niksmo/consumershop/config"
	"github.com/niksmo/consumershop/internal/app"
	"github.com/niksmo/consumershop/pkg/sigctx"
)

const closeTimeout = 5 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	projector := app.NewProjector(sigCtx, cfg)

	projector.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	projector.Close(ctx)
}
