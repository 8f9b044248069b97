package main

import (
	"context"
	"fmt"
	"os"

	"github.com/obsnet/dataproduct-catalog/internal/app"
)

func main() {
	ctx := context.Background()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	a.Log.Info("Starting API...", "port", a.Cfg.Port)
	if err := a.Run(); err != nil {
		a.Log.Error("API stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
}
