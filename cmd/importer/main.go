package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/partstrack-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "importer"})
	_ = godotenv.Load()

	if err := newRootCmd(logg).ExecuteContext(context.Background()); err != nil {
		logg.Error(context.Background(), "importer failed", err)
		os.Exit(1)
	}
}
