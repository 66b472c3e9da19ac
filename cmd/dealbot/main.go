package main

import (
	"os"

	"github.com/deusflow/ofertas/internal/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Error("dealbot failed", "error", err.Error())
		os.Exit(1)
	}
}
