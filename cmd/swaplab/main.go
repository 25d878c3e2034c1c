package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/swapsimplify/swaplab/internal/cli"
)

func main() {
	// A .env in the working directory is optional; flags and SWAPLAB_*
	// environment variables take precedence.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
