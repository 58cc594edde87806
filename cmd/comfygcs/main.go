package main

import (
	"os"

	"github.com/charliek/comfygcs/internal/cli"
	"github.com/charliek/comfygcs/internal/domain"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(domain.GetExitCode(err))
	}
}
