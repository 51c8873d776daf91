package main

import (
	"github.com/i474232898/weather-lookup/internal/cli"
)

var Version = "development"

func main() {
	cli.Execute(Version)
}
