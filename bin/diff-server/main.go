package main

import (
	"context"
	"flag"
	"image-compare/internal/diff/image"
	"image-compare/internal/env"
	"image-compare/internal/runnable"
	"log"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	var markColor string
	var debug bool
	defaults := image.DefaultParameters()
	flag.Float64Var(&defaults.Threshold, "threshold", env.OrDefault("THRESHOLD", image.DefaultThreshold), "Default threshold for requests that omit it")
	flag.StringVar(&markColor, "mark-color", env.OrDefault("MARK_COLOR", image.FormatMarkColor(image.DefaultMarkColor)), "Default highlight color (#RRGGBB)")
	flag.Float64Var(&defaults.MarkAmount, "mark-amount", env.OrDefault("MARK_AMOUNT", image.DefaultMarkAmount), "Default highlight strength (0 to 1)")
	flag.BoolVar(&debug, "debug", env.OrDefault("DEBUG", false), "Enable text logs and pprof routes")
	flag.Parse()

	c, err := image.ParseMarkColor(markColor)
	if err != nil {
		log.Fatalf("Invalid mark color: %v", err)
	}
	defaults.MarkColor = c
	runnable.Debug = debug

	if err := runnable.NewServer(defaults).Start(context.Background()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
