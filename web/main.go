package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/df07/go-whitted-raytracer/pkg/config"
	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/publish"
	"github.com/df07/go-whitted-raytracer/web/server"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Parse command line flags
	port := flag.Int("port", cfg.Port, "Port to serve on")
	scenesDir := flag.String("scenes", cfg.ScenesDir, "Directory of JSON scene files")
	flag.Parse()
	cfg.Port = *port
	cfg.ScenesDir = *scenesDir

	text := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})
	console := server.NewConsoleHandler(server.DefaultConsoleSize, cfg.LogLevel, text)
	core.SetLogger(slog.New(console))
	logger := core.Logger()

	webServer := server.NewServer(cfg, console)
	if cfg.PublishEnabled() {
		publisher, err := publish.NewFromConfig(cfg, "web")
		if err != nil {
			logger.Error("failed to configure publishing", "error", err)
			os.Exit(1)
		}
		webServer.SetPublisher(publisher)
		logger.Info("publishing enabled", "bucket", cfg.S3Bucket)
	}

	logger.Info("Whitted Raytracer Web Server", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
	if err := webServer.Start(); err != nil {
		logger.Error("error starting server", "error", err)
		os.Exit(1)
	}
}
