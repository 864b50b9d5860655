package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/titanlift/internal/app"
	"github.com/meltforce/titanlift/internal/config"
	"github.com/meltforce/titanlift/internal/logging"
	"github.com/meltforce/titanlift/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	remote := flag.String("remote", "", "TitanLift server URL; when set, data is read over the REST API instead of the local store")
	apiKey := flag.String("api-key", os.Getenv("TITANLIFT_API_KEY"), "API key for -remote")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("titanlift-mcp", Version)
		return
	}

	cfg := config.Defaults()
	if *remote == "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	// stdout carries the protocol; logs go to stderr.
	log, logCloser := logging.New(cfg.Log, os.Stderr)
	defer logCloser.Close()

	var ds mcp.DataSource
	if *remote != "" {
		ds = mcp.NewHTTPClient(*remote, *apiKey)
		log.Info("MCP server starting", "version", Version, "mode", "remote", "url", *remote)
	} else {
		a, err := app.Open(context.Background(), cfg, log, app.Hooks{})
		if err != nil {
			log.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.Close(ctx)
		}()
		ds = mcp.NewLocal(a.Service)
		log.Info("MCP server starting", "version", Version, "mode", "local", "driver", cfg.Store.Driver)
	}

	if err := server.ServeStdio(mcp.New(ds, Version, log)); err != nil {
		log.Error("stdio server failed", "error", err)
	}
}
