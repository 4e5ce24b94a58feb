// Command crimpy-mcp serves the crimpy MCP tools over stdio, backed either by the local
// database or by a remote crimpy server's REST API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/crimpy/internal/config"
	"github.com/claude/crimpy/internal/intensity"
	"github.com/claude/crimpy/internal/logging"
	"github.com/claude/crimpy/internal/mcp"
	"github.com/claude/crimpy/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	remote := flag.String("remote", "", "crimpy server URL; when set, data is read over HTTP instead of from the database")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("crimpy-mcp", Version)
		return
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the MCP protocol, so logs go to stderr unless a log file is set.
	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if cfg.Log.File != "" {
		var logCloser io.Closer
		log, logCloser = logging.Setup(logging.Params{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			File:   cfg.Log.File,
		})
		defer logCloser.Close()
	}

	var ds mcp.DataSource
	if *remote != "" {
		ds = mcp.NewHTTPClient(*remote)
		log.Info("using remote data source", "url", *remote)
	} else {
		if err := cfg.RequireDatabase(); err != nil {
			log.Error("incomplete config", "error", err)
			os.Exit(1)
		}
		db, err := storage.New(context.Background(), cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		ds = db
	}

	model := intensity.New(cfg.Intensity, log)
	s := mcp.New(ds, model, Version, log)

	log.Info("crimpy-mcp serving on stdio", "version", Version)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
