package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/ircserv/ircserv/config"
	"github.com/ircserv/ircserv/logging"
	"github.com/ircserv/ircserv/server"
	"github.com/ircserv/ircserv/store"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to the configuration file (YAML, TOML or JSON)")
	flag.Parse()

	cfg, err := config.LoadOrCreate(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logging.Initialize(logging.Config{
		ToFile: cfg.LogToFile,
		Path:   cfg.LogFilePath,
		EOL:    cfg.LogFileEOL,
	}); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	srv, err := server.New(cfg, store.NewOS(cfg.DataDir))
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logging.Logf("Shutdown signal received, stopping server")
	if err := srv.Stop(); err != nil {
		log.Printf("Error stopping server: %v", err)
	}
}
