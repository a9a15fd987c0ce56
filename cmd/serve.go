package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rubiojr/meld/pkg/api"
	"github.com/rubiojr/meld/pkg/config"
	"github.com/rubiojr/meld/pkg/core"
	"github.com/urfave/cli/v3"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the blended search API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Listen address (overrides listen_addr from the config file)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("listen"))
		},
	}
}

func serve(ctx context.Context, configPath, listenAddr string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	registry := core.GetGlobalRegistry()
	defer func() {
		if err := registry.Close(); err != nil {
			fmt.Printf("Warning: failed to close registry: %v\n", err)
		}
	}()

	blender, err := buildBlender(registry, cfg)
	if err != nil {
		return err
	}

	server := api.NewServer(blender)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	handler := gzhttp.GzipHandler(api.RequestIDMiddleware(api.CorsMiddleware(mux)))

	if listenAddr == "" {
		listenAddr = cfg.ListenAddr
	}
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Serving blended search API on %s", listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Signal handling - includes SIGHUP for reload
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	fmt.Println("Server started. Press Ctrl+C to stop, send SIGHUP to reload, or modify config file for automatic reload.")

	// Set up filesystem watcher for config file
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("Warning: failed to create config file watcher: %v", err)
		watcher = nil
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				log.Printf("Warning: failed to close config file watcher: %v", err)
			}
		}()

		// Add config file to watcher
		if err := watcher.Add(configPath); err != nil {
			log.Printf("Warning: failed to watch config file %s: %v", configPath, err)
		} else {
			log.Printf("Watching config file for changes: %s", configPath)
		}
	}

	// nil channels when the watcher is unavailable: those select arms
	// then block forever instead of dereferencing a nil watcher
	watchEvents, watchErrors := watcherChannels(watcher)

	shutdown := func() error {
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}

	// Main event handling loop
	for {
		select {
		case err := <-serveErr:
			return fmt.Errorf("http server: %w", err)
		case <-ctx.Done():
			return shutdown()
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				log.Println("Received SIGHUP, reloading configuration...")
				if err := reloadConfiguration(configPath, registry, server); err != nil {
					log.Printf("Failed to reload configuration: %v", err)
				} else {
					log.Println("Configuration reloaded successfully")
				}
			case syscall.SIGINT, syscall.SIGTERM:
				return shutdown()
			}
		case event, ok := <-watchEvents:
			if !ok {
				continue
			}
			// React to write, create, rename, and remove events (editors often use atomic writes)
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				log.Printf("Config file changed: %s (event: %s), reloading configuration...", event.Name, event.Op.String())

				// For rename/remove events, re-add the file to the watcher since it was replaced
				if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					// Small delay to ensure the new file is fully written
					time.Sleep(200 * time.Millisecond)

					if _, err := os.Stat(configPath); os.IsNotExist(err) {
						log.Printf("Config file was removed and not replaced, skipping reload")
						continue
					}

					if err := watcher.Add(configPath); err != nil {
						log.Printf("Warning: failed to re-add config file to watcher after rename/remove: %v", err)
					}
				} else {
					// Add a small delay to ensure file write is complete
					time.Sleep(100 * time.Millisecond)
				}

				if err := reloadConfiguration(configPath, registry, server); err != nil {
					log.Printf("Failed to reload configuration after file change: %v", err)
				} else {
					log.Println("Configuration reloaded successfully after file change")
				}
			}
		case err, ok := <-watchErrors:
			if !ok {
				continue
			}
			log.Printf("Config file watcher error: %v", err)
		}
	}
}

// watcherChannels returns the watcher's event and error channels, or nil
// channels when no watcher is available.
func watcherChannels(w *fsnotify.Watcher) (<-chan fsnotify.Event, <-chan error) {
	if w == nil {
		return nil, nil
	}
	return w.Events, w.Errors
}

// reloadConfiguration rebuilds the backend pair from the config file and
// swaps it into the running API server. A reload that fails validation
// keeps the old pair serving.
func reloadConfiguration(configPath string, registry *core.Registry, server *api.Server) error {
	newCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading new config: %w", err)
	}

	blender, err := buildBlender(registry, newCfg)
	if err != nil {
		return err
	}

	server.SetBlender(blender)
	return nil
}
