package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grantinsight/gisearch/pkg/config"
)

// watch blocks until SIGINT, SIGTERM or ctx is done, reloading the
// configuration on SIGHUP and whenever the config file changes.
func (s *WebServer) watch(ctx context.Context, configPath string) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("Warning: failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				log.Printf("Warning: failed to close config file watcher: %v", err)
			}
		}()

		if err := watcher.Add(configPath); err != nil {
			log.Printf("Warning: failed to watch config file %s: %v", configPath, err)
		} else {
			log.Printf("Watching config file for changes: %s", configPath)
		}
		events, errs = watcher.Events, watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				log.Println("Received SIGHUP, reloading configuration...")
				s.reload(configPath)
			case syscall.SIGINT, syscall.SIGTERM:
				return
			}
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// Editors often replace the file instead of writing it in place.
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)) {
				continue
			}
			log.Printf("Config file changed: %s (event: %s), reloading configuration...", event.Name, event.Op.String())

			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)

				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					log.Printf("Config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					log.Printf("Warning: failed to re-add config file to watcher after rename/remove: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			s.reload(configPath)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("Config file watcher error: %v", err)
		}
	}
}

// reload reads configPath and hands it to the server. A broken file leaves
// the running configuration in place.
func (s *WebServer) reload(configPath string) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Failed to reload configuration: %v", err)
		return
	}
	s.setConfig(cfg)
	log.Println("Configuration reloaded successfully")
}
