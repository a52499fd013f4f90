package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/AaronLay10/FrameScene/internal/api"
	"github.com/AaronLay10/FrameScene/internal/config"
	"github.com/AaronLay10/FrameScene/internal/events"
	"github.com/AaronLay10/FrameScene/internal/mqtt"
	"github.com/AaronLay10/FrameScene/internal/registry"
	"github.com/AaronLay10/FrameScene/internal/storage"
	"github.com/AaronLay10/FrameScene/internal/storage/postgres"
	"github.com/AaronLay10/FrameScene/internal/storage/sqlite"
	"github.com/AaronLay10/FrameScene/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to framescene.yaml")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load %s: %v", *configPath, err)
		}
	}

	reg := registry.Default()
	if cfg.Registry.Path != "" {
		var err error
		if reg, err = registry.Load(cfg.Registry.Path); err != nil {
			log.Fatalf("failed to load app registry: %v", err)
		}
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StorageDriver(), err)
	}
	defer store.Close()
	if cfg.Storage.LogEvents {
		events.AddSink("store", store)
	}

	if cfg.MQTTEnabled() {
		creds, err := config.ResolveMQTTCredentials()
		if err != nil {
			log.Fatalf("failed to resolve mqtt credentials: %v", err)
		}
		client := mqtt.NewClient(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    "framescene-api-" + cfg.FrameID(),
			Credentials: creds,
			StatusTopic: mqtt.StatusTopic(cfg.TopicPrefix(), cfg.FrameID()),
		})
		client.ConnectOrLog()
		defer client.Disconnect()
		events.AddSink("mqtt", mqtt.NewPublisher(client, cfg.TopicPrefix(), cfg.FrameID()))
	}

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "api starting", map[string]interface{}{
		"service":  "framescene-api",
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
		"frame_id": cfg.FrameID(),
		"storage":  cfg.StorageDriver(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(api.Options{
		Store:    store,
		Registry: reg,
		FrameID:  cfg.FrameID(),
	})
	if err := srv.ListenAndServe(ctx, cfg.Port(), api.TLSFromConfig(cfg)); err != nil {
		log.Fatalf("api server failed: %v", err)
	}

	events.Emit("info", "system.shutdown", "api stopped", nil)
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	switch cfg.StorageDriver() {
	case "postgres":
		return postgres.New(cfg.FrameID())
	default:
		return sqlite.Open(cfg.StoragePath(), cfg.FrameID())
	}
}
