package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/FrameScene/internal/config"
	"github.com/AaronLay10/FrameScene/internal/mqtt"
)

func newWatchCmd() *cobra.Command {
	var configPath, broker, prefix, frameID string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a frame's editor events over MQTT",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}
			if broker != "" {
				cfg.MQTT.Broker = broker
			}
			if prefix != "" {
				cfg.MQTT.TopicPrefix = prefix
			}
			if frameID != "" {
				cfg.Frame.ID = frameID
			}
			if !cfg.MQTTEnabled() {
				return fmt.Errorf("no broker configured; use --broker or mqtt.broker in framescene.yaml")
			}

			creds, err := config.ResolveMQTTCredentials()
			if err != nil {
				return err
			}
			var w *mqtt.Watcher
			changed := make(chan struct{}, 1)
			client := mqtt.NewClient(mqtt.Options{
				Broker:      cfg.MQTT.Broker,
				ClientID:    fmt.Sprintf("scenectl-watch-%d", os.Getpid()),
				Credentials: creds,
				OnStateChange: func(up bool) {
					// The broker forgets subscriptions of a clean session.
					if !up {
						w.ClearSubscriptions()
					}
					select {
					case changed <- struct{}{}:
					default:
					}
				},
			})
			p := &updatePrinter{w: cmd.OutOrStdout()}
			w = mqtt.NewWatcher(client, cfg.TopicPrefix(), cfg.FrameID(), p.print)

			if err := client.Connect(); err != nil {
				return fmt.Errorf("failed to connect to %s: %w", cfg.MQTT.Broker, err)
			}
			defer client.Disconnect()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watchLoop(ctx, client, w, changed)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "framescene.yaml to read the broker settings from")
	cmd.Flags().StringVar(&broker, "broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	cmd.Flags().StringVar(&prefix, "prefix", "", "topic prefix (default \"framescene\")")
	cmd.Flags().StringVar(&frameID, "frame", "", "frame to follow (default \"default\")")
	return cmd
}

// watchLoop keeps the watcher subscribed across reconnects until ctx ends.
// changed is signalled on every connection transition.
func watchLoop(ctx context.Context, conn interface{ IsConnected() bool }, w *mqtt.Watcher, changed <-chan struct{}) error {
	if err := w.Watch(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			if !conn.IsConnected() {
				continue
			}
			if err := w.Watch(); err != nil {
				fmt.Fprintf(os.Stderr, "resubscribe failed: %v\n", err)
			}
		}
	}
}

// updatePrinter writes one line per update. Paho delivers messages from
// its own goroutine.
type updatePrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *updatePrinter) print(u mqtt.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if u.Presence != "" {
		fmt.Fprintf(p.w, "frame %s\n", u.Presence)
		return
	}
	if u.Event == nil {
		if u.Fingerprint == "" {
			fmt.Fprintf(p.w, "scene %s deleted\n", u.SceneID)
		} else {
			fmt.Fprintf(p.w, "scene %s %s\n", u.SceneID, u.Fingerprint)
		}
		return
	}
	fields := ""
	if len(u.Event.Fields) > 0 {
		b, _ := json.Marshal(u.Event.Fields)
		fields = " " + string(b)
	}
	fmt.Fprintf(p.w, "%s %-5s %s%s\n", u.Event.Timestamp, u.Event.Level, u.Event.Name, fields)
}
