// Command scenectl works with scene documents on disk: it validates,
// formats, arranges, duplicates and diffs them, syncs them with a local
// scene store and follows a frame's events over MQTT.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
