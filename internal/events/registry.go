package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// scene edits
	"scene.node_added":    {},
	"scene.node_removed":  {},
	"scene.node_updated":  {},
	"scene.edge_added":    {},
	"scene.edge_removed":  {},
	"scene.replaced":      {},
	"scene.arranged":      {},
	"scene.duplicated":    {},
	"scene.validated":     {},
	"scene.mode_changed":  {},
	"scene.edit_rejected": {},

	// session
	"session.saved":    {},
	"session.reloaded": {},

	// history
	"history.undo": {},
	"history.redo": {},

	// store
	"store.loaded":  {},
	"store.saved":   {},
	"store.deleted": {},
	"store.error":   {},

	// api
	"api.request_failed": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
