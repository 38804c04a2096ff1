package realtime

import (
	"context"

	"github.com/quiltline/patternvault-backend/internal/platform/logger"
)

// Publisher is the cross-node leg of progress delivery; redisbus.Bus
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// BatchProgress is the payload emitted once per resolved candidate and once
// at the end of the run.
type BatchProgress struct {
	BatchID   int64  `json:"batch_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// Notifier delivers batch progress to SSE subscribers. With a bus configured
// messages travel through redis so every node's hub sees them; without one
// they go straight to the local hub.
type Notifier struct {
	log *logger.Logger
	hub *Hub
	bus Publisher
}

func NewNotifier(log *logger.Logger, hub *Hub, bus Publisher) *Notifier {
	return &Notifier{log: log.With("component", "BatchNotifier"), hub: hub, bus: bus}
}

func (n *Notifier) Notify(ctx context.Context, event Event, progress BatchProgress) {
	if n == nil {
		return
	}
	msg := Message{
		Channel: BatchChannel(progress.BatchID),
		Event:   event,
		Data:    progress,
	}
	if n.bus != nil {
		if err := n.bus.Publish(ctx, msg); err != nil {
			n.log.Warn("Failed to publish batch progress", "batch_id", progress.BatchID, "error", err)
		}
		return
	}
	if n.hub != nil {
		n.hub.Broadcast(msg)
	}
}
