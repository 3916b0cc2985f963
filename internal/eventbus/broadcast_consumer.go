package eventbus

import (
	"context"
	"fmt"

	"github.com/grachmannico95/bankline/internal/domain"
)

// Broadcaster fans a change signal out to connected stream clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, signal domain.ChangeSignal)
}

// BroadcastConsumer forwards VersionBumpedEvent payloads to a Broadcaster.
// Signals may be delivered out of order when workers > 1; each carries its
// own versions so clients still converge.
type BroadcastConsumer struct {
	target  Broadcaster
	workers int
}

func NewBroadcastConsumer(target Broadcaster, workers int) *BroadcastConsumer {
	if workers <= 0 {
		workers = 1
	}
	return &BroadcastConsumer{target: target, workers: workers}
}

func (bc *BroadcastConsumer) Consume(ctx context.Context, event Event) error {
	payload, ok := event.Payload.(VersionBumpedEvent)
	if !ok {
		return fmt.Errorf("invalid payload type %T for %s", event.Payload, event.Type)
	}
	bc.target.Broadcast(ctx, payload.Signal)
	return nil
}

func (bc *BroadcastConsumer) GetWorkerCount() int {
	return bc.workers
}
