package ledger

import (
	"context"

	"github.com/erp/ledger/internal/domain/shared"
)

// eventCarrier is satisfied by aggregates that buffer domain events
type eventCarrier interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// publishEvents hands buffered aggregate events to the bus after a
// successful save. Services stay usable without a bus wired; events are
// simply dropped then.
func publishEvents(ctx context.Context, bus shared.EventPublisher, carriers ...eventCarrier) {
	for _, carrier := range carriers {
		events := carrier.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		if bus != nil {
			if err := bus.Publish(ctx, events...); err != nil {
				continue
			}
		}
		carrier.ClearDomainEvents()
	}
}
