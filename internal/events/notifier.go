package events

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/models"
	modelevents "github.com/sheikh-saqib/personal-finance-ledger/internal/models/events"
)

// Notifier announces committed statements. Publishing happens after the
// ledger transaction has committed, so a failure here is logged and never
// undoes or fails the operation.
type Notifier struct {
	publisher interfaces.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewNotifier(publisher interfaces.EventPublisher, logger *zap.Logger) *Notifier {
	return &Notifier{publisher: publisher, logger: logger, now: time.Now}
}

func (n *Notifier) StatementsCreated(ctx context.Context, statements ...models.Statement) {
	for _, s := range statements {
		event := n.newEvent(s)
		if err := n.publisher.Publish(ctx, s.UserID, event); err != nil {
			n.logger.Warn("failed to publish statement event",
				zap.String("statement_id", s.ID),
				zap.String("user_id", s.UserID),
				zap.Error(err))
		}
	}
}

func (n *Notifier) newEvent(s models.Statement) modelevents.StatementCreated {
	now := n.now()
	event := modelevents.StatementCreated{
		EventID:     ulid.MustNew(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0)).String(),
		EventType:   modelevents.StatementCreatedType,
		StatementID: s.ID,
		UserID:      s.UserID,
		Type:        string(s.Type),
		Amount:      s.Amount,
		Description: s.Description,
		OccurredAt:  s.CreatedAt,
	}
	if s.SenderID != nil {
		event.SenderID = *s.SenderID
	}
	return event
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                               { return nil }

var _ interfaces.EventPublisher = NopPublisher{}
