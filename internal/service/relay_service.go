package service

import (
    "context"
    "log"
    "time"

    "github.com/tickethub/event-seat-reservation/internal/model"
    "github.com/tickethub/event-seat-reservation/internal/repository"
)

// Publisher sends a single event to the message broker.
type Publisher interface {
    Publish(ctx context.Context, eventName string, payload []byte) error
}

// OutboxSource is the slice of the outbox repository the relay needs.
type OutboxSource interface {
    FetchDue(ctx context.Context, table repository.OutboxTable, now time.Time, limit int, maxRetries uint32) ([]model.OutboxEntry, error)
    MarkPublished(ctx context.Context, table repository.OutboxTable, id uint64) error
    ScheduleRetry(ctx context.Context, table repository.OutboxTable, id uint64, nextRetryAt time.Time) error
    DeletePublishedBefore(ctx context.Context, table repository.OutboxTable, cutoff time.Time) (int64, error)
}

// RelayService drains the outbox tables into the broker.  Delivery is
// at-least-once: a row is marked published only after a successful
// publish, so a crash between the two produces a duplicate rather than
// a loss.  Consumers are expected to deduplicate.
type RelayService struct {
    outbox     OutboxSource
    publisher  Publisher
    batch      int
    maxRetries uint32
    baseDelay  time.Duration
    maxDelay   time.Duration
    retention  time.Duration
}

func NewRelayService(outbox OutboxSource, publisher Publisher, batch int, maxRetries uint32, baseDelay, maxDelay, retention time.Duration) *RelayService {
    if outbox == nil || publisher == nil {
        panic("nil dependency passed to NewRelayService")
    }
    return &RelayService{
        outbox:     outbox,
        publisher:  publisher,
        batch:      batch,
        maxRetries: maxRetries,
        baseDelay:  baseDelay,
        maxDelay:   maxDelay,
        retention:  retention,
    }
}

var relayTables = []repository.OutboxTable{repository.ReservationOutbox, repository.ExpirationOutbox}

// RelayOnce drains one batch from each outbox table.  A failed publish
// schedules the row for a later attempt with a doubled delay and moves
// on; it never blocks the rest of the batch.  Returns the number of
// entries published.
func (s *RelayService) RelayOnce(ctx context.Context, now time.Time) (int, error) {
    published := 0
    for _, table := range relayTables {
        entries, err := s.outbox.FetchDue(ctx, table, now, s.batch, s.maxRetries)
        if err != nil {
            return published, err
        }
        for _, e := range entries {
            if err := s.publisher.Publish(ctx, e.EventName, e.Payload); err != nil {
                delay := model.NextRetryDelay(e.RetryCount+1, s.baseDelay, s.maxDelay)
                log.Printf("relay: publish %s entry %d failed, retrying in %s: %v", table, e.ID, delay, err)
                if rerr := s.outbox.ScheduleRetry(ctx, table, e.ID, now.Add(delay)); rerr != nil {
                    log.Printf("relay: schedule retry for %s entry %d: %v", table, e.ID, rerr)
                }
                continue
            }
            if err := s.outbox.MarkPublished(ctx, table, e.ID); err != nil {
                // The event went out but the mark failed; the next pass
                // will publish it again, which at-least-once allows.
                log.Printf("relay: mark published %s entry %d: %v", table, e.ID, err)
                continue
            }
            published++
        }
    }
    return published, nil
}

// CleanupOnce deletes published outbox rows older than the retention
// window.  Unpublished rows are never touched, even exhausted ones, so
// they stay visible for inspection.
func (s *RelayService) CleanupOnce(ctx context.Context, now time.Time) (int64, error) {
    cutoff := now.Add(-s.retention)
    var total int64
    for _, table := range relayTables {
        n, err := s.outbox.DeletePublishedBefore(ctx, table, cutoff)
        if err != nil {
            return total, err
        }
        total += n
    }
    return total, nil
}
