package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/logger"

	"drips/internal/config"
	"drips/internal/ledger"
	"drips/internal/models"
)

// EventSink receives raffle events in ledger order.
type EventSink interface {
	Publish(ctx context.Context, events []models.RaffleEvent) error
}

// LogSink writes events to the process logger. It stands in for a broker
// when none is configured.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, events []models.RaffleEvent) error {
	for _, e := range events {
		logger.Infof("raffle event %s raffle=%s tx=%s", e.Type, e.RaffleID, e.TransactionDigest)
	}
	return nil
}

// EventWatcher polls the raffle module's events oldest first and forwards
// them to a sink. Raffle IDs it sees are recorded in the registry.
type EventWatcher struct {
	cfg      config.Config
	ledger   ledger.QueryService
	sink     EventSink
	registry KnownRaffles
	diag     DiagnosticFunc

	mu     sync.Mutex
	cursor *ledger.EventID
}

// NewEventWatcher creates an EventWatcher. registry may be nil.
func NewEventWatcher(cfg config.Config, lq ledger.QueryService, sink EventSink, registry KnownRaffles, diag DiagnosticFunc) *EventWatcher {
	return &EventWatcher{
		cfg:      cfg,
		ledger:   lq,
		sink:     sink,
		registry: registry,
		diag:     diag,
	}
}

// Cursor returns the position after the last forwarded event.
func (w *EventWatcher) Cursor() *ledger.EventID {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cursor == nil {
		return nil
	}
	c := *w.cursor
	return &c
}

// SetCursor makes the next poll resume after id. A nil id replays from the
// first event.
func (w *EventWatcher) SetCursor(id *ledger.EventID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cursor = id
}

// Run polls every WatchInterval until ctx is done.
func (w *EventWatcher) Run(ctx context.Context) error {
	interval := w.cfg.WatchInterval.Duration
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := w.Poll(ctx)
		if err != nil {
			w.diag.report("watcher", "poll", "round aborted", err)
		} else if n > 0 {
			logger.Infof("watcher: forwarded %d raffle events", n)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll forwards every event after the cursor, up to MaxEventScan per round.
// The cursor only advances past events the sink accepted.
func (w *EventWatcher) Poll(ctx context.Context) (int, error) {
	filter := ledger.EventFilter{Package: w.cfg.PackageID, Module: w.cfg.RaffleModule}
	forwarded := 0
	for forwarded < w.cfg.MaxEventScan {
		cursor := w.Cursor()
		page, err := w.ledger.QueryEvents(ctx, filter, cursor, maxLedgerPage, false)
		if err != nil {
			return forwarded, networkError("poll raffle events", err)
		}
		if len(page.Events) == 0 {
			return forwarded, nil
		}

		events := make([]models.RaffleEvent, 0, len(page.Events))
		ids := newIDSet()
		for _, ev := range page.Events {
			e := ToRaffleEvent(ev)
			events = append(events, e)
			ids.add(e.RaffleID)
		}
		if err := w.sink.Publish(ctx, events); err != nil {
			return forwarded, fmt.Errorf("publish raffle events: %w", err)
		}
		if w.registry != nil && len(ids.list) > 0 {
			if err := w.registry.Record(ctx, ids.list); err != nil {
				w.diag.report("watcher", "registry", "could not record raffle ids", err)
			}
		}

		next := page.NextCursor
		if next == nil {
			last := page.Events[len(page.Events)-1].ID
			next = &last
		}
		w.SetCursor(next)
		forwarded += len(events)
		if !page.HasNextPage {
			return forwarded, nil
		}
	}
	return forwarded, nil
}

var knownEventTypes = map[string]models.RaffleEventType{
	string(models.EventRaffleCreated):     models.EventRaffleCreated,
	string(models.EventParticipantJoined): models.EventParticipantJoined,
	string(models.EventWinnerSelected):    models.EventWinnerSelected,
	string(models.EventRafflePaused):      models.EventRafflePaused,
	string(models.EventRaffleUnpaused):    models.EventRaffleUnpaused,
}

// ToRaffleEvent normalizes a ledger event of the raffle module.
func ToRaffleEvent(ev ledger.Event) models.RaffleEvent {
	_, name := moveTypeName(ev.Type)
	typ, ok := knownEventTypes[name]
	if !ok {
		typ = models.EventUnknown
	}
	return models.RaffleEvent{
		Type:              typ,
		MoveType:          ev.Type,
		RaffleID:          raffleIDFromPayload(ev.ParsedJSON),
		TimestampMillis:   ev.TimestampMillis,
		TransactionDigest: ev.ID.TxDigest,
		EventSeq:          ev.ID.EventSeq,
		Sender:            ev.Sender,
		Data:              ev.ParsedJSON,
	}
}
