package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"drips/internal/config"
	"drips/internal/ledger"
)

// fakeLedger is an in-memory ledger.QueryService.
// Events are stored newest first.
type fakeLedger struct {
	mu sync.Mutex

	objects    map[string]*ledger.Object
	objectErrs map[string]error
	owned      map[string][]ledger.Object
	ownedErrs  map[string]error
	events     []ledger.Event
	eventsErr  error
	dynamic    map[string][]ledger.DynamicField

	// eventLimits records the page size of every QueryEvents call.
	eventLimits []int

	calls map[string]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		objects:    make(map[string]*ledger.Object),
		objectErrs: make(map[string]error),
		owned:      make(map[string][]ledger.Object),
		ownedErrs:  make(map[string]error),
		dynamic:    make(map[string][]ledger.DynamicField),
		calls:      make(map[string]int),
	}
}

func (f *fakeLedger) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeLedger) GetObject(_ context.Context, id string) (*ledger.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetObject"]++
	if err := f.objectErrs[id]; err != nil {
		return nil, err
	}
	obj, ok := f.objects[id]
	if !ok {
		return nil, nil
	}
	cp := *obj
	return &cp, nil
}

func (f *fakeLedger) GetOwnedObjects(_ context.Context, owner, cursor string, limit int) (*ledger.ObjectPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetOwnedObjects"]++
	if err := f.ownedErrs[owner]; err != nil {
		return nil, err
	}
	all := f.owned[owner]
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := min(start+limit, len(all))
	page := &ledger.ObjectPage{Objects: append([]ledger.Object(nil), all[start:end]...)}
	if end < len(all) {
		page.HasNextPage = true
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (f *fakeLedger) QueryEvents(_ context.Context, _ ledger.EventFilter, cursor *ledger.EventID, limit int, descending bool) (*ledger.EventPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["QueryEvents"]++
	f.eventLimits = append(f.eventLimits, limit)
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	ordered := append([]ledger.Event(nil), f.events...)
	if !descending {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}
	start := 0
	if cursor != nil {
		for i, e := range ordered {
			if e.ID == *cursor {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(ordered))
	page := &ledger.EventPage{Events: ordered[start:end]}
	if end > start {
		last := ordered[end-1].ID
		page.NextCursor = &last
	}
	page.HasNextPage = end < len(ordered)
	return page, nil
}

func (f *fakeLedger) GetDynamicFields(_ context.Context, parentID, _ string, limit int) (*ledger.DynamicFieldPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetDynamicFields"]++
	if err := f.ownedErrs[parentID]; err != nil {
		return nil, err
	}
	all := f.dynamic[parentID]
	end := min(limit, len(all))
	return &ledger.DynamicFieldPage{Fields: all[:end], HasNextPage: end < len(all)}, nil
}

func (f *fakeLedger) putObject(obj ledger.Object) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[obj.ObjectID] = &obj
}

// addEvent appends an event older than every event already stored.
func (f *fakeLedger) addEvent(eventType string, payload map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq := len(f.events)
	f.events = append(f.events, ledger.Event{
		ID:              ledger.EventID{TxDigest: "tx" + strconv.Itoa(seq), EventSeq: "0"},
		Type:            "0xpkg::raffle::" + eventType,
		ParsedJSON:      payload,
		TimestampMillis: int64(1_700_000_000_000 - seq),
	})
}

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func testConfig() config.Config {
	cfg, err := config.NetworkDefaults("testnet")
	if err != nil {
		panic(err)
	}
	cfg.PackageID = "0xpkg"
	cfg.HouseID = "0xhouse"
	return cfg
}

type raffleOpt func(map[string]any)

func withWinner(addr string) raffleOpt {
	return func(f map[string]any) { f["winner_address"] = addr }
}

func paused() raffleOpt {
	return func(f map[string]any) { f["is_raffle_paused"] = true }
}

func withDeadline(t time.Time) raffleOpt {
	return func(f map[string]any) { f["deadline"] = strconv.FormatInt(t.UnixMilli(), 10) }
}

func withPrize(id string) raffleOpt {
	return func(f map[string]any) { f["raffle_item_id"] = id }
}

// raffleObject builds an open raffle closing an hour after testNow.
func raffleObject(id string, opts ...raffleOpt) ledger.Object {
	fields := map[string]any{
		"balance":               "500000000",
		"cost":                  nil,
		"deadline":              strconv.FormatInt(testNow.Add(time.Hour).UnixMilli(), 10),
		"is_raffle_paused":      false,
		"is_raffle_item_locked": true,
		"max_capacity":          nil,
		"max_per_participant":   nil,
		"participants_count":    "3",
		"winner_address":        nil,
		"operator_cap_id":       "0xcap-" + id,
	}
	for _, o := range opts {
		o(fields)
	}
	return ledger.Object{
		ObjectID:   id,
		Version:    "1",
		Digest:     "digest-" + id,
		Type:       "0xpkg::raffle::Raffle<0x2::sui::SUI, 0xnft::nft::Nft>",
		HasContent: true,
		Fields:     fields,
	}
}

func nftObject(id, name, description, collection string) ledger.Object {
	return ledger.Object{
		ObjectID:   id,
		Type:       "0xnft::nft::Nft",
		HasContent: true,
		Fields: map[string]any{
			"name":        name,
			"description": description,
			"collection":  collection,
			"url":         "https://img/" + id,
		},
	}
}

func operatorCap(id string, raffleRef any) ledger.Object {
	return ledger.Object{
		ObjectID:   id,
		Type:       "0xpkg::raffle::RaffleOperatorCap",
		HasContent: true,
		Fields:     map[string]any{"id": map[string]any{"id": id}, "raffle_id": raffleRef},
	}
}

// diagRecorder collects diagnostics for assertions.
type diagRecorder struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func (r *diagRecorder) fn() DiagnosticFunc {
	return func(d Diagnostic) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.diags = append(r.diags, d)
	}
}

func (r *diagRecorder) components() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.diags))
	for _, d := range r.diags {
		out = append(out, d.Component)
	}
	return out
}

func newTestFetcher(lq ledger.QueryService, diag DiagnosticFunc) *DetailFetcher {
	f := NewDetailFetcher(testConfig(), lq, diag)
	f.now = func() time.Time { return testNow }
	return f
}
