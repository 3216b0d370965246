package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drips/internal/ledger"
	"drips/internal/models"
)

type memRegistry struct {
	mu      sync.Mutex
	ids     []string
	listErr error
}

func (r *memRegistry) Record(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, ids...)
	return nil
}

func (r *memRegistry) List(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]string(nil), r.ids...), nil
}

func newTestEngine(lq ledger.QueryService, registry KnownRaffles, diag DiagnosticFunc) *DiscoveryEngine {
	return NewDiscoveryEngine(testConfig(), lq, newTestFetcher(lq, diag), registry, diag)
}

func raffleIDs(res *models.RaffleQueryResult) []string {
	ids := make([]string, 0, len(res.Raffles))
	for _, r := range res.Raffles {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestQueryRaffles_DedupKeepsFirstSeenOrder(t *testing.T) {
	lq := newFakeLedger()
	for _, id := range []string{"0xr1", "0xr1", "0xr2", "0xr1", "0xr3", "0xr2"} {
		lq.addEvent("ParticipantJoined", map[string]any{"raffle_id": id})
	}

	res, err := newTestEngine(lq, nil, nil).QueryRaffles(context.Background(), models.RaffleQueryOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xr1", "0xr2", "0xr3"}, raffleIDs(res))
	assert.Equal(t, 3, res.TotalCount)
	assert.False(t, res.HasNextPage)
	for _, r := range res.Raffles {
		assert.True(t, r.Bare)
	}
}

func TestQueryRaffles_PaginationChainsCursor(t *testing.T) {
	lq := newFakeLedger()
	var want []string
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("0xr%d", i)
		want = append(want, id)
		lq.addEvent("RaffleCreated", map[string]any{"raffle_id": id})
	}
	engine := newTestEngine(lq, nil, nil)

	var got []string
	cursor := ""
	pages := 0
	for {
		res, err := engine.QueryRaffles(context.Background(), models.RaffleQueryOptions{Limit: 3, Cursor: cursor})
		require.NoError(t, err)
		pages++
		assert.LessOrEqual(t, len(res.Raffles), 3)
		got = append(got, raffleIDs(res)...)
		if !res.HasNextPage {
			break
		}
		require.NotEmpty(t, res.NextCursor)
		cursor = res.NextCursor
		require.Less(t, pages, 10, "pagination does not terminate")
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 4, pages)
}

func TestQueryRaffles_UnknownCursorRestarts(t *testing.T) {
	lq := newFakeLedger()
	lq.addEvent("RaffleCreated", map[string]any{"raffle_id": "0xa"})
	lq.addEvent("RaffleCreated", map[string]any{"raffle_id": "0xb"})

	res, err := newTestEngine(lq, nil, nil).QueryRaffles(context.Background(),
		models.RaffleQueryOptions{Limit: 1, Cursor: "0xgone"})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xa"}, raffleIDs(res))
	assert.True(t, res.HasNextPage)
	assert.Equal(t, "0xa", res.NextCursor)
}

func TestQueryRaffles_HugeLimit(t *testing.T) {
	lq := newFakeLedger()
	for _, id := range []string{"0xa", "0xb", "0xc"} {
		lq.addEvent("RaffleCreated", map[string]any{"raffle_id": id})
	}
	engine := newTestEngine(lq, nil, nil)

	for _, cursor := range []string{"", "0xa"} {
		res, err := engine.QueryRaffles(context.Background(), models.RaffleQueryOptions{Limit: math.MaxInt, Cursor: cursor})
		require.NoError(t, err, cursor)
		assert.False(t, res.HasNextPage, cursor)
		assert.Equal(t, "0xc", res.NextCursor, cursor)
	}
	require.NotEmpty(t, lq.eventLimits)
	for _, limit := range lq.eventLimits {
		assert.Equal(t, maxLedgerPage, limit)
	}

	page, hasNext, next := paginate([]string{"0xa", "0xb", "0xc"}, "0xa", math.MaxInt)
	assert.Equal(t, []string{"0xb", "0xc"}, page)
	assert.False(t, hasNext)
	assert.Equal(t, "0xc", next)
}

func TestQueryRaffles_SkippedEventsDiagnostic(t *testing.T) {
	t.Run("repeated raffle ids are not reported", func(t *testing.T) {
		lq := newFakeLedger()
		lq.addEvent("RaffleCreated", map[string]any{"raffle_id": "0xa"})
		lq.addEvent("ParticipantJoined", map[string]any{"raffle_id": "0xa"})
		rec := &diagRecorder{}

		_, err := newTestEngine(lq, nil, rec.fn()).QueryRaffles(context.Background(), models.RaffleQueryOptions{Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, rec.diags)
	})

	t.Run("payloads without an id are counted", func(t *testing.T) {
		lq := newFakeLedger()
		lq.addEvent("RaffleCreated", map[string]any{"raffle_id": "0xa"})
		lq.addEvent("Unrelated", map[string]any{"amount": "5"})
		lq.addEvent("Unrelated", map[string]any{"amount": "6"})
		rec := &diagRecorder{}

		_, err := newTestEngine(lq, nil, rec.fn()).QueryRaffles(context.Background(), models.RaffleQueryOptions{Limit: 10})
		require.NoError(t, err)
		require.Len(t, rec.diags, 1)
		assert.Equal(t, "events", rec.diags[0].Subject)
		assert.Equal(t, "2 events without a raffle id", rec.diags[0].Message)
	})
}

func TestQueryRaffles_EventPayloadShapes(t *testing.T) {
	lq := newFakeLedger()
	lq.addEvent("RaffleCreated", map[string]any{"raffleId": "0xcamel"})
	lq.addEvent("RaffleCreated", map[string]any{"raffle_id": map[string]any{"id": "0xwrapped"}})
	lq.addEvent("WinnerSelected", map[string]any{"data": map[string]any{"raffle_id": "0xnested"}})
	lq.addEvent("Unrelated", map[string]any{"amount": "5"})

	res, err := newTestEngine(lq, nil, nil).QueryRaffles(context.Background(), models.RaffleQueryOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xcamel", "0xwrapped", "0xnested"}, raffleIDs(res))
}

func TestQueryRaffles_PartialFailure(t *testing.T) {
	lq := newFakeLedger()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("0xr%d", i)
		lq.putObject(raffleObject(id))
		lq.addEvent("RaffleCreated", map[string]any{"raffle_id": id})
	}
	lq.objectErrs["0xr2"] = errors.New("boom")

	rec := &diagRecorder{}
	res, err := newTestEngine(lq, nil, rec.fn()).QueryRaffles(context.Background(),
		models.RaffleQueryOptions{Limit: 5, IncludeDetails: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xr0", "0xr1", "0xr3", "0xr4"}, raffleIDs(res))
	for _, r := range res.Raffles {
		assert.False(t, r.Bare)
		assert.Equal(t, "0.5 SUI", r.FormattedBalance)
	}
	assert.Contains(t, rec.components(), "discovery")
}

func TestQueryRaffles_StatusFilter(t *testing.T) {
	lq := newFakeLedger()
	lq.putObject(raffleObject("0xopen"))
	lq.putObject(raffleObject("0xwon", withWinner("0xwinner")))
	lq.putObject(raffleObject("0xexpired", withDeadline(testNow.Add(-time.Minute)), paused()))
	for _, id := range []string{"0xopen", "0xwon", "0xexpired"} {
		lq.addEvent("RaffleCreated", map[string]any{"raffle_id": id})
	}
	engine := newTestEngine(lq, nil, nil)

	tests := []struct {
		filter models.StatusFilter
		want   []string
	}{
		{models.StatusActive, []string{"0xopen"}},
		{models.StatusEnded, []string{"0xwon", "0xexpired"}},
		{models.StatusAll, []string{"0xopen", "0xwon", "0xexpired"}},
		{"", []string{"0xopen", "0xwon", "0xexpired"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			res, err := engine.QueryRaffles(context.Background(),
				models.RaffleQueryOptions{Limit: 10, IncludeDetails: true, Status: tt.filter})
			require.NoError(t, err)
			assert.Equal(t, tt.want, raffleIDs(res))
		})
	}

	// the filter needs details, bare pages are not filtered
	res, err := engine.QueryRaffles(context.Background(), models.RaffleQueryOptions{Limit: 10, Status: models.StatusActive})
	require.NoError(t, err)
	assert.Len(t, res.Raffles, 3)
}

func TestQueryRaffles_CapabilityFallback(t *testing.T) {
	lq := newFakeLedger()
	lq.eventsErr = errors.New("events unavailable")
	lq.owned["0xhouse"] = []ledger.Object{
		operatorCap("0xc1", "0xr1"),
		{ObjectID: "0xcoin", Type: "0x2::coin::Coin<0x2::sui::SUI>", HasContent: true, Fields: map[string]any{"balance": "1"}},
		operatorCap("0xc2", map[string]any{"id": "0xr2"}),
		operatorCap("0xc3", map[string]any{"id": map[string]any{"id": "0xr3"}}),
		operatorCap("0xc4", "0xr1"),
	}

	rec := &diagRecorder{}
	res, err := newTestEngine(lq, nil, rec.fn()).QueryRaffles(context.Background(), models.RaffleQueryOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xr1", "0xr2", "0xr3"}, raffleIDs(res))
	assert.Equal(t, []string{"discovery"}, rec.components())
}

func TestQueryRaffles_HouseRaffleObjects(t *testing.T) {
	lq := newFakeLedger()
	lq.owned["0xhouse"] = []ledger.Object{
		raffleObject("0xr9"),
		{ObjectID: "0xother", Type: "0xpkg::house::House", HasContent: true},
	}

	res, err := newTestEngine(lq, nil, nil).QueryRaffles(context.Background(), models.RaffleQueryOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xr9"}, raffleIDs(res))
	// capabilities and raffle objects share one owned-object scan
	assert.Equal(t, 1, lq.count("GetOwnedObjects"))
}

func TestQueryRaffles_NothingFoundIsNotAnError(t *testing.T) {
	lq := newFakeLedger()
	lq.eventsErr = errors.New("events unavailable")

	res, err := newTestEngine(lq, nil, nil).QueryRaffles(context.Background(),
		models.RaffleQueryOptions{IncludeDetails: true})
	require.NoError(t, err)
	assert.Empty(t, res.Raffles)
	assert.False(t, res.HasNextPage)
	assert.Zero(t, res.TotalCount)
}

func TestQueryRaffles_AllTiersFailed(t *testing.T) {
	lq := newFakeLedger()
	lq.eventsErr = errors.New("events unavailable")
	lq.ownedErrs["0xhouse"] = errors.New("owned objects unavailable")

	_, err := newTestEngine(lq, nil, nil).QueryRaffles(context.Background(), models.RaffleQueryOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestQueryRaffles_Registry(t *testing.T) {
	t.Run("records live discoveries", func(t *testing.T) {
		lq := newFakeLedger()
		lq.addEvent("RaffleCreated", map[string]any{"raffle_id": "0xr1"})
		reg := &memRegistry{}

		_, err := newTestEngine(lq, reg, nil).QueryRaffles(context.Background(), models.RaffleQueryOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"0xr1"}, reg.ids)
	})

	t.Run("serves known ids when live sources are empty", func(t *testing.T) {
		lq := newFakeLedger()
		lq.eventsErr = errors.New("events unavailable")
		lq.ownedErrs["0xhouse"] = errors.New("owned objects unavailable")
		reg := &memRegistry{ids: []string{"0xold", "0xolder", "0xold"}}

		res, err := newTestEngine(lq, reg, nil).QueryRaffles(context.Background(), models.RaffleQueryOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"0xold", "0xolder"}, raffleIDs(res))
	})

	t.Run("registry failure after live failures", func(t *testing.T) {
		lq := newFakeLedger()
		lq.eventsErr = errors.New("events unavailable")
		lq.ownedErrs["0xhouse"] = errors.New("owned objects unavailable")
		reg := &memRegistry{listErr: errors.New("redis down")}

		_, err := newTestEngine(lq, reg, nil).QueryRaffles(context.Background(), models.RaffleQueryOptions{})
		assert.ErrorIs(t, err, ErrNetwork)
	})
}

func TestGetRafflesByCreator(t *testing.T) {
	lq := newFakeLedger()
	lq.putObject(raffleObject("0xr1"))
	lq.putObject(raffleObject("0xr3", withWinner("0xw")))
	lq.owned["0xalice"] = []ledger.Object{
		operatorCap("0xc1", "0xr1"),
		operatorCap("0xc2", "0xr2"), // raffle no longer exists
		operatorCap("0xc3", map[string]any{"id": "0xr3"}),
	}
	engine := newTestEngine(lq, nil, nil)

	res, err := engine.GetRafflesByCreator(context.Background(), "0xalice", models.RaffleQueryOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xr1", "0xr3"}, raffleIDs(res))
	assert.Equal(t, 3, res.TotalCount)

	res, err = engine.GetRafflesByCreator(context.Background(), "0xalice",
		models.RaffleQueryOptions{Limit: 10, Status: models.StatusEnded})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xr3"}, raffleIDs(res))

	res, err = engine.GetRafflesByCreator(context.Background(), "0xalice", models.RaffleQueryOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xr1"}, raffleIDs(res))
	assert.True(t, res.HasNextPage)

	lq.ownedErrs["0xbob"] = errors.New("timeout")
	_, err = engine.GetRafflesByCreator(context.Background(), "0xbob", models.RaffleQueryOptions{})
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestSearchRaffles(t *testing.T) {
	lq := newFakeLedger()
	lq.putObject(raffleObject("0xr1", withPrize("0xn1")))
	lq.putObject(raffleObject("0xr2", withPrize("0xn2")))
	lq.putObject(raffleObject("0xr3"))
	lq.putObject(nftObject("0xn1", "Golden Sword", "Forged in fire", "Armory"))
	lq.putObject(nftObject("0xn2", "Silver Shield", "Blocks a sword or two", "Bastion"))
	for _, id := range []string{"0xr1", "0xr2", "0xr3"} {
		lq.addEvent("RaffleCreated", map[string]any{"raffle_id": id})
	}
	engine := newTestEngine(lq, nil, nil)

	tests := []struct {
		term string
		want []string
	}{
		{"SWORD", []string{"0xr1", "0xr2"}},
		{"bastion", []string{"0xr2"}},
		{"fire", []string{"0xr1"}},
		{"dragon", []string{}},
		{"", []string{"0xr1", "0xr2"}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			res, err := engine.SearchRaffles(context.Background(), tt.term, models.RaffleQueryOptions{Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, tt.want, raffleIDs(res))
		})
	}
}

func TestMoveTypeName(t *testing.T) {
	module, name := moveTypeName("0xpkg::raffle::Raffle<0x2::sui::SUI, 0xa::b::C>")
	assert.Equal(t, "raffle", module)
	assert.Equal(t, "Raffle", name)

	module, name = moveTypeName("garbage")
	assert.Empty(t, module)
	assert.Empty(t, name)
}
