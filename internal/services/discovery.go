package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"drips/internal/config"
	"drips/internal/ledger"
	"drips/internal/models"
)

const (
	defaultRaffleLimit = 20
	// maxLedgerPage is the largest page the fullnode serves for list queries.
	maxLedgerPage = 50
)

// KnownRaffles remembers raffle IDs seen by earlier discoveries. Discovery
// falls back to it when no live source yields anything.
type KnownRaffles interface {
	Record(ctx context.Context, ids []string) error
	List(ctx context.Context) ([]string, error)
}

// DiscoveryEngine reconstructs the set of raffle IDs from events, operator
// capabilities and house-owned objects, then pages through it.
//
// Pagination is client side: the cursor is the last raffle ID of the
// previous page. It is not stable when the event log grows between calls.
type DiscoveryEngine struct {
	cfg      config.Config
	ledger   ledger.QueryService
	details  *DetailFetcher
	registry KnownRaffles
	diag     DiagnosticFunc
}

// NewDiscoveryEngine creates a DiscoveryEngine. registry may be nil.
func NewDiscoveryEngine(cfg config.Config, lq ledger.QueryService, details *DetailFetcher, registry KnownRaffles, diag DiagnosticFunc) *DiscoveryEngine {
	return &DiscoveryEngine{
		cfg:      cfg,
		ledger:   lq,
		details:  details,
		registry: registry,
		diag:     diag,
	}
}

// pageQuery is what a tier needs to know to stop scanning early.
type pageQuery struct {
	limit  int
	cursor string
}

type tier struct {
	name string
	run  func(ctx context.Context, q pageQuery) ([]string, error)
}

// QueryRaffles returns one page of discovered raffles. Finding nothing is
// not an error; ErrNetwork is returned only when every source failed.
func (e *DiscoveryEngine) QueryRaffles(ctx context.Context, opts models.RaffleQueryOptions) (*models.RaffleQueryResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultRaffleLimit
	}
	ids, err := e.discoverIDs(ctx, pageQuery{limit: opts.Limit, cursor: opts.Cursor})
	if err != nil {
		return nil, err
	}

	page, hasNext, next := paginate(ids, opts.Cursor, opts.Limit)
	result := &models.RaffleQueryResult{
		Raffles:     []models.RaffleDetails{},
		HasNextPage: hasNext,
		NextCursor:  next,
		TotalCount:  len(ids),
	}
	if !opts.IncludeDetails {
		for _, id := range page {
			result.Raffles = append(result.Raffles, bareRaffle(id))
		}
		return result, nil
	}
	for _, d := range e.fetchDetails(ctx, page) {
		if matchesStatus(opts.Status, d.Status) {
			result.Raffles = append(result.Raffles, d)
		}
	}
	return result, nil
}

// GetRafflesByCreator lists raffles whose operator capability is owned by
// address. Details are resolved one at a time; failures are skipped.
func (e *DiscoveryEngine) GetRafflesByCreator(ctx context.Context, address string, opts models.RaffleQueryOptions) (*models.RaffleQueryResult, error) {
	if address == "" {
		return nil, notFound("creator", "(empty address)")
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultRaffleLimit
	}
	objs, err := e.ownedObjects(ctx, address)
	if err != nil {
		return nil, networkError("raffles by creator "+address, err)
	}
	ids := newIDSet()
	for _, obj := range objs {
		ids.add(capabilityRaffleID(obj))
	}

	page, hasNext, next := paginate(ids.list, opts.Cursor, opts.Limit)
	result := &models.RaffleQueryResult{
		Raffles:     []models.RaffleDetails{},
		HasNextPage: hasNext,
		NextCursor:  next,
		TotalCount:  len(ids.list),
	}
	for _, id := range page {
		d, err := e.details.GetRaffleDetails(ctx, id)
		if err != nil {
			e.diag.report("discovery", id, "skipping creator raffle", err)
			continue
		}
		if matchesStatus(opts.Status, d.Status) {
			result.Raffles = append(result.Raffles, *d)
		}
	}
	return result, nil
}

// SearchRaffles filters one discovery page by a case-insensitive match on
// the prize name, description and collection. Raffles without prize
// metadata never match.
func (e *DiscoveryEngine) SearchRaffles(ctx context.Context, term string, opts models.RaffleQueryOptions) (*models.RaffleQueryResult, error) {
	opts.IncludeDetails = true
	result, err := e.QueryRaffles(ctx, opts)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	matched := []models.RaffleDetails{}
	for _, d := range result.Raffles {
		if matchesTerm(d.NFTMetadata, needle) {
			matched = append(matched, d)
		}
	}
	result.Raffles = matched
	return result, nil
}

func matchesTerm(meta *models.NFTMetadata, needle string) bool {
	if meta == nil {
		return false
	}
	for _, s := range []string{meta.Name, meta.Description, meta.Collection} {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// discoverIDs runs the tiers in order and returns the first non-empty
// result. The registry is consulted only when all live tiers came back empty.
func (e *DiscoveryEngine) discoverIDs(ctx context.Context, q pageQuery) ([]string, error) {
	house := &houseScan{engine: e}
	tiers := []tier{
		{name: "events", run: e.eventTier},
		{name: "capabilities", run: house.capabilityTier},
		{name: "house objects", run: house.raffleObjectTier},
	}

	var lastErr error
	ranClean := false
	for _, t := range tiers {
		ids, err := t.run(ctx, q)
		if err != nil {
			e.diag.report("discovery", t.name, "tier skipped", err)
			lastErr = err
			continue
		}
		ranClean = true
		if len(ids) > 0 {
			e.remember(ctx, ids)
			return ids, nil
		}
	}

	if e.registry != nil {
		known, err := e.registry.List(ctx)
		if err != nil {
			e.diag.report("discovery", "registry", "tier skipped", err)
			lastErr = err
		} else {
			ranClean = true
			set := newIDSet()
			for _, id := range known {
				set.add(id)
			}
			if len(set.list) > 0 {
				return set.list, nil
			}
		}
	}

	if !ranClean && lastErr != nil {
		return nil, networkError("discover raffles", lastErr)
	}
	return nil, nil
}

func (e *DiscoveryEngine) remember(ctx context.Context, ids []string) {
	if e.registry == nil {
		return
	}
	if err := e.registry.Record(ctx, ids); err != nil {
		e.diag.report("discovery", "registry", "could not record raffle ids", err)
	}
}

// eventTier scans raffle module events newest first. It over-fetches since
// one raffle emits several events, and stops once the page after the
// cursor plus one look-ahead ID is known.
func (e *DiscoveryEngine) eventTier(ctx context.Context, q pageQuery) ([]string, error) {
	filter := ledger.EventFilter{Package: e.cfg.PackageID, Module: e.cfg.RaffleModule}
	pageSize := min(q.limit, maxLedgerPage/2) * 2

	ids := newIDSet()
	var cursor *ledger.EventID
	scanned, skipped := 0, 0
	for {
		page, err := e.ledger.QueryEvents(ctx, filter, cursor, pageSize, true)
		if err != nil {
			if len(ids.list) == 0 {
				return nil, err
			}
			e.diag.report("discovery", "events", "event scan cut short", err)
			break
		}
		for _, ev := range page.Events {
			scanned++
			id := raffleIDFromPayload(ev.ParsedJSON)
			if id == "" {
				skipped++
				continue
			}
			ids.add(id)
		}
		if !page.HasNextPage || page.NextCursor == nil || scanned >= e.cfg.MaxEventScan || ids.coversPage(q) {
			break
		}
		cursor = page.NextCursor
	}
	if skipped > 0 {
		e.diag.report("discovery", "events", fmt.Sprintf("%d events without a raffle id", skipped), nil)
	}
	return ids.list, nil
}

// houseScan lists the house's owned objects once per discovery call and
// shares them between the tiers that read them.
type houseScan struct {
	engine *DiscoveryEngine
	loaded bool
	objs   []ledger.Object
	err    error
}

func (h *houseScan) load(ctx context.Context) ([]ledger.Object, error) {
	if !h.loaded {
		h.objs, h.err = h.engine.ownedObjects(ctx, h.engine.cfg.HouseID)
		h.loaded = true
	}
	return h.objs, h.err
}

func (h *houseScan) capabilityTier(ctx context.Context, _ pageQuery) ([]string, error) {
	objs, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	ids := newIDSet()
	for _, obj := range objs {
		ids.add(capabilityRaffleID(obj))
	}
	return ids.list, nil
}

func (h *houseScan) raffleObjectTier(ctx context.Context, _ pageQuery) ([]string, error) {
	objs, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	ids := newIDSet()
	for _, obj := range objs {
		module, name := moveTypeName(obj.Type)
		if module == h.engine.cfg.RaffleModule && name == "Raffle" {
			ids.add(obj.ObjectID)
		}
	}
	return ids.list, nil
}

// ownedObjects walks every page of owner's objects up to MaxOwnedScan.
func (e *DiscoveryEngine) ownedObjects(ctx context.Context, owner string) ([]ledger.Object, error) {
	var (
		all    []ledger.Object
		cursor string
	)
	for {
		page, err := e.ledger.GetOwnedObjects(ctx, owner, cursor, maxLedgerPage)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Objects...)
		if !page.HasNextPage || page.NextCursor == "" || len(all) >= e.cfg.MaxOwnedScan {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// capabilityRaffleID returns the raffle an operator capability controls, or
// "" when obj is not an operator capability.
func capabilityRaffleID(obj ledger.Object) string {
	if !strings.Contains(obj.Type, "OperatorCap") {
		return ""
	}
	return extractID(moveStructFields(obj.Fields)["raffle_id"])
}

var payloadIDKeys = []string{"raffle_id", "raffleId", "id"}

// raffleIDFromPayload looks for a raffle ID at the top level of an event
// payload, then one level down.
func raffleIDFromPayload(payload map[string]any) string {
	if id := idFromKeys(payload); id != "" {
		return id
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if nested, ok := payload[k].(map[string]any); ok {
			if id := idFromKeys(moveStructFields(nested)); id != "" {
				return id
			}
		}
	}
	return ""
}

func idFromKeys(m map[string]any) string {
	for _, k := range payloadIDKeys {
		if id := extractID(m[k]); id != "" {
			return id
		}
	}
	return ""
}

// moveTypeName splits "0xpkg::module::Name<T>" into module and name.
func moveTypeName(t string) (module, name string) {
	base, _, _ := strings.Cut(t, "<")
	parts := strings.Split(base, "::")
	if len(parts) != 3 {
		return "", ""
	}
	return parts[1], parts[2]
}

func (e *DiscoveryEngine) fetchDetails(ctx context.Context, ids []string) []models.RaffleDetails {
	results := make([]*models.RaffleDetails, len(ids))
	var g errgroup.Group
	if e.cfg.MaxConcurrency > 0 {
		g.SetLimit(e.cfg.MaxConcurrency)
	}
	for i, id := range ids {
		g.Go(func() error {
			d, err := e.details.GetRaffleDetails(ctx, id)
			if err != nil {
				e.diag.report("discovery", id, "dropping raffle", err)
				return nil
			}
			results[i] = d
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.RaffleDetails, 0, len(ids))
	for _, d := range results {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out
}

func paginate(ids []string, cursor string, limit int) (page []string, hasNext bool, next string) {
	start := 0
	if cursor != "" {
		if i := slices.Index(ids, cursor); i >= 0 {
			start = i + 1
		}
	}
	end := start + min(limit, len(ids)-start)
	page = ids[start:end]
	if len(page) > 0 {
		next = page[len(page)-1]
	}
	return page, end < len(ids), next
}

func matchesStatus(filter models.StatusFilter, s models.RaffleStatus) bool {
	switch filter {
	case models.StatusActive:
		return s.IsActive
	case models.StatusEnded:
		return s.IsEnded
	default:
		return true
	}
}

func bareRaffle(id string) models.RaffleDetails {
	return models.RaffleDetails{RaffleRecord: models.RaffleRecord{ID: id}, Bare: true}
}

// idSet keeps first-seen order.
type idSet struct {
	seen map[string]struct{}
	list []string
}

func newIDSet() *idSet {
	return &idSet{seen: make(map[string]struct{})}
}

// add reports whether id was new. Empty IDs are ignored.
func (s *idSet) add(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.list = append(s.list, id)
	return true
}

// coversPage reports whether the IDs after q.cursor fill a page and one more.
func (s *idSet) coversPage(q pageQuery) bool {
	start := 0
	if q.cursor != "" {
		i := slices.Index(s.list, q.cursor)
		if i < 0 {
			return false
		}
		start = i + 1
	}
	return len(s.list)-start > q.limit
}
