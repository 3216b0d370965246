package services

import (
	"context"

	"drips/internal/config"
	"drips/internal/ledger"
	"drips/internal/models"
)

// RaffleService is the read surface of the raffle client plus the
// transaction planner. Every call reads the ledger afresh.
type RaffleService struct {
	ledger    ledger.QueryService
	details   *DetailFetcher
	discovery *DiscoveryEngine
	scanner   *NFTScanner
	planner   *TxPlanner
}

// NewRaffleService wires the raffle components over one ledger connection.
// registry may be nil; diag may be nil to drop diagnostics.
func NewRaffleService(cfg config.Config, lq ledger.QueryService, registry KnownRaffles, diag DiagnosticFunc) *RaffleService {
	details := NewDetailFetcher(cfg, lq, diag)
	return &RaffleService{
		ledger:    lq,
		details:   details,
		discovery: NewDiscoveryEngine(cfg, lq, details, registry, diag),
		scanner:   NewNFTScanner(lq, details, diag),
		planner:   NewTxPlanner(cfg, lq, details),
	}
}

// GetRaffleDetails returns the current state of one raffle.
func (s *RaffleService) GetRaffleDetails(ctx context.Context, id string) (*models.RaffleDetails, error) {
	return s.details.GetRaffleDetails(ctx, id)
}

// QueryRaffles returns one page of discovered raffles.
func (s *RaffleService) QueryRaffles(ctx context.Context, opts models.RaffleQueryOptions) (*models.RaffleQueryResult, error) {
	return s.discovery.QueryRaffles(ctx, opts)
}

// GetRafflesByCreator returns raffles operated by address.
func (s *RaffleService) GetRafflesByCreator(ctx context.Context, address string, opts models.RaffleQueryOptions) (*models.RaffleQueryResult, error) {
	return s.discovery.GetRafflesByCreator(ctx, address, opts)
}

// SearchRaffles matches prize metadata against term.
func (s *RaffleService) SearchRaffles(ctx context.Context, term string, opts models.RaffleQueryOptions) (*models.RaffleQueryResult, error) {
	return s.discovery.SearchRaffles(ctx, term, opts)
}

// GetRafflableNFTs classifies the objects owned by address.
func (s *RaffleService) GetRafflableNFTs(ctx context.Context, address string, opts models.GetRafflableNFTsOptions) (*models.RafflableNFTsResult, error) {
	return s.scanner.GetRafflableNFTs(ctx, address, opts)
}

// GetNFTMetadata returns nil, nil when the object does not exist.
func (s *RaffleService) GetNFTMetadata(ctx context.Context, id string) (*models.NFTMetadata, error) {
	return s.scanner.GetNFTMetadata(ctx, id)
}

// Planner returns the transaction planner.
func (s *RaffleService) Planner() *TxPlanner {
	return s.planner
}

// GetActiveRaffles returns the active raffles among ids, in order.
// Raffles that cannot be fetched are skipped.
func (s *RaffleService) GetActiveRaffles(ctx context.Context, ids []string) []models.RaffleDetails {
	return s.filterKnown(ctx, ids, func(st models.RaffleStatus) bool { return st.IsActive })
}

// GetEndedRaffles returns the ended raffles among ids, in order.
// Raffles that cannot be fetched are skipped.
func (s *RaffleService) GetEndedRaffles(ctx context.Context, ids []string) []models.RaffleDetails {
	return s.filterKnown(ctx, ids, func(st models.RaffleStatus) bool { return st.IsEnded })
}

func (s *RaffleService) filterKnown(ctx context.Context, ids []string, keep func(models.RaffleStatus) bool) []models.RaffleDetails {
	out := []models.RaffleDetails{}
	for _, d := range s.discovery.fetchDetails(ctx, ids) {
		if keep(d.Status) {
			out = append(out, d)
		}
	}
	return out
}

// HouseFields lists the dynamic fields under the house object. It is a
// diagnostic aid and plays no part in discovery.
func (s *RaffleService) HouseFields(ctx context.Context, houseID string, limit int) (*ledger.DynamicFieldPage, error) {
	if limit <= 0 {
		limit = maxLedgerPage
	}
	page, err := s.ledger.GetDynamicFields(ctx, houseID, "", limit)
	if err != nil {
		return nil, networkError("house fields "+houseID, err)
	}
	return page, nil
}

// PlanCreateRaffle plans a create_raffle call.
func (s *RaffleService) PlanCreateRaffle(ctx context.Context, params models.CreateRaffleParams) (*models.MoveCall, error) {
	return s.planner.PlanCreateRaffle(ctx, params)
}

// PlanJoinRaffle plans a join_raffle call.
func (s *RaffleService) PlanJoinRaffle(ctx context.Context, raffleID string) (*models.MoveCall, error) {
	return s.planner.PlanJoinRaffle(ctx, raffleID)
}

// PlanSelectWinner plans a select_winner call.
func (s *RaffleService) PlanSelectWinner(ctx context.Context, raffleID, operatorCapID string) (*models.MoveCall, error) {
	return s.planner.PlanSelectWinner(ctx, raffleID, operatorCapID)
}
