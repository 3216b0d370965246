package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"drips/internal/config"
	"drips/internal/ledger"
	"drips/internal/models"
)

const coinType = "0x2::sui::SUI"

// TxPlanner turns raffle operations into move calls for an external signer.
// It checks the raffle state first so that doomed transactions are never
// handed off.
type TxPlanner struct {
	cfg     config.Config
	ledger  ledger.QueryService
	details *DetailFetcher
	now     func() time.Time
}

// NewTxPlanner creates a TxPlanner.
func NewTxPlanner(cfg config.Config, lq ledger.QueryService, details *DetailFetcher) *TxPlanner {
	return &TxPlanner{cfg: cfg, ledger: lq, details: details, now: time.Now}
}

func (p *TxPlanner) target(function string) string {
	return p.cfg.PackageID + "::" + p.cfg.RaffleModule + "::" + function
}

// PlanCreateRaffle escrows an owned NFT into a new raffle. The operator
// capability returned by the call goes back to the sender.
func (p *TxPlanner) PlanCreateRaffle(ctx context.Context, params models.CreateRaffleParams) (*models.MoveCall, error) {
	if params.NFTID == "" {
		return nil, invalidArgument("nft id is required")
	}
	if !params.Deadline.After(p.now()) {
		return nil, invalidArgument("deadline %s is not in the future", params.Deadline.UTC().Format(time.RFC3339))
	}
	if err := checkCapacity(params); err != nil {
		return nil, err
	}
	obj, err := p.ledger.GetObject(ctx, params.NFTID)
	if err != nil {
		return nil, networkError("get nft "+params.NFTID, err)
	}
	if obj == nil || obj.Type == "" {
		return nil, notFound("nft", params.NFTID)
	}
	if c := Classify(*obj); !c.Compatible {
		return nil, invalidState("nft %s cannot be raffled: %s", params.NFTID, c.Reason)
	}

	capIndex := 1
	return &models.MoveCall{
		Target:        p.target("create_raffle"),
		TypeArguments: []string{coinType, obj.Type},
		Arguments: []models.CallArg{
			models.ObjectArg(params.NFTID),
			models.PureArg("u64", strconv.FormatInt(params.Deadline.UnixMilli(), 10)),
		},
		Action:              "create_raffle",
		Description:         "create a raffle for " + params.NFTID + " closing " + formatDeadline(params.Deadline.UnixMilli()),
		TransferResultIndex: &capIndex,
	}, nil
}

// PlanJoinRaffle fails with ErrInvalidState unless the raffle is joinable.
func (p *TxPlanner) PlanJoinRaffle(ctx context.Context, raffleID string) (*models.MoveCall, error) {
	d, err := p.details.GetRaffleDetails(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if d.Status.IsPaused {
		return nil, invalidState("raffle %s is paused", raffleID)
	}
	if !d.Status.IsJoinable {
		return nil, invalidState("raffle %s is not joinable", raffleID)
	}
	nftType, err := ExtractNFTType(d.Type)
	if err != nil {
		return nil, err
	}
	return &models.MoveCall{
		Target:        p.target("join_raffle"),
		TypeArguments: []string{coinType, nftType},
		Arguments:     []models.CallArg{models.ObjectArg(raffleID)},
		Action:        "join_raffle",
		Description:   "join raffle " + raffleID,
	}, nil
}

// PlanSelectWinner draws the winner with the raffle's operator capability.
func (p *TxPlanner) PlanSelectWinner(ctx context.Context, raffleID, operatorCapID string) (*models.MoveCall, error) {
	if operatorCapID == "" {
		return nil, invalidArgument("operator capability id is required")
	}
	d, err := p.details.GetRaffleDetails(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if d.Status.HasWinner {
		return nil, invalidState("raffle %s already has winner %s", raffleID, d.WinnerAddress)
	}
	nftType, err := ExtractNFTType(d.Type)
	if err != nil {
		return nil, err
	}
	return &models.MoveCall{
		Target:        p.target("select_winner"),
		TypeArguments: []string{coinType, nftType},
		Arguments:     []models.CallArg{models.ObjectArg(raffleID), models.ObjectArg(operatorCapID)},
		Action:        "select_winner",
		Description:   "select the winner of raffle " + raffleID,
	}, nil
}

var raffleTypeArgs = regexp.MustCompile(`Raffle<[^,]+,\s*(.+)>$`)

// ExtractNFTType returns the prize type argument of a raffle type, e.g.
// "0xa::nft::Nft" for "0xp::raffle::Raffle<0x2::sui::SUI, 0xa::nft::Nft>".
func ExtractNFTType(raffleType string) (string, error) {
	m := raffleTypeArgs.FindStringSubmatch(raffleType)
	if m == nil {
		return "", fmt.Errorf("no prize type in raffle type %q: %w", raffleType, ErrNotFound)
	}
	return strings.TrimSpace(m[1]), nil
}

// RaffleBuilder assembles CreateRaffleParams step by step.
type RaffleBuilder struct {
	currency Currency
	params   models.CreateRaffleParams
	err      error
}

// NewRaffleBuilder creates a builder pricing entries in currency.
func NewRaffleBuilder(currency Currency) *RaffleBuilder {
	return &RaffleBuilder{currency: currency}
}

// SetNFT sets the object escrowed as the prize.
func (b *RaffleBuilder) SetNFT(id string) *RaffleBuilder {
	b.params.NFTID = id
	return b
}

// SetDeadline sets when the raffle stops accepting entries.
func (b *RaffleBuilder) SetDeadline(t time.Time) *RaffleBuilder {
	b.params.Deadline = t
	return b
}

// SetDeadlineFromNow sets the deadline d after the current time.
func (b *RaffleBuilder) SetDeadlineFromNow(d time.Duration) *RaffleBuilder {
	b.params.Deadline = time.Now().Add(d)
	return b
}

// SetEntryCost takes a human amount such as 0.1 (SUI).
func (b *RaffleBuilder) SetEntryCost(amount decimal.Decimal) *RaffleBuilder {
	if amount.IsNegative() {
		b.err = invalidArgument("entry cost %s is negative", amount)
		return b
	}
	cost := b.currency.ToSmallestUnit(amount)
	b.params.EntryCost = &cost
	return b
}

// SetMaxCapacity caps the total number of entries.
func (b *RaffleBuilder) SetMaxCapacity(n uint64) *RaffleBuilder {
	b.params.MaxCapacity = &n
	return b
}

// SetMaxPerParticipant caps the entries a single address may hold.
func (b *RaffleBuilder) SetMaxPerParticipant(n uint64) *RaffleBuilder {
	b.params.MaxPerParticipant = &n
	return b
}

// Build validates the collected parameters.
func (b *RaffleBuilder) Build() (models.CreateRaffleParams, error) {
	switch {
	case b.err != nil:
		return models.CreateRaffleParams{}, b.err
	case b.params.NFTID == "":
		return models.CreateRaffleParams{}, invalidArgument("nft id is required")
	case b.params.Deadline.IsZero():
		return models.CreateRaffleParams{}, invalidArgument("deadline is required")
	}
	if err := checkCapacity(b.params); err != nil {
		return models.CreateRaffleParams{}, err
	}
	return b.params, nil
}

func checkCapacity(params models.CreateRaffleParams) error {
	if params.MaxCapacity != nil && params.MaxPerParticipant != nil &&
		*params.MaxPerParticipant > *params.MaxCapacity {
		return invalidArgument("max per participant %d exceeds max capacity %d", *params.MaxPerParticipant, *params.MaxCapacity)
	}
	return nil
}
