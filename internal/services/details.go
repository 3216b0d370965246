package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"drips/internal/config"
	"drips/internal/ledger"
	"drips/internal/models"
)

// DetailFetcher resolves a raffle ID into a fully derived RaffleDetails.
type DetailFetcher struct {
	ledger   ledger.QueryService
	currency Currency
	diag     DiagnosticFunc
	now      func() time.Time
}

// NewDetailFetcher creates a DetailFetcher.
func NewDetailFetcher(cfg config.Config, lq ledger.QueryService, diag DiagnosticFunc) *DetailFetcher {
	return &DetailFetcher{
		ledger:   lq,
		currency: Currency{Symbol: cfg.CurrencySymbol, Decimals: cfg.CurrencyDecimals},
		diag:     diag,
		now:      time.Now,
	}
}

// GetRaffleDetails fetches a raffle and derives its status at the current
// time. Prize metadata is attached when it can be fetched.
func (f *DetailFetcher) GetRaffleDetails(ctx context.Context, id string) (*models.RaffleDetails, error) {
	if id == "" {
		return nil, notFound("raffle", "(empty id)")
	}
	obj, err := f.ledger.GetObject(ctx, id)
	if err != nil {
		return nil, networkError("get raffle "+id, err)
	}
	if obj == nil || obj.Fields == nil {
		return nil, notFound("raffle", id)
	}

	rec, err := parseRaffle(*obj)
	if err != nil {
		return nil, fmt.Errorf("raffle %s is malformed (%v): %w", id, err, ErrNotFound)
	}

	details := &models.RaffleDetails{
		RaffleRecord:      rec,
		Status:            DeriveStatus(rec, f.now().UnixMilli()),
		FormattedDeadline: formatDeadline(rec.DeadlineMillis),
		FormattedBalance:  f.currency.FormatAmount(rec.Balance),
	}

	if rec.PrizeItemID == "" {
		f.diag.report("details", id, "raffle has no prize item", nil)
		return details, nil
	}
	meta, err := f.GetNFTMetadata(ctx, rec.PrizeItemID)
	if err != nil {
		f.diag.report("details", rec.PrizeItemID, "prize metadata unavailable for raffle "+id, err)
		return details, nil
	}
	details.NFTMetadata = meta
	return details, nil
}

// GetNFTMetadata reads display and content metadata of an object. It
// returns nil, nil when the object does not exist.
func (f *DetailFetcher) GetNFTMetadata(ctx context.Context, id string) (*models.NFTMetadata, error) {
	obj, err := f.ledger.GetObject(ctx, id)
	if err != nil {
		return nil, networkError("get nft metadata "+id, err)
	}
	if obj == nil {
		return nil, nil
	}
	return metadataFromObject(*obj), nil
}

func metadataFromObject(obj ledger.Object) *models.NFTMetadata {
	display := obj.Display
	content := obj.Fields

	meta := &models.NFTMetadata{
		ObjectID:    obj.ObjectID,
		Name:        firstNonEmpty(stringField(display, "name"), stringField(content, "name"), "Unknown NFT"),
		Description: firstNonEmpty(stringField(display, "description"), stringField(content, "description"), "No description available"),
		ImageURL:    firstNonEmpty(stringField(display, "image_url"), stringField(content, "url"), stringField(content, "image_url")),
		Symbol:      stringField(content, "symbol"),
		Creator:     firstNonEmpty(stringField(display, "creator"), stringField(content, "creator")),
		Collection:  stringField(content, "collection"),
	}
	if attrs, ok := content["attributes"].([]any); ok {
		meta.Attributes = attrs
	}
	return meta
}

func parseRaffle(obj ledger.Object) (models.RaffleRecord, error) {
	fields := obj.Fields
	rec := models.RaffleRecord{
		ID:            obj.ObjectID,
		Version:       obj.Version,
		Digest:        obj.Digest,
		Type:          obj.Type,
		IsPaused:      boolField(fields, "is_raffle_paused"),
		IsItemLocked:  boolField(fields, "is_raffle_item_locked"),
		PrizeItemID:   optionalID(fields, "raffle_item_id"),
		WinnerAddress: optionalID(fields, "winner_address"),
		OperatorCapID: optionalID(fields, "operator_cap_id"),
		Fields:        fields,
	}

	raw, ok := fields["deadline"]
	if !ok || raw == nil {
		return rec, errors.New("no deadline")
	}
	deadline, err := extractUint(raw)
	if err != nil {
		return rec, fmt.Errorf("deadline: %w", err)
	}
	if deadline > math.MaxInt64 {
		return rec, fmt.Errorf("deadline %d out of range", deadline)
	}
	rec.DeadlineMillis = int64(deadline)

	if rec.Balance, err = uintOrZero(fields, "balance"); err != nil {
		return rec, err
	}
	if rec.ParticipantsCount, err = uintOrZero(fields, "participants_count"); err != nil {
		return rec, err
	}
	if rec.EntryCost, err = optionalUint(fields, "cost"); err != nil {
		return rec, err
	}
	if rec.MaxCapacity, err = optionalUint(fields, "max_capacity"); err != nil {
		return rec, err
	}
	if rec.MaxPerParticipant, err = optionalUint(fields, "max_per_participant"); err != nil {
		return rec, err
	}
	return rec, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
