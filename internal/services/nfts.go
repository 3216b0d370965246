package services

import (
	"context"

	"drips/internal/ledger"
	"drips/internal/models"
)

const defaultNFTLimit = 50

// NFTScanner lists the objects an address owns and judges which of them
// can be escrowed as a raffle prize.
type NFTScanner struct {
	ledger  ledger.QueryService
	details *DetailFetcher
	diag    DiagnosticFunc
}

// NewNFTScanner creates an NFTScanner.
func NewNFTScanner(lq ledger.QueryService, details *DetailFetcher, diag DiagnosticFunc) *NFTScanner {
	return &NFTScanner{ledger: lq, details: details, diag: diag}
}

// GetRafflableNFTs classifies one server page of owner's objects. The
// server's cursor is passed through untouched.
func (s *NFTScanner) GetRafflableNFTs(ctx context.Context, owner string, opts models.GetRafflableNFTsOptions) (*models.RafflableNFTsResult, error) {
	if owner == "" {
		return nil, notFound("owner", "(empty address)")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultNFTLimit
	}
	page, err := s.ledger.GetOwnedObjects(ctx, owner, opts.Cursor, limit)
	if err != nil {
		return nil, networkError("rafflable nfts of "+owner, err)
	}

	nfts := []models.RafflableNFT{}
	for _, obj := range page.Objects {
		if obj.ObjectID == "" || obj.Type == "" {
			continue
		}
		c := Classify(obj)
		if opts.OnlyCompatible && !c.Compatible {
			continue
		}
		nft := models.RafflableNFT{
			ObjectID:              obj.ObjectID,
			Type:                  obj.Type,
			Version:               obj.Version,
			Digest:                obj.Digest,
			IsCompatible:          c.Compatible,
			IncompatibilityReason: c.Reason,
		}
		if opts.IncludeMetadata && c.Compatible {
			meta, err := s.details.GetNFTMetadata(ctx, obj.ObjectID)
			if err != nil {
				s.diag.report("nfts", obj.ObjectID, "metadata unavailable", err)
			}
			nft.Metadata = meta
		}
		nfts = append(nfts, nft)
	}

	return &models.RafflableNFTsResult{
		NFTs:        nfts,
		Total:       len(nfts),
		HasNextPage: page.HasNextPage,
		NextCursor:  page.NextCursor,
	}, nil
}

// GetNFTMetadata returns nil, nil when the object does not exist.
func (s *NFTScanner) GetNFTMetadata(ctx context.Context, id string) (*models.NFTMetadata, error) {
	return s.details.GetNFTMetadata(ctx, id)
}
