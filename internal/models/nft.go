package models

// NFTMetadata describes a prize or user-owned asset.
type NFTMetadata struct {
	ObjectID    string `json:"objectId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Symbol      string `json:"symbol,omitempty"`
	Creator     string `json:"creator,omitempty"`
	Collection  string `json:"collection,omitempty"`
	Attributes  []any  `json:"attributes,omitempty"`
}

// RafflableNFT is an owned object judged for use as a raffle prize.
// IncompatibilityReason is set iff IsCompatible is false.
type RafflableNFT struct {
	ObjectID              string       `json:"objectId"`
	Type                  string       `json:"type"`
	Version               string       `json:"version"`
	Digest                string       `json:"digest"`
	Metadata              *NFTMetadata `json:"metadata,omitempty"`
	IsCompatible          bool         `json:"isCompatible"`
	IncompatibilityReason string       `json:"incompatibilityReason,omitempty"`
}

// GetRafflableNFTsOptions controls an owned-object scan.
type GetRafflableNFTsOptions struct {
	IncludeMetadata bool   `json:"includeMetadata"`
	OnlyCompatible  bool   `json:"onlyCompatible"`
	Limit           int    `json:"limit"`
	Cursor          string `json:"cursor,omitempty"` // server-issued
}

// RafflableNFTsResult is one page of an owned-object scan.
type RafflableNFTsResult struct {
	NFTs        []RafflableNFT `json:"nfts"`
	Total       int            `json:"total"`
	HasNextPage bool           `json:"hasNextPage"`
	NextCursor  string         `json:"nextCursor,omitempty"`
}
