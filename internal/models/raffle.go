package models

// RaffleRecord is the contract-observed state of one raffle.
// It is rebuilt from the ledger on every read and never mutated locally.
type RaffleRecord struct {
	ID      string `json:"objectId"`
	Version string `json:"version"`
	Digest  string `json:"digest"`
	Type    string `json:"type"`

	Balance           uint64  `json:"balance"`             // MIST
	EntryCost         *uint64 `json:"entryCost,omitempty"` // nil: free entry
	DeadlineMillis    int64   `json:"deadlineMillis"`
	IsPaused          bool    `json:"isPaused"`
	IsItemLocked      bool    `json:"isItemLocked"`
	MaxCapacity       *uint64 `json:"maxCapacity,omitempty"`
	MaxPerParticipant *uint64 `json:"maxPerParticipant,omitempty"`
	ParticipantsCount uint64  `json:"participantsCount"`
	PrizeItemID       string  `json:"prizeItemId,omitempty"`
	WinnerAddress     string  `json:"winnerAddress,omitempty"`
	OperatorCapID     string  `json:"operatorCapId,omitempty"`

	// Fields holds the raw contract fields as returned by the ledger.
	Fields map[string]any `json:"fields,omitempty"`
}

// RaffleStatus is derived from a RaffleRecord and the current time.
type RaffleStatus struct {
	IsActive       bool `json:"isActive"`
	IsEnded        bool `json:"isEnded"`
	HasWinner      bool `json:"hasWinner"`
	IsPastDeadline bool `json:"isPastDeadline"`
	IsPaused       bool `json:"isPaused"`
	IsJoinable     bool `json:"isJoinable"`
}

// RaffleDetails is a record enriched with its status, display fields and,
// when available, the prize metadata.
//
// A bare stand-in (Bare == true) only carries the ID; discovery returns
// those when details were not requested.
type RaffleDetails struct {
	RaffleRecord

	Bare              bool         `json:"bare,omitempty"`
	Status            RaffleStatus `json:"status"`
	NFTMetadata       *NFTMetadata `json:"nftMetadata,omitempty"`
	FormattedDeadline string       `json:"formattedDeadline,omitempty"`
	FormattedBalance  string       `json:"formattedBalance,omitempty"`
}

// StatusFilter selects raffles by derived status.
type StatusFilter string

const (
	StatusAll    StatusFilter = "all"
	StatusActive StatusFilter = "active"
	StatusEnded  StatusFilter = "ended"
)

// RaffleQueryOptions controls a discovery query.
type RaffleQueryOptions struct {
	Limit          int          `json:"limit"`
	Cursor         string       `json:"cursor,omitempty"` // last raffle ID of the previous page
	IncludeDetails bool         `json:"includeDetails"`
	Status         StatusFilter `json:"status,omitempty"`
}

// RaffleQueryResult is one page of discovered raffles.
type RaffleQueryResult struct {
	Raffles     []RaffleDetails `json:"raffles"`
	HasNextPage bool            `json:"hasNextPage"`
	NextCursor  string          `json:"nextCursor,omitempty"`
	TotalCount  int             `json:"totalCount"`
}
