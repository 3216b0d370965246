package models

// RaffleEventType names the events emitted by the raffle module.
type RaffleEventType string

const (
	EventRaffleCreated     RaffleEventType = "RaffleCreated"
	EventParticipantJoined RaffleEventType = "ParticipantJoined"
	EventWinnerSelected    RaffleEventType = "WinnerSelected"
	EventRafflePaused      RaffleEventType = "RafflePaused"
	EventRaffleUnpaused    RaffleEventType = "RaffleUnpaused"
	EventUnknown           RaffleEventType = "Unknown"
)

// RaffleEvent is a normalized raffle module event.
type RaffleEvent struct {
	Type              RaffleEventType `json:"type"`
	MoveType          string          `json:"moveType"`
	RaffleID          string          `json:"raffleId,omitempty"`
	TimestampMillis   int64           `json:"timestampMs"`
	TransactionDigest string          `json:"transactionDigest"`
	EventSeq          string          `json:"eventSeq"`
	Sender            string          `json:"sender,omitempty"`
	Data              map[string]any  `json:"data,omitempty"`
}
