package models

import "time"

// CreateRaffleParams are the inputs of a create_raffle call.
type CreateRaffleParams struct {
	NFTID             string    `json:"nftId"`
	Deadline          time.Time `json:"deadline"`
	EntryCost         *uint64   `json:"entryCost,omitempty"` // MIST
	MaxCapacity       *uint64   `json:"maxCapacity,omitempty"`
	MaxPerParticipant *uint64   `json:"maxPerParticipant,omitempty"`
}

// CallArg is one argument of a move call: an object reference or a pure value.
type CallArg struct {
	Kind     string `json:"kind"` // "object" or "pure"
	ObjectID string `json:"objectId,omitempty"`
	Type     string `json:"type,omitempty"`
	Value    string `json:"value,omitempty"`
}

// ObjectArg references an object by ID.
func ObjectArg(id string) CallArg {
	return CallArg{Kind: "object", ObjectID: id}
}

// PureArg is a BCS-encodable literal of the given Move type.
func PureArg(moveType, value string) CallArg {
	return CallArg{Kind: "pure", Type: moveType, Value: value}
}

// MoveCall describes a single move call for an external signer to execute.
type MoveCall struct {
	Target        string    `json:"target"`
	TypeArguments []string  `json:"typeArguments"`
	Arguments     []CallArg `json:"arguments"`
	Action        string    `json:"action"`
	Description   string    `json:"description"`
	// TransferResultIndex, when set, asks the signer to transfer that
	// result of the call back to the sender.
	TransferResultIndex *int `json:"transferResultIndex,omitempty"`
}
