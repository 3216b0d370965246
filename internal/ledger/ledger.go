// Package ledger is the read interface over the Sui ledger: object fetches,
// owned-object enumeration, event queries and dynamic-field listing.
package ledger

import "context"

// QueryService is the read side of the ledger the raffle client depends on.
// Implementations must be safe for concurrent use.
type QueryService interface {
	// GetObject returns nil, nil when the object does not exist.
	GetObject(ctx context.Context, id string) (*Object, error)
	GetOwnedObjects(ctx context.Context, owner, cursor string, limit int) (*ObjectPage, error)
	QueryEvents(ctx context.Context, filter EventFilter, cursor *EventID, limit int, descending bool) (*EventPage, error)
	GetDynamicFields(ctx context.Context, parentID, cursor string, limit int) (*DynamicFieldPage, error)
}

// Object is the current state of one ledger object.
type Object struct {
	ObjectID string
	Version  string
	Digest   string
	Type     string

	// HasContent is false when the ledger returned no content at all.
	HasContent bool
	// Fields is nil unless the content is a Move object with fields.
	Fields map[string]any
	// Display is nil unless the object carries standardized display data.
	Display map[string]any
}

// ObjectPage is one page of owned objects.
type ObjectPage struct {
	Objects     []Object
	HasNextPage bool
	NextCursor  string
}

// EventFilter selects events emitted by one Move module.
type EventFilter struct {
	Package string
	Module  string
}

// EventID is the ledger-issued position of an event.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// Event is one emitted Move event.
type Event struct {
	ID              EventID
	PackageID       string
	Module          string
	Sender          string
	Type            string
	ParsedJSON      map[string]any
	TimestampMillis int64
}

// EventPage is one page of events.
type EventPage struct {
	Events      []Event
	HasNextPage bool
	NextCursor  *EventID
}

// DynamicField is an entry under a parent object.
type DynamicField struct {
	NameType   string
	NameValue  any
	ObjectID   string
	ObjectType string
}

// DynamicFieldPage is one page of dynamic fields.
type DynamicFieldPage struct {
	Fields      []DynamicField
	HasNextPage bool
	NextCursor  string
}
