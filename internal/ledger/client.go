package ledger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/rpc"
)

// Client talks Sui JSON-RPC over a generic JSON-RPC 2.0 connection.
type Client struct {
	rpc *rpc.Client
}

var _ QueryService = (*Client)(nil)

// Dial connects to a Sui fullnode.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{rpc: c}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

type objectOptions struct {
	ShowType    bool `json:"showType"`
	ShowContent bool `json:"showContent"`
	ShowDisplay bool `json:"showDisplay"`
	ShowOwner   bool `json:"showOwner,omitempty"`
}

var fullObjectOptions = objectOptions{ShowType: true, ShowContent: true, ShowDisplay: true}

type rpcObjectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id"`
}

type rpcObjectResponse struct {
	Data  *rpcObjectData  `json:"data"`
	Error *rpcObjectError `json:"error"`
}

type rpcObjectData struct {
	ObjectID string      `json:"objectId"`
	Version  string      `json:"version"`
	Digest   string      `json:"digest"`
	Type     string      `json:"type"`
	Content  *rpcContent `json:"content"`
	Display  *rpcDisplay `json:"display"`
}

type rpcContent struct {
	DataType string         `json:"dataType"`
	Type     string         `json:"type"`
	Fields   map[string]any `json:"fields"`
}

type rpcDisplay struct {
	Data map[string]any `json:"data"`
}

func (d *rpcObjectData) toObject() Object {
	obj := Object{
		ObjectID: d.ObjectID,
		Version:  d.Version,
		Digest:   d.Digest,
		Type:     d.Type,
	}
	if d.Content != nil {
		obj.HasContent = true
		if obj.Type == "" {
			obj.Type = d.Content.Type
		}
		if d.Content.DataType == "moveObject" && d.Content.Fields != nil {
			obj.Fields = d.Content.Fields
		}
	}
	if d.Display != nil && d.Display.Data != nil {
		obj.Display = d.Display.Data
	}
	return obj
}

// GetObject fetches one object with its type, content and display data.
func (c *Client) GetObject(ctx context.Context, id string) (*Object, error) {
	var resp rpcObjectResponse
	if err := c.rpc.CallContext(ctx, &resp, "sui_getObject", id, fullObjectOptions); err != nil {
		return nil, fmt.Errorf("sui_getObject %s: %w", id, err)
	}
	if resp.Data == nil {
		// notExists, deleted and friends all mean "no object here".
		return nil, nil
	}
	obj := resp.Data.toObject()
	return &obj, nil
}

type ownedObjectsQuery struct {
	Filter  any           `json:"filter"`
	Options objectOptions `json:"options"`
}

type rpcOwnedObjectsPage struct {
	Data        []rpcObjectResponse `json:"data"`
	NextCursor  *string             `json:"nextCursor"`
	HasNextPage bool                `json:"hasNextPage"`
}

// GetOwnedObjects lists one page of objects owned by an address.
func (c *Client) GetOwnedObjects(ctx context.Context, owner, cursor string, limit int) (*ObjectPage, error) {
	var resp rpcOwnedObjectsPage
	query := ownedObjectsQuery{Options: fullObjectOptions}
	if err := c.rpc.CallContext(ctx, &resp, "suix_getOwnedObjects", owner, query, optionalString(cursor), limit); err != nil {
		return nil, fmt.Errorf("suix_getOwnedObjects %s: %w", owner, err)
	}
	page := &ObjectPage{
		Objects:     make([]Object, 0, len(resp.Data)),
		HasNextPage: resp.HasNextPage,
	}
	if resp.NextCursor != nil {
		page.NextCursor = *resp.NextCursor
	}
	for _, item := range resp.Data {
		if item.Data == nil {
			continue
		}
		page.Objects = append(page.Objects, item.Data.toObject())
	}
	return page, nil
}

type moveModuleQuery struct {
	MoveModule EventFilter `json:"MoveModule"`
}

type rpcEvent struct {
	ID                EventID        `json:"id"`
	PackageID         string         `json:"packageId"`
	TransactionModule string         `json:"transactionModule"`
	Sender            string         `json:"sender"`
	Type              string         `json:"type"`
	ParsedJSON        map[string]any `json:"parsedJson"`
	TimestampMs       string         `json:"timestampMs"`
}

type rpcEventPage struct {
	Data        []rpcEvent `json:"data"`
	NextCursor  *EventID   `json:"nextCursor"`
	HasNextPage bool       `json:"hasNextPage"`
}

// QueryEvents lists one page of events emitted by a Move module.
func (c *Client) QueryEvents(ctx context.Context, filter EventFilter, cursor *EventID, limit int, descending bool) (*EventPage, error) {
	var resp rpcEventPage
	var cur any
	if cursor != nil {
		cur = cursor
	}
	if err := c.rpc.CallContext(ctx, &resp, "suix_queryEvents", moveModuleQuery{MoveModule: filter}, cur, limit, descending); err != nil {
		return nil, fmt.Errorf("suix_queryEvents %s::%s: %w", filter.Package, filter.Module, err)
	}
	page := &EventPage{
		Events:      make([]Event, 0, len(resp.Data)),
		HasNextPage: resp.HasNextPage,
		NextCursor:  resp.NextCursor,
	}
	for _, e := range resp.Data {
		ts, _ := strconv.ParseInt(e.TimestampMs, 10, 64)
		page.Events = append(page.Events, Event{
			ID:              e.ID,
			PackageID:       e.PackageID,
			Module:          e.TransactionModule,
			Sender:          e.Sender,
			Type:            e.Type,
			ParsedJSON:      e.ParsedJSON,
			TimestampMillis: ts,
		})
	}
	return page, nil
}

type rpcDynamicField struct {
	Name struct {
		Type  string `json:"type"`
		Value any    `json:"value"`
	} `json:"name"`
	ObjectID   string `json:"objectId"`
	ObjectType string `json:"objectType"`
}

type rpcDynamicFieldPage struct {
	Data        []rpcDynamicField `json:"data"`
	NextCursor  *string           `json:"nextCursor"`
	HasNextPage bool              `json:"hasNextPage"`
}

// GetDynamicFields lists one page of dynamic fields under a parent object.
func (c *Client) GetDynamicFields(ctx context.Context, parentID, cursor string, limit int) (*DynamicFieldPage, error) {
	var resp rpcDynamicFieldPage
	if err := c.rpc.CallContext(ctx, &resp, "suix_getDynamicFields", parentID, optionalString(cursor), limit); err != nil {
		return nil, fmt.Errorf("suix_getDynamicFields %s: %w", parentID, err)
	}
	page := &DynamicFieldPage{
		Fields:      make([]DynamicField, 0, len(resp.Data)),
		HasNextPage: resp.HasNextPage,
	}
	if resp.NextCursor != nil {
		page.NextCursor = *resp.NextCursor
	}
	for _, f := range resp.Data {
		page.Fields = append(page.Fields, DynamicField{
			NameType:   f.Name.Type,
			NameValue:  f.Name.Value,
			ObjectID:   f.ObjectID,
			ObjectType: f.ObjectType,
		})
	}
	return page, nil
}

func optionalString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
