package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bdiallo/farmtrack/internal/domain/models"
	"github.com/bdiallo/farmtrack/internal/remote"
)

// PostgREST prefers single-object responses when this accept header is set;
// without it every write returns a one-element array.
const acceptSingleObject = "application/vnd.pgrst.object+json"

// SelectOwned fetches every row of the collection owned by q.OwnerID,
// ordered and optionally limited, decoding into dest.
func (c *Client) SelectOwned(ctx context.Context, q remote.Query, dest any) error {
	req := c.request().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("user_id", "eq."+q.OwnerID)

	if q.OrderBy != "" {
		direction := "asc"
		if q.Descending {
			direction = "desc"
		}
		req.SetQueryParam("order", q.OrderBy+"."+direction)
	}
	if q.Limit > 0 {
		req.SetQueryParam("limit", fmt.Sprintf("%d", q.Limit))
	}

	apiErr := new(apiError)
	resp, err := req.
		SetResult(dest).
		SetError(apiErr).
		Get("/rest/v1/" + q.Collection)
	if err != nil {
		return models.NormalizeError(err)
	}
	if failed(resp) {
		return asOpError(resp, apiErr)
	}
	return nil
}

// Insert creates one row and decodes the canonical server row into dest when
// dest is non-nil. Empty ids and zero timestamps are stripped from the
// payload so the server assigns them.
func (c *Client) Insert(ctx context.Context, collection string, row any, dest any) error {
	payload, err := insertPayload(row)
	if err != nil {
		return models.NormalizeError(err)
	}

	req := c.request().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetHeader("Accept", acceptSingleObject).
		SetBody(payload)
	if dest != nil {
		req.SetResult(dest)
	}

	apiErr := new(apiError)
	resp, err := req.SetError(apiErr).Post("/rest/v1/" + collection)
	if err != nil {
		return models.NormalizeError(err)
	}
	if failed(resp) {
		return asOpError(resp, apiErr)
	}
	return nil
}

// UpdateByID applies the partial update to the row with the given id and
// decodes the canonical row into dest when dest is non-nil.
func (c *Client) UpdateByID(ctx context.Context, collection, id string, partial map[string]any, dest any) error {
	req := c.request().
		SetContext(ctx).
		SetQueryParam("id", "eq."+id).
		SetHeader("Prefer", "return=representation").
		SetHeader("Accept", acceptSingleObject).
		SetBody(partial)
	if dest != nil {
		req.SetResult(dest)
	}

	apiErr := new(apiError)
	resp, err := req.SetError(apiErr).Patch("/rest/v1/" + collection)
	if err != nil {
		return models.NormalizeError(err)
	}
	if failed(resp) {
		return asOpError(resp, apiErr)
	}
	return nil
}

// DeleteByID removes the row with the given id.
func (c *Client) DeleteByID(ctx context.Context, collection, id string) error {
	apiErr := new(apiError)

	resp, err := c.request().
		SetContext(ctx).
		SetQueryParam("id", "eq."+id).
		SetError(apiErr).
		Delete("/rest/v1/" + collection)
	if err != nil {
		return models.NormalizeError(err)
	}
	if failed(resp) {
		return asOpError(resp, apiErr)
	}
	return nil
}

// Upsert inserts the row or merges it into the existing one with the same
// primary key.
func (c *Client) Upsert(ctx context.Context, collection string, row any, dest any) error {
	req := c.request().
		SetContext(ctx).
		SetHeader("Prefer", "resolution=merge-duplicates,return=representation").
		SetHeader("Accept", acceptSingleObject).
		SetBody(row)
	if dest != nil {
		req.SetResult(dest)
	}

	apiErr := new(apiError)
	resp, err := req.SetError(apiErr).Post("/rest/v1/" + collection)
	if err != nil {
		return models.NormalizeError(err)
	}
	if failed(resp) {
		return asOpError(resp, apiErr)
	}
	return nil
}

// insertPayload flattens the row into a map and drops the fields the server
// is responsible for assigning: empty ids and zero timestamps.
func insertPayload(row any) (map[string]any, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshal insert row: %w", err)
	}

	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("flatten insert row: %w", err)
	}

	if id, ok := payload["id"].(string); ok && id == "" {
		delete(payload, "id")
	}
	for _, key := range []string{"created_at", "updated_at"} {
		if ts, ok := payload[key].(string); ok && strings.HasPrefix(ts, "0001-01-01") {
			delete(payload, key)
		}
	}

	return payload, nil
}
