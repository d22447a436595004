package pagecache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docintake/internal/model"
	"github.com/sells-group/docintake/internal/provenance"
)

// CachedPage is the persisted JSON envelope for one page's field set.
// Edited, EditedAt and ActionType describe the most recent human action;
// a freshly extracted page has Edited false and no action.
type CachedPage struct {
	Data              map[string]model.Field `json:"data"`
	OverallConfidence float64                `json:"overall_confidence"`
	AccountNumber     string                 `json:"account_number,omitempty"`
	Edited            bool                   `json:"edited"`
	EditedAt          *time.Time             `json:"edited_at,omitempty"`
	ActionType        provenance.Action      `json:"action_type,omitempty"`
}

// FromFieldSet builds the envelope for a fresh extraction.
func FromFieldSet(set model.PageFieldSet) *CachedPage {
	return &CachedPage{
		Data:              set.Fields,
		OverallConfidence: set.OverallConfidence,
		AccountNumber:     set.AccountNumber,
	}
}

// FieldSet lifts the cached data back into the merge engine's input shape.
// Page identity lives in the cache key, not the envelope.
func (p *CachedPage) FieldSet() model.PageFieldSet {
	return model.PageFieldSet{
		AccountNumber:     p.AccountNumber,
		Fields:            p.Data,
		OverallConfidence: p.OverallConfidence,
	}
}

// Cache reads and writes page envelopes at their cache keys and serializes
// edits per key, as the merge engine requires of its caller.
type Cache struct {
	blob  Blob
	locks keyedLocks
}

// New returns a Cache over blob.
func New(blob Blob) *Cache {
	return &Cache{blob: blob}
}

// Get loads and decodes the envelope at key. Returns ErrNotFound (via
// eris.Is) when the page was never cached.
func (c *Cache) Get(ctx context.Context, key string) (*CachedPage, error) {
	data, err := c.blob.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var page CachedPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, eris.Wrapf(err, "pagecache: decode %s", key)
	}
	return &page, nil
}

// Put encodes and stores the envelope at key.
func (c *Cache) Put(ctx context.Context, key string, page *CachedPage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return eris.Wrapf(err, "pagecache: encode %s", key)
	}
	return c.blob.Put(ctx, key, data)
}

// Delete removes the envelope at key, if present.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.blob.Delete(ctx, key)
}

// List returns the keys under prefix.
func (c *Cache) List(ctx context.Context, prefix string) ([]string, error) {
	return c.blob.List(ctx, prefix)
}

// ApplyUpdate loads the cached page at key, merges the edit into it, stamps
// the envelope, and writes it back. The read-merge-write runs under a
// per-key mutex so two concurrent edits to the same page cannot overwrite
// each other; edits to different pages proceed in parallel.
func (c *Cache) ApplyUpdate(ctx context.Context, key string, req provenance.UpdateRequest, editedAt time.Time) (*CachedPage, error) {
	unlock := c.locks.lock(key)
	defer unlock()

	existing, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	merged := provenance.Apply(existing.FieldSet(), req, editedAt)

	out := FromFieldSet(merged)
	out.Edited = true
	ts := editedAt
	out.EditedAt = &ts
	out.ActionType = req.ActionType

	if err := c.Put(ctx, key, out); err != nil {
		return nil, err
	}
	return out, nil
}

// keyedLocks hands out one mutex per key.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
