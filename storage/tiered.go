package storage

import (
	"context"
	"fmt"
	"sync"
)

// Tiered holds an ordered list of adapters. GetItem walks the tiers in order
// and returns the first present value; SetItem and RemoveItem fan out to all
// tiers concurrently. A failing tier — including one that panics — never
// prevents the others from completing or surfaces as an overall failure.
type Tiered struct {
	tiers []Adapter
	hook  ErrorHook
}

// NewTiered creates a multi-tier adapter. Tier order is read priority.
func NewTiered(hook ErrorHook, tiers ...Adapter) *Tiered {
	kept := make([]Adapter, 0, len(tiers))
	for _, t := range tiers {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return &Tiered{
		tiers: kept,
		hook:  hook,
	}
}

// Tiers returns the number of configured tiers.
func (t *Tiered) Tiers() int {
	if t == nil {
		return 0
	}
	return len(t.tiers)
}

func (t *Tiered) guarded(op, key string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			// a panicking tier counts as a miss
			t.hook.emit(op, key, fmt.Errorf("storage tier panicked: %v", r))
		}
	}()
	fn()
}

// GetItem returns the first value found walking the tiers in order.
func (t *Tiered) GetItem(ctx context.Context, key string) (string, bool) {
	if t == nil {
		return "", false
	}

	for _, tier := range t.tiers {
		var (
			value string
			ok    bool
		)
		t.guarded("get", key, func() {
			value, ok = tier.GetItem(ctx, key)
		})
		if ok {
			return value, true
		}
	}
	return "", false
}

// SetItem stores value in every tier concurrently.
func (t *Tiered) SetItem(ctx context.Context, key, value string) {
	if t == nil {
		return
	}

	var wg sync.WaitGroup
	for _, tier := range t.tiers {
		wg.Add(1)
		go func(tier Adapter) {
			defer wg.Done()
			t.guarded("set", key, func() {
				tier.SetItem(ctx, key, value)
			})
		}(tier)
	}
	wg.Wait()
}

// RemoveItem removes key from every tier concurrently.
func (t *Tiered) RemoveItem(ctx context.Context, key string) {
	if t == nil {
		return
	}

	var wg sync.WaitGroup
	for _, tier := range t.tiers {
		wg.Add(1)
		go func(tier Adapter) {
			defer wg.Done()
			t.guarded("remove", key, func() {
				tier.RemoveItem(ctx, key)
			})
		}(tier)
	}
	wg.Wait()
}
