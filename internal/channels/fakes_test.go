package channels

import (
	"context"
	"time"
)

// fakeLists implements the store seams in memory, enforcing caps the way
// LTRIM does.
type fakeLists struct {
	lists      map[string][]any
	broadcasts map[string][]any
	err        error
}

func newFakeLists() *fakeLists {
	return &fakeLists{lists: map[string][]any{}, broadcasts: map[string][]any{}}
}

func (f *fakeLists) PushCapped(_ context.Context, key string, value any, limit int64) error {
	if f.err != nil {
		return f.err
	}
	f.lists[key] = append([]any{value}, f.lists[key]...)
	if int64(len(f.lists[key])) > limit {
		f.lists[key] = f.lists[key][:limit]
	}
	return nil
}

func (f *fakeLists) PushCappedTTL(ctx context.Context, key string, value any, limit int64, _ time.Duration) error {
	return f.PushCapped(ctx, key, value, limit)
}

func (f *fakeLists) Enqueue(_ context.Context, key string, value any) error {
	if f.err != nil {
		return f.err
	}
	f.lists[key] = append(f.lists[key], value)
	return nil
}

func (f *fakeLists) Broadcast(_ context.Context, channel string, message any) error {
	if f.err != nil {
		return f.err
	}
	f.broadcasts[channel] = append(f.broadcasts[channel], message)
	return nil
}
