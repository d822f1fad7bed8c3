package storage

import "context"

// Adapter is the uniform key-value contract over backing stores. All
// operations fail silently: storage availability is environment-dependent
// (store disabled, quota exceeded, backend down) and access control must
// degrade gracefully rather than crash the host application. A failed read
// reports absent; a failed write or remove is a no-op.
//
// Implementations that want visibility into swallowed failures accept an
// [ErrorHook] at construction.
type Adapter interface {
	GetItem(ctx context.Context, key string) (string, bool)
	SetItem(ctx context.Context, key, value string)
	RemoveItem(ctx context.Context, key string)
}

// ErrorHook observes failures an adapter swallowed. op is one of "get",
// "set", "remove". Hooks must not block.
type ErrorHook func(op, key string, err error)

func (h ErrorHook) emit(op, key string, err error) {
	if h == nil || err == nil {
		return
	}
	h(op, key, err)
}
