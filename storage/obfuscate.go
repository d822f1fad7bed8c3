package storage

import (
	"context"
	"encoding/base64"
)

var defaultObfuscationSecret = []byte("accesskit")

// Obfuscating wraps another adapter, XOR-ing values against a repeating
// secret and base64-encoding the result before delegating. Decode reverses
// both steps; a malformed stored value reports absent rather than surfacing
// garbage.
//
// This is NOT encryption. It only prevents casual plaintext inspection of
// the backing store; anyone with the binary can recover the secret.
type Obfuscating struct {
	inner  Adapter
	secret []byte
}

// NewObfuscating decorates inner with XOR obfuscation. An empty secret falls
// back to a package default so the decorator is never a pass-through.
func NewObfuscating(inner Adapter, secret []byte) *Obfuscating {
	if len(secret) == 0 {
		secret = defaultObfuscationSecret
	}
	key := make([]byte, len(secret))
	copy(key, secret)

	return &Obfuscating{
		inner:  inner,
		secret: key,
	}
}

func (o *Obfuscating) xor(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ o.secret[i%len(o.secret)]
	}
	return out
}

func (o *Obfuscating) encode(value string) string {
	return base64.StdEncoding.EncodeToString(o.xor([]byte(value)))
}

func (o *Obfuscating) decode(stored string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", false
	}
	return string(o.xor(raw)), true
}

// GetItem fetches and decodes the value for key. Decode failures report
// absent.
func (o *Obfuscating) GetItem(ctx context.Context, key string) (string, bool) {
	if o == nil || o.inner == nil {
		return "", false
	}

	stored, ok := o.inner.GetItem(ctx, key)
	if !ok {
		return "", false
	}
	return o.decode(stored)
}

// SetItem encodes value and delegates to the wrapped adapter.
func (o *Obfuscating) SetItem(ctx context.Context, key, value string) {
	if o == nil || o.inner == nil {
		return
	}
	o.inner.SetItem(ctx, key, o.encode(value))
}

// RemoveItem delegates to the wrapped adapter.
func (o *Obfuscating) RemoveItem(ctx context.Context, key string) {
	if o == nil || o.inner == nil {
		return
	}
	o.inner.RemoveItem(ctx, key)
}
