package storefake

import (
	"context"
	"sync"

	"github.com/jrsteele09/nccc-portal-client/credentials"
)

var _ credentials.KV = (*FakeKV)(nil)

// FakeKV is an in-memory KV. It doubles as the "memory" backend of the CLI.
type FakeKV struct {
	values map[string]string
	lock   sync.RWMutex

	// GetErr, when set, is returned by every Get.
	GetErr error
}

func NewFakeKV() *FakeKV {
	return &FakeKV{
		values: make(map[string]string),
	}
}

func (kv *FakeKV) Get(_ context.Context, key string) (string, bool, error) {
	kv.lock.RLock()
	defer kv.lock.RUnlock()

	if kv.GetErr != nil {
		return "", false, kv.GetErr
	}
	v, ok := kv.values[key]
	return v, ok, nil
}

func (kv *FakeKV) Set(_ context.Context, key, value string) error {
	kv.lock.Lock()
	defer kv.lock.Unlock()

	kv.values[key] = value
	return nil
}

func (kv *FakeKV) Delete(_ context.Context, keys ...string) error {
	kv.lock.Lock()
	defer kv.lock.Unlock()

	for _, k := range keys {
		delete(kv.values, k)
	}
	return nil
}

// Len returns the number of stored entries.
func (kv *FakeKV) Len() int {
	kv.lock.RLock()
	defer kv.lock.RUnlock()
	return len(kv.values)
}
