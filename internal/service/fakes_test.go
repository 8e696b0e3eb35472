package service

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/badgeforge/badgeforge/internal/model"
	"github.com/badgeforge/badgeforge/internal/repository"
)

// fakeKeyStore is an in-memory KeyStore for tests.
type fakeKeyStore struct {
	mu   sync.Mutex
	keys map[string]*model.SigningKey
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{keys: make(map[string]*model.SigningKey)}
}

func (f *fakeKeyStore) Create(_ context.Context, key *model.SigningKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.keys[key.ID]; exists {
		return repository.ErrDuplicate
	}
	cp := *key
	f.keys[key.ID] = &cp
	return nil
}

func (f *fakeKeyStore) GetActiveByOwner(_ context.Context, ownerID string) (*model.SigningKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.SigningKey
	for _, k := range f.keys {
		if k.OwnerID == ownerID && k.Status == model.KeyStatusActive {
			if latest == nil || k.CreatedAt.After(latest.CreatedAt) {
				latest = k
			}
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeKeyStore) GetByID(_ context.Context, id string) (*model.SigningKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (f *fakeKeyStore) ListByOwner(_ context.Context, ownerID string) ([]*model.SigningKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.SigningKey
	for _, k := range f.keys {
		if k.OwnerID == ownerID {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeKeyStore) ListAll(_ context.Context) ([]*model.SigningKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.SigningKey
	for _, k := range f.keys {
		cp := *k
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeKeyStore) Rotate(_ context.Context, oldID string, newKey *model.SigningKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.keys[oldID]
	if !ok || old.Status != model.KeyStatusActive {
		return repository.ErrConflict
	}
	old.Status = model.KeyStatusRotated
	cp := *newKey
	f.keys[newKey.ID] = &cp
	return nil
}

func (f *fakeKeyStore) Revoke(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[id]
	if !ok || k.Status == model.KeyStatusRevoked {
		return repository.ErrNotFound
	}
	now := time.Now()
	k.Status = model.KeyStatusRevoked
	k.RevokedAt = &now
	k.RevocationReason = &reason
	return nil
}

// tamper corrupts the stored encrypted private key of a key record.
func (f *fakeKeyStore) tamper(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.keys[id]; ok {
		raw, err := base64.StdEncoding.DecodeString(k.EncryptedPrivateKey)
		if err != nil || len(raw) == 0 {
			return
		}
		raw[len(raw)-1] ^= 0x01
		k.EncryptedPrivateKey = base64.StdEncoding.EncodeToString(raw)
	}
}

// fakeAssertionStore is an in-memory AssertionStore for tests.
type fakeAssertionStore struct {
	mu         sync.Mutex
	assertions map[string]*model.Assertion
}

func newFakeAssertionStore() *fakeAssertionStore {
	return &fakeAssertionStore{assertions: make(map[string]*model.Assertion)}
}

func (f *fakeAssertionStore) put(a *model.Assertion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.assertions[a.ID] = &cp
}

func (f *fakeAssertionStore) GetByID(_ context.Context, id string) (*model.Assertion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assertions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAssertionStore) Create(_ context.Context, a *model.Assertion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.assertions[a.ID]; exists {
		return repository.ErrDuplicate
	}
	cp := *a
	f.assertions[a.ID] = &cp
	return nil
}

func (f *fakeAssertionStore) Revoke(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assertions[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	a.Revoked = true
	a.RevocationReason = &reason
	a.RevokedAt = &now
	return nil
}

// fakeIssuerStore is an in-memory IssuerStore for tests.
type fakeIssuerStore struct {
	issuers map[string]*model.Issuer
}

func newFakeIssuerStore(issuers ...*model.Issuer) *fakeIssuerStore {
	f := &fakeIssuerStore{issuers: make(map[string]*model.Issuer)}
	for _, i := range issuers {
		f.issuers[i.ID] = i
	}
	return f
}

func (f *fakeIssuerStore) GetByID(_ context.Context, id string) (*model.Issuer, error) {
	i, ok := f.issuers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

// fakeBadgeStore is an in-memory BadgeStore for tests.
type fakeBadgeStore struct {
	badges map[string]*model.BadgeClass
}

func newFakeBadgeStore(badges ...*model.BadgeClass) *fakeBadgeStore {
	f := &fakeBadgeStore{badges: make(map[string]*model.BadgeClass)}
	for _, b := range badges {
		f.badges[b.ID] = b
	}
	return f
}

func (f *fakeBadgeStore) GetByID(_ context.Context, id string) (*model.BadgeClass, error) {
	b, ok := f.badges[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// fakeCache records revocation-cache operations.
type fakeCache struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, keys...)
	return nil
}
