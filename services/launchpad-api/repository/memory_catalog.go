package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/models"
	"github.com/google/uuid"
)

// MemoryCatalogRepository implements CatalogRepository in process memory.
type MemoryCatalogRepository struct {
	mu          sync.RWMutex
	collections map[string]*models.CollectionRecord
	ordinals    map[string][]*models.OrdinalRecord
	whitelist   map[string]models.WhitelistEntry
	mints       map[uuid.UUID]*models.MintRecord
}

// NewMemoryCatalogRepository creates an empty catalog.
func NewMemoryCatalogRepository() *MemoryCatalogRepository {
	return &MemoryCatalogRepository{
		collections: make(map[string]*models.CollectionRecord),
		ordinals:    make(map[string][]*models.OrdinalRecord),
		whitelist:   make(map[string]models.WhitelistEntry),
		mints:       make(map[uuid.UUID]*models.MintRecord),
	}
}

// Seed loads a collection, its ordinals and whitelist entries.
func (r *MemoryCatalogRepository) Seed(c models.CollectionRecord, ordinals []models.OrdinalRecord, entries []models.WhitelistEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	col := c
	col.Phases = append([]models.PhaseRecord(nil), c.Phases...)
	r.collections[c.ID] = &col

	list := make([]*models.OrdinalRecord, 0, len(ordinals))
	for i := range ordinals {
		o := ordinals[i]
		o.CollectionID = c.ID
		list = append(list, &o)
	}
	sort.SliceStable(list, func(i, j int) bool { return ordinalLess(list[i], list[j]) })
	r.ordinals[c.ID] = list

	for _, e := range entries {
		r.whitelist[whitelistKey(e.PhaseID, e.WalletAddress)] = e
	}
}

func (r *MemoryCatalogRepository) GetCollection(_ context.Context, id string) (*models.CollectionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	out.Phases = append([]models.PhaseRecord(nil), c.Phases...)
	return &out, nil
}

func (r *MemoryCatalogRepository) ListOrdinals(_ context.Context, collectionID string, page, perPage int) ([]models.OrdinalRecord, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.ordinals[collectionID]
	total := int64(len(all))
	start := (page - 1) * perPage
	if start < 0 {
		start = 0
	}
	if start >= len(all) {
		return []models.OrdinalRecord{}, total, nil
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	out := make([]models.OrdinalRecord, 0, end-start)
	for _, o := range all[start:end] {
		out = append(out, *o)
	}
	return out, total, nil
}

func (r *MemoryCatalogRepository) GetOrdinals(_ context.Context, collectionID string, ids []string) ([]models.OrdinalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []models.OrdinalRecord
	for _, o := range r.ordinals[collectionID] {
		if _, ok := want[o.ID]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *MemoryCatalogRepository) ListUnminted(_ context.Context, collectionID string) ([]models.OrdinalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.OrdinalRecord
	for _, o := range r.ordinals[collectionID] {
		if !o.IsMinted {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *MemoryCatalogRepository) WhitelistEntry(_ context.Context, phaseID, wallet string) (*models.WhitelistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.whitelist[whitelistKey(phaseID, wallet)]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (r *MemoryCatalogRepository) WalletMinted(_ context.Context, phaseID, wallet string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, m := range r.mints {
		if m.PhaseID == phaseID && m.WalletAddress == wallet && m.Status == models.MintConfirmed {
			n += m.Quantity
		}
	}
	return n, nil
}

func (r *MemoryCatalogRepository) CreatePendingMint(_ context.Context, mint *models.MintRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if mint.ID == uuid.Nil {
		mint.ID = uuid.New()
	}
	mint.Status = models.MintPending
	cp := *mint
	cp.OrdinalIDs = append([]string(nil), mint.OrdinalIDs...)
	r.mints[mint.ID] = &cp
	return nil
}

func (r *MemoryCatalogRepository) GetMintByNFT(_ context.Context, nftMint string) (*models.MintRecord, error) {
	return r.findMint(func(m *models.MintRecord) bool { return m.NFTMint == nftMint })
}

func (r *MemoryCatalogRepository) GetMintBySignature(_ context.Context, signature string) (*models.MintRecord, error) {
	return r.findMint(func(m *models.MintRecord) bool { return m.Signature != nil && *m.Signature == signature })
}

func (r *MemoryCatalogRepository) findMint(match func(*models.MintRecord) bool) (*models.MintRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.mints {
		if match(m) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryCatalogRepository) AttachSignature(_ context.Context, id uuid.UUID, signature string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mints[id]
	if !ok {
		return ErrNotFound
	}
	sig := signature
	m.Signature = &sig
	return nil
}

func (r *MemoryCatalogRepository) CompleteMint(_ context.Context, mint *models.MintRecord, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mints[mint.ID]
	if !ok {
		return ErrNotFound
	}
	if m.Status != models.MintPending {
		return ErrMintSettled
	}
	m.Status = models.MintConfirmed

	want := make(map[string]struct{}, len(m.OrdinalIDs))
	for _, id := range m.OrdinalIDs {
		want[id] = struct{}{}
	}
	minted := 0
	for _, o := range r.ordinals[m.CollectionID] {
		if _, hit := want[o.ID]; !hit || o.IsMinted {
			continue
		}
		wallet := m.WalletAddress
		when := at
		o.IsMinted = true
		o.MintedBy = &wallet
		o.MintedAt = &when
		minted++
	}

	if c, ok := r.collections[m.CollectionID]; ok {
		c.TotalMinted += minted
		for i := range c.Phases {
			if c.Phases[i].ID == m.PhaseID {
				c.Phases[i].PhaseMinted += minted
			}
		}
	}
	return nil
}

func (r *MemoryCatalogRepository) FailMint(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mints[id]
	if !ok {
		return ErrNotFound
	}
	if m.Status == models.MintPending {
		m.Status = models.MintFailed
	}
	return nil
}

func whitelistKey(phaseID, wallet string) string {
	return phaseID + "|" + wallet
}

func ordinalLess(a, b *models.OrdinalRecord) bool {
	switch {
	case a.OrdinalNumber != nil && b.OrdinalNumber != nil:
		if *a.OrdinalNumber != *b.OrdinalNumber {
			return *a.OrdinalNumber < *b.OrdinalNumber
		}
	case a.OrdinalNumber != nil:
		return true
	case b.OrdinalNumber != nil:
		return false
	}
	return a.ID < b.ID
}
