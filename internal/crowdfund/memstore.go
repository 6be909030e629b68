package crowdfund

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/models"
)

// MemoryStore is an in-process Store. Transactions run one at a time and
// work on a copy of the state that replaces the live state on success.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	campaigns map[uuid.UUID]models.Campaign
	backers   map[uuid.UUID]models.BackerData
	accounts  map[uuid.UUID]models.Account
	ledger    []models.LedgerEntry
	refs      map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memState{
		campaigns: make(map[uuid.UUID]models.Campaign),
		backers:   make(map[uuid.UUID]models.BackerData),
		accounts:  make(map[uuid.UUID]models.Account),
		refs:      make(map[string]struct{}),
	}}
}

func (s memState) clone() memState {
	out := memState{
		campaigns: make(map[uuid.UUID]models.Campaign, len(s.campaigns)),
		backers:   make(map[uuid.UUID]models.BackerData, len(s.backers)),
		accounts:  make(map[uuid.UUID]models.Account, len(s.accounts)),
		ledger:    make([]models.LedgerEntry, len(s.ledger)),
		refs:      make(map[string]struct{}, len(s.refs)),
	}
	for k, v := range s.campaigns {
		out.campaigns[k] = v
	}
	for k, v := range s.backers {
		out.backers[k] = v
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	copy(out.ledger, s.ledger)
	for k := range s.refs {
		out.refs[k] = struct{}{}
	}
	return out
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// Campaign returns a committed campaign.
func (s *MemoryStore) Campaign(id uuid.UUID) (models.Campaign, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.campaigns[id]
	return c, ok
}

// Account returns a committed account.
func (s *MemoryStore) Account(id uuid.UUID) (models.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.accounts[id]
	return a, ok
}

// BackerData returns a committed contribution record.
func (s *MemoryStore) BackerData(campaignID, backerID uuid.UUID) (models.BackerData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bd, ok := s.state.backers[BackerDataAddress(backerID, campaignID)]
	return bd, ok
}

// Ledger returns a copy of the committed journal, oldest first.
func (s *MemoryStore) Ledger() []models.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LedgerEntry, len(s.state.ledger))
	copy(out, s.state.ledger)
	return out
}

type memTx struct {
	state memState
}

func (t *memTx) InsertCampaign(_ context.Context, c *models.Campaign) error {
	if _, ok := t.state.campaigns[c.ID]; ok {
		return ErrCampaignExists
	}
	c.CreatedAt = time.Now()
	t.state.campaigns[c.ID] = *c
	return nil
}

func (t *memTx) LockCampaign(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	c, ok := t.state.campaigns[id]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	return &c, nil
}

func (t *memTx) SetCampaignFinished(_ context.Context, id uuid.UUID) error {
	c, ok := t.state.campaigns[id]
	if !ok {
		return ErrCampaignNotFound
	}
	c.IsFinished = true
	t.state.campaigns[id] = c
	return nil
}

func (t *memTx) GetBackerData(_ context.Context, campaignID, backerID uuid.UUID) (*models.BackerData, error) {
	bd, ok := t.state.backers[BackerDataAddress(backerID, campaignID)]
	if !ok {
		return nil, nil
	}
	return &bd, nil
}

func (t *memTx) InsertBackerData(_ context.Context, bd *models.BackerData) error {
	now := time.Now()
	bd.CreatedAt = now
	bd.UpdatedAt = now
	t.state.backers[bd.ID] = *bd
	return nil
}

func (t *memTx) UpdateBackerData(_ context.Context, bd *models.BackerData) error {
	bd.UpdatedAt = time.Now()
	t.state.backers[bd.ID] = *bd
	return nil
}

func (t *memTx) CreateAccount(_ context.Context, a *models.Account) error {
	if _, ok := t.state.accounts[a.ID]; ok {
		return ErrAccountExists
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	t.state.accounts[a.ID] = *a
	return nil
}

func (t *memTx) GetAccountKind(_ context.Context, accountID uuid.UUID) (string, error) {
	a, ok := t.state.accounts[accountID]
	if !ok {
		return "", ErrAccountNotFound
	}
	return a.Kind, nil
}

func (t *memTx) GetBalance(_ context.Context, accountID uuid.UUID) (int64, error) {
	a, ok := t.state.accounts[accountID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return a.Balance, nil
}

func (t *memTx) Debit(_ context.Context, accountID uuid.UUID, amount int64) error {
	a, ok := t.state.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	if a.Balance < amount {
		return ErrInsufficientFunds
	}
	a.Balance -= amount
	a.UpdatedAt = time.Now()
	t.state.accounts[accountID] = a
	return nil
}

func (t *memTx) Credit(_ context.Context, accountID uuid.UUID, amount int64) error {
	a, ok := t.state.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	if a.Balance > math.MaxInt64-amount {
		return ErrAmountOverflow
	}
	a.Balance += amount
	a.UpdatedAt = time.Now()
	t.state.accounts[accountID] = a
	return nil
}

func (t *memTx) InsertLedgerEntry(_ context.Context, e *models.LedgerEntry) error {
	if e.ExternalRef != nil {
		if _, ok := t.state.refs[*e.ExternalRef]; ok {
			return ErrDuplicateExternalRef
		}
		t.state.refs[*e.ExternalRef] = struct{}{}
	}
	e.CreatedAt = time.Now()
	t.state.ledger = append(t.state.ledger, *e)
	return nil
}
