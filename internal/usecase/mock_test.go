//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/adapter"
	"vpn-billing/internal/domain/ports/repository"
	"vpn-billing/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func strPtr(s string) *string { return &s }

// =============================
// Transactions
// =============================

// fakeTx emulates a database transaction: writes are deferred to commit and
// row locks are held until the transaction ends.
type fakeTx struct {
	mu       sync.Mutex
	locked   map[*sync.Mutex]bool
	onCommit []func()
}

func (t *fakeTx) lockRow(m *sync.Mutex) {
	t.mu.Lock()
	held := t.locked[m]
	t.mu.Unlock()
	if held {
		return
	}
	m.Lock()
	t.mu.Lock()
	t.locked[m] = true
	t.mu.Unlock()
}

func (t *fakeTx) later(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCommit = append(t.onCommit, fn)
}

func (t *fakeTx) end(commit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if commit {
		for _, fn := range t.onCommit {
			fn()
		}
	}
	for m := range t.locked {
		m.Unlock()
	}
	t.locked = nil
	t.onCommit = nil
}

func asTx(tx repository.Tx) (*fakeTx, bool) {
	t, ok := tx.(*fakeTx)
	return t, ok && t != nil
}

// apply runs fn now outside a transaction, or at commit inside one.
func apply(tx repository.Tx, fn func()) {
	if t, ok := asTx(tx); ok {
		t.later(fn)
		return
	}
	fn()
}

// connPool emulates a connection pool of a fixed size. An open transaction
// holds one connection; a NoTX call made from inside it needs another.
type connPool struct {
	mu   sync.Mutex
	size int
	inTx int
	// Extra lists the NoTX calls made from inside a transaction.
	Extra []string
}

var errPoolExhausted = errors.New("connection pool exhausted")

func newConnPool(size int) *connPool { return &connPool{size: size} }

type openTxKey struct{}

// acquire fails when a call inside a transaction asks for a second
// connection and every connection is held by a transaction.
func (p *connPool) acquire(ctx context.Context, tx repository.Tx, op string) error {
	if p == nil {
		return nil
	}
	if _, ok := asTx(tx); ok {
		return nil
	}
	if ctx.Value(openTxKey{}) == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Extra = append(p.Extra, op)
	if p.inTx >= p.size {
		return errPoolExhausted
	}
	return nil
}

func (p *connPool) begin() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inTx >= p.size {
		return errPoolExhausted
	}
	p.inTx++
	return nil
}

func (p *connPool) end() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inTx--
}

func (p *connPool) extra() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Extra...)
}

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
	Commits    int
	Rollbacks  int
	Pool       *connPool
	mu         sync.Mutex
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	if err := m.Pool.begin(); err != nil {
		return err
	}
	defer m.Pool.end()
	tx := &fakeTx{locked: map[*sync.Mutex]bool{}}
	err := fn(context.WithValue(ctx, openTxKey{}, tx), tx)
	tx.end(err == nil)
	m.mu.Lock()
	if err == nil {
		m.Commits++
	} else {
		m.Rollbacks++
	}
	m.mu.Unlock()
	return err
}

// rowLocks hands out one mutex per row id.
type rowLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (r *rowLocks) get(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = map[string]*sync.Mutex{}
	}
	l, ok := r.m[id]
	if !ok {
		l = &sync.Mutex{}
		r.m[id] = l
	}
	return l
}

// =============================
// Repositories
// =============================

type MockPaymentRepo struct {
	mu    sync.Mutex
	data  map[string]*model.Payment
	locks rowLocks
	Pool  *connPool

	FindByReferenceFunc func(ctx context.Context, tx repository.Tx, ref string) (*model.Payment, error)
	MarkPaidFunc        func(ctx context.Context, tx repository.Tx, id string, paidAt time.Time) (bool, error)
	MarkPaidCalls       int
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if err := r.Pool.acquire(ctx, tx, "payments.FindByID"); err != nil {
		return nil, err
	}
	if t, ok := asTx(tx); ok {
		t.lockRow(r.locks.get(id))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPaymentRepo) find(ref string) *model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.OrderID == ref {
			return p
		}
	}
	for _, p := range r.data {
		if p.PaymentSystemID != "" && p.PaymentSystemID == ref {
			return p
		}
	}
	return nil
}

func (r *MockPaymentRepo) FindByReference(ctx context.Context, tx repository.Tx, ref string) (*model.Payment, error) {
	if r.FindByReferenceFunc != nil {
		return r.FindByReferenceFunc(ctx, tx, ref)
	}
	p := r.find(ref)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, tx, p.ID)
}

func (r *MockPaymentRepo) ListPendingByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Payment, error) {
	return r.filter(func(p *model.Payment) bool {
		return p.UserID == userID && p.Status == model.PaymentStatusPending
	}, 0), nil
}

func (r *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	return r.filter(func(p *model.Payment) bool {
		return p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan)
	}, limit), nil
}

func (r *MockPaymentRepo) filter(keep func(p *model.Payment) bool, limit int) []*model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *MockPaymentRepo) BindAccount(ctx context.Context, tx repository.Tx, id, accountID string) error {
	if err := r.Pool.acquire(ctx, tx, "payments.BindAccount"); err != nil {
		return err
	}
	apply(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if p, ok := r.data[id]; ok {
			p.AccountID = &accountID
		}
	})
	return nil
}

func (r *MockPaymentRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	r.MarkPaidCalls++
	r.mu.Unlock()
	if r.MarkPaidFunc != nil {
		return r.MarkPaidFunc(ctx, tx, id, paidAt)
	}
	if err := r.Pool.acquire(ctx, tx, "payments.MarkPaid"); err != nil {
		return false, err
	}
	r.mu.Lock()
	p, ok := r.data[id]
	payable := ok && p.Payable()
	r.mu.Unlock()
	if !payable {
		return false, nil
	}
	apply(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		p.Status = model.PaymentStatusPaid
		p.PaidAt = &paidAt
	})
	return true, nil
}

func (r *MockPaymentRepo) ExpirePendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.data {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			p.Status = model.PaymentStatusExpired
			n++
		}
	}
	return n, nil
}

func (r *MockPaymentRepo) Get(id string) *model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.data[id]
	return &cp
}

type MockUserRepo struct {
	mu    sync.Mutex
	data  map[string]*model.User
	locks rowLocks
	Pool  *connPool

	AddBalanceFunc func(ctx context.Context, tx repository.Tx, id string, delta decimal.Decimal) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo { return &MockUserRepo{data: map[string]*model.User{}} }

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.data[u.ID] = &cp
	return nil
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if err := r.Pool.acquire(ctx, tx, "users.FindByID"); err != nil {
		return nil, err
	}
	return r.get(id)
}

func (r *MockUserRepo) LockByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	t, ok := asTx(tx)
	if !ok {
		return nil, domain.ErrInvalidExecContext
	}
	t.lockRow(r.locks.get(id))
	return r.get(id)
}

func (r *MockUserRepo) get(id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MockUserRepo) AddBalance(ctx context.Context, tx repository.Tx, id string, delta decimal.Decimal) error {
	if r.AddBalanceFunc != nil {
		return r.AddBalanceFunc(ctx, tx, id, delta)
	}
	if err := r.Pool.acquire(ctx, tx, "users.AddBalance"); err != nil {
		return err
	}
	r.mu.Lock()
	u, ok := r.data[id]
	r.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}
	apply(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		u.Balance = u.Balance.Add(delta)
	})
	return nil
}

func (r *MockUserRepo) Balance(id string) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[id].Balance
}

type MockAccountRepo struct {
	mu   sync.Mutex
	data map[string]*model.Account
	Pool *connPool

	SaveFunc func(ctx context.Context, tx repository.Tx, a *model.Account) error
}

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func NewMockAccountRepo() *MockAccountRepo {
	return &MockAccountRepo{data: map[string]*model.Account{}}
}

func (r *MockAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, a)
	}
	if err := r.Pool.acquire(ctx, tx, "accounts.Save"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.data[a.ID] = &cp
	return nil
}

func (r *MockAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MockAccountRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Account, error) {
	if err := r.Pool.acquire(ctx, tx, "accounts.ListByUser"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Account
	for _, a := range r.data {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MockAccountRepo) FindByProvisioningOrder(ctx context.Context, tx repository.Tx, orderID string) (*model.Account, error) {
	if err := r.Pool.acquire(ctx, tx, "accounts.FindByProvisioningOrder"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.data {
		if orderID != "" && a.ProvisionedByOrder == orderID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type MockTariffRepo struct {
	mu   sync.Mutex
	data map[string]*model.Tariff
	Pool *connPool
}

var _ repository.TariffRepository = (*MockTariffRepo)(nil)

func NewMockTariffRepo() *MockTariffRepo { return &MockTariffRepo{data: map[string]*model.Tariff{}} }

func (r *MockTariffRepo) Save(ctx context.Context, tx repository.Tx, t *model.Tariff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[t.ID] = t
	return nil
}

func (r *MockTariffRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Tariff, error) {
	if err := r.Pool.acquire(ctx, tx, "tariffs.FindByID"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

type MockOptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Option
	Pool *connPool
}

var _ repository.OptionRepository = (*MockOptionRepo)(nil)

func NewMockOptionRepo() *MockOptionRepo { return &MockOptionRepo{data: map[string]*model.Option{}} }

func (r *MockOptionRepo) Save(ctx context.Context, tx repository.Tx, o *model.Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[o.ID] = o
	return nil
}

func (r *MockOptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Option, error) {
	if err := r.Pool.acquire(ctx, tx, "options.FindByID"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

type MockPromoRepo struct {
	mu   sync.Mutex
	data map[string]*model.PromoCode
	Pool *connPool

	DecrementFunc func(ctx context.Context, tx repository.Tx, id string) error
}

var _ repository.PromoCodeRepository = (*MockPromoRepo)(nil)

func NewMockPromoRepo() *MockPromoRepo { return &MockPromoRepo{data: map[string]*model.PromoCode{}} }

func (r *MockPromoRepo) Save(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPromoRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPromoRepo) Decrement(ctx context.Context, tx repository.Tx, id string) error {
	if r.DecrementFunc != nil {
		return r.DecrementFunc(ctx, tx, id)
	}
	if err := r.Pool.acquire(ctx, tx, "promos.Decrement"); err != nil {
		return err
	}
	r.mu.Lock()
	p, ok := r.data[id]
	left := ok && p.UsesLeft > 0
	r.mu.Unlock()
	if !left {
		return domain.ErrNotFound
	}
	apply(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		p.UsesLeft--
	})
	return nil
}

// =============================
// Adapters
// =============================

// MockPanel keeps account state in memory and applies patches as absolute values.
type MockPanel struct {
	mu       sync.Mutex
	accounts map[string]*model.Entitlement
	Patches  []model.AccountPatch
	Created  []string
	seq      int

	GetAccountFunc    func(ctx context.Context, accountID string) (*model.Entitlement, error)
	PatchAccountFunc  func(ctx context.Context, accountID string, patch model.AccountPatch) error
	CreateAccountFunc func(ctx context.Context, identity string) (string, error)
}

var _ adapter.EntitlementClient = (*MockPanel)(nil)

func NewMockPanel() *MockPanel { return &MockPanel{accounts: map[string]*model.Entitlement{}} }

func (m *MockPanel) Put(e *model.Entitlement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	cp.Groups = append([]string(nil), e.Groups...)
	m.accounts[e.AccountID] = &cp
}

func (m *MockPanel) State(id string) model.Entitlement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.accounts[id]
}

func (m *MockPanel) PatchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Patches)
}

func (m *MockPanel) GetAccount(ctx context.Context, accountID string) (*model.Entitlement, error) {
	if m.GetAccountFunc != nil {
		return m.GetAccountFunc(ctx, accountID)
	}
	return m.read(accountID)
}

func (m *MockPanel) read(accountID string) (*model.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.accounts[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	cp.Groups = append([]string(nil), e.Groups...)
	return &cp, nil
}

func (m *MockPanel) PatchAccount(ctx context.Context, accountID string, patch model.AccountPatch) error {
	if m.PatchAccountFunc != nil {
		if err := m.PatchAccountFunc(ctx, accountID, patch); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	m.Patches = append(m.Patches, patch)
	if patch.ExpireAt != nil {
		e.ExpireAt = *patch.ExpireAt
	}
	if patch.Groups != nil {
		e.Groups = append([]string(nil), patch.Groups...)
	}
	if patch.TrafficLimitBytes != nil {
		e.TrafficLimitBytes = *patch.TrafficLimitBytes
	}
	if patch.DeviceLimit != nil {
		e.DeviceLimit = *patch.DeviceLimit
	}
	return nil
}

func (m *MockPanel) CreateAccount(ctx context.Context, identity string) (string, error) {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, identity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := "panel-" + identity
	m.Created = append(m.Created, identity)
	m.accounts[id] = &model.Entitlement{AccountID: id}
	return id, nil
}

type sentMessage struct {
	TelegramID int64
	Text       string
}

type MockNotifier struct {
	mu      sync.Mutex
	Sent    []sentMessage
	Deleted []int

	NotifyFunc func(ctx context.Context, telegramID int64, text string) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(ctx context.Context, telegramID int64, text string) error {
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, telegramID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentMessage{telegramID, text})
	return nil
}

func (m *MockNotifier) DeleteMessage(ctx context.Context, telegramID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, messageID)
	return nil
}

func (m *MockNotifier) SentTo(telegramID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.Sent {
		if s.TelegramID == telegramID {
			out = append(out, s.Text)
		}
	}
	return out
}

type MockCache struct {
	mu          sync.Mutex
	Invalidated []string
}

var _ adapter.AccountCache = (*MockCache)(nil)

func (m *MockCache) Get(ctx context.Context, id string) (*model.Entitlement, bool, error) {
	return nil, false, nil
}
func (m *MockCache) Set(ctx context.Context, e *model.Entitlement) error { return nil }
func (m *MockCache) Invalidate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invalidated = append(m.Invalidated, id)
	return nil
}

// InlineQueue runs submitted tasks synchronously.
type InlineQueue struct {
	mu  sync.Mutex
	Ran int
}

var _ adapter.TaskQueue = (*InlineQueue)(nil)

func (q *InlineQueue) Submit(task func(ctx context.Context) error) error {
	_ = task(context.Background())
	q.mu.Lock()
	q.Ran++
	q.mu.Unlock()
	return nil
}

// NoopLocker never blocks. It exists to show what the account lock prevents.
type NoopLocker struct{}

func (NoopLocker) Lock(ctx context.Context, accountID string) (func(), error) { return func() {}, nil }

type MockProvider struct {
	NameValue   string
	VerifyFunc  func(ctx context.Context, req adapter.WebhookRequest) (adapter.WebhookResult, error)
	PollFunc    func(ctx context.Context, id string) (adapter.PollResult, error)
	RejectValue int
}

var _ adapter.PaymentProvider = (*MockProvider)(nil)

func (m *MockProvider) Name() string { return m.NameValue }

func (m *MockProvider) VerifyWebhook(ctx context.Context, req adapter.WebhookRequest) (adapter.WebhookResult, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, req)
	}
	return adapter.WebhookResult{}, domain.ErrBadSignature
}

func (m *MockProvider) PollStatus(ctx context.Context, id string) (adapter.PollResult, error) {
	if m.PollFunc != nil {
		return m.PollFunc(ctx, id)
	}
	return adapter.PollResult{}, domain.ErrPollUnsupported
}

func (m *MockProvider) Ack(orderID string) (int, string) { return 200, "OK" + orderID }

func (m *MockProvider) RejectStatus() int {
	if m.RejectValue == 0 {
		return 400
	}
	return m.RejectValue
}

type MockRegistry map[string]adapter.PaymentProvider

func (r MockRegistry) Get(name string) (adapter.PaymentProvider, error) {
	p, ok := r[name]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	return p, nil
}

var errBoom = errors.New("boom")

type MockFulfillmentEngine struct {
	mu    sync.Mutex
	Calls []string

	FulfillFunc func(ctx context.Context, orderRef string, sig usecase.PaidSignal) (*usecase.FulfillResult, error)
}

var _ usecase.FulfillmentEngine = (*MockFulfillmentEngine)(nil)

func (m *MockFulfillmentEngine) Fulfill(ctx context.Context, orderRef string, sig usecase.PaidSignal) (*usecase.FulfillResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, orderRef)
	m.mu.Unlock()
	if m.FulfillFunc != nil {
		return m.FulfillFunc(ctx, orderRef, sig)
	}
	return &usecase.FulfillResult{Applied: true, OrderID: orderRef}, nil
}
