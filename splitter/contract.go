// Package splitter implements a tiered payment splitter with dual-approval
// escrow.
//
// A payer buys a tier by attaching exactly the tier's discounted price. Two
// fixed shares of the list price are paid out immediately, one to the
// revenue-share wallet and one to the payer admin, and the remainder is held
// by the contract. The held balance is released to the content admin only
// once both the content admin and the content sub-admin have approved; the
// approval round then resets.
//
// Every operation runs inside one store.Update transaction: state is written
// before any outbound transfer, and a failed transfer rolls the whole
// operation back.
package splitter

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/ledger"
	"github.com/bitfsorg/tiersplit-go/revshare"
	"github.com/bitfsorg/tiersplit-go/store"
)

// contractDomain separates contract address derivation from other uses of HASH160.
var contractDomain = []byte("tiersplit/contract")

// Params are the construction parameters of a contract.
type Params struct {
	Roles  Roles
	Prices PriceBook

	// Asset selects the payment asset. Empty means the native coin.
	Asset string

	// Salt makes the contract address deterministic. A random salt is used
	// when empty.
	Salt []byte
}

// Contract is a handle on one deployed splitter. It holds no mutable state
// of its own and is safe for concurrent use.
type Contract struct {
	addr  identity.Address
	store store.Store
	asset ledger.Asset
	log   *zap.Logger
	sink  EventSink
	now   func() time.Time
}

// Option configures a Contract handle.
type Option func(*Contract)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Contract) {
		if l != nil {
			c.log = l
		}
	}
}

// WithEventSink sets where committed events are delivered.
func WithEventSink(s EventSink) Option {
	return func(c *Contract) { c.sink = s }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Contract) { c.now = now }
}

func newContract(addr identity.Address, st store.Store, asset ledger.Asset, opts []Option) *Contract {
	c := &Contract{
		addr:  addr,
		store: st,
		asset: asset,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.Stringer("contract", addr), zap.String("asset", asset.ID()))
	return c
}

// ContractAddress returns the address Deploy allocates for salt.
func ContractAddress(salt []byte) identity.Address {
	return identity.Derive(contractDomain, salt)
}

// Deploy validates p, allocates a contract account and stores the initial
// state: the given roles and prices, an empty escrow and no approvals.
func Deploy(st store.Store, p Params, opts ...Option) (*Contract, error) {
	asset, err := ledger.ForID(p.Asset)
	if err != nil {
		return nil, err
	}

	salt := p.Salt
	if len(salt) == 0 {
		id := uuid.New()
		salt = id[:]
	}
	addr := ContractAddress(salt)

	state := &State{Roles: p.Roles, Prices: p.Prices, Asset: asset.ID()}
	if err := state.Roles.Validate(addr); err != nil {
		return nil, err
	}

	err = st.Update(func(tx store.Tx) error {
		_, err := tx.Get(store.BucketContracts, addr[:])
		if err == nil {
			return fmt.Errorf("%w: %s", ErrContractExists, addr)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := ledger.Guard(tx, addr); err != nil {
			return err
		}
		return putState(tx, addr, state)
	})
	if err != nil {
		return nil, err
	}

	c := newContract(addr, st, asset, opts)
	c.log.Info("contract deployed",
		zap.Stringer("payer_admin", p.Roles.PayerAdmin),
		zap.Stringer("content_admin", p.Roles.ContentAdmin),
		zap.Stringer("content_sub_admin", p.Roles.ContentSubAdmin),
		zap.Stringer("revenue_share_wallet", p.Roles.RevenueShareWallet),
		zap.Uint64s("prices", p.Prices[:]),
	)
	return c, nil
}

// Open returns a handle on an existing contract.
func Open(st store.Store, addr identity.Address, opts ...Option) (*Contract, error) {
	var state *State
	err := st.View(func(tx store.Tx) error {
		var err error
		state, err = loadState(tx, addr)
		return err
	})
	if err != nil {
		return nil, err
	}
	asset, err := ledger.ForID(state.Asset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return newContract(addr, st, asset, opts), nil
}

// List returns the addresses of every contract in st.
func List(st store.Store) ([]identity.Address, error) {
	var addrs []identity.Address
	err := st.View(func(tx store.Tx) error {
		return tx.ForEach(store.BucketContracts, func(k, _ []byte) error {
			addr, err := identity.FromBytes(k)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidState, err)
			}
			addrs = append(addrs, addr)
			return nil
		})
	})
	return addrs, err
}

func loadState(tx store.Tx, addr identity.Address) (*State, error) {
	data, err := tx.Get(store.BucketContracts, addr[:])
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, addr)
	}
	if err != nil {
		return nil, err
	}
	return DecodeState(data)
}

func putState(tx store.Tx, addr identity.Address, s *State) error {
	data, err := EncodeState(s)
	if err != nil {
		return err
	}
	return tx.Put(store.BucketContracts, addr[:], data)
}

// Address returns the contract account address.
func (c *Contract) Address() identity.Address { return c.addr }

// Asset returns the payment asset.
func (c *Contract) Asset() ledger.Asset { return c.asset }

// emit stamps events, delivers them to the sink and returns the stamped copies.
func (c *Contract) emit(events ...Event) []Event {
	for i := range events {
		events[i].ID = uuid.New()
		events[i].Contract = c.addr
		events[i].Time = c.now()
		if c.sink != nil {
			c.sink.Emit(events[i])
		}
	}
	return events
}

// ---------------------------------------------------------------------------
// Escrow
// ---------------------------------------------------------------------------

// MakePayment buys tier t for payer, who attaches amount. amount must equal
// the tier's discounted price exactly. On success the JV share and the bonus
// are paid out and the rest is added to the retained balance.
func (c *Contract) MakePayment(payer identity.Address, t Tier, amount uint64) (Event, error) {
	var split revshare.Split
	err := c.store.Update(func(tx store.Tx) error {
		s, err := loadState(tx, c.addr)
		if err != nil {
			return err
		}

		var payouts []Payout
		split, payouts, err = s.acceptPayment(t, amount)
		if err != nil {
			return err
		}
		if err := putState(tx, c.addr, s); err != nil {
			return err
		}

		if err := c.asset.Transfer(tx, payer, c.addr, amount); err != nil {
			return err
		}
		for _, p := range payouts {
			if err := c.asset.Transfer(tx, c.addr, p.To, p.Amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.log.Warn("payment rejected",
			zap.Stringer("payer", payer), zap.Stringer("tier", t), zap.Uint64("amount", amount), zap.Error(err))
		return Event{}, err
	}

	c.log.Info("payment received",
		zap.Stringer("payer", payer),
		zap.Stringer("tier", t),
		zap.Uint64("amount", amount),
		zap.Uint64("jv_share", split.JVShare),
		zap.Uint64("bonus_share", split.Bonus),
		zap.Uint64("retained", split.Retained),
	)
	tier := t
	e := c.emit(Event{
		Kind:     EventPaymentReceived,
		Caller:   payer,
		Tier:     &tier,
		Amount:   amount,
		JVShare:  split.JVShare,
		Bonus:    split.Bonus,
		Retained: split.Retained,
	})
	return e[0], nil
}

// Approval is the outcome of an ApproveRelease call.
type Approval struct {
	Role     Role   `json:"role"`
	Released bool   `json:"released"`
	Amount   uint64 `json:"amount"`
}

// ApproveRelease records caller's approval. caller must be the content admin
// or the content sub-admin. Approving twice is not an error. The call that
// completes the pair transfers the whole retained balance to the content
// admin and clears both approvals.
func (c *Contract) ApproveRelease(caller identity.Address) (Approval, error) {
	var (
		role   Role
		payout *Payout
	)
	err := c.store.Update(func(tx store.Tx) error {
		s, err := loadState(tx, c.addr)
		if err != nil {
			return err
		}
		role, payout, err = s.approve(caller)
		if err != nil {
			return err
		}
		if err := putState(tx, c.addr, s); err != nil {
			return err
		}
		if payout != nil {
			return c.asset.Transfer(tx, c.addr, payout.To, payout.Amount)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("approval rejected", zap.Stringer("caller", caller), zap.Error(err))
		return Approval{}, err
	}

	result := Approval{Role: role}
	events := []Event{{Kind: EventReleaseApproved, Caller: caller, Role: role.String()}}
	c.log.Info("release approved", zap.Stringer("caller", caller), zap.Stringer("role", role))

	if payout != nil {
		result.Released = true
		result.Amount = payout.Amount
		to := payout.To
		events = append(events, Event{Kind: EventFundsReleased, Caller: caller, Account: &to, Amount: payout.Amount})
		c.log.Info("funds released", zap.Stringer("to", payout.To), zap.Uint64("amount", payout.Amount))
	}
	c.emit(events...)
	return result, nil
}

// Receive handles value sent to the contract outside MakePayment. It always
// fails: the contract has no implicit receive path.
func (c *Contract) Receive(from identity.Address, amount uint64) error {
	err := fmt.Errorf("%w: %w: %d from %s", ErrTransferFailed, ErrDirectTransfer, amount, from)
	c.log.Warn("direct transfer rejected", zap.Stringer("from", from), zap.Uint64("amount", amount))
	return err
}

// ---------------------------------------------------------------------------
// Administration
// ---------------------------------------------------------------------------

// UpdatePrice sets the list price of t. Only the payer admin may call it.
func (c *Contract) UpdatePrice(caller identity.Address, t Tier, price uint64) error {
	err := c.store.Update(func(tx store.Tx) error {
		s, err := loadState(tx, c.addr)
		if err != nil {
			return err
		}
		if err := s.updatePrice(caller, t, price); err != nil {
			return err
		}
		return putState(tx, c.addr, s)
	})
	if err != nil {
		c.log.Warn("price update rejected", zap.Stringer("caller", caller), zap.Stringer("tier", t), zap.Error(err))
		return err
	}

	c.log.Info("price updated", zap.Stringer("tier", t), zap.Uint64("price", price))
	tier := t
	c.emit(Event{Kind: EventPriceUpdated, Caller: caller, Tier: &tier, Amount: price})
	return nil
}

// UpdatePayerAdmin rotates the payer admin. Only the payer admin may call it.
func (c *Contract) UpdatePayerAdmin(caller, next identity.Address) error {
	return c.rotate(OpUpdatePayerAdmin, caller, next)
}

// UpdateRevenueShareWallet rotates the revenue-share wallet. Only the payer
// admin may call it.
func (c *Contract) UpdateRevenueShareWallet(caller, next identity.Address) error {
	return c.rotate(OpUpdateRevenueShareWallet, caller, next)
}

// UpdateContentAdmin rotates the content admin. Only the content admin
// itself may call it.
func (c *Contract) UpdateContentAdmin(caller, next identity.Address) error {
	return c.rotate(OpUpdateContentAdmin, caller, next)
}

// UpdateContentSubAdmin rotates the content sub-admin. Only the content
// admin may call it.
func (c *Contract) UpdateContentSubAdmin(caller, next identity.Address) error {
	return c.rotate(OpUpdateContentSubAdmin, caller, next)
}

// UpdateRole dispatches to the update operation for r.
func (c *Contract) UpdateRole(caller identity.Address, r Role, next identity.Address) error {
	op, err := UpdateOperation(r)
	if err != nil {
		return err
	}
	return c.rotate(op, caller, next)
}

func (c *Contract) rotate(op Operation, caller, next identity.Address) error {
	err := c.store.Update(func(tx store.Tx) error {
		s, err := loadState(tx, c.addr)
		if err != nil {
			return err
		}
		if err := s.rotate(op, caller, next, c.addr); err != nil {
			return err
		}
		return putState(tx, c.addr, s)
	})
	if err != nil {
		c.log.Warn("role update rejected", zap.Stringer("op", op), zap.Stringer("caller", caller), zap.Error(err))
		return err
	}

	role := rotates[op]
	c.log.Info("role updated", zap.Stringer("role", role), zap.Stringer("holder", next))
	c.emit(Event{Kind: EventRoleUpdated, Caller: caller, Role: role.String(), Account: &next})
	return nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func (c *Contract) view(fn func(tx store.Tx, s *State) error) error {
	return c.store.View(func(tx store.Tx) error {
		s, err := loadState(tx, c.addr)
		if err != nil {
			return err
		}
		return fn(tx, s)
	})
}

// State returns a copy of the persisted state.
func (c *Contract) State() (State, error) {
	var out State
	err := c.view(func(_ store.Tx, s *State) error {
		out = *s
		return nil
	})
	return out, err
}

// Roles returns the current role holders.
func (c *Contract) Roles() (Roles, error) {
	s, err := c.State()
	return s.Roles, err
}

// Price returns the list price of t.
func (c *Contract) Price(t Tier) (uint64, error) {
	s, err := c.State()
	if err != nil {
		return 0, err
	}
	return s.Prices.Price(t)
}

// Prices returns every tier's list price.
func (c *Contract) Prices() (PriceBook, error) {
	s, err := c.State()
	return s.Prices, err
}

// QuotePrice returns the exact amount MakePayment expects for t.
func (c *Contract) QuotePrice(t Tier) (uint64, error) {
	s, err := c.State()
	if err != nil {
		return 0, err
	}
	return s.Prices.Quote(t)
}

// RetainedBalance returns the amount held pending release.
func (c *Contract) RetainedBalance() (uint64, error) {
	s, err := c.State()
	return s.Escrow.Retained, err
}

// Escrow returns the retained balance and both approval flags.
func (c *Contract) Escrow() (EscrowState, error) {
	s, err := c.State()
	return s.Escrow, err
}

// ContractBalance returns the contract account's balance in its asset. It
// equals RetainedBalance between calls.
func (c *Contract) ContractBalance() (uint64, error) {
	var bal uint64
	err := c.view(func(tx store.Tx, _ *State) error {
		var err error
		bal, err = c.asset.BalanceOf(tx, c.addr)
		return err
	})
	return bal, err
}

// Snapshot is a consistent read of everything public about a contract.
type Snapshot struct {
	Address identity.Address `json:"address"`
	State
	Quotes  PriceBook `json:"quotes"`
	Balance uint64    `json:"balance"`
	Phase   Phase     `json:"phase"`
}

// Snapshot reads state and balance in a single transaction.
func (c *Contract) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := c.view(func(tx store.Tx, s *State) error {
		bal, err := c.asset.BalanceOf(tx, c.addr)
		if err != nil {
			return err
		}
		snap = Snapshot{Address: c.addr, State: *s, Balance: bal, Phase: s.Escrow.Phase()}
		for _, t := range AllTiers() {
			snap.Quotes[t], _ = s.Prices.Quote(t)
		}
		return nil
	})
	return snap, err
}
