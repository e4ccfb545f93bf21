package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nftlend/config"
	"nftlend/core/events"
	nftstate "nftlend/core/state"
	"nftlend/crypto"
	"nftlend/native/common"
	"nftlend/native/fees"
	"nftlend/native/listings"
	"nftlend/native/pools"
	"nftlend/native/tokenmanager"
	"nftlend/observability/metrics"
	"nftlend/storage"
)

// ErrSeedApplied is returned by ApplySeed when the store was seeded before.
var ErrSeedApplied = errors.New("protocol: seed already applied")

// Options configures a Protocol.
type Options struct {
	ProgramID       crypto.Address
	MetadataProgram crypto.Address
	Admin           crypto.Address
	Policy          listings.Policy
	Pauses          common.PauseView
	// Emitter receives events after the operation that produced them commits.
	Emitter events.Emitter
	Logger  *slog.Logger
	Now     func() int64
}

// Protocol serialises operations over one state store. Each mutating call
// runs as a single atomic state transition; its events are published only
// after the transition commits.
type Protocol struct {
	mu       sync.RWMutex
	state    *nftstate.Manager
	balances *nftstate.Balances
	tokens   *nftstate.Tokens
	registry *nftstate.Registry
	listings *listings.Engine
	pools    *pools.Engine
	admin    crypto.Address
	buffer   *events.Buffer
	emitter  events.Emitter
	logger   *slog.Logger
	metrics  *metrics.ProtocolMetrics
}

// NewProtocol wires the engines to a state manager over db.
func NewProtocol(db storage.Database, opts Options) (*Protocol, error) {
	if db == nil {
		return nil, fmt.Errorf("protocol: database must not be nil")
	}
	if opts.ProgramID.IsZero() {
		return nil, fmt.Errorf("protocol: program id must be set")
	}
	if opts.MetadataProgram.IsZero() {
		return nil, fmt.Errorf("protocol: metadata program must be set")
	}
	manager := nftstate.NewManager(db)
	p := &Protocol{
		state:    manager,
		balances: manager.Balances(),
		tokens:   manager.Tokens(),
		registry: manager.Registry(opts.MetadataProgram),
		admin:    opts.Admin,
		buffer:   &events.Buffer{},
		emitter:  opts.Emitter,
		logger:   opts.Logger,
		metrics:  metrics.Protocol(),
	}
	if p.emitter == nil {
		p.emitter = events.NoopEmitter{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	p.listings = listings.NewEngine(opts.ProgramID)
	p.listings.SetState(manager)
	p.listings.SetTokenLedger(p.tokens)
	p.listings.SetFunds(p.balances)
	p.listings.SetRegistry(p.registry)
	p.listings.SetPauses(opts.Pauses)
	p.listings.SetPolicy(opts.Policy)
	p.listings.SetEmitter(p.buffer)
	p.listings.SetNowFunc(opts.Now)

	p.pools = pools.NewEngine(opts.ProgramID)
	p.pools.SetState(manager)
	p.pools.SetAdmin(opts.Admin)
	p.pools.SetLoans(p.listings)
	p.pools.SetFunds(p.balances)
	p.pools.SetRegistry(p.registry)
	p.pools.SetPauses(opts.Pauses)
	p.pools.SetEmitter(p.buffer)
	p.pools.SetNowFunc(opts.Now)
	return p, nil
}

// Listings exposes the listings engine for address derivation.
func (p *Protocol) Listings() *listings.Engine { return p.listings }

// Pools exposes the pools engine for address derivation.
func (p *Protocol) Pools() *pools.Engine { return p.pools }

// run executes fn as one atomic transition and publishes its events.
func (p *Protocol) run(module, operation string, fn func() error) error {
	start := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer.Reset()
	err := p.state.Atomic(fn)
	duration := time.Since(start)
	if err != nil {
		p.buffer.Reset()
		kind := common.KindName(err)
		p.metrics.ObserveOperation(module, operation, kind, duration)
		p.logger.Warn("operation rejected",
			slog.String("module", module),
			slog.String("operation", operation),
			slog.String("kind", kind),
			slog.Any("error", err),
			slog.Duration("duration", duration))
		return err
	}
	for _, evt := range p.buffer.Drain() {
		p.emitter.Emit(evt)
		p.metrics.RecordEvent(evt.EventType())
	}
	p.metrics.ObserveOperation(module, operation, "", duration)
	p.logger.Debug("operation committed",
		slog.String("module", module),
		slog.String("operation", operation),
		slog.Duration("duration", duration))
	return nil
}

func (p *Protocol) read(fn func() error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fn()
}

// ApplySeed loads balances, token accounts, metadata and collections into an
// unseeded store in one transition.
func (p *Protocol) ApplySeed(seed *config.Seed) error {
	if seed == nil {
		return nil
	}
	if err := seed.Validate(); err != nil {
		return err
	}
	return p.run("seed", "apply", func() error {
		applied, err := p.state.SeedApplied()
		if err != nil {
			return err
		}
		if applied {
			return ErrSeedApplied
		}
		for _, bal := range seed.Balances {
			if err := p.balances.Credit(crypto.MustParseAddress(bal.Address), bal.Amount); err != nil {
				return fmt.Errorf("seed balance %s: %w", bal.Address, err)
			}
		}
		for _, tok := range seed.Tokens {
			if err := p.tokens.Mint(crypto.MustParseAddress(tok.Mint), crypto.MustParseAddress(tok.Owner)); err != nil {
				return fmt.Errorf("seed token %s: %w", tok.Mint, err)
			}
		}
		for _, entry := range seed.Metadata {
			meta, err := entry.AssetMetadata()
			if err != nil {
				return err
			}
			if err := p.registry.Put(meta); err != nil {
				return fmt.Errorf("seed metadata %s: %w", entry.Mint, err)
			}
		}
		if len(seed.Collections) > 0 && p.admin.IsZero() {
			return fmt.Errorf("seed collections require an admin address")
		}
		for _, col := range seed.Collections {
			if _, err := p.pools.InitCollection(p.admin, crypto.MustParseAddress(col)); err != nil {
				return fmt.Errorf("seed collection %s: %w", col, err)
			}
		}
		return p.state.MarkSeedApplied()
	})
}

// Loans.

func (p *Protocol) InitLoan(borrower, mint crypto.Address, terms listings.LoanTerms) (loan *listings.Loan, err error) {
	err = p.run(listings.ModuleLoans, "init", func() error {
		loan, err = p.listings.InitLoan(borrower, mint, terms)
		return err
	})
	return loan, err
}

func (p *Protocol) GiveLoan(lender, mint, borrower crypto.Address) (loan *listings.Loan, err error) {
	err = p.run(listings.ModuleLoans, "give", func() error {
		loan, err = p.listings.GiveLoan(lender, mint, borrower)
		return err
	})
	if err == nil {
		p.metrics.RecordLamports("principal", loan.Amount)
	}
	return loan, err
}

func (p *Protocol) RepayLoan(borrower, mint crypto.Address) (repayment fees.LoanRepayment, err error) {
	err = p.run(listings.ModuleLoans, "repay", func() error {
		repayment, err = p.listings.RepayLoan(borrower, mint)
		return err
	})
	if err == nil {
		p.metrics.RecordLamports("principal", repayment.Principal)
		p.metrics.RecordLamports("interest", repayment.ProRataFee)
	}
	return repayment, err
}

func (p *Protocol) Repossess(lender, mint, borrower crypto.Address) (loan *listings.Loan, err error) {
	err = p.run(listings.ModuleLoans, "repossess", func() error {
		loan, err = p.listings.Repossess(lender, mint, borrower)
		return err
	})
	return loan, err
}

func (p *Protocol) CloseLoan(borrower, mint crypto.Address) error {
	return p.run(listings.ModuleLoans, "close", func() error {
		return p.listings.CloseLoan(borrower, mint)
	})
}

// Call options.

func (p *Protocol) InitCallOption(seller, mint crypto.Address, terms listings.CallOptionTerms) (option *listings.CallOption, err error) {
	err = p.run(listings.ModuleOptions, "init", func() error {
		option, err = p.listings.InitCallOption(seller, mint, terms)
		return err
	})
	return option, err
}

func (p *Protocol) BuyCallOption(buyer, mint, seller crypto.Address) (option *listings.CallOption, err error) {
	err = p.run(listings.ModuleOptions, "buy", func() error {
		option, err = p.listings.BuyCallOption(buyer, mint, seller)
		return err
	})
	if err == nil {
		p.metrics.RecordLamports("premium", option.Amount)
	}
	return option, err
}

func (p *Protocol) ExerciseCallOption(buyer, mint, seller crypto.Address) (split fees.RoyaltySplit, err error) {
	err = p.run(listings.ModuleOptions, "exercise", func() error {
		split, err = p.listings.ExerciseCallOption(buyer, mint, seller)
		return err
	})
	if err == nil {
		p.metrics.RecordLamports("strike", split.Amount)
		p.metrics.RecordLamports("royalty", split.CreatorTotal())
	}
	return split, err
}

func (p *Protocol) CloseCallOption(seller, mint crypto.Address) error {
	return p.run(listings.ModuleOptions, "close", func() error {
		return p.listings.CloseCallOption(seller, mint)
	})
}

// Hires.

func (p *Protocol) InitHire(lender, mint crypto.Address, terms listings.HireTerms) (hire *listings.Hire, err error) {
	err = p.run(listings.ModuleHires, "init", func() error {
		hire, err = p.listings.InitHire(lender, mint, terms)
		return err
	})
	return hire, err
}

func (p *Protocol) TakeHire(borrower, mint, lender crypto.Address, days uint16) (hire *listings.Hire, err error) {
	err = p.run(listings.ModuleHires, "take", func() error {
		hire, err = p.listings.TakeHire(borrower, mint, lender, days)
		return err
	})
	if err == nil {
		p.recordRent(hire.Amount, days)
	}
	return hire, err
}

func (p *Protocol) ExtendHire(borrower, mint, lender crypto.Address, days uint16) (hire *listings.Hire, err error) {
	err = p.run(listings.ModuleHires, "extend", func() error {
		hire, err = p.listings.ExtendHire(borrower, mint, lender, days)
		return err
	})
	if err == nil {
		p.recordRent(hire.Amount, days)
	}
	return hire, err
}

func (p *Protocol) recordRent(daily uint64, days uint16) {
	if cost, err := fees.HireCost(daily, days); err == nil {
		p.metrics.RecordLamports("rent", cost)
	}
}

func (p *Protocol) RecoverHire(lender, mint crypto.Address) (hire *listings.Hire, err error) {
	err = p.run(listings.ModuleHires, "recover", func() error {
		hire, err = p.listings.RecoverHire(lender, mint)
		return err
	})
	return hire, err
}

func (p *Protocol) WithdrawFromHireEscrow(lender, mint crypto.Address) (amount uint64, err error) {
	err = p.run(listings.ModuleHires, "withdraw", func() error {
		amount, err = p.listings.WithdrawFromHireEscrow(lender, mint)
		return err
	})
	return amount, err
}

func (p *Protocol) CloseHire(lender, mint crypto.Address) error {
	return p.run(listings.ModuleHires, "close", func() error {
		return p.listings.CloseHire(lender, mint)
	})
}

// Collections and pools.

func (p *Protocol) InitCollection(admin, collection crypto.Address) (record *pools.Collection, err error) {
	err = p.run(pools.ModulePools, "init_collection", func() error {
		record, err = p.pools.InitCollection(admin, collection)
		return err
	})
	return record, err
}

func (p *Protocol) CreatePool(authority, collection crypto.Address, terms pools.PoolTerms) (pool *pools.Pool, err error) {
	err = p.run(pools.ModulePools, "create", func() error {
		pool, err = p.pools.CreatePool(authority, collection, terms)
		return err
	})
	return pool, err
}

func (p *Protocol) Deposit(authority, collection crypto.Address, amount uint64) (balance uint64, err error) {
	err = p.run(pools.ModulePools, "deposit", func() error {
		balance, err = p.pools.Deposit(authority, collection, amount)
		return err
	})
	return balance, err
}

func (p *Protocol) Withdraw(authority, collection crypto.Address, amount uint64) (balance uint64, err error) {
	err = p.run(pools.ModulePools, "withdraw", func() error {
		balance, err = p.pools.Withdraw(authority, collection, amount)
		return err
	})
	return balance, err
}

func (p *Protocol) BorrowFromPool(borrower, mint, authority, collection crypto.Address) (loan *listings.Loan, err error) {
	err = p.run(pools.ModulePools, "borrow", func() error {
		loan, err = p.pools.BorrowFromPool(borrower, mint, authority, collection)
		return err
	})
	if err == nil {
		p.metrics.RecordLamports("principal", loan.Amount)
	}
	return loan, err
}

func (p *Protocol) RepossessFromPool(authority, collection, mint, borrower crypto.Address) (loan *listings.Loan, err error) {
	err = p.run(pools.ModulePools, "repossess", func() error {
		loan, err = p.pools.RepossessFromPool(authority, collection, mint, borrower)
		return err
	})
	return loan, err
}

func (p *Protocol) ClosePool(authority, collection crypto.Address) error {
	return p.run(pools.ModulePools, "close", func() error {
		return p.pools.ClosePool(authority, collection)
	})
}

// Queries.

func (p *Protocol) GetLoan(mint, borrower crypto.Address) (loan *listings.Loan, err error) {
	err = p.read(func() error {
		loan, err = p.listings.GetLoan(mint, borrower)
		return err
	})
	return loan, err
}

func (p *Protocol) QuoteRepayment(mint, borrower crypto.Address) (repayment fees.LoanRepayment, err error) {
	err = p.read(func() error {
		repayment, err = p.listings.QuoteRepayment(mint, borrower)
		return err
	})
	return repayment, err
}

func (p *Protocol) GetCallOption(mint, seller crypto.Address) (option *listings.CallOption, err error) {
	err = p.read(func() error {
		option, err = p.listings.GetCallOption(mint, seller)
		return err
	})
	return option, err
}

func (p *Protocol) GetHire(mint, lender crypto.Address) (hire *listings.Hire, err error) {
	err = p.read(func() error {
		hire, err = p.listings.GetHire(mint, lender)
		return err
	})
	return hire, err
}

func (p *Protocol) EscrowWithdrawable(mint, lender crypto.Address) (amount uint64, err error) {
	err = p.read(func() error {
		amount, err = p.listings.EscrowWithdrawable(mint, lender)
		return err
	})
	return amount, err
}

func (p *Protocol) GetTokenManager(mint, issuer crypto.Address) (tm *tokenmanager.TokenManager, err error) {
	err = p.read(func() error {
		tm, err = p.listings.GetTokenManager(mint, issuer)
		return err
	})
	return tm, err
}

func (p *Protocol) GetCollection(collection crypto.Address) (record *pools.Collection, err error) {
	err = p.read(func() error {
		record, err = p.pools.GetCollection(collection)
		return err
	})
	return record, err
}

func (p *Protocol) GetPool(collection, authority crypto.Address) (pool *pools.Pool, vault uint64, err error) {
	err = p.read(func() error {
		pool, vault, err = p.pools.GetPool(collection, authority)
		return err
	})
	return pool, vault, err
}

func (p *Protocol) Balance(addr crypto.Address) (balance uint64, err error) {
	err = p.read(func() error {
		balance, err = p.balances.BalanceOf(addr)
		return err
	})
	return balance, err
}

func (p *Protocol) TokenOwner(mint crypto.Address) (owner crypto.Address, err error) {
	err = p.read(func() error {
		owner, err = p.tokens.Owner(mint)
		return err
	})
	return owner, err
}
