package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	wire "github.com/AmentiAI/solmaker-sub001/launchpad/models"
	"github.com/AmentiAI/solmaker-sub001/pkg/chain"
	"github.com/AmentiAI/solmaker-sub001/pkg/clock"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/models"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/repository"
	"go.uber.org/zap"
)

const (
	DefaultLockTTL = 5 * time.Minute
	defaultPerPage = 100
	maxPerPage     = 500
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

func badRequest(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusBadRequest, Message: msg}
}

func internal(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusInternalServerError, Message: msg}
}

var (
	errLockedByOther = &ServiceError{StatusCode: http.StatusConflict, Message: "Ordinal is locked by another wallet"}
	errAlreadyMinted = &ServiceError{StatusCode: http.StatusConflict, Message: "Ordinal has already been minted"}
	errNotLockOwner  = &ServiceError{StatusCode: http.StatusForbidden, Message: "You can only release ordinals locked by your wallet"}
	errFailedOnChain = &ServiceError{StatusCode: http.StatusUnprocessableEntity, Message: "Transaction failed on chain"}
	errLockExpired   = &ServiceError{StatusCode: http.StatusConflict, Message: "Ordinal lock expired"}
)

// TxBuilder builds the unsigned mint payment for payer.
type TxBuilder interface {
	Build(ctx context.Context, payer string, lamports uint64) ([]byte, error)
}

// SignatureChecker reports on-chain confirmation of a signature.
type SignatureChecker interface {
	Confirmed(ctx context.Context, signature string) (bool, error)
}

// MetricsRecorder counts business events.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

// Metric names.
const (
	MetricOrdinalsLocked = "OrdinalsLocked"
	MetricMintsBuilt     = "MintsBuilt"
	MetricMintsConfirmed = "MintsConfirmed"
	MetricMintsFailed    = "MintsFailed"
)

// EventPublisher announces confirmed mints.
type EventPublisher interface {
	PublishMinted(ctx context.Context, event models.MintedEvent) error
}

// LaunchpadService defines the launchpad business logic.
type LaunchpadService interface {
	GetCollection(ctx context.Context, collectionID string) (*wire.Collection, *ServiceError)
	Poll(ctx context.Context, collectionID, wallet string) (*wire.PollResponse, *ServiceError)
	ListOrdinals(ctx context.Context, collectionID string, page, perPage int) (*wire.OrdinalsPage, *ServiceError)
	Reserve(ctx context.Context, collectionID string, req wire.ReserveRequest) (*wire.ReserveResponse, *ServiceError)
	Release(ctx context.Context, collectionID, wallet, itemID string) *ServiceError
	BuildMint(ctx context.Context, collectionID string, req wire.BuildMintRequest) (*wire.BuildMintResponse, *ServiceError)
	ConfirmMint(ctx context.Context, collectionID string, req wire.ConfirmMintRequest) (*wire.ConfirmMintResponse, *ServiceError)
	ConfirmStatus(ctx context.Context, collectionID, signature string) (*wire.ConfirmMintResponse, *ServiceError)
	WhitelistStatus(ctx context.Context, collectionID, wallet, phaseID string) (*wire.WhitelistStatus, *ServiceError)
}

// Option configures the service.
type Option func(*launchpadServiceImpl)

// WithClock sets the clock used for lock expiry and phase windows.
func WithClock(c clock.Clock) Option {
	return func(s *launchpadServiceImpl) { s.clock = c }
}

// WithLockTTL sets how long a reservation lock lives.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *launchpadServiceImpl) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithPublisher adds a mint event publisher. Every publisher receives every
// event.
func WithPublisher(p EventPublisher) Option {
	return func(s *launchpadServiceImpl) { s.publishers = append(s.publishers, p) }
}

// WithMetrics sets the counter sink for locks and mints.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *launchpadServiceImpl) { s.metrics = m }
}

// WithMintAddress overrides the NFT mint address generator.
func WithMintAddress(fn func() string) Option {
	return func(s *launchpadServiceImpl) { s.mintAddress = fn }
}

// WithRand sets the source used to pick random ordinals.
func WithRand(r *rand.Rand) Option {
	return func(s *launchpadServiceImpl) { s.rand = r }
}

type launchpadServiceImpl struct {
	catalog     repository.CatalogRepository
	locks       repository.LockStore
	builder     TxBuilder
	checker     SignatureChecker
	publishers  []EventPublisher
	metrics     MetricsRecorder
	clock       clock.Clock
	lockTTL     time.Duration
	mintAddress func() string
	logger      *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand

	walletMu sync.Mutex
	wallets  map[string]*sync.Mutex
}

// NewLaunchpadService creates a new LaunchpadService.
func NewLaunchpadService(
	catalog repository.CatalogRepository,
	locks repository.LockStore,
	builder TxBuilder,
	checker SignatureChecker,
	logger *zap.Logger,
	opts ...Option,
) LaunchpadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &launchpadServiceImpl{
		catalog:     catalog,
		locks:       locks,
		builder:     builder,
		checker:     checker,
		clock:       clock.NewSystem(),
		lockTTL:     DefaultLockTTL,
		mintAddress: chain.NewMintAddress,
		logger:      logger,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		wallets:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *launchpadServiceImpl) GetCollection(ctx context.Context, collectionID string) (*wire.Collection, *ServiceError) {
	_, col, svcErr := s.loadCollection(ctx, collectionID)
	if svcErr != nil {
		return nil, svcErr
	}
	return &col, nil
}

// Poll aggregates counters, active phase and, when wallet is given, its
// whitelist and mint status.
func (s *launchpadServiceImpl) Poll(ctx context.Context, collectionID, wallet string) (*wire.PollResponse, *ServiceError) {
	_, col, svcErr := s.loadCollection(ctx, collectionID)
	if svcErr != nil {
		return nil, svcErr
	}

	resp := &wire.PollResponse{
		Success: true,
		Counts: &wire.Counts{
			TotalSupply:    col.TotalSupply,
			TotalMinted:    col.TotalMinted,
			AvailableCount: wire.Remaining(col.TotalSupply, col.TotalMinted),
		},
	}

	phase := col.ActivePhase()
	if phase == nil {
		return resp, nil
	}
	resp.ActivePhase = phase

	if wallet == "" {
		return resp, nil
	}
	minted, err := s.catalog.WalletMinted(ctx, phase.ID, wallet)
	if err != nil {
		s.logger.Error("Failed to count wallet mints", zap.String("wallet", wallet), zap.Error(err))
		return resp, nil
	}
	us := wire.NewUserMintStatus(minted, phase.MaxPerWallet)
	resp.UserMintStatus = &us

	if phase.WhitelistOnly {
		ws, err := s.whitelistView(ctx, phase.ID, wallet, minted)
		if err != nil {
			s.logger.Error("Failed to load whitelist entry", zap.String("wallet", wallet), zap.Error(err))
			return resp, nil
		}
		resp.UserWhitelistStatus = &ws
	}
	return resp, nil
}

func (s *launchpadServiceImpl) ListOrdinals(ctx context.Context, collectionID string, page, perPage int) (*wire.OrdinalsPage, *ServiceError) {
	if _, _, svcErr := s.loadCollection(ctx, collectionID); svcErr != nil {
		return nil, svcErr
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	records, total, err := s.catalog.ListOrdinals(ctx, collectionID, page, perPage)
	if err != nil {
		s.logger.Error("Failed to list ordinals", zap.String("collection_id", collectionID), zap.Error(err))
		return nil, internal("Failed to load ordinals")
	}
	locks, err := s.locks.Get(ctx, collectionID, ordinalIDs(records))
	if err != nil {
		s.logger.Error("Failed to read locks", zap.String("collection_id", collectionID), zap.Error(err))
		return nil, internal("Failed to load ordinals")
	}

	items := make([]wire.InventoryItem, 0, len(records))
	for _, o := range records {
		items = append(items, o.Wire(lockFor(locks, o.ID)))
	}
	return &wire.OrdinalsPage{
		Ordinals:   items,
		Pagination: wire.NewPagination(page, perPage, int(total)),
	}, nil
}

// Reserve locks one chosen ordinal (itemId set) or up to quantity random
// free ordinals, re-validating the phase and the wallet's allowance.
func (s *launchpadServiceImpl) Reserve(ctx context.Context, collectionID string, req wire.ReserveRequest) (*wire.ReserveResponse, *ServiceError) {
	unlock := s.lockWallet(collectionID, req.WalletAddress)
	defer unlock()

	_, col, svcErr := s.loadCollection(ctx, collectionID)
	if svcErr != nil {
		return nil, svcErr
	}
	if col.SoldOut() {
		return nil, badRequest("Collection is sold out")
	}
	phase, svcErr := s.openPhase(col, req.PhaseID)
	if svcErr != nil {
		return nil, svcErr
	}
	allowed, svcErr := s.allowance(ctx, col, phase, req.WalletAddress)
	if svcErr != nil {
		return nil, svcErr
	}

	unminted, err := s.catalog.ListUnminted(ctx, collectionID)
	if err != nil {
		s.logger.Error("Failed to list unminted ordinals", zap.String("collection_id", collectionID), zap.Error(err))
		return nil, internal("Failed to reserve ordinals")
	}
	locks, err := s.locks.Get(ctx, collectionID, ordinalIDs(unminted))
	if err != nil {
		s.logger.Error("Failed to read locks", zap.String("collection_id", collectionID), zap.Error(err))
		return nil, internal("Failed to reserve ordinals")
	}

	var resp *wire.ReserveResponse
	if req.ItemID != "" {
		resp, svcErr = s.reserveChosen(ctx, collectionID, req, unminted, locks, allowed)
	} else {
		resp, svcErr = s.reserveRandom(ctx, collectionID, req, unminted, locks, allowed)
	}
	if svcErr == nil {
		s.count(ctx, MetricOrdinalsLocked, collectionID)
	}
	return resp, svcErr
}

func (s *launchpadServiceImpl) reserveChosen(ctx context.Context, collectionID string, req wire.ReserveRequest, unminted []models.OrdinalRecord, locks map[string]models.Lock, allowed int) (*wire.ReserveResponse, *ServiceError) {
	var target *models.OrdinalRecord
	held := 0
	for i := range unminted {
		o := &unminted[i]
		if o.ID == req.ItemID {
			target = o
			continue
		}
		if l, ok := locks[o.ID]; ok && l.Wallet == req.WalletAddress {
			held++
		}
	}
	if target == nil {
		existing, err := s.catalog.GetOrdinals(ctx, collectionID, []string{req.ItemID})
		if err == nil && len(existing) > 0 && existing[0].IsMinted {
			return nil, errAlreadyMinted
		}
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Ordinal not found"}
	}
	if held >= allowed {
		return nil, badRequest(fmt.Sprintf("You can lock at most %d ordinal(s) in this phase", allowed))
	}

	lock, err := s.locks.Acquire(ctx, collectionID, target.ID, req.WalletAddress, s.lockTTL)
	if errors.Is(err, repository.ErrLockHeld) {
		return nil, errLockedByOther
	}
	if err != nil {
		s.logger.Error("Failed to acquire lock", zap.String("item_id", target.ID), zap.Error(err))
		return nil, internal("Failed to reserve ordinal")
	}

	s.logger.Info("Ordinal locked",
		zap.String("collection_id", collectionID),
		zap.String("item_id", target.ID),
		zap.String("wallet", req.WalletAddress),
	)
	item := target.Wire(&lock)
	return &wire.ReserveResponse{Success: true, Ordinal: &item}, nil
}

// reserveRandom grants the wallet's own live locks first, then locks random
// free ordinals until quantity is reached.
func (s *launchpadServiceImpl) reserveRandom(ctx context.Context, collectionID string, req wire.ReserveRequest, unminted []models.OrdinalRecord, locks map[string]models.Lock, allowed int) (*wire.ReserveResponse, *ServiceError) {
	quantity := req.Quantity
	if quantity > allowed {
		quantity = allowed
	}

	var own, free []models.OrdinalRecord
	for _, o := range unminted {
		l, locked := locks[o.ID]
		switch {
		case locked && l.Wallet == req.WalletAddress:
			own = append(own, o)
		case !locked:
			free = append(free, o)
		}
	}
	s.shuffle(free)

	granted := make([]wire.InventoryItem, 0, quantity)
	for _, o := range append(own, free...) {
		if len(granted) == quantity {
			break
		}
		lock, err := s.locks.Acquire(ctx, collectionID, o.ID, req.WalletAddress, s.lockTTL)
		if errors.Is(err, repository.ErrLockHeld) {
			continue
		}
		if err != nil {
			s.releaseAll(ctx, collectionID, req.WalletAddress, granted)
			s.logger.Error("Failed to acquire lock", zap.String("item_id", o.ID), zap.Error(err))
			return nil, internal("Failed to reserve ordinals")
		}
		granted = append(granted, o.Wire(&lock))
	}
	if len(granted) == 0 {
		return nil, &ServiceError{StatusCode: http.StatusConflict, Message: "No ordinals available to reserve"}
	}

	s.logger.Info("Ordinals reserved",
		zap.String("collection_id", collectionID),
		zap.String("wallet", req.WalletAddress),
		zap.Int("requested", req.Quantity),
		zap.Int("granted", len(granted)),
	)
	return &wire.ReserveResponse{Success: true, Ordinals: granted}, nil
}

func (s *launchpadServiceImpl) Release(ctx context.Context, collectionID, wallet, itemID string) *ServiceError {
	if wallet == "" || itemID == "" {
		return badRequest("walletAddress and itemId are required")
	}
	err := s.locks.Release(ctx, collectionID, itemID, wallet)
	if errors.Is(err, repository.ErrNotLockHolder) {
		return errNotLockOwner
	}
	if err != nil {
		s.logger.Error("Failed to release lock", zap.String("item_id", itemID), zap.Error(err))
		return internal("Failed to release ordinal")
	}
	s.logger.Info("Ordinal released", zap.String("item_id", itemID), zap.String("wallet", wallet))
	return nil
}

// BuildMint checks the wallet holds every ordinal, extends those locks and
// returns an unsigned payment transaction for phase price times quantity.
func (s *launchpadServiceImpl) BuildMint(ctx context.Context, collectionID string, req wire.BuildMintRequest) (*wire.BuildMintResponse, *ServiceError) {
	if req.Quantity != len(req.OrdinalIDs) {
		return nil, badRequest("Quantity does not match the number of ordinals")
	}
	if hasDuplicates(req.OrdinalIDs) {
		return nil, badRequest("Duplicate ordinals in request")
	}

	unlock := s.lockWallet(collectionID, req.WalletAddress)
	defer unlock()

	_, col, svcErr := s.loadCollection(ctx, collectionID)
	if svcErr != nil {
		return nil, svcErr
	}
	phase, svcErr := s.openPhase(col, req.PhaseID)
	if svcErr != nil {
		return nil, svcErr
	}
	allowed, svcErr := s.allowance(ctx, col, phase, req.WalletAddress)
	if svcErr != nil {
		return nil, svcErr
	}
	if req.Quantity > allowed {
		return nil, badRequest(fmt.Sprintf("You can mint at most %d ordinal(s) right now", allowed))
	}

	records, err := s.catalog.GetOrdinals(ctx, collectionID, req.OrdinalIDs)
	if err != nil {
		s.logger.Error("Failed to load ordinals", zap.Error(err))
		return nil, internal("Failed to build mint transaction")
	}
	if len(records) != len(req.OrdinalIDs) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Ordinal not found"}
	}
	for _, o := range records {
		if o.IsMinted {
			return nil, errAlreadyMinted
		}
	}
	held, err := s.locks.Get(ctx, collectionID, req.OrdinalIDs)
	if err != nil {
		s.logger.Error("Failed to load locks", zap.Error(err))
		return nil, internal("Failed to build mint transaction")
	}
	for _, id := range req.OrdinalIDs {
		lock, ok := held[id]
		if !ok {
			return nil, errLockExpired
		}
		if lock.Wallet != req.WalletAddress {
			return nil, errLockedByOther
		}
	}
	// only ordinals this wallet already holds are extended
	for _, id := range req.OrdinalIDs {
		_, err := s.locks.Acquire(ctx, collectionID, id, req.WalletAddress, s.lockTTL)
		if errors.Is(err, repository.ErrLockHeld) {
			return nil, errLockedByOther
		}
		if err != nil {
			s.logger.Error("Failed to extend lock", zap.String("item_id", id), zap.Error(err))
			return nil, internal("Failed to build mint transaction")
		}
	}

	lamports := phase.MintPriceLamports * uint64(req.Quantity)
	raw, err := s.builder.Build(ctx, req.WalletAddress, lamports)
	if err != nil {
		s.logger.Error("Failed to build transaction", zap.String("wallet", req.WalletAddress), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusBadGateway, Message: "Failed to build mint transaction"}
	}

	mint := &models.MintRecord{
		CollectionID:  collectionID,
		PhaseID:       phase.ID,
		WalletAddress: req.WalletAddress,
		NFTMint:       s.mintAddress(),
		OrdinalIDs:    append([]string(nil), req.OrdinalIDs...),
		Quantity:      req.Quantity,
		Lamports:      lamports,
	}
	if err := s.catalog.CreatePendingMint(ctx, mint); err != nil {
		s.logger.Error("Failed to persist pending mint", zap.Error(err))
		return nil, internal("Failed to build mint transaction")
	}

	s.logger.Info("Mint transaction built",
		zap.String("collection_id", collectionID),
		zap.String("wallet", req.WalletAddress),
		zap.String("nft_mint", mint.NFTMint),
		zap.Int("quantity", req.Quantity),
		zap.Uint64("lamports", lamports),
	)
	s.count(ctx, MetricMintsBuilt, collectionID)
	return &wire.BuildMintResponse{
		Transaction: base64.StdEncoding.EncodeToString(raw),
		NFTMint:     mint.NFTMint,
	}, nil
}

// ConfirmMint records the broadcast signature and settles the mint when the
// chain reports it confirmed.
func (s *launchpadServiceImpl) ConfirmMint(ctx context.Context, collectionID string, req wire.ConfirmMintRequest) (*wire.ConfirmMintResponse, *ServiceError) {
	var (
		mint *models.MintRecord
		err  error
	)
	if req.NFTMintAddress != "" {
		mint, err = s.catalog.GetMintByNFT(ctx, req.NFTMintAddress)
	} else {
		mint, err = s.catalog.GetMintBySignature(ctx, req.Signature)
	}
	if svcErr := s.mintLookupError(err); svcErr != nil {
		return nil, svcErr
	}
	if mint.CollectionID != collectionID {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Mint not found"}
	}
	if mint.WalletAddress != req.WalletAddress {
		return nil, &ServiceError{StatusCode: http.StatusForbidden, Message: "Mint belongs to another wallet"}
	}

	if mint.Signature == nil {
		if err := s.catalog.AttachSignature(ctx, mint.ID, req.Signature); err != nil {
			s.logger.Error("Failed to record signature", zap.String("signature", req.Signature), zap.Error(err))
			return nil, internal("Failed to record signature")
		}
		sig := req.Signature
		mint.Signature = &sig
	} else if *mint.Signature != req.Signature {
		return nil, badRequest("Mint already has a different signature")
	}

	return s.settle(ctx, mint)
}

func (s *launchpadServiceImpl) ConfirmStatus(ctx context.Context, collectionID, signature string) (*wire.ConfirmMintResponse, *ServiceError) {
	if signature == "" {
		return nil, badRequest("signature is required")
	}
	mint, err := s.catalog.GetMintBySignature(ctx, signature)
	if svcErr := s.mintLookupError(err); svcErr != nil {
		return nil, svcErr
	}
	if mint.CollectionID != collectionID {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Mint not found"}
	}
	return s.settle(ctx, mint)
}

func (s *launchpadServiceImpl) settle(ctx context.Context, mint *models.MintRecord) (*wire.ConfirmMintResponse, *ServiceError) {
	sig := *mint.Signature
	switch mint.Status {
	case models.MintConfirmed:
		return &wire.ConfirmMintResponse{Confirmed: true, Signature: sig}, nil
	case models.MintFailed:
		return nil, errFailedOnChain
	}

	confirmed, err := s.checker.Confirmed(ctx, sig)
	if errors.Is(err, chain.ErrTransactionFailed) {
		if ferr := s.catalog.FailMint(ctx, mint.ID); ferr != nil {
			s.logger.Error("Failed to mark mint failed", zap.String("signature", sig), zap.Error(ferr))
		}
		s.releaseIDs(ctx, mint.CollectionID, mint.WalletAddress, mint.OrdinalIDs)
		s.logger.Warn("Mint transaction failed on chain", zap.String("signature", sig), zap.Error(err))
		s.count(ctx, MetricMintsFailed, mint.CollectionID)
		return nil, errFailedOnChain
	}
	if err != nil {
		s.logger.Warn("Signature status unavailable", zap.String("signature", sig), zap.Error(err))
		return &wire.ConfirmMintResponse{Confirmed: false, Signature: sig}, nil
	}
	if !confirmed {
		return &wire.ConfirmMintResponse{Confirmed: false, Signature: sig}, nil
	}

	now := s.clock.Now()
	err = s.catalog.CompleteMint(ctx, mint, now)
	if errors.Is(err, repository.ErrMintSettled) {
		return &wire.ConfirmMintResponse{Confirmed: true, Signature: sig}, nil
	}
	if err != nil {
		s.logger.Error("Failed to complete mint", zap.String("signature", sig), zap.Error(err))
		return nil, internal("Failed to record mint")
	}
	s.releaseIDs(ctx, mint.CollectionID, mint.WalletAddress, mint.OrdinalIDs)

	s.logger.Info("Mint confirmed",
		zap.String("collection_id", mint.CollectionID),
		zap.String("wallet", mint.WalletAddress),
		zap.String("signature", sig),
		zap.Int("quantity", mint.Quantity),
	)
	s.count(ctx, MetricMintsConfirmed, mint.CollectionID)
	s.publishMinted(ctx, models.MintedEvent{
		CollectionID:  mint.CollectionID,
		PhaseID:       mint.PhaseID,
		WalletAddress: mint.WalletAddress,
		NFTMint:       mint.NFTMint,
		Signature:     sig,
		OrdinalIDs:    mint.OrdinalIDs,
		Quantity:      mint.Quantity,
		MintedAt:      now,
	})
	return &wire.ConfirmMintResponse{Confirmed: true, Signature: sig}, nil
}

func (s *launchpadServiceImpl) WhitelistStatus(ctx context.Context, collectionID, wallet, phaseID string) (*wire.WhitelistStatus, *ServiceError) {
	if wallet == "" || phaseID == "" {
		return nil, badRequest("walletAddress and phaseId are required")
	}
	_, col, svcErr := s.loadCollection(ctx, collectionID)
	if svcErr != nil {
		return nil, svcErr
	}
	found := false
	for _, p := range col.Phases {
		if p.ID == phaseID {
			found = true
			break
		}
	}
	if !found {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Phase not found"}
	}

	minted, err := s.catalog.WalletMinted(ctx, phaseID, wallet)
	if err != nil {
		s.logger.Error("Failed to count wallet mints", zap.Error(err))
		return nil, internal("Failed to load whitelist status")
	}
	ws, err := s.whitelistView(ctx, phaseID, wallet, minted)
	if err != nil {
		s.logger.Error("Failed to load whitelist entry", zap.Error(err))
		return nil, internal("Failed to load whitelist status")
	}
	return &ws, nil
}

func (s *launchpadServiceImpl) loadCollection(ctx context.Context, collectionID string) (*models.CollectionRecord, wire.Collection, *ServiceError) {
	rec, err := s.catalog.GetCollection(ctx, collectionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, wire.Collection{}, &ServiceError{StatusCode: http.StatusNotFound, Message: "Collection not found"}
	}
	if err != nil {
		s.logger.Error("Failed to load collection", zap.String("collection_id", collectionID), zap.Error(err))
		return nil, wire.Collection{}, internal("Failed to load collection")
	}
	return rec, rec.Wire(), nil
}

// openPhase returns the active phase if it matches phaseID and its window is
// open now.
func (s *launchpadServiceImpl) openPhase(col wire.Collection, phaseID string) (*wire.Phase, *ServiceError) {
	phase := col.ActivePhase()
	if phase == nil {
		return nil, badRequest("No active mint phase")
	}
	if phaseID != "" && phase.ID != phaseID {
		return nil, badRequest("Phase is not active")
	}
	if !phase.OpenAt(s.clock.Now()) {
		return nil, badRequest("Phase is not open")
	}
	return phase, nil
}

// allowance is how many more ordinals wallet may take in phase: the least of
// supply left, phase allocation left, whitelist allocation left and the
// per-wallet cap left.
func (s *launchpadServiceImpl) allowance(ctx context.Context, col wire.Collection, phase *wire.Phase, wallet string) (int, *ServiceError) {
	left := wire.Remaining(col.TotalSupply, col.TotalMinted)
	if rem, ok := phase.Remaining(); ok && rem < left {
		left = rem
	}
	if left == 0 {
		return 0, badRequest("This phase is fully minted")
	}

	minted, err := s.catalog.WalletMinted(ctx, phase.ID, wallet)
	if err != nil {
		s.logger.Error("Failed to count wallet mints", zap.String("wallet", wallet), zap.Error(err))
		return 0, internal("Failed to check mint allowance")
	}

	if phase.WhitelistOnly {
		entry, err := s.catalog.WhitelistEntry(ctx, phase.ID, wallet)
		if errors.Is(err, repository.ErrNotFound) {
			return 0, badRequest("Wallet is not whitelisted for this phase")
		}
		if err != nil {
			s.logger.Error("Failed to load whitelist entry", zap.String("wallet", wallet), zap.Error(err))
			return 0, internal("Failed to check mint allowance")
		}
		rem := wire.Remaining(entry.Allocation, minted)
		if rem == 0 {
			return 0, badRequest("Whitelist allocation used for this phase")
		}
		if rem < left {
			left = rem
		}
	}
	if phase.MaxPerWallet != nil {
		rem := wire.Remaining(*phase.MaxPerWallet, minted)
		if rem == 0 {
			return 0, badRequest("Mint limit reached for this phase")
		}
		if rem < left {
			left = rem
		}
	}
	return left, nil
}

func (s *launchpadServiceImpl) whitelistView(ctx context.Context, phaseID, wallet string, minted int) (wire.WhitelistStatus, error) {
	entry, err := s.catalog.WhitelistEntry(ctx, phaseID, wallet)
	if errors.Is(err, repository.ErrNotFound) {
		return wire.NewWhitelistStatus(false, 0, minted), nil
	}
	if err != nil {
		return wire.WhitelistStatus{}, err
	}
	return wire.NewWhitelistStatus(true, entry.Allocation, minted), nil
}

func (s *launchpadServiceImpl) mintLookupError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return &ServiceError{StatusCode: http.StatusNotFound, Message: "Mint not found"}
	}
	s.logger.Error("Failed to load mint", zap.Error(err))
	return internal("Failed to load mint")
}

func (s *launchpadServiceImpl) publishMinted(ctx context.Context, event models.MintedEvent) {
	for _, p := range s.publishers {
		if err := p.PublishMinted(ctx, event); err != nil {
			s.logger.Error("Failed to publish mint event", zap.String("signature", event.Signature), zap.Error(err))
		}
	}
}

func (s *launchpadServiceImpl) count(ctx context.Context, metric, collectionID string) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.RecordCount(ctx, metric, map[string]string{"CollectionId": collectionID}); err != nil {
		s.logger.Warn("Failed to record metric", zap.String("metric", metric), zap.Error(err))
	}
}

func (s *launchpadServiceImpl) releaseAll(ctx context.Context, collectionID, wallet string, items []wire.InventoryItem) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	s.releaseIDs(ctx, collectionID, wallet, ids)
}

func (s *launchpadServiceImpl) releaseIDs(ctx context.Context, collectionID, wallet string, ids []string) {
	for _, id := range ids {
		if err := s.locks.Release(ctx, collectionID, id, wallet); err != nil && !errors.Is(err, repository.ErrNotLockHolder) {
			s.logger.Warn("Failed to release lock", zap.String("item_id", id), zap.Error(err))
		}
	}
}

// lockWallet serializes reserve and build calls per wallet so allowance
// checks and lock acquisition see a consistent count.
func (s *launchpadServiceImpl) lockWallet(collectionID, wallet string) func() {
	key := collectionID + "|" + wallet
	s.walletMu.Lock()
	mu, ok := s.wallets[key]
	if !ok {
		mu = &sync.Mutex{}
		s.wallets[key] = mu
	}
	s.walletMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (s *launchpadServiceImpl) shuffle(list []models.OrdinalRecord) {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	s.rand.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
}

func ordinalIDs(records []models.OrdinalRecord) []string {
	ids := make([]string, 0, len(records))
	for _, o := range records {
		ids = append(ids, o.ID)
	}
	return ids
}

func lockFor(locks map[string]models.Lock, id string) *models.Lock {
	l, ok := locks[id]
	if !ok {
		return nil
	}
	return &l
}

func hasDuplicates(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
