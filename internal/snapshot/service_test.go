package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/folioapp/folio/internal/domain"
	"github.com/folioapp/folio/internal/quote"
)

var (
	testPortfolio = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	testAsOf      = time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC)
)

type mockProjector struct {
	proj domain.Projection
	err  error
}

func (m *mockProjector) Project(_ context.Context, _ uuid.UUID, _ time.Time) (domain.Projection, error) {
	if m.err != nil {
		return domain.Projection{}, m.err
	}
	return m.proj, nil
}

type mockQuoteSource struct {
	results map[string]quote.Result
	err     error
}

func (m *mockQuoteSource) Lookup(_ context.Context, _ []string) (map[string]quote.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

type mockSnapshotRepo struct {
	saved []PortfolioSnapshot
	err   error
}

func (m *mockSnapshotRepo) Save(_ context.Context, snap PortfolioSnapshot) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, snap)
	return nil
}

func (m *mockSnapshotRepo) GetLatest(_ context.Context, _ uuid.UUID) (PortfolioSnapshot, error) {
	if len(m.saved) == 0 {
		return PortfolioSnapshot{}, ErrNotFound
	}
	return m.saved[len(m.saved)-1], nil
}

func (m *mockSnapshotRepo) List(_ context.Context, _ uuid.UUID, limit int) ([]PortfolioSnapshot, error) {
	if limit > len(m.saved) {
		limit = len(m.saved)
	}
	return m.saved[:limit], nil
}

func amount(t *testing.T, s string) domain.Amount {
	t.Helper()
	a, err := domain.ParseAmount(s)
	if err != nil {
		t.Fatalf("ParseAmount(%q): %v", s, err)
	}
	return a
}

func quantity(t *testing.T, s string) domain.Quantity {
	t.Helper()
	q, err := domain.ParseQuantity(s)
	if err != nil {
		t.Fatalf("ParseQuantity(%q): %v", s, err)
	}
	return q
}

func holdingsProjection(t *testing.T, cash string, holdings map[string][2]string) domain.Projection {
	t.Helper()
	proj := domain.Projection{
		PortfolioID: testPortfolio,
		AsOf:        testAsOf,
		Cash:        amount(t, cash),
		Holdings:    map[string]domain.Holding{},
	}
	for sym, qa := range holdings {
		proj.Holdings[sym] = domain.Holding{
			Symbol:      sym,
			Quantity:    quantity(t, qa[0]),
			AverageCost: amount(t, qa[1]),
		}
	}
	return proj
}

func liveResult(t *testing.T, symbol, price string) quote.Result {
	t.Helper()
	return quote.Result{Quote: quote.Quote{
		Symbol:     symbol,
		Price:      amount(t, price),
		ObservedAt: testAsOf,
	}}
}

func TestBuildValuesPositions(t *testing.T) {
	projector := &mockProjector{proj: holdingsProjection(t, "9478.50", map[string][2]string{
		"ABC": {"6", "100"},
	})}
	quotes := &mockQuoteSource{results: map[string]quote.Result{
		"ABC": liveResult(t, "ABC", "110.00"),
	}}
	repo := &mockSnapshotRepo{}
	svc := NewService(projector, quotes, repo)

	snap, err := svc.Build(context.Background(), testPortfolio, testAsOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := snap.TotalValue.String(); got != "10138.5" {
		t.Errorf("total = %s, want 10138.5 (cash 9478.50 + 6×110)", got)
	}
	if snap.Stale {
		t.Error("all-live snapshot must not be stale")
	}
	if len(snap.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(snap.Positions))
	}
	pos := snap.Positions[0]
	if pos.MarketValue == nil || pos.MarketValue.String() != "660" {
		t.Errorf("market value = %v, want 660", pos.MarketValue)
	}
	if len(repo.saved) != 1 {
		t.Errorf("saved %d snapshots, want 1", len(repo.saved))
	}
}

func TestBuildNeverQuotedSymbolExcludedFromTotal(t *testing.T) {
	projector := &mockProjector{proj: holdingsProjection(t, "1000", map[string][2]string{
		"ABC": {"10", "100"},
		"NEW": {"5", "20"},
	})}
	quotes := &mockQuoteSource{results: map[string]quote.Result{
		"ABC": liveResult(t, "ABC", "105"),
	}}
	svc := NewService(projector, quotes, &mockSnapshotRepo{})

	snap, err := svc.Build(context.Background(), testPortfolio, testAsOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1000 + 10×105; NEW contributes nothing
	if got := snap.TotalValue.String(); got != "2050" {
		t.Errorf("total = %s, want 2050", got)
	}
	if !snap.Stale {
		t.Error("snapshot with an unavailable position must be marked stale")
	}

	var newPos *PositionValuation
	for i := range snap.Positions {
		if snap.Positions[i].Symbol == "NEW" {
			newPos = &snap.Positions[i]
		}
	}
	if newPos == nil {
		t.Fatal("NEW position missing: unavailable symbols stay visible")
	}
	if !newPos.Unavailable {
		t.Error("never-quoted position must be marked unavailable")
	}
	if newPos.MarketValue != nil || newPos.Price != nil {
		t.Error("unavailable position must not carry a price or value")
	}
}

func TestBuildStaleQuoteMarksSnapshot(t *testing.T) {
	projector := &mockProjector{proj: holdingsProjection(t, "0", map[string][2]string{
		"ABC": {"10", "100"},
	})}
	stale := liveResult(t, "ABC", "95")
	stale.Stale = true
	quotes := &mockQuoteSource{results: map[string]quote.Result{"ABC": stale}}
	svc := NewService(projector, quotes, &mockSnapshotRepo{})

	snap, err := svc.Build(context.Background(), testPortfolio, testAsOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.Stale {
		t.Error("snapshot holding a stale quote must be marked stale")
	}
	if !snap.Positions[0].Stale {
		t.Error("position valued from a stored quote must be marked stale")
	}
	if got := snap.TotalValue.String(); got != "950" {
		t.Errorf("total = %s, want 950 (stale prices still count)", got)
	}
}

func TestBuildQuoteLookupFailureDegrades(t *testing.T) {
	projector := &mockProjector{proj: holdingsProjection(t, "500", map[string][2]string{
		"ABC": {"10", "100"},
	})}
	quotes := &mockQuoteSource{err: errors.New("upstream down")}
	svc := NewService(projector, quotes, &mockSnapshotRepo{})

	snap, err := svc.Build(context.Background(), testPortfolio, testAsOf)
	if err != nil {
		t.Fatalf("quote failure must degrade, not fail: %v", err)
	}
	if got := snap.TotalValue.String(); got != "500" {
		t.Errorf("total = %s, want cash only", got)
	}
	if !snap.Positions[0].Unavailable {
		t.Error("position must be unavailable when lookup fails entirely")
	}
}

func TestBuildProjectionErrorFails(t *testing.T) {
	projErr := errors.New("ledger inconsistency detected")
	svc := NewService(&mockProjector{err: projErr}, &mockQuoteSource{}, &mockSnapshotRepo{})

	_, err := svc.Build(context.Background(), testPortfolio, testAsOf)
	if !errors.Is(err, projErr) {
		t.Errorf("error = %v, want wrapped projection error", err)
	}
}

func TestBuildSnapshotsAreDistinct(t *testing.T) {
	projector := &mockProjector{proj: holdingsProjection(t, "100", nil)}
	repo := &mockSnapshotRepo{}
	svc := NewService(projector, &mockQuoteSource{}, repo)
	ctx := context.Background()

	first, err := svc.Build(ctx, testPortfolio, testAsOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Build(ctx, testPortfolio, testAsOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID == second.ID {
		t.Error("rebuilds must produce distinct snapshot ids")
	}
	if len(repo.saved) != 2 {
		t.Errorf("saved %d snapshots, want 2 (insert only, never overwrite)", len(repo.saved))
	}
}
