package ledger_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	"github.com/jhoicas/bar-ledger/internal/domain"
	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
	"github.com/jhoicas/bar-ledger/internal/domain/repository"
	"github.com/jhoicas/bar-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/bar-ledger/internal/infrastructure/sqlite/sqlitetest"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	runner  ledger.TxRunner
	svc     *ledger.Service
	queries *ledger.QueryService
	events  *recordingPublisher
	metrics *recordingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	runner := sqlite.NewTxRunner(sqlitetest.NewTestDB(t))
	return newFixtureWithRunner(runner)
}

func newFixtureWithRunner(runner ledger.TxRunner) *fixture {
	events := &recordingPublisher{}
	metrics := &recordingMetrics{}
	return &fixture{
		runner:  runner,
		svc:     ledger.NewService(runner, events, metrics, zerolog.Nop()),
		queries: ledger.NewQueryService(runner, nil),
		events:  events,
		metrics: metrics,
	}
}

func (f *fixture) product(t *testing.T, capacity, remaining float64) *entity.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(context.Background(), ledger.CreateProductInput{
		Name:             "Ron añejo",
		TotalCapacity:    capacity,
		InitialRemaining: remaining,
	}, nil)
	require.NoError(t, err)
	return p
}

func (f *fixture) set(t *testing.T, productID string, v float64) *ledger.ChangeResult {
	t.Helper()
	res, err := f.svc.ApplyChange(context.Background(), ledger.ChangeInput{ProductID: productID, Remaining: v})
	require.NoError(t, err)
	return res
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ledger.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e ledger.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingMetrics struct {
	mu      sync.Mutex
	results []string
}

func (m *recordingMetrics) ObserveChange(result string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
}

func (m *recordingMetrics) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.results) == 0 {
		return ""
	}
	return m.results[len(m.results)-1]
}

// faultyRunner delega en un TxRunner real pero puede fallar la inserción de la
// entrada o la transacción completa después de que fn terminó bien. cancelAfterFn
// cancela el contexto de la petición con las escrituras hechas y antes del Commit.
type faultyRunner struct {
	ledger.TxRunner
	failEntryCreate bool
	failAfterFn     bool
	cancelAfterFn   context.CancelFunc
}

var errInjected = errors.New("falla inyectada")

func (r *faultyRunner) Run(ctx context.Context, fn func(repository.ProductRepository, repository.LedgerEntryRepository) error) error {
	return r.TxRunner.Run(ctx, func(productRepo repository.ProductRepository, entryRepo repository.LedgerEntryRepository) error {
		if r.failEntryCreate {
			entryRepo = failingEntryRepo{entryRepo}
		}
		if err := fn(productRepo, entryRepo); err != nil {
			return err
		}
		if r.failAfterFn {
			return errInjected
		}
		if r.cancelAfterFn != nil {
			r.cancelAfterFn()
		}
		return nil
	})
}

type failingEntryRepo struct {
	repository.LedgerEntryRepository
}

func (failingEntryRepo) Create(context.Context, *entity.LedgerEntry) error { return errInjected }

// ──────────────────────────────────────────────────────────────────────────────
// CreateProduct
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateProduct_NoGeneraEntradas(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 70, 70)

	assert.True(t, p.Remaining.Equal(quantity.MustParse("70")))
	assert.True(t, p.InitialRemaining.Equal(p.Remaining))
	assert.Equal(t, int64(0), p.Version)

	history, err := f.queries.History(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, []string{ledger.EventProductCreated}, f.events.types())
}

func TestCreateProduct_ValidaCapacidadYRemaining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateProduct(ctx, ledger.CreateProductInput{Name: "X", TotalCapacity: 0, InitialRemaining: 0}, nil)
	bound, ok := domain.BoundOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.BoundCapacityNotPositive, bound)

	_, err = f.svc.CreateProduct(ctx, ledger.CreateProductInput{Name: "X", TotalCapacity: 70, InitialRemaining: 71}, nil)
	bound, _ = domain.BoundOf(err)
	assert.Equal(t, domain.BoundAboveCapacity, bound)

	_, err = f.svc.CreateProduct(ctx, ledger.CreateProductInput{Name: "X", TotalCapacity: 70, InitialRemaining: -1}, nil)
	bound, _ = domain.BoundOf(err)
	assert.Equal(t, domain.BoundBelowZero, bound)

	_, err = f.svc.CreateProduct(ctx, ledger.CreateProductInput{Name: "  ", TotalCapacity: 70, InitialRemaining: 1}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.svc.CreateProduct(ctx, ledger.CreateProductInput{Name: "X", TotalCapacity: math.Inf(1), InitialRemaining: 1}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	neg := decimal.NewFromInt(-1)
	_, err = f.svc.CreateProduct(ctx, ledger.CreateProductInput{Name: "X", TotalCapacity: 70, InitialRemaining: 1, PricePerUnit: &neg}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

// ──────────────────────────────────────────────────────────────────────────────
// ApplyChange
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyChange_SecuenciaRegistraHistorial(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 70, 70)

	r1 := f.set(t, p.ID, 50)
	r2 := f.set(t, p.ID, 70)
	r3 := f.set(t, p.ID, 5)

	for _, r := range []*ledger.ChangeResult{r1, r2, r3} {
		require.True(t, r.Changed)
		require.NotNil(t, r.Entry)
	}
	assert.True(t, r1.Entry.Delta.Equal(decimal.NewFromInt(-20)))
	assert.True(t, r2.Entry.Delta.Equal(decimal.NewFromInt(20)))
	assert.True(t, r3.Entry.Delta.Equal(decimal.NewFromInt(-65)))
	assert.Equal(t, int64(3), r3.Product.Version)

	history, err := f.queries.History(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, r3.Entry.ID, history[0].ID)
	assert.Equal(t, r2.Entry.ID, history[1].ID)
	assert.Equal(t, r1.Entry.ID, history[2].ID)
	assert.True(t, history[0].OldValue.Equal(quantity.MustParse("70")))
	assert.True(t, history[0].NewValue.Equal(quantity.MustParse("5")))

	got, err := f.queries.Product(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, got.Remaining.Equal(quantity.MustParse("5")))
	assert.Equal(t, ledger.ResultChanged, f.metrics.last())
}

func TestApplyChange_EscenarioBotellaDeRon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 70, 70)
	actor := "1"
	note := "poured"

	res, err := f.svc.ApplyChange(ctx, ledger.ChangeInput{ProductID: p.ID, Remaining: 50, ActorID: &actor, Note: &note})
	require.NoError(t, err)
	assert.True(t, res.Product.Remaining.Equal(quantity.MustParse("50")))
	assert.True(t, res.Entry.OldValue.Equal(quantity.MustParse("70")))
	assert.True(t, res.Entry.NewValue.Equal(quantity.MustParse("50")))
	assert.True(t, res.Entry.Delta.Equal(decimal.NewFromInt(-20)))

	_, err = f.svc.ApplyChange(ctx, ledger.ChangeInput{ProductID: p.ID, Remaining: 80, ActorID: &actor})
	bound, ok := domain.BoundOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.BoundAboveCapacity, bound)
	assert.Equal(t, ledger.ResultOutOfRange, f.metrics.last())

	low, err := f.queries.LowStock(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, low)

	f.set(t, p.ID, 5)
	low, err = f.queries.LowStock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, p.ID, low[0].ID)

	history, err := f.queries.History(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestApplyChange_MismoValorEsNoop(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 70, 40)

	res, err := f.svc.ApplyChange(context.Background(), ledger.ChangeInput{ProductID: p.ID, Remaining: 40})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Nil(t, res.Entry)
	assert.Equal(t, int64(0), res.Product.Version)
	assert.Equal(t, p.UpdatedAt, res.Product.UpdatedAt)
	assert.Equal(t, ledger.ResultNoop, f.metrics.last())

	history, err := f.queries.History(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, []string{ledger.EventProductCreated}, f.events.types())
}

func TestApplyChange_ValoresNoFinitos(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 70, 70)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := f.svc.ApplyChange(context.Background(), ledger.ChangeInput{ProductID: p.ID, Remaining: v})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	}
	history, err := f.queries.History(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestApplyChange_NegativoEsFueraDeRango(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 70, 70)

	_, err := f.svc.ApplyChange(context.Background(), ledger.ChangeInput{ProductID: p.ID, Remaining: -0.5})
	assert.ErrorIs(t, err, domain.ErrOutOfRange)
	bound, _ := domain.BoundOf(err)
	assert.Equal(t, domain.BoundBelowZero, bound)
}

func TestApplyChange_NotFoundAntesQueValidar(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ApplyChange(context.Background(), ledger.ChangeInput{
		ProductID: "00000000-0000-0000-0000-0000000000aa",
		Remaining: math.NaN(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.ApplyChange(context.Background(), ledger.ChangeInput{ProductID: "no-es-uuid", Remaining: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, ledger.ResultNotFound, f.metrics.last())
}

func TestApplyChange_ExtremosSonValidos(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 70, 35)

	res := f.set(t, p.ID, 0)
	assert.True(t, res.Product.IsDepleted())
	res = f.set(t, p.ID, 70)
	assert.True(t, res.Product.Remaining.Equal(res.Product.TotalCapacity))
}

func TestApplyChange_ExpectedRemainingDistintoEsConflicto(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 70, 70)
	f.set(t, p.ID, 60)

	stale := 70.0
	_, err := f.svc.ApplyChange(context.Background(), ledger.ChangeInput{ProductID: p.ID, Remaining: 50, ExpectedRemaining: &stale})
	assert.ErrorIs(t, err, domain.ErrConflict)

	current := 60.0
	res, err := f.svc.ApplyChange(context.Background(), ledger.ChangeInput{ProductID: p.ID, Remaining: 50, ExpectedRemaining: &current})
	require.NoError(t, err)
	assert.True(t, res.Changed)
}

func TestApplyChange_GuardaActorOpacoYNota(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 70, 70)
	actor := "1" // los ids de usuario vienen de otro sistema y son opacos
	note := "servido en barra"

	res, err := f.svc.ApplyChange(context.Background(), ledger.ChangeInput{ProductID: p.ID, Remaining: 66, ActorID: &actor, Note: &note})
	require.NoError(t, err)

	stored, err := f.queries.Entry(context.Background(), res.Entry.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Actor)
	assert.Equal(t, actor, *stored.Actor)
	assert.Equal(t, note, *stored.Note)
	assert.Equal(t, res.Entry.RecordedAt, stored.RecordedAt)
}

func TestApplyChange_FallaDeEntradaNoDejaProductoModificado(t *testing.T) {
	base := sqlite.NewTxRunner(sqlitetest.NewTestDB(t))
	f := newFixtureWithRunner(base)
	p := f.product(t, 70, 70)

	faulty := newFixtureWithRunner(&faultyRunner{TxRunner: base, failEntryCreate: true})
	_, err := faulty.svc.ApplyChange(context.Background(), ledger.ChangeInput{ProductID: p.ID, Remaining: 10})
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, ledger.ResultError, faulty.metrics.last())

	got, err := f.queries.Product(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, got.Remaining.Equal(quantity.MustParse("70")))
	assert.Equal(t, int64(0), got.Version)
	assert.Empty(t, faulty.events.types())
}

func TestApplyChange_FallaTrasAmbasEscriturasRevierteTodo(t *testing.T) {
	base := sqlite.NewTxRunner(sqlitetest.NewTestDB(t))
	f := newFixtureWithRunner(base)
	p := f.product(t, 70, 70)

	faulty := newFixtureWithRunner(&faultyRunner{TxRunner: base, failAfterFn: true})
	_, err := faulty.svc.ApplyChange(context.Background(), ledger.ChangeInput{ProductID: p.ID, Remaining: 10})
	assert.ErrorIs(t, err, errInjected)

	got, err := f.queries.Product(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, got.Remaining.Equal(quantity.MustParse("70")))
	history, err := f.queries.History(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestApplyChange_CancelacionAntesDelCommitRevierteTodo(t *testing.T) {
	base := sqlite.NewTxRunner(sqlitetest.NewTestDB(t))
	f := newFixtureWithRunner(base)
	p := f.product(t, 70, 70)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	faulty := newFixtureWithRunner(&faultyRunner{TxRunner: base, cancelAfterFn: cancel})
	_, err := faulty.svc.ApplyChange(ctx, ledger.ChangeInput{ProductID: p.ID, Remaining: 10})
	require.Error(t, err)
	assert.Equal(t, ledger.ResultError, faulty.metrics.last())
	assert.Empty(t, faulty.events.types())

	got, err := f.queries.Product(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, got.Remaining.Equal(quantity.MustParse("70")))
	assert.Equal(t, int64(0), got.Version)
	history, err := f.queries.History(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestApplyChange_ConcurrenteMantieneCadena(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 1000, 1000)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.ApplyChange(context.Background(), ledger.ChangeInput{ProductID: p.ID, Remaining: float64(999 - i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history, err := f.queries.History(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, history, workers)

	got, err := f.queries.Product(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, history[0].NewValue.Equal(got.Remaining))

	report, err := f.queries.Verify(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, workers, report.Entries)
}

func TestApplyChange_FallaDelPublicadorNoRevierte(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 70, 70)
	f.events.err = errors.New("broker caído")

	res, err := f.svc.ApplyChange(context.Background(), ledger.ChangeInput{ProductID: p.ID, Remaining: 30})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Contains(t, f.events.types(), ledger.EventEntryRecorded)
}

// ──────────────────────────────────────────────────────────────────────────────
// UpdateDetails
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdateDetails_NoTocaRemainingNiHistorial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 70, 70)
	f.set(t, p.ID, 50)

	name := "Ron añejo 12"
	loc := "estante alto"
	price := decimal.RequireFromString("0.80")
	got, err := f.svc.UpdateDetails(ctx, p.ID, ledger.DetailsInput{Name: &name, Location: &loc, PricePerUnit: &price})
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Equal(t, loc, got.Location)
	assert.True(t, got.PricePerUnit.Equal(price))
	assert.True(t, got.Remaining.Equal(quantity.MustParse("50")))
	assert.Equal(t, int64(1), got.Version)

	stored, err := f.queries.Product(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, name, stored.Name)
	assert.True(t, stored.Remaining.Equal(quantity.MustParse("50")))
	assert.True(t, stored.TotalCapacity.Equal(quantity.MustParse("70")))
	assert.Equal(t, int64(1), stored.Version)

	history, err := f.queries.History(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, ledger.EventProductUpdated, f.events.types()[len(f.events.types())-1])
}

func TestUpdateDetails_CamposNilQuedanIgual(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := "licores"
	p, err := f.svc.CreateProduct(ctx, ledger.CreateProductInput{Name: "Gin", TotalCapacity: 70, InitialRemaining: 70, CategoryID: &cat, Location: "barra"}, nil)
	require.NoError(t, err)

	photo := "https://example.com/gin.jpg"
	got, err := f.svc.UpdateDetails(ctx, p.ID, ledger.DetailsInput{PhotoURL: &photo})
	require.NoError(t, err)
	assert.Equal(t, "Gin", got.Name)
	assert.Equal(t, "barra", got.Location)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, cat, *got.CategoryID)
	assert.Equal(t, photo, got.PhotoURL)

	empty := ""
	got, err = f.svc.UpdateDetails(ctx, p.ID, ledger.DetailsInput{CategoryID: &empty})
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestUpdateDetails_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 70, 70)

	blank := "   "
	_, err := f.svc.UpdateDetails(ctx, p.ID, ledger.DetailsInput{Name: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	neg := decimal.NewFromInt(-1)
	_, err = f.svc.UpdateDetails(ctx, p.ID, ledger.DetailsInput{PricePerUnit: &neg})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.svc.UpdateDetails(ctx, "00000000-0000-0000-0000-0000000000cc", ledger.DetailsInput{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.UpdateDetails(ctx, "no-es-uuid", ledger.DetailsInput{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stored, err := f.queries.Product(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ron añejo", stored.Name)
}

// ──────────────────────────────────────────────────────────────────────────────
// DeleteProduct
// ──────────────────────────────────────────────────────────────────────────────

func TestDeleteProduct_BorraHistorial(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 70, 70)
	f.set(t, p.ID, 60)
	f.set(t, p.ID, 50)
	last := f.set(t, p.ID, 40)

	require.NoError(t, f.svc.DeleteProduct(context.Background(), p.ID))

	_, err := f.queries.History(context.Background(), p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.queries.Entry(context.Background(), last.Entry.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	recent, err := f.queries.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	assert.ErrorIs(t, f.svc.DeleteProduct(context.Background(), p.ID), domain.ErrNotFound)
	assert.Contains(t, f.events.types(), ledger.EventProductDeleted)
}

func TestDeleteProduct_NoTocaOtrosProductos(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, 70, 70)
	b := f.product(t, 70, 70)
	f.set(t, a.ID, 10)
	f.set(t, b.ID, 20)

	require.NoError(t, f.svc.DeleteProduct(context.Background(), a.ID))

	history, err := f.queries.History(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
