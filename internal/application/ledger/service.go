package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/bar-ledger/internal/domain"
	"github.com/jhoicas/bar-ledger/internal/domain/entity"
	"github.com/jhoicas/bar-ledger/internal/domain/quantity"
	"github.com/jhoicas/bar-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service es el único punto de escritura de Remaining. Cada cambio real actualiza el
// producto y agrega su entrada en la misma transacción, con la fila bloqueada
// (SELECT FOR UPDATE) desde la lectura hasta el Commit.
type Service struct {
	txRunner  TxRunner
	publisher EventPublisher
	metrics   Metrics
	log       zerolog.Logger
	now       func() time.Time
}

// NewService construye el servicio. publisher y metrics pueden ser nil.
func NewService(txRunner TxRunner, publisher EventPublisher, metrics Metrics, log zerolog.Logger) *Service {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Service{
		txRunner:  txRunner,
		publisher: publisher,
		metrics:   metrics,
		log:       log.With().Str("component", "ledger").Logger(),
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// CreateProductInput datos de alta de un producto.
type CreateProductInput struct {
	Name             string
	TotalCapacity    float64
	InitialRemaining float64
	CategoryID       *string
	PricePerUnit     *decimal.Decimal
	Location         string
	PhotoURL         string
}

// ChangeInput solicitud de cambio de remaining.
type ChangeInput struct {
	ProductID string
	Remaining float64
	ActorID   *string
	Note      *string
	// ExpectedRemaining, si se envía, exige que el remaining actual sea ese valor;
	// si no coincide la operación falla con ErrConflict sin escribir nada.
	ExpectedRemaining *float64
}

// DetailsInput datos descriptivos a modificar; un campo nil queda como estaba.
// Un CategoryID vacío quita la categoría. No hay forma de tocar remaining ni la capacidad.
type DetailsInput struct {
	Name         *string
	CategoryID   *string
	PricePerUnit *decimal.Decimal
	Location     *string
	PhotoURL     *string
}

// ChangeResult resultado de ApplyChange. Con Changed=false (no-op) Entry es nil.
type ChangeResult struct {
	Product *entity.Product
	Entry   *entity.LedgerEntry
	Changed bool
}

// CreateProduct valida capacidad y remaining inicial y persiste el producto.
// El stock inicial no es un cambio: no se genera entrada de ledger.
func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput, actorID *string) (*entity.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name es requerido", domain.ErrInvalidArgument)
	}
	if !quantity.IsFinite(in.TotalCapacity) || !quantity.IsFinite(in.InitialRemaining) {
		return nil, fmt.Errorf("%w: capacidad y remaining deben ser números finitos", domain.ErrInvalidArgument)
	}
	if in.PricePerUnit != nil && in.PricePerUnit.IsNegative() {
		return nil, fmt.Errorf("%w: price_per_unit no puede ser negativo", domain.ErrInvalidArgument)
	}
	capRaw := decimal.NewFromFloat(in.TotalCapacity)
	if !capRaw.IsPositive() {
		return nil, &domain.RangeError{Bound: domain.BoundCapacityNotPositive, Value: capRaw, Limit: decimal.Zero}
	}
	capacity, err := quantity.New(capRaw)
	if err != nil {
		return nil, err
	}
	initialRaw := decimal.NewFromFloat(in.InitialRemaining)
	if err := entity.CheckRange(initialRaw, capacity); err != nil {
		return nil, err
	}
	initial, err := quantity.New(initialRaw)
	if err != nil {
		return nil, err
	}

	now := s.now()
	product := &entity.Product{
		ID:               uuid.New().String(),
		Name:             name,
		TotalCapacity:    capacity,
		InitialRemaining: initial,
		Remaining:        initial,
		CategoryID:       in.CategoryID,
		PricePerUnit:     in.PricePerUnit,
		Location:         in.Location,
		PhotoURL:         in.PhotoURL,
		CreatedBy:        actorID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err = s.txRunner.Run(ctx, func(productRepo repository.ProductRepository, _ repository.LedgerEntryRepository) error {
		return productRepo.Create(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("product_id", product.ID).Str("name", product.Name).
		Str("capacity", capacity.String()).Str("remaining", initial.String()).Msg("producto creado")
	s.publish(ctx, Event{Type: EventProductCreated, ProductID: product.ID, Product: product, OccurredAt: now})
	return product, nil
}

// ApplyChange fija el remaining de un producto y registra la entrada correspondiente.
// Orden de validación: ErrNotFound, ErrInvalidQuantity, ErrOutOfRange (RangeError), no-op.
// Las escrituras (producto + entrada) se confirman juntas o no se confirma ninguna.
func (s *Service) ApplyChange(ctx context.Context, in ChangeInput) (*ChangeResult, error) {
	start := time.Now()
	if _, err := uuid.Parse(in.ProductID); err != nil {
		s.metrics.ObserveChange(ResultNotFound, time.Since(start))
		return nil, domain.ErrNotFound
	}

	var res *ChangeResult
	err := s.txRunner.Run(ctx, func(productRepo repository.ProductRepository, entryRepo repository.LedgerEntryRepository) error {
		product, err := productRepo.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		if !quantity.IsFinite(in.Remaining) {
			return fmt.Errorf("%w: %v no es finito", domain.ErrInvalidQuantity, in.Remaining)
		}
		raw := decimal.NewFromFloat(in.Remaining)
		if err := entity.CheckRange(raw, product.TotalCapacity); err != nil {
			return err
		}
		requested, err := quantity.New(raw)
		if err != nil {
			return err
		}
		if in.ExpectedRemaining != nil {
			if !quantity.IsFinite(*in.ExpectedRemaining) {
				return fmt.Errorf("%w: expected_remaining no es finito", domain.ErrInvalidQuantity)
			}
			if !decimal.NewFromFloat(*in.ExpectedRemaining).Equal(product.Remaining.Decimal()) {
				return fmt.Errorf("%w: remaining actual %s, esperado %v", domain.ErrConflict, product.Remaining, *in.ExpectedRemaining)
			}
		}
		if requested.Equal(product.Remaining) {
			res = &ChangeResult{Product: product}
			return nil
		}

		now := s.now()
		entry, err := entity.NewLedgerEntry(product.ID, product.Remaining, requested, in.ActorID, in.Note, now)
		if err != nil {
			return err
		}
		updated := *product
		updated.Remaining = requested
		updated.UpdatedAt = now
		updated.Version = product.Version + 1
		if err := productRepo.UpdateRemaining(ctx, &updated, product.Version); err != nil {
			return err
		}
		if err := entryRepo.Create(ctx, entry); err != nil {
			return err
		}
		res = &ChangeResult{Product: &updated, Entry: entry, Changed: true}
		return nil
	})
	s.metrics.ObserveChange(resultOf(err, res), time.Since(start))
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.log.Warn().Err(err).Str("product_id", in.ProductID).Msg("conflicto al aplicar cambio")
		}
		return nil, err
	}
	if !res.Changed {
		return res, nil
	}
	s.log.Debug().
		Str("product_id", res.Product.ID).
		Str("entry_id", res.Entry.ID).
		Str("old", res.Entry.OldValue.String()).
		Str("new", res.Entry.NewValue.String()).
		Str("delta", res.Entry.Delta.String()).
		Msg("cambio de remaining registrado")
	s.publish(ctx, Event{
		Type:       EventEntryRecorded,
		ProductID:  res.Product.ID,
		Product:    res.Product,
		Entry:      res.Entry,
		OccurredAt: res.Entry.RecordedAt,
	})
	return res, nil
}

// UpdateDetails modifica los datos descriptivos de un producto. No genera entrada de ledger
// ni cambia la versión: remaining solo se mueve con ApplyChange.
func (s *Service) UpdateDetails(ctx context.Context, productID string, in DetailsInput) (*entity.Product, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, domain.ErrNotFound
	}
	var updated *entity.Product
	err := s.txRunner.Run(ctx, func(productRepo repository.ProductRepository, _ repository.LedgerEntryRepository) error {
		product, err := productRepo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		p := *product
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return fmt.Errorf("%w: name no puede quedar vacío", domain.ErrInvalidArgument)
			}
			p.Name = name
		}
		if in.PricePerUnit != nil {
			if in.PricePerUnit.IsNegative() {
				return fmt.Errorf("%w: price_per_unit no puede ser negativo", domain.ErrInvalidArgument)
			}
			price := *in.PricePerUnit
			p.PricePerUnit = &price
		}
		if in.CategoryID != nil {
			if *in.CategoryID == "" {
				p.CategoryID = nil
			} else {
				cat := *in.CategoryID
				p.CategoryID = &cat
			}
		}
		if in.Location != nil {
			p.Location = *in.Location
		}
		if in.PhotoURL != nil {
			p.PhotoURL = *in.PhotoURL
		}
		p.UpdatedAt = s.now()
		if err := productRepo.UpdateDetails(ctx, &p); err != nil {
			return err
		}
		updated = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("product_id", updated.ID).Str("name", updated.Name).Msg("datos del producto actualizados")
	s.publish(ctx, Event{Type: EventProductUpdated, ProductID: updated.ID, Product: updated, OccurredAt: updated.UpdatedAt})
	return updated, nil
}

// DeleteProduct elimina el producto y todo su historial en una sola transacción.
// La cascada es explícita: no depende de ON DELETE CASCADE del motor.
func (s *Service) DeleteProduct(ctx context.Context, productID string) error {
	if _, err := uuid.Parse(productID); err != nil {
		return domain.ErrNotFound
	}
	var removed int64
	err := s.txRunner.Run(ctx, func(productRepo repository.ProductRepository, entryRepo repository.LedgerEntryRepository) error {
		product, err := productRepo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		removed, err = entryRepo.DeleteByProduct(ctx, productID)
		if err != nil {
			return err
		}
		return productRepo.Delete(ctx, productID)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("product_id", productID).Int64("entries", removed).Msg("producto eliminado con su historial")
	s.publish(ctx, Event{Type: EventProductDeleted, ProductID: productID, OccurredAt: s.now()})
	return nil
}

// publish notifica después del commit; un fallo se registra pero no revierte el cambio ya confirmado.
func (s *Service) publish(ctx context.Context, event Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", event.Type).Str("product_id", event.ProductID).Msg("publicar evento")
	}
}

func resultOf(err error, res *ChangeResult) string {
	switch {
	case err == nil && res != nil && res.Changed:
		return ResultChanged
	case err == nil:
		return ResultNoop
	case errors.Is(err, domain.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, domain.ErrInvalidQuantity):
		return ResultInvalidQuantity
	case errors.Is(err, domain.ErrOutOfRange):
		return ResultOutOfRange
	case errors.Is(err, domain.ErrConflict):
		return ResultConflict
	}
	return ResultError
}
