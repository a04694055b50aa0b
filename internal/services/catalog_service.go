package services

import (
	"context"
	"log"
	"time"

	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/pkg/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "catalog/services"

// Operation names used for spans, metrics and events.
const (
	OperationFindByIdentifier = "find_by_identifier"
	OperationListAll          = "list_all"
)

// Mode selects which catalog query a request runs.
type Mode int

const (
	// ModeNone runs no query, e.g. a plain page load.
	ModeNone Mode = iota
	// ModeSearch looks a product up by its identifier.
	ModeSearch
	// ModeShowAll lists the whole catalog.
	ModeShowAll
)

func (m Mode) String() string {
	switch m {
	case ModeSearch:
		return "search"
	case ModeShowAll:
		return "show_all"
	default:
		return "none"
	}
}

// ModeFromTriggers picks the mode from the trigger fields present in a
// request. Search wins when both are present.
func ModeFromTriggers(hasSearch, hasShowAll bool) Mode {
	switch {
	case hasSearch:
		return ModeSearch
	case hasShowAll:
		return ModeShowAll
	default:
		return ModeNone
	}
}

// Request is a single catalog request.
type Request struct {
	Mode       Mode
	SearchTerm string
}

// Result is what a request hands to the presentation layer.
type Result struct {
	Mode Mode
	// SearchTerm echoes the identifier in search mode and is empty otherwise.
	SearchTerm string
	Products   []models.Product
	// Queried reports whether storage was queried. When false the product
	// sequence is undefined and should not be rendered.
	Queried bool
}

// EventPublisher receives an event after every successful query.
type EventPublisher interface {
	PublishCatalogQuery(event map[string]interface{}) error
}

// CatalogService runs the read-only catalog queries.
type CatalogService struct {
	repo      repositories.ProductRepository
	publisher EventPublisher
}

// NewCatalogService creates a new CatalogService. publisher may be nil.
func NewCatalogService(repo repositories.ProductRepository, publisher EventPublisher) *CatalogService {
	return &CatalogService{
		repo:      repo,
		publisher: publisher,
	}
}

// FindByIdentifier returns the products whose ProductID equals id. An empty
// id returns nil without touching storage; an unknown id returns an empty
// slice.
func (s *CatalogService) FindByIdentifier(ctx context.Context, id string) ([]models.Product, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "CatalogService.FindByIdentifier")
	defer span.End()

	if id == "" {
		telemetry.CatalogQueries.WithLabelValues(OperationFindByIdentifier, telemetry.ResultSkipped).Inc()
		span.SetAttributes(attribute.Bool("catalog.skipped", true))
		return nil, nil
	}
	span.SetAttributes(attribute.String("product.id", id))

	start := time.Now()
	products, err := s.repo.FindByID(ctx, id)
	return s.finish(ctx, OperationFindByIdentifier, id, start, products, err)
}

// ListAll returns every product in storage order.
func (s *CatalogService) ListAll(ctx context.Context) ([]models.Product, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "CatalogService.ListAll")
	defer span.End()

	start := time.Now()
	products, err := s.repo.FindAll(ctx)
	return s.finish(ctx, OperationListAll, "", start, products, err)
}

// Dispatch runs the operation selected by req.Mode. Exactly one operation runs
// for ModeSearch and ModeShowAll; ModeNone runs none. A search with an empty
// term is recorded as skipped and leaves Queried false.
func (s *CatalogService) Dispatch(ctx context.Context, req Request) (Result, error) {
	result := Result{Mode: req.Mode}

	var err error
	switch req.Mode {
	case ModeSearch:
		result.SearchTerm = req.SearchTerm
		result.Products, err = s.FindByIdentifier(ctx, req.SearchTerm)
		if req.SearchTerm == "" {
			return result, err
		}
	case ModeShowAll:
		result.Products, err = s.ListAll(ctx)
	default:
		return result, nil
	}
	if err != nil {
		return result, err
	}

	result.Queried = true
	return result, nil
}

// Ping checks that storage is reachable.
func (s *CatalogService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// finish records telemetry for a completed query and publishes its event.
func (s *CatalogService) finish(ctx context.Context, operation, searchTerm string, start time.Time, products []models.Product, err error) ([]models.Product, error) {
	span := trace.SpanFromContext(ctx)
	telemetry.CatalogQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	telemetry.CatalogQueries.WithLabelValues(operation, telemetry.ResultFor(len(products), err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog query failed")
		return nil, err
	}

	if products == nil {
		products = []models.Product{}
	}
	span.SetAttributes(attribute.Int("product.count", len(products)))

	s.publish(operation, searchTerm, len(products))
	return products, nil
}

func (s *CatalogService) publish(operation, searchTerm string, count int) {
	if s.publisher == nil {
		return
	}
	event := map[string]interface{}{
		"operation":   operation,
		"search_term": searchTerm,
		"count":       count,
		"at":          time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishCatalogQuery(event); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", operation, err)
	}
}
