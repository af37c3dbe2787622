// Package scan records barcode scans: it resolves the product, decides the
// bin, detects a deposit, stores the scan and announces it.
package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/binbuddy/internal/apperr"
	"github.com/JakeFAU/binbuddy/internal/classify"
	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/flow"
	"github.com/JakeFAU/binbuddy/internal/pfand"
	"github.com/JakeFAU/binbuddy/internal/progress"
	"github.com/JakeFAU/binbuddy/internal/store"
)

// DefaultRecentLimit is the number of scans Recent returns for limit <= 0.
const DefaultRecentLimit = 10

// TopicScanRecorded names scan notifications.
const TopicScanRecorded = "scan.recorded"

// Products resolves barcodes.
type Products interface {
	Lookup(barcode string) flow.Stream[domain.Result[domain.Product]]
}

// Publisher announces recorded scans.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// IDGenerator issues scan and batch ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Request asks to record one scan.
type Request struct {
	Barcode  string `json:"barcode"`
	Location string `json:"location,omitempty"`
	// WillRetry marks an attempt the caller repeats on recoverable failures.
	// Such failures emit no LOOKUP_ERROR event; the final attempt does.
	WillRetry bool `json:"-"`
}

// Outcome is the result of a recorded scan.
type Outcome struct {
	Scan      domain.ScanHistory   `json:"scan"`
	Product   domain.Product       `json:"product"`
	Category  domain.WasteCategory `json:"category"`
	Pfand     domain.PfandInfo     `json:"pfand"`
	FromCache bool                 `json:"from_cache"`
	Warning   string               `json:"warning,omitempty"`
}

// Notification is the payload published for a recorded scan.
type Notification struct {
	ScanID    string    `json:"scan_id"`
	Barcode   string    `json:"barcode"`
	ProductID string    `json:"product_id"`
	Category  string    `json:"category"`
	Pfand     bool      `json:"pfand"`
	Location  string    `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Config wires a Service.
type Config struct {
	Products Products
	Scans    store.ScanRepository
	// Catalog hydrates scan history with stored products; optional.
	Catalog   store.ProductRepository
	Events    progress.Emitter
	Publisher Publisher
	// Queue receives batch jobs; EnqueueBatch fails without it.
	Queue       Queue
	IDs         IDGenerator
	Clock       Clock
	RecentLimit int
	Logger      *zap.Logger
}

// Service records and lists scans.
type Service struct {
	products    Products
	scans       store.ScanRepository
	catalog     store.ProductRepository
	events      progress.Emitter
	publisher   Publisher
	queue       Queue
	ids         IDGenerator
	clock       Clock
	classifier  classify.Classifier
	detector    pfand.Detector
	batches     *batchTracker
	recentLimit int
	logger      *zap.Logger
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Products == nil {
		return nil, errors.New("product lookup is required")
	}
	if cfg.Scans == nil {
		return nil, errors.New("scan store is required")
	}
	if cfg.IDs == nil {
		return nil, errors.New("id generator is required")
	}
	if cfg.Clock == nil {
		return nil, errors.New("clock is required")
	}
	if cfg.Events == nil {
		cfg.Events = progress.Discard{}
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = DefaultRecentLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		products:    cfg.Products,
		scans:       cfg.Scans,
		catalog:     cfg.Catalog,
		events:      cfg.Events,
		publisher:   cfg.Publisher,
		queue:       cfg.Queue,
		ids:         cfg.IDs,
		clock:       cfg.Clock,
		classifier:  classify.New(),
		detector:    pfand.New(),
		batches:     newBatchTracker(defaultBatchHistory),
		recentLimit: cfg.RecentLimit,
		logger:      logger.Named("scan"),
	}, nil
}

// Record resolves req.Barcode to its first lookup result and stores a scan
// when a product was found. Lookup failures are returned as *apperr.Error.
func (s *Service) Record(ctx context.Context, req Request) (Outcome, error) {
	barcode := strings.TrimSpace(req.Barcode)
	if barcode == "" {
		return Outcome{}, apperr.InvalidInput("Barcode cannot be empty")
	}

	start := s.clock.Now()
	res, err := flow.First(ctx, s.products.Lookup(barcode), flow.WithLogger(s.logger))
	dur := s.clock.Now().Sub(start)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, fmt.Errorf("lookup %s: %w", barcode, err)
		}
		appErr := apperr.As(err)
		s.emitLookupError(req, start, appErr, dur)
		return Outcome{}, appErr
	}
	if !res.OK {
		s.emitLookupError(req, start, res.Err, dur)
		return Outcome{}, res.Err
	}

	p := res.Data
	category := s.classifier.Classify(&p)
	deposit := s.detector.Check(&p)

	id, err := s.ids.NewID()
	if err != nil {
		return Outcome{}, apperr.Unknown(fmt.Errorf("scan id: %w", err))
	}
	record := domain.ScanHistory{
		ID:        id,
		Barcode:   barcode,
		ProductID: p.ID,
		Timestamp: start,
		Location:  strings.TrimSpace(req.Location),
	}
	if err := s.scans.InsertScan(ctx, record); err != nil {
		return Outcome{}, apperr.Database(fmt.Errorf("insert scan %s: %w", id, err))
	}
	record.Product = &p

	s.events.Emit(progress.Event{
		TS:      start,
		Stage:   progress.StageLookupDone,
		Barcode: barcode,
		Source:  lookupSource(res),
		Dur:     dur,
	})
	s.events.Emit(progress.Event{
		TS:       start,
		Stage:    progress.StageScanRecorded,
		Barcode:  barcode,
		ScanID:   id,
		Category: category.ID,
		Pfand:    deposit.HasPfand,
	})
	s.publish(ctx, Notification{
		ScanID:    id,
		Barcode:   barcode,
		ProductID: p.ID,
		Category:  category.ID,
		Pfand:     deposit.HasPfand,
		Location:  record.Location,
		Timestamp: start,
	})

	s.logger.Debug("scan recorded",
		zap.String("scan_id", id),
		zap.String("barcode", barcode),
		zap.String("category", category.ID),
		zap.Bool("pfand", deposit.HasPfand),
	)
	return Outcome{
		Scan:      record,
		Product:   p,
		Category:  category,
		Pfand:     deposit,
		FromCache: res.FromCache,
		Warning:   res.Warning(),
	}, nil
}

func lookupSource(res domain.Result[domain.Product]) string {
	switch {
	case res.Warning() != "":
		return progress.SourceOffline
	case res.FromCache:
		return progress.SourceCache
	default:
		return progress.SourceFresh
	}
}

func (s *Service) emitLookupError(req Request, ts time.Time, err *apperr.Error, dur time.Duration) {
	if req.WillRetry && err.IsRecoverable() {
		return
	}
	s.events.Emit(progress.Event{
		TS:        ts,
		Stage:     progress.StageLookupError,
		Barcode:   strings.TrimSpace(req.Barcode),
		ErrorKind: string(err.Kind),
		Dur:       dur,
	})
}

// publish failures never fail the scan.
func (s *Service) publish(ctx context.Context, n Notification) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, TopicScanRecorded, n); err != nil {
		s.logger.Warn("publish scan notification failed", zap.String("scan_id", n.ScanID), zap.Error(err))
	}
}

// History returns every scan, newest first.
func (s *Service) History(ctx context.Context) ([]domain.ScanHistory, error) {
	return s.list(ctx, 0)
}

// Recent returns up to limit scans, newest first. limit <= 0 selects the
// configured default.
func (s *Service) Recent(ctx context.Context, limit int) ([]domain.ScanHistory, error) {
	if limit <= 0 {
		limit = s.recentLimit
	}
	return s.list(ctx, limit)
}

func (s *Service) list(ctx context.Context, limit int) ([]domain.ScanHistory, error) {
	scans, err := s.scans.ListScans(ctx, limit)
	if err != nil {
		return nil, apperr.Database(fmt.Errorf("list scans: %w", err))
	}
	if s.catalog == nil {
		return scans, nil
	}
	products := make(map[string]*domain.Product)
	for i := range scans {
		if scans[i].Barcode == "" {
			continue
		}
		p, ok := products[scans[i].Barcode]
		if !ok {
			stored, err := s.catalog.GetProduct(ctx, scans[i].Barcode)
			switch {
			case err == nil:
				p = &stored
			case !errors.Is(err, store.ErrNotFound):
				s.logger.Warn("hydrate scan product", zap.String("barcode", scans[i].Barcode), zap.Error(err))
			}
			products[scans[i].Barcode] = p
		}
		scans[i].Product = p
	}
	return scans, nil
}

// Delete removes one scan.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.InvalidInput("Scan id cannot be empty")
	}
	err := s.scans.DeleteScan(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.RecordNotFound("Scan", id)
	default:
		return apperr.Database(fmt.Errorf("delete scan %s: %w", id, err))
	}
}

// Clear removes the whole history.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.scans.ClearScans(ctx); err != nil {
		return apperr.Database(fmt.Errorf("clear scans: %w", err))
	}
	return nil
}
