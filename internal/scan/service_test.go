package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/binbuddy/internal/apperr"
	"github.com/JakeFAU/binbuddy/internal/clock/system"
	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/flow"
	"github.com/JakeFAU/binbuddy/internal/progress"
	pubmemory "github.com/JakeFAU/binbuddy/internal/publisher/memory"
	"github.com/JakeFAU/binbuddy/internal/storage/memory"
)

var testNow = time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)

type fakeProducts map[string]flow.Stream[domain.Result[domain.Product]]

func (f fakeProducts) Lookup(barcode string) flow.Stream[domain.Result[domain.Product]] {
	if s, ok := f[barcode]; ok {
		return s
	}
	return flow.Of(domain.Failure[domain.Product](apperr.NotFound(barcode)))
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%d", s.n), nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recordingEmitter) Emit(evt progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) stages() []progress.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]progress.Stage, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Stage)
	}
	return out
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []BatchJob
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, job BatchJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type harness struct {
	svc      *Service
	scans    *memory.ScanStore
	catalog  *memory.ProductStore
	events   *recordingEmitter
	pub      *pubmemory.Publisher
	queue    *fakeQueue
	products fakeProducts
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		scans:    memory.NewScanStore(),
		catalog:  memory.NewProductStore(),
		events:   &recordingEmitter{},
		pub:      pubmemory.New(),
		queue:    &fakeQueue{},
		products: fakeProducts{},
	}
	svc, err := NewService(Config{
		Products:  h.products,
		Scans:     h.scans,
		Catalog:   h.catalog,
		Events:    h.events,
		Publisher: h.pub,
		Queue:     h.queue,
		IDs:       &seqIDs{},
		Clock:     system.Fixed(testNow),
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func glassJar() domain.Product {
	return domain.Product{
		ID:         "3017620422003",
		Barcode:    "3017620422003",
		Name:       "Nutella",
		Packaging:  "Glass jar",
		Categories: []string{"Spreads"},
	}
}

func clubMate() domain.Product {
	return domain.Product{
		ID:         "4029764001807",
		Barcode:    "4029764001807",
		Name:       "Club-Mate",
		Packaging:  "Mehrweg Glasflasche",
		Categories: []string{"Beverages"},
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewService(Config{})
	require.ErrorContains(t, err, "product lookup is required")
	_, err = NewService(Config{Products: fakeProducts{}})
	require.ErrorContains(t, err, "scan store is required")
}

func TestRecordFreshProduct(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.products["3017620422003"] = flow.Of(domain.Success(glassJar()))

	out, err := h.svc.Record(context.Background(), Request{Barcode: " 3017620422003 ", Location: "Kitchen"})
	require.NoError(t, err)
	require.Equal(t, "id-1", out.Scan.ID)
	require.Equal(t, domain.CategoryGlas, out.Category.ID)
	require.False(t, out.Pfand.HasPfand)
	require.False(t, out.FromCache)
	require.Empty(t, out.Warning)
	require.NotNil(t, out.Scan.Product)

	stored, err := h.scans.ListScans(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "Kitchen", stored[0].Location)
	require.Equal(t, testNow, stored[0].Timestamp)

	require.Equal(t, []progress.Stage{progress.StageLookupDone, progress.StageScanRecorded}, h.events.stages())
	require.Equal(t, progress.SourceFresh, h.events.events[0].Source)

	msgs := h.pub.Topic(TopicScanRecorded)
	require.Len(t, msgs, 1)
	note, ok := msgs[0].Payload.(Notification)
	require.True(t, ok)
	require.Equal(t, "id-1", note.ScanID)
	require.Equal(t, domain.CategoryGlas, note.Category)
}

func TestRecordDepositBottleUsesFirstResult(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	fresh := clubMate()
	fresh.Name = "Club-Mate 0,5l"
	h.products["4029764001807"] = flow.Of(domain.SuccessFromCache(clubMate()), domain.Success(fresh))

	out, err := h.svc.Record(context.Background(), Request{Barcode: "4029764001807"})
	require.NoError(t, err)
	require.Equal(t, "Club-Mate", out.Product.Name)
	require.True(t, out.FromCache)
	require.Equal(t, domain.CategoryPfand, out.Category.ID)
	require.True(t, out.Pfand.HasPfand)
	require.Equal(t, "0.25 €", out.Pfand.FormattedAmount())

	require.Equal(t, progress.SourceCache, h.events.events[0].Source)
	require.True(t, h.events.events[1].Pfand)
}

func TestRecordOfflineCachedCarriesWarning(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.products["3017620422003"] = flow.Of(domain.Offline(glassJar(), true, "Showing cached data"))

	out, err := h.svc.Record(context.Background(), Request{Barcode: "3017620422003"})
	require.NoError(t, err)
	require.Equal(t, "Showing cached data", out.Warning)
	require.Equal(t, progress.SourceOffline, h.events.events[0].Source)
}

func TestRecordLookupFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.svc.Record(context.Background(), Request{Barcode: "0000"})
	require.Error(t, err)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	require.Equal(t, []progress.Stage{progress.StageLookupError}, h.events.stages())
	require.Equal(t, string(apperr.KindNotFound), h.events.events[0].ErrorKind)

	stored, err := h.scans.ListScans(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, stored)
	require.Empty(t, h.pub.Messages())
}

func TestRecordStreamError(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.products["1"] = flow.Fail[domain.Result[domain.Product]](errors.New("stream broke"))

	_, err := h.svc.Record(context.Background(), Request{Barcode: "1"})
	require.Equal(t, apperr.KindUnknown, apperr.KindOf(err))
	require.Equal(t, string(apperr.KindUnknown), h.events.events[0].ErrorKind)
}

func TestRecordDefersErrorEventWhileRetrying(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.products["1"] = flow.Of(domain.Failure[domain.Product](apperr.Network(errors.New("reset"))))

	_, err := h.svc.Record(context.Background(), Request{Barcode: "1", WillRetry: true})
	require.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
	require.Empty(t, h.events.stages())

	_, err = h.svc.Record(context.Background(), Request{Barcode: "1"})
	require.Error(t, err)
	require.Equal(t, []progress.Stage{progress.StageLookupError}, h.events.stages())

	// Permanent failures are reported on the first attempt.
	_, err = h.svc.Record(context.Background(), Request{Barcode: "0000", WillRetry: true})
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	require.Len(t, h.events.stages(), 2)
}

func TestRecordRejectsEmptyBarcode(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.svc.Record(context.Background(), Request{Barcode: "   "})
	require.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	require.Empty(t, h.events.stages())
}

func TestRecordCanceledContext(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.products["1"] = flow.Func[domain.Result[domain.Product]](func(ctx context.Context, _ func(domain.Result[domain.Product]) error) error {
		<-ctx.Done()
		return ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.Record(ctx, Request{Barcode: "1"})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, h.events.stages())
}

func TestRecordPublishFailureKeepsScan(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.pub.FailWith(errors.New("topic gone"))
	h.products["3017620422003"] = flow.Of(domain.Success(glassJar()))

	_, err := h.svc.Record(context.Background(), Request{Barcode: "3017620422003"})
	require.NoError(t, err)
	stored, err := h.scans.ListScans(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestHistoryRecentAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.catalog.UpsertProduct(ctx, glassJar()))
	for i := 0; i < 12; i++ {
		require.NoError(t, h.scans.InsertScan(ctx, domain.ScanHistory{
			ID:        fmt.Sprintf("s-%02d", i),
			Barcode:   "3017620422003",
			ProductID: "3017620422003",
			Timestamp: testNow.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, h.scans.InsertScan(ctx, domain.ScanHistory{ID: "orphan", Barcode: "999", Timestamp: testNow.Add(-time.Hour)}))

	recent, err := h.svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, DefaultRecentLimit)
	require.Equal(t, "s-11", recent[0].ID)
	require.NotNil(t, recent[0].Product)
	require.Equal(t, "Nutella", recent[0].Product.Name)

	recent, err = h.svc.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	all, err := h.svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, all, 13)
	require.Nil(t, all[12].Product)

	require.NoError(t, h.svc.Delete(ctx, "s-00"))
	err = h.svc.Delete(ctx, "s-00")
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	require.Equal(t, apperr.KindInvalidInput, apperr.KindOf(h.svc.Delete(ctx, "")))

	require.NoError(t, h.svc.Clear(ctx))
	all, err = h.svc.History(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}
