package prices

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valeevte/pricetrail/internal/shopping"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestService(t *testing.T) (*Service, *stubSearcher, *SQLiteRepository, *fakeClock) {
	t.Helper()
	clock := newFakeClock(base)
	repo := newTestRepo(t, clock)
	search := &stubSearcher{}
	svc := NewService(repo, search, WithNow(clock.Now), WithLogger(quiet))
	return svc, search, repo, clock
}

func TestIngest_PriceTrailScenario(t *testing.T) {
	svc, search, repo, clock := newTestService(t)
	ctx := context.Background()

	search.set(item("<b>Phone</b> X", "100"))
	res, err := svc.Ingest(ctx, "phone")
	require.NoError(t, err)
	require.Len(t, res.Inserted, 1)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "phone", all[0].Query)
	assert.Equal(t, "Phone X", all[0].Title)
	assert.Equal(t, 100, all[0].Price)

	// unchanged price: nothing new
	clock.Advance(time.Hour)
	res, err = svc.Ingest(ctx, "phone")
	require.NoError(t, err)
	assert.Empty(t, res.Inserted)
	all, err = repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// price drop: appended, old record kept
	clock.Advance(time.Hour)
	search.set(item("<b>Phone</b> X", "90"))
	res, err = svc.Ingest(ctx, "phone")
	require.NoError(t, err)
	require.Len(t, res.Inserted, 1)
	assert.Equal(t, 90, res.Inserted[0].Price)

	hist, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, 90, hist[0].Price)
	assert.Equal(t, 100, hist[1].Price)
	assert.Equal(t, "Phone X", hist[0].Title)
	assert.Equal(t, "Phone X", hist[1].Title)
}

func TestIngest_ReturnsRawItems(t *testing.T) {
	svc, search, _, _ := newTestService(t)

	search.set(item("<b>Phone</b> X", "100"), item("Case", "5"))
	res, err := svc.Ingest(context.Background(), "phone")
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "<b>Phone</b> X", res.Items[0].Title)
	assert.Equal(t, "100", res.Items[0].LPrice)
}

func TestIngest_QueriesAreIndependent(t *testing.T) {
	svc, search, repo, _ := newTestService(t)
	ctx := context.Background()

	search.set(item("Phone X", "100"))
	_, err := svc.Ingest(ctx, "phone")
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, "Phone")
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, "phone ")
	require.NoError(t, err)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3, "query text is compared exactly")
	assert.ElementsMatch(t, []string{"phone", "Phone", "phone "},
		[]string{all[0].Query, all[1].Query, all[2].Query})
}

func TestIngest_RejectsUnparsablePrice(t *testing.T) {
	svc, search, repo, _ := newTestService(t)
	ctx := context.Background()

	search.set(item("Good", "100"), item("Bad", "call us"), item("Missing", ""))
	res, err := svc.Ingest(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rejected)
	assert.Len(t, res.Items, 3)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Good", all[0].Title)
}

func TestIngest_CollapsesDuplicatesWithinBatch(t *testing.T) {
	svc, search, repo, _ := newTestService(t)
	ctx := context.Background()

	search.set(
		item("<b>Phone</b> X", "100"),
		item("Phone <b>X</b>", "100"),
		item("Phone X", "120"),
	)
	res, err := svc.Ingest(ctx, "phone")
	require.NoError(t, err)
	require.Len(t, res.Inserted, 1)
	assert.Equal(t, 100, res.Inserted[0].Price, "lowest price on the page wins")

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestIngest_UnchangedMultiPricePageIsStable(t *testing.T) {
	svc, search, repo, clock := newTestService(t)
	ctx := context.Background()

	search.set(item("Phone X", "100"), item("Phone X", "90"))
	for i := 0; i < 4; i++ {
		_, err := svc.Ingest(ctx, "phone")
		require.NoError(t, err)
		clock.Advance(time.Hour)
	}

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 90, all[0].Price)

	// the cheaper listing disappears: the remaining price is a real change
	search.set(item("Phone X", "100"))
	res, err := svc.Ingest(ctx, "phone")
	require.NoError(t, err)
	require.Len(t, res.Inserted, 1)
	assert.Equal(t, 100, res.Inserted[0].Price)
}

func TestIngest_SearchFailureWritesNothing(t *testing.T) {
	svc, search, repo, _ := newTestService(t)
	ctx := context.Background()

	search.err = &shopping.StatusError{Code: 500}
	_, err := svc.Ingest(ctx, "phone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shopping.ErrStatus))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestIngest_ConcurrentSameQueryInsertsOnce(t *testing.T) {
	svc, search, repo, _ := newTestService(t)
	ctx := context.Background()
	search.set(item("<b>Phone</b> X", "100"), item("Case", "5"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Ingest(ctx, "phone")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

type failingRepo struct{ err error }

func (f failingRepo) FindLatest(context.Context, string, string) (PriceRecord, bool, error) {
	return PriceRecord{}, false, f.err
}
func (f failingRepo) BulkInsert(context.Context, []PriceRecord) error { return f.err }
func (f failingRepo) ListAll(context.Context) ([]PriceRecord, error) { return nil, f.err }
func (f failingRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, f.err
}

func TestIngest_StoreFailure(t *testing.T) {
	boom := errors.New("disk full")
	search := &stubSearcher{items: []shopping.Item{item("Phone", "1")}}
	svc := NewService(failingRepo{err: boom}, search, WithLogger(quiet))

	_, err := svc.Ingest(context.Background(), "q")
	assert.ErrorIs(t, err, boom)

	_, err = svc.Cleanup(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestCleanup_RetentionWindow(t *testing.T) {
	svc, _, repo, clock := newTestService(t)
	ctx := context.Background()
	now := base

	clock.Set(now.Add(-200 * 24 * time.Hour))
	require.NoError(t, repo.BulkInsert(ctx, []PriceRecord{rec("q", "old", 1)}))
	clock.Set(now.Add(-10 * 24 * time.Hour))
	require.NoError(t, repo.BulkInsert(ctx, []PriceRecord{rec("q", "recent", 2)}))
	clock.Set(now)

	n, err := svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "recent", all[0].Title)
}

func TestService_WithRetention(t *testing.T) {
	svc := NewService(failingRepo{}, &stubSearcher{}, WithRetention(30*24*time.Hour))
	assert.Equal(t, 30*24*time.Hour, svc.Retention())

	svc = NewService(failingRepo{}, &stubSearcher{}, WithRetention(0))
	assert.Equal(t, DefaultRetention, svc.Retention())
}
