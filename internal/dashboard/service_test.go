package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/AngelCh415/insights-dashboard/internal/ingest"
	"github.com/AngelCh415/insights-dashboard/internal/loader"
	"github.com/AngelCh415/insights-dashboard/internal/models"
	"github.com/AngelCh415/insights-dashboard/internal/table"
)

var errDown = errors.New("upstream down")

// flakySource fails the first N campaign and channel fetches.
type flakySource struct {
	*ingest.Synthetic
	campaignFailures atomic.Int64
	channelFailures  atomic.Int64
	campaignCalls    atomic.Int64
}

func (f *flakySource) Campaigns(ctx context.Context) ([]models.Campaign, error) {
	f.campaignCalls.Add(1)
	if f.campaignFailures.Add(-1) >= 0 {
		return nil, errDown
	}
	return f.Synthetic.Campaigns(ctx)
}

func (f *flakySource) Channels(ctx context.Context) ([]models.CategoryPoint, error) {
	if f.channelFailures.Add(-1) >= 0 {
		return nil, errDown
	}
	return f.Synthetic.Channels(ctx)
}

func newSource() *flakySource {
	return &flakySource{Synthetic: ingest.NewSynthetic(ingest.WithLatency(0))}
}

func newService(src ingest.Source) *Service {
	opt := DefaultOptions()
	opt.Policy = loader.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond}
	opt.AutoRetryDelay = 5 * time.Millisecond
	return New(src, loader.NewRegistry(), nil, opt)
}

func TestLoadAllSucceeds(t *testing.T) {
	svc := newService(newSource())
	snap := svc.LoadAll(context.Background())

	require.Len(t, snap.Results, 6)
	assert.Equal(t, 6, snap.Succeeded())
	assert.False(t, snap.IsLoading)
	assert.False(t, snap.HasError)
	for i, key := range svc.Keys() {
		assert.Equal(t, key, snap.Results[i].Key)
		assert.NotNil(t, snap.Results[i].Data, key)
	}
	assert.Equal(t, "ok", svc.Health().Status)
}

func TestLoadAllSettlesPartialFailure(t *testing.T) {
	src := newSource()
	src.channelFailures.Store(5)
	svc := newService(src)

	snap := svc.LoadAll(context.Background())
	assert.Equal(t, 5, snap.Succeeded())
	assert.True(t, snap.HasError)

	h := svc.Health()
	assert.Equal(t, "degraded", h.Status)
	assert.Contains(t, h.Resources[KeyChannels].Error, "upstream down")
	assert.Nil(t, h.Resources[KeyChannels].LastUpdated)
	assert.NotNil(t, h.Resources[KeyRevenue].LastUpdated)

	assert.True(t, svc.Refresh(context.Background()))
}

func TestRefreshFailsWhenNothingLoads(t *testing.T) {
	src := newSource()
	src.InjectFailures(100)
	svc := newService(src)
	// campaigns and channels also fall through to the synthetic failures
	assert.False(t, svc.Refresh(context.Background()))
}

func TestUnknownResource(t *testing.T) {
	svc := newService(newSource())
	_, err := svc.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownResource)
	_, err = svc.Retry(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownResource)
	_, err = svc.Status("nope")
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestTablePipeline(t *testing.T) {
	svc := newService(newSource())
	ctx := context.Background()

	page, err := svc.Table(ctx, table.Query{
		Sort:     &table.SortConfig{Column: table.ColumnROAS, Direction: table.Desc},
		Page:     1,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "camp_004", page.Rows[0].ID)
	assert.Equal(t, "camp_001", page.Rows[1].ID)

	page, err = svc.Table(ctx, table.Query{Search: "campaign", Page: 7, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Retargeting Campaign", page.Rows[0].Campaign)

	rows, err := svc.Rows(ctx, table.Query{Search: "paused"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "camp_003", rows[0].ID)
}

func TestCampaignsReuseLoadedRows(t *testing.T) {
	src := newSource()
	svc := newService(src)
	ctx := context.Background()

	_, err := svc.Table(ctx, table.Query{})
	require.NoError(t, err)
	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, src.campaignCalls.Load())
}

func TestTableLoadFailure(t *testing.T) {
	src := newSource()
	src.campaignFailures.Store(1)
	svc := newService(src)

	_, err := svc.Table(context.Background(), table.Query{})
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestSeriesAndChannels(t *testing.T) {
	svc := newService(newSource())
	ctx := context.Background()

	_, err := svc.Series(ctx, "bogus")
	assert.ErrorIs(t, err, ErrUnknownSeries)

	for _, name := range SeriesNames {
		v, err := svc.Series(ctx, name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, v.Points, name)
		assert.NotNil(t, v.Stats, name)
	}

	ch, err := svc.Channels(ctx)
	require.NoError(t, err)
	require.NotNil(t, ch.Stats)
	assert.Equal(t, 100.0, ch.Stats.Total)
	assert.Equal(t, "Organic Search", ch.Stats.Top.Name)
	assert.Equal(t, 35.0, ch.Stats.TopPercentage)
}

func TestSummaryFromCampaigns(t *testing.T) {
	svc := newService(newSource())
	cards, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, cards)
	assert.Equal(t, "revenue", cards[0].ID)
	assert.Equal(t, 32740.0, cards[0].Value)
	assert.Equal(t, "$32,740", cards[0].Display)
}

func TestStatusWithoutAutoRetry(t *testing.T) {
	src := newSource()
	src.campaignFailures.Store(1)
	svc := newService(src)

	o, err := svc.Load(context.Background(), KeyCampaigns)
	require.NoError(t, err)
	assert.False(t, o.Success)
	assert.Equal(t, "Failed to load campaign-data", o.Message)

	st, err := svc.Status(KeyCampaigns)
	require.NoError(t, err)
	assert.True(t, st.CanRetry)
	assert.Contains(t, st.Message, "Failed to load campaign-data: ")

	o, err = svc.Retry(context.Background(), KeyCampaigns)
	require.NoError(t, err)
	assert.True(t, o.Success)
	st, _ = svc.Status(KeyCampaigns)
	assert.False(t, st.State.HasError())
	assert.Empty(t, st.Message)
}

func TestAutoRetryRecovers(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := newSource()
	src.campaignFailures.Store(2)
	svc := newService(src)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.StartAutoRetry(ctx)
	o, err := svc.Load(ctx, KeyCampaigns)
	require.NoError(t, err)
	assert.False(t, o.Success)

	assert.Eventually(t, func() bool {
		st, _ := svc.Status(KeyCampaigns)
		return !st.State.HasError() && st.State.LastUpdated != nil && st.AutoRetries == 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 3, src.campaignCalls.Load())

	svc.Close()
}

func TestManualRetryWithAutoRetry(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := newSource()
	src.campaignFailures.Store(1)
	opt := DefaultOptions()
	opt.Policy = loader.RetryPolicy{MaxAttempts: 1}
	opt.AutoRetryDelay = time.Hour
	svc := New(src, loader.NewRegistry(), nil, opt)
	svc.StartAutoRetry(context.Background())
	defer svc.Close()

	o, _ := svc.Load(context.Background(), KeyCampaigns)
	require.False(t, o.Success)

	o, err := svc.Retry(context.Background(), KeyCampaigns)
	require.NoError(t, err)
	assert.True(t, o.Success)
	assert.NotNil(t, o.Data)

	st, _ := svc.Status(KeyCampaigns)
	assert.Equal(t, 0, st.AutoRetries)
	assert.True(t, st.CanRetry)
}
