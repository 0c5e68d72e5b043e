package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Query(true)
	m.Query(true)
	m.Query(false)
	m.Articles(StageFetched, 12)
	m.Articles(StageRejected, 0)
	m.Translation(OutcomeFallback)
	m.Notification("email", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.ArticlesTotal.WithLabelValues(StageFetched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TranslationsTotal.WithLabelValues(OutcomeFallback)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("email", OutcomeFailure)))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Query(true)
	m.Articles(StageFetched, 3)
	m.Translation(OutcomeSuccess)
	m.Notification("stdout", true)
	m.RunFinished(time.Now(), time.Second)
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Query(true)
	m.RunFinished(time.Unix(1700000000, 0), 2*time.Second)

	path := filepath.Join(t.TempDir(), "paint_news.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, `paint_news_queries_total{outcome="success"} 1`), out)
	assert.Contains(t, out, "# TYPE paint_news_last_run_timestamp_seconds gauge")
	assert.Contains(t, out, "paint_news_last_run_duration_seconds 2")
}
