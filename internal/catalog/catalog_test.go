package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/smartdoc/internal/domain"
)

type fakeCounter struct {
	counts map[domain.CallKind]int
	since  int64
	err    error
}

func (f *fakeCounter) CountCallsSince(_ context.Context, kind domain.CallKind, sinceTs int64) (int, error) {
	f.since = sinceTs
	return f.counts[kind], f.err
}

func TestGetWithoutCounter(t *testing.T) {
	c, err := New(nil).Get(context.Background())
	require.NoError(t, err)

	assert.Len(t, c.Subjects, 5)
	assert.Equal(t, "Política de RH", c.Subjects[0])
	assert.Contains(t, c.Companies, "Paipe Tecnologia")
	assert.Contains(t, c.DocumentTypes, "NDA")
	assert.Len(t, c.Documents, 4)
	assert.Equal(t, "Pending", c.Documents[3].Status)
	assert.Len(t, c.Users, 3)
	assert.Equal(t, []Stat{
		{Label: StatKnowledgeSources, Value: 1215},
		{Label: StatMonthlyQueries, Value: 8432},
		{Label: StatMonthlyAnalyses, Value: 942},
	}, c.Stats)
}

func TestStatsAddMonthlyActivity(t *testing.T) {
	counter := &fakeCounter{counts: map[domain.CallKind]int{
		domain.CallKindChat:     3,
		domain.CallKindAnalysis: 2,
	}}
	svc := New(counter)
	svc.now = func() time.Time { return time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC) }

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8435, stats[1].Value)
	assert.Equal(t, 944, stats[2].Value)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), counter.since)
}

func TestStatsCounterError(t *testing.T) {
	_, err := New(&fakeCounter{err: errors.New("db down")}).Get(context.Background())
	assert.Error(t, err)
}

func TestGetReturnsCopies(t *testing.T) {
	svc := New(nil)
	c, err := svc.Get(context.Background())
	require.NoError(t, err)
	c.Subjects[0] = "changed"

	again, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Política de RH", again.Subjects[0])
}

