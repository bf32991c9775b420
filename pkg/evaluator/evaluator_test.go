package evaluator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRestrictions(t *testing.T) {
	r, err := ParseRestrictions("English 1000\n\n  ru 30%\n* 50%\n")
	require.NoError(t, err)

	assert.Equal(t, Restriction{Kind: Absolute, Value: 1000}, r["english"])
	assert.Equal(t, Restriction{Kind: Percent, Value: 30}, r["ru"])
	w, ok := r.Wildcard()
	require.True(t, ok)
	assert.Equal(t, Restriction{Kind: Percent, Value: 50}, w)
	assert.Equal(t, []string{"english", "ru"}, r.Keys())
}

func TestParseRestrictionsErrors(t *testing.T) {
	for _, text := range []string{"english", "english abc", "ru -5", "ru 0", "a b c"} {
		_, err := ParseRestrictions(text)
		assert.Error(t, err, text)
	}
	r, err := ParseRestrictions("")
	require.NoError(t, err)
	assert.Empty(t, r)
}

const languagesGraph = `{
	"columns": [
		["x", 1700000000000, 1700086400000, 1700172800000],
		["y0", 10, 20, 300],
		["y1", 5, 5, 40],
		["y2", 1, 1, 7]
	],
	"types": {"y0": "bar", "y1": "bar", "y2": "bar"},
	"names": {"y0": "English", "y1": "Russian", "y2": "Other"}
}`

func TestParseGraph(t *testing.T) {
	b, err := ParseGraph([]byte(languagesGraph), 1)
	require.NoError(t, err)

	v, ok := b.Get("English")
	require.True(t, ok)
	assert.Equal(t, int64(300), v)
	assert.Equal(t, int64(347), b.Total())

	r, err := ParseRestrictions("english 100\n* 10%")
	require.NoError(t, err)
	assert.Equal(t, int64(47), b.Others(r))

	b, err = ParseGraph([]byte(languagesGraph), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(373), b.Total())

	_, err = ParseGraph([]byte(`{"columns":[["x",1,2]]}`), 1)
	assert.ErrorIs(t, err, ErrEmptyGraph)
}

func TestPercentChange(t *testing.T) {
	change, breach := ExceedsPercent(100, 135, 30)
	assert.True(t, breach)
	assert.InDelta(t, 35.0, change, 0.001)

	_, breach = ExceedsPercent(100, 125, 30)
	assert.False(t, breach)

	_, ok := PercentChange(0, 500)
	assert.False(t, ok)
	_, breach = ExceedsPercent(0, 500, 1)
	assert.False(t, breach)
}

func TestAbsoluteLimit(t *testing.T) {
	morning := time.Date(2024, 5, 1, 0, 30, 0, 0, time.UTC)
	evening := time.Date(2024, 5, 1, 23, 10, 0, 0, time.UTC)

	assert.Equal(t, int64(2400), AbsoluteLimit(2400, false, evening))
	assert.Equal(t, int64(100), AbsoluteLimit(2400, true, morning))
	assert.Equal(t, int64(2400), AbsoluteLimit(2400, true, evening))
	limit, breach := ExceedsAbsolute(101, 2400, true, morning)
	assert.True(t, breach)
	assert.Equal(t, int64(100), limit)
	_, breach = ExceedsAbsolute(100, 2400, true, morning)
	assert.False(t, breach)
}

func TestDue(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.False(t, Due(now.Add(-10*time.Minute), 30*time.Minute, now))
	assert.True(t, Due(now.Add(-31*time.Minute), 30*time.Minute, now))
}
