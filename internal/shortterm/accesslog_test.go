package shortterm

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessLogRecordAndLookup(t *testing.T) {
	a := NewAccessLog(0)
	a.Record("k")
	a.Record("k")
	a.Record("other")

	e, ok := a.Lookup("k")
	require.True(t, ok)
	assert.Equal(t, 2, e.Frequency)
	assert.False(t, e.Recency.IsZero())

	_, ok = a.Lookup("missing")
	assert.False(t, ok)
}

func TestAccessLogEvictsOldestOnOverflow(t *testing.T) {
	base := time.Now()
	clock := base
	a := NewAccessLog(3).WithClock(func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		clock = base.Add(time.Duration(i) * time.Second)
		a.Record(fmt.Sprintf("k%d", i))
	}
	// refresh k0 so k1 becomes the oldest
	clock = base.Add(10 * time.Second)
	a.Record("k0")

	clock = base.Add(11 * time.Second)
	a.Record("k3")

	assert.Equal(t, 3, a.Len())
	_, ok := a.Lookup("k1")
	assert.False(t, ok, "oldest-recency entry should be evicted")
	_, ok = a.Lookup("k0")
	assert.True(t, ok)
}
