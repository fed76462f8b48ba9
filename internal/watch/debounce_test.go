package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitReady(t *testing.T, d *Debouncer) {
	t.Helper()
	select {
	case <-d.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never signalled")
	}
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Trigger("/b.yaml")
	d.Trigger("/a.yaml")
	d.Trigger("/b.yaml")

	waitReady(t, d)
	assert.Equal(t, []string{"/a.yaml", "/b.yaml"}, d.Drain())
	assert.Empty(t, d.Drain())
}

func TestDebouncer_QuietPeriodRestarts(t *testing.T) {
	d := NewDebouncer(80 * time.Millisecond)
	defer d.Stop()

	start := time.Now()
	d.Trigger("/a.yaml")
	time.Sleep(40 * time.Millisecond)
	d.Trigger("/a.yaml")

	waitReady(t, d)
	assert.GreaterOrEqual(t, time.Since(start), 120*time.Millisecond)
	assert.Equal(t, []string{"/a.yaml"}, d.Drain())
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.Trigger("/a.yaml")
	d.Stop()
	d.Trigger("/b.yaml")

	select {
	case <-d.Ready():
		t.Fatal("stopped debouncer signalled")
	case <-time.After(100 * time.Millisecond):
	}
	require.Empty(t, d.Drain())
}
