package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebouncer_BurstCoalescesToSingleNotification(t *testing.T) {
	d := NewDebouncer(25 * time.Millisecond)
	defer d.Stop()

	for range 5 {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-d.C():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for notification")
	}

	select {
	case <-d.C():
		t.Fatal("expected only one notification for burst")
	case <-time.After(75 * time.Millisecond):
	}
}

func TestDebouncer_FullQueueMergesNotifications(t *testing.T) {
	d := NewDebouncer(time.Millisecond)
	defer d.Stop()

	d.Trigger()
	time.Sleep(20 * time.Millisecond)
	d.Trigger()
	time.Sleep(20 * time.Millisecond)

	require.Len(t, d.C(), 1)
	<-d.C()
	require.Empty(t, d.C())
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.Trigger()
	d.Stop()
	d.Trigger()

	select {
	case <-d.C():
		t.Fatal("stopped debouncer must not notify")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestShouldIgnore(t *testing.T) {
	cases := []struct {
		path   string
		ignore bool
	}{
		{"source/index.md", false},
		{"source/.index.md.swp", true},
		{"source/index.md~", true},
		{"source/#index.md#", true},
		{"source/.DS_Store", true},
		{"source/4913", true},
		{"template/default.hbs", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ignore, ShouldIgnore(tc.path), tc.path)
	}
}

func TestWatcher_NotifiesOnChange(t *testing.T) {
	root := t.TempDir()
	w, err := New("test", 20*time.Millisecond, root, filepath.Join(root, "missing"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	go func() { _ = w.Run(t.Context()) }()

	require.NoError(t, os.WriteFile(filepath.Join(root, "index.md"), []byte("x"), 0o600))

	select {
	case <-w.C():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := New("test", 20*time.Millisecond, root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	go func() { _ = w.Run(t.Context()) }()

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o750))
	select {
	case <-w.C():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for directory notification")
	}

	require.Eventually(t, func() bool {
		if err := os.WriteFile(filepath.Join(sub, "page.md"), []byte(time.Now().String()), 0o600); err != nil {
			return false
		}
		select {
		case <-w.C():
			return true
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}
