//go:build integration

package browser

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai_registry/application/engine"
	"ai_registry/application/watcher"
	"ai_registry/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePage = `<!doctype html>
<html><head><title>Fixture</title></head>
<body>
  <button id="add" onclick="add()">Add row</button>
  <a href="#/about" id="about" onclick="history.pushState({}, '', '/about'); return false;">About</a>
  <div id="rows"></div>
  <script>
    let n = 0;
    function add() {
      n++;
      const b = document.createElement('button');
      b.textContent = 'Row ' + n;
      document.getElementById('rows').appendChild(b);
    }
  </script>
</body></html>`

func TestPlaywrightControllerWatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, fixturePage)
	}))
	defer srv.Close()

	ctrl, err := NewBrowserController(Options{Headless: true})
	require.NoError(t, err)
	defer ctrl.Close()

	ctx := testContext(t)
	require.NoError(t, ctrl.Navigate(ctx, srv.URL))

	eng := engine.New(ctrl, engine.WithWatcherConfig(watcher.Config{
		InitialSettleDelay:    100 * time.Millisecond,
		NavigationSettleDelay: 100 * time.Millisecond,
		DebounceWindow:        100 * time.Millisecond,
	}))
	defer eng.Close()

	descriptors := eng.CaptureInteractiveElements(ctx)
	require.Len(t, descriptors, 2)
	assert.Equal(t, "ai-target-add", descriptors[0].TargetID)

	eng.Watch()
	require.NoError(t, ctrl.Click(ctx, "ai-target-add"))
	assert.Eventually(t, func() bool {
		return len(eng.GetElementRegistry()) == 3
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, ctrl.Click(ctx, "ai-target-about"))
	assert.Eventually(t, func() bool {
		return eng.Stats().LastReason == entities.ScanNavigation
	}, 5*time.Second, 50*time.Millisecond)
}
