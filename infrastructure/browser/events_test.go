package browser

import (
	"testing"

	"ai_registry/application/watcher"
	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsNavigation(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ev := newEvents(logger)

	var got []entities.NavigationEvent
	unsubscribe := ev.Subscribe(func(e entities.NavigationEvent) { got = append(got, e) })

	require.NoError(t, ev.dispatch([]byte(`{"type":"navigation","kind":"push","url":"https://app.test/settings"}`)))
	assert.Equal(t, "https://app.test/settings", ev.CurrentURL())
	assert.Error(t, ev.dispatch([]byte(`{"type":"navigation","kind":"teleport","url":"x"}`)))

	unsubscribe()
	unsubscribe()
	require.NoError(t, ev.dispatch([]byte(`{"type":"navigation","kind":"pop","url":"https://app.test/"}`)))

	assert.Equal(t, []entities.NavigationEvent{{URL: "https://app.test/settings", Kind: entities.NavigationPush}}, got)
}

func TestEventsMutationsFeedWatcherFilter(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ev := newEvents(logger)

	var batches [][]interfaces.MutationRecord
	stop := ev.Observe(func(r []interfaces.MutationRecord) { batches = append(batches, r) })
	defer stop()

	require.NoError(t, ev.dispatch([]byte(`{"type":"mutations","records":[
		{"kind":"childList","target":"<div id=\"list\"></div>","added":["<li><span>no controls</span></li>"]}
	]}`)))
	require.NoError(t, ev.dispatch([]byte(`{"type":"mutations","records":[
		{"kind":"childList","target":"<div id=\"list\"></div>","added":["<div class=\"row\"><button>Buy</button></div>"]}
	]}`)))
	require.NoError(t, ev.dispatch([]byte(`{"type":"mutations","records":[
		{"kind":"attributes","target":"<button class=\"primary\" disabled=\"\"></button>","attr":"disabled"}
	]}`)))

	require.Len(t, batches, 3)
	assert.False(t, watcher.Qualifies(batches[0]))
	assert.True(t, watcher.Qualifies(batches[1]))
	assert.True(t, watcher.Qualifies(batches[2]))

	rec := batches[2][0]
	assert.Equal(t, interfaces.MutationAttributes, rec.Kind)
	assert.Equal(t, "disabled", rec.AttributeName)
	require.NotNil(t, rec.Target)
	assert.Equal(t, "button", rec.Target.TagName())
}

func TestEventsDispatchQueue(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	ev := newEvents(logger)

	var navs int
	ev.Subscribe(func(entities.NavigationEvent) { navs++ })

	require.NoError(t, ev.dispatchQueue([]byte(`[
		{"type":"navigation","kind":"replace","url":"https://app.test/a"},
		{"type":"unknown"},
		{"type":"navigation","kind":"pop","url":"https://app.test/b"}
	]`)))
	assert.Equal(t, 2, navs)
	assert.Equal(t, "https://app.test/b", ev.CurrentURL())
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "Dropped hook event", hook.LastEntry().Message)

	assert.Error(t, ev.dispatchQueue([]byte(`{}`)))
}
