package engine

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"net/url"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// isoMillis matches the timestamp format browsers produce with toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// LoadBaseline fetches the last persisted snapshot. Any failure leaves the engine
// with an empty baseline; the error is only logged.
func (e *Engine) LoadBaseline(ctx context.Context) *entities.RegistrySnapshot {
	if e == nil {
		return &entities.RegistrySnapshot{}
	}
	baseline := &entities.RegistrySnapshot{}
	if e.gateway != nil {
		fetched, err := e.gateway.Fetch(ctx)
		switch {
		case errors.Is(err, interfaces.ErrNoSnapshot):
			e.logger.Info("No registry baseline persisted yet, starting empty")
		case err != nil:
			e.logger.WithError(err).Warn("Failed to load registry baseline, starting empty")
		case fetched != nil:
			baseline = fetched
			e.logger.WithFields(logrus.Fields{
				"version":  fetched.Version,
				"elements": len(fetched.RuntimeElements),
			}).Info("Registry baseline loaded")
		}
	}

	e.baselineMu.Lock()
	e.baseline = baseline
	e.baselineMu.Unlock()
	return cloneSnapshot(baseline)
}

// Baseline returns a copy of the last loaded or pushed snapshot.
func (e *Engine) Baseline() *entities.RegistrySnapshot {
	if e == nil {
		return &entities.RegistrySnapshot{}
	}
	e.baselineMu.Lock()
	defer e.baselineMu.Unlock()
	if e.baseline == nil {
		return &entities.RegistrySnapshot{}
	}
	return cloneSnapshot(e.baseline)
}

// Sync pushes the current registry merged over the baseline and reports success.
// Failures are logged and never returned; the in-memory registry stays valid.
func (e *Engine) Sync(ctx context.Context) bool {
	if e == nil || e.gateway == nil {
		return false
	}
	payload := e.buildPayload()

	if err := e.gateway.Push(ctx, payload); err != nil {
		e.logger.WithError(err).WithField("version", payload.Version).Warn("Failed to sync registry")
		return false
	}

	e.baselineMu.Lock()
	e.baseline = payload
	e.baselineMu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"version":  payload.Version,
		"path":     payload.CurrentPath,
		"elements": len(payload.RuntimeElements),
	}).Debug("Registry synced")
	return true
}

func (e *Engine) buildPayload() *entities.RegistrySnapshot {
	e.baselineMu.Lock()
	payload := &entities.RegistrySnapshot{}
	if e.baseline != nil {
		payload = cloneSnapshot(e.baseline)
	}
	e.baselineMu.Unlock()

	e.statsMu.Lock()
	pageURL, title := e.lastURL, e.title
	e.statsMu.Unlock()

	now := e.clock.Now().UTC().Format(isoMillis)
	elements := e.store.Snapshot()
	path := currentPath(pageURL)

	payload.RuntimeElements = elements
	payload.CurrentPath = path
	payload.GeneratedAt = now
	payload.Version = uuid.NewString()
	if payload.PageContexts == nil {
		payload.PageContexts = make(map[string]entities.PageContext)
	}
	payload.PageContexts[path] = entities.PageContext{
		Title:        title,
		ElementCount: len(elements),
		CapturedAt:   now,
	}
	return payload
}

func (e *Engine) requestSync() {
	if !e.autoSync || e.gateway == nil {
		return
	}
	select {
	case e.pushCh <- struct{}{}:
	default:
	}
}

// pushLoop runs queued syncs one at a time. Requests arriving during a push
// collapse into one follow-up push of the latest registry.
func (e *Engine) pushLoop() {
	defer e.pusher.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-e.closeCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-e.closeCh:
			return
		case <-e.pushCh:
			e.Sync(ctx)
		}
	}
}

func currentPath(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

func cloneSnapshot(s *entities.RegistrySnapshot) *entities.RegistrySnapshot {
	out := *s
	if s.Components != nil {
		out.Components = append(json.RawMessage(nil), s.Components...)
	}
	if s.RuntimeElements != nil {
		out.RuntimeElements = make([]entities.ElementDescriptor, len(s.RuntimeElements))
		for i, d := range s.RuntimeElements {
			out.RuntimeElements[i] = d.Clone()
		}
	}
	out.PageContexts = maps.Clone(s.PageContexts)
	out.Extra = maps.Clone(s.Extra)
	return &out
}
