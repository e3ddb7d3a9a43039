package registry

import (
	"fmt"
	"sync"
	"testing"

	"ai_registry/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptor(id string) entities.ElementDescriptor {
	return entities.ElementDescriptor{
		TargetID:        id,
		InteractionType: entities.InteractionClick,
		Attributes:      map[string]string{"data-ai-target": id},
		Visible:         true,
		Interactable:    true,
	}
}

func TestReplaceAndGet(t *testing.T) {
	s := NewStore()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, uint64(0), s.Version())

	s.Replace([]entities.ElementDescriptor{descriptor("ai-target-b"), descriptor("ai-target-a")})

	got, ok := s.Get("ai-target-a")
	require.True(t, ok)
	assert.Equal(t, "ai-target-a", got.TargetID)
	assert.True(t, s.Has("ai-target-b"))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, uint64(1), s.Version())
	assert.Equal(t, []string{"ai-target-a", "ai-target-b"}, s.IDs())

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "ai-target-b", snap[0].TargetID, "snapshot keeps scan order")
}

func TestReplacePurgesMissing(t *testing.T) {
	s := NewStore()
	s.Replace([]entities.ElementDescriptor{descriptor("ai-target-a"), descriptor("ai-target-b")})
	s.Replace([]entities.ElementDescriptor{descriptor("ai-target-b")})

	_, ok := s.Get("ai-target-a")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestReplaceDuplicateIDs(t *testing.T) {
	s := NewStore()
	first := descriptor("ai-target-a")
	second := descriptor("ai-target-a")
	second.InteractionType = entities.InteractionInput

	s.Replace([]entities.ElementDescriptor{first, second})

	assert.Equal(t, 1, s.Len())
	got, _ := s.Get("ai-target-a")
	assert.Equal(t, entities.InteractionInput, got.InteractionType)
}

func TestReset(t *testing.T) {
	s := NewStore()
	s.Replace([]entities.ElementDescriptor{descriptor("ai-target-a")})
	s.Reset()

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Snapshot())
	assert.Empty(t, s.Map())
	assert.Equal(t, uint64(2), s.Version())
}

func TestReadersGetCopies(t *testing.T) {
	s := NewStore()
	in := descriptor("ai-target-a")
	s.Replace([]entities.ElementDescriptor{in})

	in.Attributes["data-ai-target"] = "mutated by producer"

	got, _ := s.Get("ai-target-a")
	got.Attributes["data-ai-target"] = "mutated by reader"
	s.Snapshot()[0].Attributes["data-ai-target"] = "mutated by reader"
	s.Map()["ai-target-a"].Attributes["data-ai-target"] = "mutated by reader"

	again, _ := s.Get("ai-target-a")
	assert.Equal(t, "ai-target-a", again.Attributes["data-ai-target"])
}

func TestConcurrentReadersSeeWholeGenerations(t *testing.T) {
	s := NewStore()
	const size = 50

	gen := func(n int) []entities.ElementDescriptor {
		out := make([]entities.ElementDescriptor, size)
		for i := range out {
			d := descriptor(fmt.Sprintf("ai-target-%d", i))
			d.Timestamp = int64(n)
			out[i] = d
		}
		return out
	}
	s.Replace(gen(0))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Snapshot()
				if !assert.Len(t, snap, size) {
					return
				}
				for _, d := range snap {
					if !assert.Equal(t, snap[0].Timestamp, d.Timestamp, "mixed generations") {
						return
					}
				}
			}
		}()
	}

	for n := 1; n <= 200; n++ {
		s.Replace(gen(n))
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, uint64(201), s.Version())
}
