package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_RecordsMessagesInOrder(t *testing.T) {
	t.Parallel()

	p := New()

	id, err := p.Publish(context.Background(), "cycles", map[string]int{"count": 2})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)

	id, err = p.Publish(context.Background(), "cycles", map[string]int{"count": 0})
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id)

	msgs := p.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "cycles", msgs[0].Topic)
	assert.Equal(t, map[string]int{"count": 2}, msgs[0].Payload)
	assert.Equal(t, map[string]int{"count": 0}, msgs[1].Payload)
}

func TestPublisher_MessagesReturnsCopy(t *testing.T) {
	t.Parallel()

	p := New()
	_, err := p.Publish(context.Background(), "cycles", "a")
	require.NoError(t, err)

	msgs := p.Messages()
	msgs[0].Payload = "mutated"

	assert.Equal(t, "a", p.Messages()[0].Payload)
}

func TestPublisher_ConcurrentPublish(t *testing.T) {
	t.Parallel()

	p := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Publish(context.Background(), "cycles", "payload")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, p.Messages(), 20)
}
