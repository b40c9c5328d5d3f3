package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndDispatch(t *testing.T) {
	b := NewBus(8, zerolog.Nop())

	var got []Notice
	b.Subscribe("work.created", func(n Notice) error {
		got = append(got, n)
		return nil
	})

	require.True(t, b.Publish(Notice{Event: "work.created", Object: "w-1"}))
	require.True(t, b.Publish(Notice{Event: "work.deleted", Object: "w-1"}))
	require.True(t, b.Publish(Notice{Event: "work.created", Object: "w-2"}))
	b.DispatchPending()

	// Only subscribed events arrive, in publish order.
	require.Len(t, got, 2)
	assert.Equal(t, "w-1", got[0].Object)
	assert.Equal(t, "w-2", got[1].Object)
}

func TestMultipleHandlersPerEvent(t *testing.T) {
	b := NewBus(4, zerolog.Nop())

	var first, second int
	b.Subscribe("media.created", func(Notice) error { first++; return nil })
	b.Subscribe("media.created", func(Notice) error { second++; return nil })

	b.Publish(Notice{Event: "media.created"})
	b.DispatchPending()

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	b := NewBus(1, zerolog.Nop())

	assert.True(t, b.Publish(Notice{Event: "e"}))
	assert.False(t, b.Publish(Notice{Event: "e"}))

	// Draining frees the buffer again.
	b.DispatchPending()
	assert.True(t, b.Publish(Notice{Event: "e"}))
}

func TestHandlerFailuresDoNotStopDispatch(t *testing.T) {
	b := NewBus(4, zerolog.Nop())

	var delivered int
	b.Subscribe("e", func(Notice) error { return errors.New("boom") })
	b.Subscribe("e", func(Notice) error { panic("boom") })
	b.Subscribe("e", func(Notice) error { delivered++; return nil })

	b.Publish(Notice{Event: "e"})
	b.Publish(Notice{Event: "e"})
	b.DispatchPending()

	assert.Equal(t, 2, delivered)
}

func TestRunStopsOnCancel(t *testing.T) {
	b := NewBus(4, zerolog.Nop())

	delivered := make(chan Notice, 1)
	b.Subscribe("e", func(n Notice) error {
		delivered <- n
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	b.Publish(Notice{Event: "e", Object: "x"})
	select {
	case n := <-delivered:
		assert.Equal(t, "x", n.Object)
	case <-time.After(2 * time.Second):
		t.Fatal("notice was not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop on cancel")
	}
}
