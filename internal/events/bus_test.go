package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"support-insights-go/internal/types"
)

func TestBus_PublishInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe(func(ev RefreshEvent) { order = append(order, "transcript:"+string(ev.Source)) })
	bus.Subscribe(func(ev RefreshEvent) { order = append(order, "insights:"+string(ev.Source)) })

	bus.Publish(RefreshEvent{Source: types.SourceAudio})

	assert.Equal(t, []string{"transcript:audio", "insights:audio"}, order)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsub := bus.Subscribe(func(RefreshEvent) { calls++ })
	kept := 0
	bus.Subscribe(func(RefreshEvent) { kept++ })

	unsub()
	unsub()
	bus.Publish(RefreshEvent{Source: types.SourceText})

	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, kept)
	assert.Equal(t, 1, bus.Len())
}

func TestBus_SubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	late := 0
	bus.Subscribe(func(RefreshEvent) {
		bus.Subscribe(func(RefreshEvent) { late++ })
	})

	bus.Publish(RefreshEvent{Source: types.SourceAudio})
	assert.Equal(t, 0, late, "handlers added mid-publish wait for the next event")

	bus.Publish(RefreshEvent{Source: types.SourceAudio})
	assert.Equal(t, 1, late)
}

func TestBus_NoSubscribers(t *testing.T) {
	assert.NotPanics(t, func() { NewBus().Publish(RefreshEvent{}) })
}
