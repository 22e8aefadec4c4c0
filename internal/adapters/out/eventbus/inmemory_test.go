package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/spaceport/internal/boundaries/out/mocks"
	"github.com/bnema/spaceport/internal/domain"
)

func TestInMemory_DeliversToMatchingHandlers(t *testing.T) {
	bus := NewInMemory(10, zerowrap.Default())
	require.NoError(t, bus.Start())

	received := make(chan domain.Event, 1)
	handler := mocks.NewMockEventHandler(t)
	handler.EXPECT().CanHandle(domain.EventProcessExited).Return(true)
	handler.EXPECT().Handle(mock.Anything, mock.AnythingOfType("domain.Event")).
		RunAndReturn(func(_ context.Context, e domain.Event) error {
			received <- e
			return nil
		})

	other := mocks.NewMockEventHandler(t)
	other.EXPECT().CanHandle(domain.EventProcessExited).Return(false)

	require.NoError(t, bus.Subscribe(handler))
	require.NoError(t, bus.Subscribe(other))

	err := bus.Publish(domain.EventProcessExited, domain.ProcessEventPayload{Name: "preview", ExitCode: 1})
	require.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, "preview", e.Process)
		assert.NotEmpty(t, e.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	require.NoError(t, bus.Stop())
}

func TestInMemory_HandlerErrorDoesNotStopDispatch(t *testing.T) {
	bus := NewInMemory(10, zerowrap.Default())
	require.NoError(t, bus.Start())

	calls := make(chan struct{}, 2)
	handler := mocks.NewMockEventHandler(t)
	handler.EXPECT().CanHandle(mock.Anything).Return(true)
	handler.EXPECT().Handle(mock.Anything, mock.Anything).
		RunAndReturn(func(context.Context, domain.Event) error {
			calls <- struct{}{}
			return errors.New("boom")
		})
	require.NoError(t, bus.Subscribe(handler))

	require.NoError(t, bus.Publish(domain.EventProcessStarted, domain.ProcessEventPayload{Name: "main"}))
	require.NoError(t, bus.Publish(domain.EventProcessReady, domain.ProcessEventPayload{Name: "main"}))

	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("handler call %d missing", i+1)
		}
	}
	require.NoError(t, bus.Stop())
}

func TestInMemory_PublishAfterStop(t *testing.T) {
	bus := NewInMemory(1, zerowrap.Default())
	require.NoError(t, bus.Start())
	require.NoError(t, bus.Stop())

	err := bus.Publish(domain.EventSupervisorState, domain.StateEventPayload{})
	assert.ErrorIs(t, err, ErrBusStopped)
}

func TestInMemory_DropsWhenFull(t *testing.T) {
	bus := NewInMemory(1, zerowrap.Default())
	bus.publishTimeout = 10 * time.Millisecond

	// Not started: the single buffer slot fills up.
	require.NoError(t, bus.Publish(domain.EventProcessStarted, nil))
	err := bus.Publish(domain.EventProcessStarted, nil)
	assert.Error(t, err)
}

func TestInMemory_Unsubscribe(t *testing.T) {
	bus := NewInMemory(1, zerowrap.Default())
	handler := mocks.NewMockEventHandler(t)

	require.NoError(t, bus.Subscribe(handler))
	require.NoError(t, bus.Unsubscribe(handler))
	assert.Error(t, bus.Unsubscribe(handler))
}

func TestJournal_HandlesEveryPayload(t *testing.T) {
	j := NewJournal(zerowrap.Default())
	ctx := context.Background()

	assert.True(t, j.CanHandle(domain.EventPreviewChanged))
	assert.NoError(t, j.Handle(ctx, domain.Event{Type: domain.EventProcessExited, Data: domain.ProcessEventPayload{Name: "preview", ExitCode: 2}}))
	assert.NoError(t, j.Handle(ctx, domain.Event{Type: domain.EventSupervisorState, Data: domain.StateEventPayload{From: domain.StateInit, To: domain.StateRouterStarting}}))
	assert.NoError(t, j.Handle(ctx, domain.Event{Type: domain.EventPreviewChanged, Data: domain.PreviewChangedPayload{Dir: "/app", Files: []string{"a.py"}}}))
	assert.NoError(t, j.Handle(ctx, domain.Event{Type: "unknown"}))
}
