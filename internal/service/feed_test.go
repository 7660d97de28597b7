package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/checkin-api/internal/domain"
)

func TestFeedHub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewFeedHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	sub1, err := hub.Subscribe(ctx, 1)
	require.NoError(t, err)
	sub2, err := hub.Subscribe(ctx, 2)
	require.NoError(t, err)

	hub.Publish(domain.CheckinEvent{Type: "checkin", EventID: 1, UserID: 7})

	select {
	case got := <-sub1.C:
		assert.Equal(t, uint(7), got.UserID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	select {
	case got := <-sub2.C:
		t.Fatalf("unexpected event for another feed: %+v", got)
	case <-time.After(20 * time.Millisecond):
	}

	hub.Unsubscribe(sub1)
	_, open := <-sub1.C
	assert.False(t, open)

	cancel()
	<-done

	_, open = <-sub2.C
	assert.False(t, open)

	_, err = hub.Subscribe(context.Background(), 1)
	assert.ErrorIs(t, err, ErrFeedClosed)
	assert.NotPanics(t, func() { hub.Unsubscribe(sub2) })
}
