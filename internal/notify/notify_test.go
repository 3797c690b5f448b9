package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureChannel struct {
	delivered chan Message
}

func (c *captureChannel) Deliver(ctx context.Context, msg Message) error {
	c.delivered <- msg
	return nil
}

func TestDispatcherDeliversQueuedOffer(t *testing.T) {
	channel := &captureChannel{delivered: make(chan Message, 1)}
	dispatcher := NewDispatcher(channel, 1, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	deadline := time.Now().UTC().Add(48 * time.Hour)
	require.NoError(t, dispatcher.SendOffer(ctx, "s1@school.example", "Intro to Computer Science", "CS101", deadline))

	select {
	case msg := <-channel.delivered:
		assert.Equal(t, "s1@school.example", msg.To)
		assert.Contains(t, msg.Subject, "CS101")
		assert.Contains(t, msg.Body, "expire")
	case <-time.After(2 * time.Second):
		t.Fatal("offer was never delivered")
	}
}

func TestDispatcherRejectsOfferBeforeStart(t *testing.T) {
	dispatcher := NewDispatcher(NewConsoleChannel(zap.NewNop()), 1, zap.NewNop())

	err := dispatcher.SendOffer(context.Background(), "s1", "Genetics", "BIO150", time.Now())
	require.Error(t, err)
}
