package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memviz/internal/models"
)

func receive(t *testing.T, client *ClientConnection) WebSocketMessage {
	select {
	case msg, ok := <-client.Send:
		require.True(t, ok, "send queue closed")
		return msg
	case <-time.After(time.Second):
		require.FailNow(t, "no message received")
	}
	return WebSocketMessage{}
}

func TestWebSocketHub_PublishFansOut(t *testing.T) {
	hub := NewWebSocketHub(0)
	a := NewClientConnection("a", nil)
	b := NewClientConnection("b", nil)
	hub.Register(a)
	hub.Register(b)
	require.Equal(t, 2, hub.ClientCount())

	hub.Publish(models.ViewEvent{Type: models.EventStats, Data: EmptyStats()})

	for _, client := range []*ClientConnection{a, b} {
		msg := receive(t, client)
		assert.Equal(t, models.EventStats, msg.Type)
		assert.Equal(t, EmptyStats(), msg.Data)
		assert.False(t, msg.Timestamp.IsZero())
	}
}

func TestWebSocketHub_PublishNeverBlocks(t *testing.T) {
	hub := NewWebSocketHub(0)
	slow := NewClientConnection("slow", nil)
	hub.Register(slow)

	for i := 0; i < cap(slow.Send); i++ {
		hub.Publish(models.ViewEvent{Type: models.EventControls})
	}

	done := make(chan struct{})
	go func() {
		hub.Publish(models.ViewEvent{Type: models.EventChart})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full client")
	}
	assert.Len(t, slow.Send, cap(slow.Send))
}

func TestWebSocketHub_UnregisterClosesQueue(t *testing.T) {
	hub := NewWebSocketHub(0)
	client := NewClientConnection("a", nil)
	hub.Register(client)

	hub.Unregister(client.ID)
	hub.Unregister(client.ID)

	_, ok := <-client.Send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())
	assert.False(t, hub.SendMessage(client.ID, WebSocketMessage{Type: "pong"}))

	// publishing with nobody connected is fine
	hub.Publish(models.ViewEvent{Type: models.EventStats})
}

func TestWebSocketHub_SendMessageTargetsOneClient(t *testing.T) {
	hub := NewWebSocketHub(0)
	a := NewClientConnection("a", nil)
	b := NewClientConnection("b", nil)
	hub.Register(a)
	hub.Register(b)

	assert.True(t, hub.SendMessage("a", WebSocketMessage{Type: "pong"}))

	assert.Equal(t, "pong", receive(t, a).Type)
	assert.Len(t, b.Send, 0)
}

func TestWebSocketHub_Heartbeat(t *testing.T) {
	hub := NewWebSocketHub(10 * time.Millisecond)
	client := NewClientConnection("a", nil)
	hub.Register(client)
	hub.Start()
	defer hub.Stop()

	msg := receive(t, client)
	assert.Equal(t, "heartbeat", msg.Type)
	assert.Equal(t, map[string]int{"clients": 1}, msg.Data)
}

func TestWebSocketHub_StopDisconnectsEveryone(t *testing.T) {
	hub := NewWebSocketHub(time.Hour)
	hub.Start()
	client := NewClientConnection("a", nil)
	hub.Register(client)

	hub.Stop()
	hub.Stop()

	_, ok := <-client.Send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())
}
