// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

// Package events fans execution and job updates out to SSE subscribers.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/sai-platform/sai-dashboard/internal/logging"
	"github.com/sai-platform/sai-dashboard/internal/metrics"
)

// clientBufferSize is the per-client send buffer. A client that falls this
// far behind is disconnected rather than allowed to block the hub.
const clientBufferSize = 32

// heartbeatInterval is how often keepalive comments are sent so proxies do
// not reap idle streams.
const heartbeatInterval = 30 * time.Second

// Client is one connected SSE subscriber.
type Client struct {
	ID string

	// Ch delivers pre-encoded SSE frames. Closed by the hub on
	// disconnect or shutdown.
	Ch chan []byte
}

// Hub tracks SSE subscribers and broadcasts events to all of them. It is a
// suture service: Serve drives heartbeats until shutdown.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// String implements fmt.Stringer for supervisor logs.
func (h *Hub) String() string {
	return "sse-hub"
}

// Subscribe registers a new client. The caller must call Unsubscribe when
// the connection ends.
func (h *Hub) Subscribe() *Client {
	client := &Client{
		ID: uuid.NewString(),
		Ch: make(chan []byte, clientBufferSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(client.Ch)
		return client
	}
	h.clients[client.ID] = client
	count := len(h.clients)
	h.mu.Unlock()

	metrics.SSEClientsConnected.Set(float64(count))
	logging.Debug().Str("client_id", client.ID).Int("clients", count).Msg("SSE client connected")
	return client
}

// Unsubscribe removes a client and closes its channel.
func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Ch)
	}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.SSEClientsConnected.Set(float64(count))
	logging.Debug().Str("client_id", client.ID).Int("clients", count).Msg("SSE client disconnected")
}

// Publish encodes data as JSON and broadcasts it as a named SSE event.
// Clients whose buffers are full are dropped; one stalled consumer must
// never delay the rest.
func (h *Hub) Publish(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		logging.Error().Err(err).Str("event", event).Msg("Failed to encode SSE event")
		return
	}
	frame := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, payload))
	h.broadcast(frame)
}

func (h *Hub) broadcast(frame []byte) {
	var slow []*Client

	h.mu.RLock()
	for _, client := range h.clients {
		select {
		case client.Ch <- frame:
			metrics.SSEEventsSent.Inc()
		default:
			metrics.SSEEventsDropped.Inc()
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		logging.Warn().Str("client_id", client.ID).Msg("Dropping slow SSE client")
		h.Unsubscribe(client)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve sends periodic heartbeats until the context is canceled, then
// closes all client channels.
func (h *Hub) Serve(ctx context.Context) error {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case <-ticker.C:
			// Comment frame: ignored by EventSource, keeps the
			// connection warm.
			h.broadcast([]byte(": heartbeat\n\n"))
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Ch)
	}
	metrics.SSEClientsConnected.Set(0)
}
