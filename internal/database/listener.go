// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sai-platform/sai-dashboard/internal/logging"
	"github.com/sai-platform/sai-dashboard/internal/metrics"
)

// ChangeEvent is one decoded LISTEN/NOTIFY payload from the executions
// triggers.
type ChangeEvent struct {
	Event       string // created, updated, deleted
	ExecutionID int64
}

// Listener is a suture service holding a dedicated connection on LISTEN
// and forwarding decoded change events to a handler. The supervisor
// restarts it when the connection drops.
type Listener struct {
	db      *DB
	handler func(ChangeEvent)
}

// NewListener creates a listener that calls handler for every decoded
// change event. The handler must not block.
func NewListener(db *DB, handler func(ChangeEvent)) *Listener {
	return &Listener{db: db, handler: handler}
}

// String implements fmt.Stringer for supervisor logs.
func (l *Listener) String() string {
	return "pg-listener"
}

// Serve acquires a connection, LISTENs, and blocks decoding notifications
// until the context is canceled or the connection fails. Returning an
// error hands restart/backoff to the supervisor.
func (l *Listener) Serve(ctx context.Context) error {
	conn, err := l.db.Primary.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("pg-listener: failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return fmt.Errorf("pg-listener: LISTEN failed: %w", err)
	}
	logging.Info().Str("channel", NotifyChannel).Msg("Listening for execution changes")

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("pg-listener: wait failed: %w", err)
		}

		event, ok := parseChangePayload(notification.Payload)
		if !ok {
			logging.Warn().Str("payload", notification.Payload).Msg("Ignoring malformed notification payload")
			continue
		}
		metrics.NotificationsReceived.Inc()
		l.handler(event)
	}
}

// parseChangePayload decodes "<event>:<execution_id>".
func parseChangePayload(payload string) (ChangeEvent, bool) {
	event, idStr, found := strings.Cut(payload, ":")
	if !found {
		return ChangeEvent{}, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return ChangeEvent{}, false
	}
	switch event {
	case "created", "updated", "deleted":
		return ChangeEvent{Event: event, ExecutionID: id}, true
	}
	return ChangeEvent{}, false
}
