package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

var errStreamClosed = errors.New("event stream closed")

// SubscribeTaskStatus opens the task status event stream. The stream
// reconnects with backoff until the subscription is closed or ctx ends.
func (c *Client) SubscribeTaskStatus(ctx context.Context) (*Subscription, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	ctx, cancel := context.WithCancel(ctx)
	events := make(chan TaskStatus, eventBufferSize)
	go c.subscribeLoop(ctx, events)
	return NewSubscription(events, cancel), nil
}

func (c *Client) subscribeLoop(ctx context.Context, events chan<- TaskStatus) {
	defer close(events)

	delay := c.reconnectMin
	for {
		if ctx.Err() != nil {
			return
		}
		err := c.stream(ctx, events)
		if ctx.Err() != nil {
			return
		}
		c.log.Debug("task status stream interrupted", zap.Error(err), zap.Duration("retry_in", delay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.reconnectMax {
			delay = c.reconnectMax
		}
	}
}

func (c *Client) stream(ctx context.Context, events chan<- TaskStatus) error {
	req, err := c.newRequest(ctx, http.MethodGet, &url.URL{Path: "/api/events"}, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.events.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("events returned status %d", resp.StatusCode)
	}

	return readEvents(ctx, bufio.NewScanner(resp.Body), func(status TaskStatus) {
		select {
		case events <- status:
		default:
			c.log.Debug("task status event dropped (subscriber busy)")
		}
	})
}

// readEvents parses a Server-Sent Events body and hands every task_status
// payload to emit. Frames of any other type, including untyped message
// frames, are skipped.
func readEvents(ctx context.Context, scanner *bufio.Scanner, emit func(TaskStatus)) error {
	var eventType string
	var data strings.Builder

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Text()

		if line == "" {
			if data.Len() > 0 && eventType == TaskStatusEvent {
				var status TaskStatus
				if err := json.Unmarshal([]byte(data.String()), &status); err == nil {
					emit(status.Clamped())
				}
			}
			eventType = ""
			data.Reset()
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if value, ok := strings.CutPrefix(line, "event:"); ok {
			eventType = strings.TrimSpace(value)
		} else if value, ok := strings.CutPrefix(line, "data:"); ok {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(value))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return errStreamClosed
}
