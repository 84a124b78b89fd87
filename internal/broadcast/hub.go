// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"encoding/json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"observability-dashboard/internal/logs"
	"observability-dashboard/internal/metrics"
	"observability-dashboard/internal/monitor"
	"observability-dashboard/internal/registry"
	"sync"
	"time"
)

const (
	textMessage       = 1
	writeWait         = 10 * time.Second
	defaultSendBuffer = 64
)

type client struct {
	id          string
	conn        Conn
	channel     Channel
	environment registry.Environment
	send        chan []byte

	mu     sync.Mutex
	filter Filter
}

func (c *client) currentFilter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Hub fans snapshots and log events out to websocket subscribers. Subscribers that cannot keep up are dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[Channel]map[*client]bool

	scoper          Scoper
	defaultServices []string
	sendBuffer      int
}

func NewHub(scoper Scoper, defaultServices []string, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}

	return &Hub{
		clients: map[Channel]map[*client]bool{
			ChannelHealth: {},
			ChannelLogs:   {},
		},
		scoper:          scoper,
		defaultServices: defaultServices,
		sendBuffer:      sendBuffer,
	}
}

// Publish pushes a snapshot to every health subscriber. It is registered as a monitor observer.
func (h *Hub) Publish(snapshot monitor.Snapshot) {
	var encoded = make(map[registry.Environment][]byte)

	h.deliver(ChannelHealth, func(c *client) []byte {
		if data, ok := encoded[c.environment]; ok {
			return data
		}
		data := encode(EventStatus, h.scoper.Scope(snapshot, c.environment))
		encoded[c.environment] = data
		return data
	})
}

func (h *Hub) HandleLog(event logs.Event) {
	var data = encode(EventLog, event)
	h.deliver(ChannelLogs, func(c *client) []byte {
		if !c.currentFilter().Allows(event) {
			return nil
		}
		return data
	})
}

func (h *Hub) HandleTailerError(err logs.TailerError) {
	var data = encode(EventTailerError, err)
	h.deliver(ChannelLogs, func(*client) []byte { return data })
}

// Count returns the number of subscribers of a channel.
func (h *Hub) Count(channel Channel) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[channel])
}

// ServeHealth streams snapshots to a connection until it closes. The initial snapshot is sent right away.
func (h *Hub) ServeHealth(conn Conn, environment registry.Environment, initial monitor.Snapshot) {
	c := h.newClient(conn, ChannelHealth)
	c.environment = environment
	c.send <- encode(EventStatus, h.scoper.Scope(initial, environment))

	h.serve(c, func([]byte) {})
}

// ServeLogs streams log events to a connection until it closes and applies its subscribe and filter messages.
func (h *Hub) ServeLogs(conn Conn) {
	c := h.newClient(conn, ChannelLogs)
	c.filter = NewFilter(h.defaultServices)

	h.serve(c, func(raw []byte) {
		var message incoming
		if err := json.Unmarshal(raw, &message); err != nil {
			log.Debug().Err(err).Msgf("Ignoring malformed message of subscriber %s", c.id)
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		switch message.Event {
		case EventSubscribe:
			var services []string
			if err := json.Unmarshal(message.Data, &services); err != nil {
				log.Debug().Err(err).Msgf("Ignoring malformed subscription of subscriber %s", c.id)
				return
			}
			c.filter = c.filter.withServices(services)
			log.Debug().Msgf("Subscriber %s subscribed to %v", c.id, services)

		case EventFilter:
			var update filterUpdate
			if err := json.Unmarshal(message.Data, &update); err != nil {
				log.Debug().Err(err).Msgf("Ignoring malformed filter of subscriber %s", c.id)
				return
			}
			c.filter = c.filter.merge(update)
		}
	})
}

func (h *Hub) newClient(conn Conn, channel Channel) *client {
	return &client{
		id:      uuid.NewString(),
		conn:    conn,
		channel: channel,
		send:    make(chan []byte, h.sendBuffer),
	}
}

func (h *Hub) serve(c *client, onMessage func([]byte)) {
	h.register(c)

	var done = make(chan struct{})
	go func() {
		defer close(done)
		c.writePump()
	}()

	c.readPump(onMessage)
	h.unregister(c)
	<-done
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.channel][c] = true
	var count = len(h.clients[c.channel])
	h.mu.Unlock()

	metrics.SetSubscribers(string(c.channel), count)
	log.Info().Msgf("Subscriber %s connected to %s stream", c.id, c.channel)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.channel][c]
	if ok {
		delete(h.clients[c.channel], c)
		close(c.send)
	}
	var count = len(h.clients[c.channel])
	h.mu.Unlock()

	if ok {
		metrics.SetSubscribers(string(c.channel), count)
		log.Info().Msgf("Subscriber %s disconnected from %s stream", c.id, c.channel)
	}
}

// deliver sends the message built for each subscriber of a channel. A nil message skips the subscriber.
func (h *Hub) deliver(channel Channel, message func(c *client) []byte) {
	var dropped []*client

	h.mu.RLock()
	for c := range h.clients[channel] {
		data := message(c)
		if data == nil {
			continue
		}

		select {
		case c.send <- data:
		default:
			dropped = append(dropped, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range dropped {
		log.Warn().Msgf("Dropping slow subscriber %s of %s stream", c.id, channel)
		h.unregister(c)
		_ = c.conn.Close()
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(textMessage, data); err != nil {
			log.Debug().Err(err).Msgf("Could not write to subscriber %s", c.id)
			return
		}
	}
}

func (c *client) readPump(onMessage func([]byte)) {
	defer c.conn.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		onMessage(data)
	}
}

func encode(event string, data any) []byte {
	encoded, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Msgf("Could not encode %s event", event)
		return nil
	}
	return encoded
}

// Shutdown disconnects every subscriber.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	var conns []Conn
	for _, clients := range h.clients {
		for c := range clients {
			conns = append(conns, c.conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}
