/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Seednode/imposter/internal/game"
)

const (
	maxMessageSize = 4096
	sendBuffer     = 64
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	writeWait      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ClientMessage is any inbound action. Only the fields for Type are read.
type ClientMessage struct {
	Type           string         `json:"type"`
	Name           string         `json:"name,omitempty"`
	RoomCode       string         `json:"roomCode,omitempty"`
	Settings       *game.Settings `json:"settings,omitempty"`
	Text           string         `json:"text,omitempty"`
	TargetPlayerID string         `json:"targetPlayerId,omitempty"`
}

// Client is one websocket connection. The player id lives as long as the
// connection does.
type Client struct {
	conn     *websocket.Conn
	send     chan any
	done     chan struct{}
	playerID string
	limiter  *rate.Limiter

	// room is only touched by the read loop.
	room string

	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, limiter *rate.Limiter) *Client {
	return &Client{
		conn:     conn,
		send:     make(chan any, sendBuffer),
		done:     make(chan struct{}),
		playerID: uuid.NewString(),
		limiter:  limiter,
	}
}

// enqueue hands msg to the write loop without blocking. A client that
// cannot keep up is disconnected.
func (c *Client) enqueue(msg any) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		c.close()
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Switchboard is the game's Notifier: it routes messages to connected
// clients by player id.
type Switchboard struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     zerolog.Logger
}

func newSwitchboard(log zerolog.Logger) *Switchboard {
	return &Switchboard{
		clients: make(map[string]*Client),
		log:     log,
	}
}

func (sb *Switchboard) add(c *Client) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.clients[c.playerID] = c
}

func (sb *Switchboard) remove(c *Client) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.clients[c.playerID] == c {
		delete(sb.clients, c.playerID)
	}
}

func (sb *Switchboard) Len() int {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return len(sb.clients)
}

func (sb *Switchboard) Send(playerID string, msg any) {
	sb.mu.RLock()
	c, ok := sb.clients[playerID]
	sb.mu.RUnlock()

	if !ok {
		return
	}

	if !c.enqueue(msg) {
		sb.log.Warn().Str("player", playerID).Msg("dropped message for slow or closed client")
	}
}

func serveSocket(cfg *Config, reg *game.Registry, sb *Switchboard) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "SOCKET: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		c := newClient(conn, rate.NewLimiter(rate.Limit(cfg.messageRate), cfg.messageBurst))
		sb.add(c)

		logf(cfg, "SOCKET: %s connected as %s", realIP(r), c.playerID)

		go c.writePump()
		c.readPump(cfg, reg)

		if c.room != "" {
			reg.RemovePlayer(c.room, c.playerID)
		}
		sb.remove(c)
		c.close()

		logf(cfg, "SOCKET: %s (%s) disconnected", realIP(r), c.playerID)
	}
}

func (c *Client) readPump(cfg *Config, reg *game.Registry) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		if !c.limiter.Allow() {
			c.enqueue(game.NewErrorMessage(errRateLimited))
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(game.NewErrorMessage(errMalformedMessage))
			continue
		}

		err = c.dispatch(reg, msg)
		switch {
		case err == nil:
		case errors.Is(err, game.ErrRoomClosed), errors.Is(err, game.ErrNotInRoom):
			logf(cfg, "SOCKET: Dropped %s from %s: %v", msg.Type, c.playerID, err)
		default:
			c.enqueue(game.NewErrorMessage(err))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// dispatch resolves the caller's room and applies one action to it.
func (c *Client) dispatch(reg *game.Registry, msg ClientMessage) error {
	switch msg.Type {
	case "createRoom":
		if c.room != "" {
			return game.ErrAlreadyInRoom
		}

		room, err := reg.CreateRoom(c.playerID, msg.Name)
		if err != nil {
			return err
		}
		c.room = room.Code()

		return nil
	case "joinRoom":
		if c.room != "" {
			return game.ErrAlreadyInRoom
		}

		room, err := reg.JoinRoom(msg.RoomCode, c.playerID, msg.Name)
		if err != nil {
			return err
		}
		c.room = room.Code()

		return nil
	case "leaveRoom":
		if c.room == "" {
			return game.ErrNotInRoom
		}

		reg.RemovePlayer(c.room, c.playerID)
		c.room = ""

		return nil
	}

	if c.room == "" {
		return game.ErrNotInRoom
	}

	room, ok := reg.Room(c.room)
	if !ok {
		c.room = ""
		return game.ErrRoomClosed
	}

	switch msg.Type {
	case "updateSettings":
		if msg.Settings == nil {
			return errMissingSettings
		}
		return room.UpdateSettings(c.playerID, *msg.Settings)
	case "startGame":
		return room.StartGame(c.playerID, msg.Settings)
	case "submitAnswer":
		return room.SubmitAnswer(c.playerID, msg.Text)
	case "submitVote":
		return room.SubmitVote(c.playerID, msg.TargetPlayerID)
	case "sendChatMessage":
		return room.SendChat(c.playerID, msg.Text)
	case "resetGame":
		return room.Reset(c.playerID)
	default:
		return errUnknownAction
	}
}
