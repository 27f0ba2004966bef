package ipc

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBuffer 每个客户端的发送缓冲（条）
const DefaultBuffer = 256

// Typed 带类型的消息，按类型记录最后一条用于重放
type Typed interface {
	MessageType() string
}

// Client 一个订阅者，Messages 在 Leave 或 Hub 关闭后关闭
type Client struct {
	send    chan []byte
	dropped int
}

func (c *Client) Messages() <-chan []byte {
	return c.send
}

// Hub 把消息广播给所有已连接的客户端。
// 新客户端加入时先收到每种重放类型的最后一条消息。
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	replay  map[string][]byte
	order   []string // 重放顺序
	closed  bool
	logger  zerolog.Logger
}

// NewHub replayTypes 指定哪些消息类型需要重放，按给定顺序发送
func NewHub(name string, replayTypes ...string) *Hub {
	h := &Hub{
		clients: make(map[*Client]struct{}),
		replay:  make(map[string][]byte, len(replayTypes)),
		order:   replayTypes,
		logger:  log.With().Str("component", "hub").Str("hub", name).Logger(),
	}
	for _, t := range replayTypes {
		h.replay[t] = nil
	}
	return h
}

// Join 注册客户端并排队重放消息
func (h *Hub) Join() *Client {
	c := &Client{send: make(chan []byte, DefaultBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c.send)
		return c
	}
	for _, t := range h.order {
		if data := h.replay[t]; data != nil {
			c.send <- data
		}
	}
	h.clients[c] = struct{}{}
	h.logger.Info().Int("clients", len(h.clients)).Msg("Client connected")
	return c
}

// Leave 移除客户端，返回剩余客户端数
func (h *Hub) Leave(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Info().Int("clients", len(h.clients)).Int("dropped", c.dropped).Msg("Client disconnected")
	}
	return len(h.clients)
}

// Publish 编码为 JSON 后广播
func (h *Hub) Publish(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode message")
		return
	}
	kind := ""
	if t, ok := msg.(Typed); ok {
		kind = t.MessageType()
	}
	h.Broadcast(kind, data)
}

// Broadcast 缓冲区满的客户端丢弃这条消息，不阻塞其他客户端
func (h *Hub) Broadcast(kind string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if _, ok := h.replay[kind]; ok {
		h.replay[kind] = data
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			c.dropped++
			if c.dropped == 1 {
				h.logger.Warn().Str("type", kind).Msg("Client too slow, dropping messages")
			}
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close 断开所有客户端
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}
