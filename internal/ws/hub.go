// Package ws serves a live preview of the gauge to browsers: PNG frames on
// /ws, diagnostics on /diag and a JSON health probe on /health.
package ws

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	diag "github.com/coreman2200/turn-coordinator/internal/diagnostics"
	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

const writeWait = 200 * time.Millisecond

// Hub is a sprite.Sink that fans frames out to websocket clients. Frames
// presented while nobody is watching are counted but never encoded.
type Hub struct {
	// Scale enlarges each frame by an integer factor before encoding.
	Scale int
	// Throttle is the minimum gap between frames sent to clients.
	Throttle time.Duration

	mu          sync.RWMutex
	frameID     uint64
	startTime   time.Time
	lastFrame   time.Time
	lastEmit    time.Time
	fps         float64
	width       int
	height      int
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool

	frameMu sync.Mutex
	diagMu  sync.Mutex
	up      websocket.Upgrader
}

func NewHub(scale int) *Hub {
	if scale < 1 {
		scale = 1
	}
	return &Hub{
		Scale:       scale,
		Throttle:    50 * time.Millisecond, // ~20 FPS to browsers
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		up:          websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Routes registers the hub's handlers on mux.
func (h *Hub) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleFramesWS)
	mux.HandleFunc("/diag", h.HandleDiagWS)
	mux.HandleFunc("/health", h.HandleHealth)
}

type frameMsg struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	PNG     []byte `json:"png"`
}

func (h *Hub) Present(x, y, w, ht int, pix []sprite.Pixel) error {
	now := time.Now()
	h.mu.Lock()
	h.frameID++
	if !h.lastFrame.IsZero() {
		if dt := now.Sub(h.lastFrame).Seconds(); dt > 0 {
			h.fps = 0.9*h.fps + 0.1/dt
		}
	}
	h.lastFrame = now
	h.width, h.height = w, ht
	idle := len(h.clients) == 0
	throttled := h.lastEmit.Add(h.Throttle).After(now)
	if !idle && !throttled {
		h.lastEmit = now
	}
	id := h.frameID
	h.mu.Unlock()

	if idle || throttled {
		return nil
	}
	b, err := h.encode(sprite.Frame{Rect: image.Rect(0, 0, w, ht), Pix: pix})
	if err != nil {
		return err
	}
	msg, err := json.Marshal(frameMsg{
		T:       now.UnixNano(),
		FrameID: id,
		Width:   w * h.Scale,
		Height:  ht * h.Scale,
		PNG:     b,
	})
	if err != nil {
		return err
	}
	h.broadcast(msg)
	return nil
}

func (h *Hub) encode(f sprite.Frame) ([]byte, error) {
	r := f.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx()*h.Scale, r.Dy()*h.Scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), f, r, draw.Src, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *Hub) broadcast(msg []byte) {
	h.frameMu.Lock()
	defer h.frameMu.Unlock()
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

// Report pushes d to every /diag client.
func (h *Hub) Report(d diag.Diagnostic) {
	b, err := json.Marshal(d)
	if err != nil {
		log.Debug().Err(err).Str("code", d.Code).Msg("encode diagnostic")
		return
	}
	h.diagMu.Lock()
	defer h.diagMu.Unlock()
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.diagClients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}

func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.clients)
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.diagClients)
}

// serve upgrades the request and keeps conn in set until the client goes
// away. Clients never send anything we act on.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, set map[*websocket.Conn]bool) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	set[conn] = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(set, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	resp := map[string]any{
		"frame_id":     h.frameID,
		"uptime_s":     time.Since(h.startTime).Seconds(),
		"clients":      len(h.clients),
		"diag_clients": len(h.diagClients),
		"fps":          h.fps,
		"width":        h.width,
		"height":       h.height,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Clients reports connected frame and diagnostic clients.
func (h *Hub) Clients() (frames, diags int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients), len(h.diagClients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.Close()
	}
	for c := range h.diagClients {
		c.Close()
	}
}
