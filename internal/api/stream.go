package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/guttosm/cryptopulse/internal/domain/dto"
	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/guttosm/cryptopulse/internal/logger"
	"github.com/guttosm/cryptopulse/internal/refresh"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	readLimit    = 512

	defaultPollEvery = 15 * time.Second
)

// StateSource publishes derivation states. *refresh.Scheduler and
// *StatePoller implement it.
type StateSource interface {
	Subscribe() (<-chan models.DerivationState, func())
}

// StreamHandler pushes a StreamEvent to websocket clients after every
// refresh attempt.
type StreamHandler struct {
	src      StateSource
	upgrader websocket.Upgrader
	ping     time.Duration
}

func NewStreamHandler(src StateSource) *StreamHandler {
	return &StreamHandler{
		src: src,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is read-only and unauthenticated.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ping: pingInterval,
	}
}

// Stream godoc
// @Summary      Refresh notifications
// @Description  Websocket; one JSON StreamEvent per derivation refresh attempt
// @Tags         dashboard
// @Success      101  {object}  dto.StreamEvent
// @Router       /api/v1/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.L().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.src.Subscribe()
	defer unsubscribe()

	// The client sends nothing but control frames; reading is what
	// processes pongs and notices a closed connection.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(readLimit)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()

	logger.L().Debug().Str("client_ip", c.ClientIP()).Msg("stream client connected")
	for {
		select {
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		case st, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(dto.StreamEvent{Type: "refresh", State: st}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// StatePoller turns periodic reads of a refresh.Reader into a state
// stream, for dashboards served apart from the scheduler.
type StatePoller struct {
	reader refresh.Reader
	every  time.Duration

	mu   sync.Mutex
	subs map[chan models.DerivationState]struct{}
	last map[string]string
}

func NewStatePoller(reader refresh.Reader, every time.Duration) *StatePoller {
	if every <= 0 {
		every = defaultPollEvery
	}
	return &StatePoller{
		reader: reader,
		every:  every,
		subs:   make(map[chan models.DerivationState]struct{}),
	}
}

// Run polls until ctx is done, then closes every subscription.
func (p *StatePoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.every)
	defer ticker.Stop()
	defer p.closeAll()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll emits the states that changed since the previous poll. The first
// poll only records a baseline.
func (p *StatePoller) poll(ctx context.Context) {
	states, err := p.reader.States(ctx)
	if err != nil {
		logger.L().Warn().Err(err).Msg("poll derivation states failed")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	first := p.last == nil
	if first {
		p.last = make(map[string]string, len(states))
	}
	for _, st := range states {
		fp := fingerprint(st)
		if p.last[st.Name] == fp {
			continue
		}
		p.last[st.Name] = fp
		if first {
			continue
		}
		for ch := range p.subs {
			select {
			case ch <- st:
			default:
			}
		}
	}
}

func (p *StatePoller) Subscribe() (<-chan models.DerivationState, func()) {
	ch := make(chan models.DerivationState, 8)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[ch]; ok {
			delete(p.subs, ch)
			close(ch)
		}
	}
}

func (p *StatePoller) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		delete(p.subs, ch)
		close(ch)
	}
}

func fingerprint(st models.DerivationState) string {
	var refreshed, attempted string
	if st.RefreshedAt != nil {
		refreshed = st.RefreshedAt.UTC().Format(time.RFC3339Nano)
	}
	if st.LastAttempt != nil {
		attempted = st.LastAttempt.UTC().Format(time.RFC3339Nano)
	}
	return refreshed + "|" + attempted + "|" + st.LastError
}
