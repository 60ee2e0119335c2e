// Package observer serves the loopback-only debug surface: control and dump
// endpoints under /debug/v1/ plus a read-only websocket stream.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"monsterworkshop.game/internal/observerproto"
	"monsterworkshop.game/internal/sim/world"
)

const requestTimeout = 5 * time.Second

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register mounts every debug route on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /debug/v1/pause", s.loopback(s.handlePause))
	mux.HandleFunc("POST /debug/v1/resume", s.loopback(s.handleResume))
	mux.HandleFunc("POST /debug/v1/step", s.loopback(s.handleStep))
	mux.HandleFunc("GET /debug/v1/zones/{id}", s.loopback(s.handleZone))
	mux.HandleFunc("GET /debug/v1/entities/{id}", s.loopback(s.handleEntity))
	mux.HandleFunc("GET /debug/v1/connections", s.loopback(s.handleConnections))
	mux.HandleFunc("GET /debug/v1/state", s.loopback(s.handleState))
	mux.HandleFunc("GET /debug/v1/metrics", s.loopback(s.handleMetrics))
	mux.HandleFunc("GET /debug/v1/observer/bootstrap", s.loopback(s.handleBootstrap))
	mux.HandleFunc("GET /debug/v1/observer/ws", s.loopback(s.handleStream))
}

func (s *Server) loopback(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func (s *Server) handlePause(rw http.ResponseWriter, r *http.Request) {
	s.call(rw, r, func(ctx context.Context) (any, error) { return s.world.Pause(ctx) })
}

func (s *Server) handleResume(rw http.ResponseWriter, r *http.Request) {
	s.call(rw, r, func(ctx context.Context) (any, error) { return s.world.Resume(ctx) })
}

func (s *Server) handleStep(rw http.ResponseWriter, r *http.Request) {
	s.call(rw, r, func(ctx context.Context) (any, error) { return s.world.Step(ctx) })
}

func (s *Server) handleZone(rw http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.call(rw, r, func(ctx context.Context) (any, error) { return s.world.DumpZone(ctx, id) })
}

func (s *Server) handleEntity(rw http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.call(rw, r, func(ctx context.Context) (any, error) { return s.world.DumpEntity(ctx, id) })
}

func (s *Server) handleConnections(rw http.ResponseWriter, r *http.Request) {
	s.call(rw, r, func(ctx context.Context) (any, error) { return s.world.Connections(ctx) })
}

func (s *Server) handleState(rw http.ResponseWriter, r *http.Request) {
	s.call(rw, r, func(ctx context.Context) (any, error) { return s.world.State(ctx) })
}

func (s *Server) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, s.world.Metrics())
}

func (s *Server) handleBootstrap(rw http.ResponseWriter, r *http.Request) {
	s.call(rw, r, func(ctx context.Context) (any, error) {
		st, err := s.world.State(ctx)
		if err != nil {
			return nil, err
		}
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			WorldID:         st.WorldID,
			Tick:            st.Tick,
			WorldParams:     observerproto.WorldParams{TickRateHz: s.world.TickRateHz()},
		}
		for _, z := range st.Zones {
			resp.Zones = append(resp.Zones, observerproto.ZoneInfo{ID: z.ZoneID, Entities: z.Entities, Monsters: z.Monsters})
		}
		return resp, nil
	})
}

func (s *Server) call(rw http.ResponseWriter, r *http.Request, fn func(context.Context) (any, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	v, err := fn(ctx)
	if err != nil {
		writeJSON(rw, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, world.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, world.ErrNotPaused):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleStream(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
		return
	}
	sub.Normalize()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subs := make(chan observerproto.SubscribeMsg, 1)
	go func() {
		defer cancel()
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var next observerproto.SubscribeMsg
			if err := json.Unmarshal(msg, &next); err != nil || next.Type != observerproto.TypeSubscribe {
				continue
			}
			next.Normalize()
			select {
			case subs <- next:
			default:
			}
		}
	}()

	ticker := time.NewTicker(time.Duration(sub.IntervalMS) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case next := <-subs:
			sub = next
			ticker.Reset(time.Duration(sub.IntervalMS) * time.Millisecond)
		case <-ticker.C:
			frame := s.tickFrame(ctx, sub)
			b, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}
}

func (s *Server) tickFrame(ctx context.Context, sub observerproto.SubscribeMsg) observerproto.TickMsg {
	m := s.world.Metrics()
	frame := observerproto.TickMsg{
		Type:            observerproto.TypeTick,
		ProtocolVersion: observerproto.Version,
		Tick:            m.Tick,
		Paused:          m.Paused,
		Sessions:        m.Sessions,
		Monsters:        m.Monsters,
		ActiveTasks:     m.ActiveTasks,
		StepMS:          m.StepMS,
	}
	if sub.ZoneID == "" {
		return frame
	}
	cctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	dump, err := s.world.DumpZone(cctx, sub.ZoneID)
	if err != nil {
		return frame
	}
	frame.Tick = dump.Tick
	frame.ZoneID = dump.ZoneID
	frame.Entities = dump.Entities
	return frame
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
