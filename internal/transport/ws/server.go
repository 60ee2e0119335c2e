package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/world"
)

const (
	outQueue      = 32
	helloTimeout  = 5 * time.Second
	readTimeout   = 60 * time.Second
	writeTimeout  = 5 * time.Second
	maxFrameBytes = 64 * 1024
)

// Server bridges player websocket sessions to the world loop.
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
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type session struct {
	playerID  string
	sessionID string
	out       chan []byte
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxFrameBytes)

		sess, ok := s.handshake(r.Context(), conn)
		if !ok {
			return
		}
		s.log.Printf("session %s attached for %s", sess.sessionID, sess.playerID)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-sess.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			s.handleFrame(sess, msg)
		}
		cancel()

		s.world.Leave() <- sess.sessionID
		s.log.Printf("session %s closed", sess.sessionID)
	}
}

// handleFrame decodes one INTENT frame and queues it. Malformed frames are
// answered on the session and never reach the loop.
func (s *Server) handleFrame(sess session, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeIntent {
		s.reject(sess, protocol.IntentMsg{}, protocol.ErrProtoBadRequest, "expected INTENT")
		return
	}
	var in protocol.IntentMsg
	if err := json.Unmarshal(msg, &in); err != nil {
		s.reject(sess, in, protocol.ErrProtoBadRequest, "malformed intent")
		return
	}
	if in.ProtocolVersion != "" && in.ProtocolVersion != protocol.Version {
		s.reject(sess, in, protocol.ErrProtoBadRequest, "bad protocol_version")
		return
	}
	if err := protocol.Validate(protocol.TypeIntent, msg); err != nil {
		s.reject(sess, in, protocol.ErrProtoBadRequest, err.Error())
		return
	}
	if !s.world.Submit(world.IntentEnvelope{PlayerID: sess.playerID, SessionID: sess.sessionID, Intent: in}) {
		s.reject(sess, in, protocol.ErrWorldBusy, "inbox full")
	}
}

func (s *Server) reject(sess session, in protocol.IntentMsg, code, message string) {
	b, err := json.Marshal(protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		Ref:             in.Ref,
		Kind:            in.Kind,
		OK:              false,
		Code:            code,
		Message:         message,
	})
	if err != nil {
		return
	}
	select {
	case sess.out <- b:
	default:
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (session, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return session{}, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return session{}, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "malformed HELLO")
		return session{}, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return session{}, false
	}

	out := make(chan []byte, outQueue)
	var resp world.JoinResponse
	if token := strings.TrimSpace(hello.Token); token != "" {
		respCh := make(chan world.JoinResponse, 1)
		if !send(ctx, s.world.Attach(), world.AttachRequest{ResumeToken: token, Out: out, Resp: respCh}) {
			return session{}, false
		}
		if resp, err = recv(ctx, respCh); err != nil {
			return session{}, false
		}
		if resp.Err != "" {
			s.log.Printf("resume rejected: %s", resp.Err)
		}
	}
	if resp.Welcome.PlayerID == "" {
		respCh := make(chan world.JoinResponse, 1)
		if !send(ctx, s.world.Join(), world.JoinRequest{Name: hello.Name, Out: out, Resp: respCh}) {
			return session{}, false
		}
		if resp, err = recv(ctx, respCh); err != nil {
			return session{}, false
		}
	}

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Leave() <- resp.Welcome.SessionID
		return session{}, false
	}
	for _, c := range resp.Catalogs {
		if err := writeJSON(conn, c); err != nil {
			s.world.Leave() <- resp.Welcome.SessionID
			return session{}, false
		}
	}
	return session{playerID: resp.Welcome.PlayerID, sessionID: resp.Welcome.SessionID, out: out}, true
}

func send[T any](ctx context.Context, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

func recv(ctx context.Context, ch <-chan world.JoinResponse) (world.JoinResponse, error) {
	select {
	case r := <-ch:
		return r, nil
	case <-ctx.Done():
		return world.JoinResponse{}, ctx.Err()
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
