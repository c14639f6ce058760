package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voxelcraft.ai/knitting/internal/lang"
	"voxelcraft.ai/knitting/internal/protocol"
	"voxelcraft.ai/knitting/internal/sim/catalogs"
	"voxelcraft.ai/knitting/internal/sim/knitting"
	"voxelcraft.ai/knitting/internal/sim/tuning"
	"voxelcraft.ai/knitting/internal/sim/world"
)

// NeedlesItem is the tool every joining player holds in the main hand.
var NeedlesItem = knitting.Stack{ID: catalogs.MustAsset("knitting:knittingneedles"), Kind: catalogs.KindItem, Count: 1}

type Config struct {
	World    *world.World
	Catalogs *catalogs.Catalogs
	Tuning   tuning.Tuning
	Recorder knitting.Recorder
	Logger   *log.Logger
}

type Server struct {
	world    *world.World
	cats     *catalogs.Catalogs
	tune     tuning.Tuning
	recorder knitting.Recorder
	log      *log.Logger

	validator *protocol.Validator
	upgrader  websocket.Upgrader
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.World == nil || cfg.Catalogs == nil || cfg.Catalogs.Conversions == nil {
		return nil, fmt.Errorf("ws: world and catalogs are required")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("ws: %w", err)
	}
	v, err := protocol.NewValidator()
	if err != nil {
		return nil, err
	}
	return &Server{
		world:     cfg.World,
		cats:      cfg.Catalogs,
		tune:      cfg.Tuning,
		recorder:  cfg.Recorder,
		log:       cfg.Logger,
		validator: v,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}, nil
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess, err := s.handshake(conn)
		if err != nil {
			s.logf("handshake: %v", err)
			return
		}
		defer s.world.Leave(sess.player.ID())

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-sess.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader goroutine; the session loop below owns all player state.
		inbox := make(chan []byte, 16)
		go func() {
			defer close(inbox)
			for {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
				_, msg, err := conn.ReadMessage()
				if err != nil {
					cancel()
					return
				}
				select {
				case inbox <- msg:
				case <-ctx.Done():
					return
				}
			}
		}()

		sess.run(ctx, inbox)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (*session, error) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil, errors.New("expected HELLO")
	}
	if base.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoVersion, "unsupported protocol_version"))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil, fmt.Errorf("bad protocol_version %q", base.ProtocolVersion)
	}
	if err := s.validator.Validate(protocol.TypeHello, msg); err != nil {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, err.Error()))
		return nil, err
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, err
	}

	tr, err := lang.New(hello.Locale)
	if err != nil {
		tr, err = lang.New(lang.DefaultLocale)
		if err != nil {
			return nil, err
		}
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 32
	}
	if maxQ > 256 {
		maxQ = 256
	}

	sess, err := s.newSession(strings.TrimSpace(hello.PlayerName), tr, make(chan []byte, maxQ))
	if err != nil {
		return nil, err
	}

	if err := writeJSON(conn, sess.welcome()); err != nil {
		s.world.Leave(sess.player.ID())
		return nil, err
	}
	s.logf("join player=%s name=%s locale=%s", sess.player.ID(), sess.player.Name(), tr.Locale())
	return sess, nil
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
