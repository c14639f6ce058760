package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"voxelcraft.ai/knitting/internal/protocol"
)

func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name    = flag.String("name", "bot", "player name")
		locale  = flag.String("locale", "en", "client locale")
		twine   = flag.String("twine", "game:flaxtwine", "off-hand item to knit")
		count   = flag.Int("count", 4, "off-hand stack size")
		sitting = flag.Bool("sitting", false, "knit while floor sitting")
		release = flag.Duration("release_after", 0, "release the interaction early after this long (0 = hold)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      *name,
		Locale:          *locale,
		MaxQueue:        8,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	msgs := make(chan []byte, 16)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- msg
		}
	}()

	var releaseC <-chan time.Time
	for {
		select {
		case <-stop:
			return
		case <-releaseC:
			releaseC = nil
			logger.Printf("releasing early")
			_ = conn.WriteJSON(protocol.InteractMsg{Type: protocol.TypeInteract, ProtocolVersion: protocol.Version, Phase: protocol.PhaseRelease})
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeWelcome:
				var w protocol.WelcomeMsg
				if err := json.Unmarshal(msg, &w); err != nil {
					continue
				}
				logger.Printf("WELCOME player_id=%s tick_rate=%d mods=%v rules=%d digest=%s", w.PlayerID, w.TickRateHz, w.Mods, w.Conversions.Count, w.Conversions.Digest)
				for _, h := range w.Help {
					logger.Printf("help: %s (%s) e.g. %v", h.Action, h.MouseButton, h.Examples)
				}
				equip := protocol.EquipMsg{
					Type:            protocol.TypeEquip,
					ProtocolVersion: protocol.Version,
					OffHand:         protocol.ItemStack{Item: *twine, Count: *count},
				}
				if err := conn.WriteJSON(equip); err != nil {
					logger.Fatalf("send EQUIP: %v", err)
				}
				start := protocol.InteractMsg{
					Type:            protocol.TypeInteract,
					ProtocolVersion: protocol.Version,
					Phase:           protocol.PhaseStart,
					Sitting:         *sitting,
				}
				if err := conn.WriteJSON(start); err != nil {
					logger.Fatalf("send INTERACT: %v", err)
				}
				if *release > 0 {
					releaseC = time.After(*release)
				}

			case protocol.TypeEvent:
				var ev protocol.EventMsg
				if err := json.Unmarshal(msg, &ev); err != nil {
					continue
				}
				done := false
				for _, e := range ev.Events {
					logger.Printf("tick=%d event=%v", ev.Tick, e)
					switch e["type"] {
					case protocol.EventSessionEnd, protocol.EventToast, protocol.EventDefault:
						done = true
					}
				}
				if done {
					return
				}

			case protocol.TypeError:
				var e protocol.ErrorMsg
				if err := json.Unmarshal(msg, &e); err != nil {
					continue
				}
				logger.Printf("ERROR %s: %s", e.Code, e.Message)
			}
		}
	}
}
