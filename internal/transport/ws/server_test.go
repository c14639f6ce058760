package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelcraft.ai/knitting/internal/protocol"
	"voxelcraft.ai/knitting/internal/sim/catalogs"
	"voxelcraft.ai/knitting/internal/sim/knitting"
	"voxelcraft.ai/knitting/internal/sim/tuning"
	"voxelcraft.ai/knitting/internal/sim/world"
)

type chanRecorder chan knitting.Conversion

func (c chanRecorder) RecordConversion(conv knitting.Conversion) { c <- conv }

func fastTuning() tuning.Tuning {
	tune := tuning.Defaults()
	tune.TickRateHz = 100
	tune.SecondsPerCloth = 0.2
	tune.SecondsPerClothSitting = 0.1
	return tune
}

func startServer(t *testing.T, rec knitting.Recorder) (*world.World, string) {
	t.Helper()
	tune := fastTuning()
	w := world.New(tune, nil)
	mods := catalogs.NewModSet(catalogs.ModWool)
	srv, err := NewServer(Config{
		World:    w,
		Catalogs: &catalogs.Catalogs{Mods: mods, Conversions: catalogs.Populate(mods)},
		Tuning:   tune,
		Recorder: rec,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return w, "ws" + strings.TrimPrefix(hs.URL, "http")
}

func dial(t *testing.T, url string) (*websocket.Conn, protocol.WelcomeMsg) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, PlayerName: "knitter"})
	var welcome protocol.WelcomeMsg
	readInto(t, conn, &welcome)
	return conn, welcome
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readInto(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
}

// collectEvents reads EVENT messages until one carries an event of type
// until, returning every event seen.
func collectEvents(t *testing.T, conn *websocket.Conn, until string) []protocol.Event {
	t.Helper()
	var all []protocol.Event
	for i := 0; i < 100; i++ {
		var m protocol.EventMsg
		readInto(t, conn, &m)
		if m.Type != protocol.TypeEvent {
			t.Fatalf("unexpected message %+v", m)
		}
		all = append(all, m.Events...)
		for _, e := range m.Events {
			if e["type"] == until {
				return all
			}
		}
	}
	t.Fatalf("no %s event", until)
	return nil
}

func eventTypes(events []protocol.Event) map[string]int {
	out := map[string]int{}
	for _, e := range events {
		out[e["type"].(string)]++
	}
	return out
}

func TestServer_KnitOverWebsocket(t *testing.T) {
	rec := make(chanRecorder, 4)
	_, url := startServer(t, rec)
	conn, welcome := dial(t, url)

	if welcome.PlayerID == "" || welcome.Conversions.Count != 18 || len(welcome.Help) != 1 || len(welcome.Help[0].Examples) != 3 {
		t.Fatalf("unexpected welcome %+v", welcome)
	}
	if welcome.Help[0].Action != "Knit" {
		t.Fatalf("help action not localized: %q", welcome.Help[0].Action)
	}

	send(t, conn, protocol.EquipMsg{Type: protocol.TypeEquip, ProtocolVersion: protocol.Version, OffHand: protocol.ItemStack{Item: "wool:twine-wool-red", Count: 6}})
	collectEvents(t, conn, protocol.EventInventory)

	send(t, conn, protocol.InteractMsg{Type: protocol.TypeInteract, ProtocolVersion: protocol.Version, Phase: protocol.PhaseStart, Sitting: true})
	events := collectEvents(t, conn, protocol.EventSessionEnd)

	types := eventTypes(events)
	if types[protocol.EventSoundStart] != 1 || types[protocol.EventSoundStop] != 1 || types[protocol.EventKnitted] != 1 {
		t.Fatalf("unexpected events %v", types)
	}
	for _, e := range events {
		switch e["type"] {
		case protocol.EventSessionEnd:
			if e["outcome"] != string(knitting.OutcomeCompleted) {
				t.Fatalf("unexpected outcome %v", e)
			}
		case protocol.EventKnitted:
			if e["output"] != "wool:wool-red" || e["consumed"].(float64) != 4 {
				t.Fatalf("unexpected knitted event %v", e)
			}
		}
	}

	select {
	case c := <-rec:
		if c.Output.ID.String() != "wool:wool-red" || c.Dropped {
			t.Fatalf("unexpected recorded conversion %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("conversion not recorded")
	}
}

func TestServer_NotEnoughTwineToasts(t *testing.T) {
	_, url := startServer(t, nil)
	conn, _ := dial(t, url)

	send(t, conn, protocol.EquipMsg{Type: protocol.TypeEquip, ProtocolVersion: protocol.Version, OffHand: protocol.ItemStack{Item: "game:flaxtwine", Count: 3}})
	collectEvents(t, conn, protocol.EventInventory)

	send(t, conn, protocol.InteractMsg{Type: protocol.TypeInteract, ProtocolVersion: protocol.Version, Phase: protocol.PhaseStart})
	events := collectEvents(t, conn, protocol.EventToast)
	for _, e := range events {
		if e["type"] == protocol.EventToast && e["code"] != "notwine" {
			t.Fatalf("unexpected toast %v", e)
		}
		if e["type"] == protocol.EventSoundStart {
			t.Fatalf("sound must not start without twine")
		}
	}
}

func TestServer_RejectsInvalidMessages(t *testing.T) {
	_, url := startServer(t, nil)
	conn, _ := dial(t, url)

	send(t, conn, map[string]any{"type": protocol.TypeInteract, "protocol_version": protocol.Version, "phase": "HOLD"})
	var e protocol.ErrorMsg
	readInto(t, conn, &e)
	if e.Type != protocol.TypeError || e.Code != protocol.ErrBadRequest {
		t.Fatalf("unexpected error %+v", e)
	}

	send(t, conn, map[string]any{"type": protocol.TypeInteract, "protocol_version": "0.1", "phase": "START"})
	readInto(t, conn, &e)
	if e.Code != protocol.ErrProtoVersion {
		t.Fatalf("unexpected error %+v", e)
	}
}

func TestServer_DisconnectLeavesWorld(t *testing.T) {
	w, url := startServer(t, nil)
	conn, _ := dial(t, url)
	if w.PlayerCount() != 1 {
		t.Fatalf("expected one player")
	}
	_ = conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for w.PlayerCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("player not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
