package ws

import (
	"context"
	"encoding/json"
	"time"

	"voxelcraft.ai/knitting/internal/lang"
	"voxelcraft.ai/knitting/internal/protocol"
	"voxelcraft.ai/knitting/internal/sim/catalogs"
	"voxelcraft.ai/knitting/internal/sim/knitting"
	"voxelcraft.ai/knitting/internal/sim/world"
)

// session is one connected player. Both execution contexts run here: the
// client mirror produces presentation events and the server instance applies
// the conversion. Only the session loop touches the player.
type session struct {
	srv    *Server
	player *world.Player
	lang   *lang.Translator
	sink   *eventSink
	out    chan []byte

	client *knitting.Needles
	server *knitting.Needles
	driver *knitting.Driver

	wasActive bool
}

func (s *Server) newSession(name string, tr *lang.Translator, out chan []byte) (*session, error) {
	sink := &eventSink{}
	p := s.world.Join(name, NeedlesItem)
	p.OnAnimation = sink.animation

	sess := &session{srv: s, player: p, lang: tr, sink: sink, out: out}

	client, err := knitting.New(s.cats.Conversions, s.tune, knitting.Host{
		Side:   knitting.SideClient,
		Sounds: sink,
		Notify: sink,
		Lang:   tr,
	})
	if err != nil {
		s.world.Leave(p.ID())
		return nil, err
	}
	server, err := knitting.New(s.cats.Conversions, s.tune, knitting.Host{
		Side:     knitting.SideServer,
		World:    s.world,
		Lang:     tr,
		Recorder: &resultRecorder{sink: sink, lang: tr, shared: s.recorder},
		Fallback: sess.fallback,
		Logger:   s.log,
	})
	if err != nil {
		s.world.Leave(p.ID())
		return nil, err
	}
	sess.client = client
	sess.server = server
	sess.driver = knitting.NewDriver(s.tune.TickSeconds(), client, server)
	return sess, nil
}

func (s *session) welcome() protocol.WelcomeMsg {
	help := s.server.HeldInteractionHelp()
	entries := make([]protocol.HelpEntry, 0, len(help))
	for _, h := range help {
		ex := make([]string, 0, len(h.Itemstacks))
		for _, st := range h.Itemstacks {
			ex = append(ex, st.ID.String())
		}
		entries = append(entries, protocol.HelpEntry{
			ActionLangCode: h.ActionLangCode,
			Action:         s.lang.Get(h.ActionLangCode),
			MouseButton:    string(h.MouseButton),
			Examples:       ex,
		})
	}
	table := s.srv.cats.Conversions
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        s.player.ID(),
		TickRateHz:      s.srv.tune.TickRateHz,
		Mods:            s.srv.cats.Mods.Sorted(),
		Conversions:     protocol.Conversions{Digest: table.Digest(), Count: table.Len()},
		Help:            entries,
	}
}

func (s *session) run(ctx context.Context, inbox <-chan []byte) {
	ticker := time.NewTicker(time.Second / time.Duration(s.srv.tune.TickRateHz))
	defer ticker.Stop()
	defer s.driver.Cancel(knitting.CancelDisconnected)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbox:
			if !ok {
				return
			}
			s.handle(msg)
		case <-ticker.C:
			s.driver.Tick()
		}
		s.flush()
	}
}

func (s *session) handle(msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.sendError(protocol.ErrProtoBadRequest, "malformed json")
		return
	}
	if base.ProtocolVersion != protocol.Version {
		s.sendError(protocol.ErrProtoVersion, "unsupported protocol_version")
		return
	}
	switch base.Type {
	case protocol.TypeEquip, protocol.TypeInteract:
	default:
		s.sendError(protocol.ErrProtoBadRequest, "unexpected message type "+base.Type)
		return
	}
	if err := s.srv.validator.Validate(base.Type, msg); err != nil {
		s.sendError(protocol.ErrBadRequest, err.Error())
		return
	}

	switch base.Type {
	case protocol.TypeEquip:
		var m protocol.EquipMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.sendError(protocol.ErrBadRequest, err.Error())
			return
		}
		s.equip(m)
	case protocol.TypeInteract:
		var m protocol.InteractMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.sendError(protocol.ErrBadRequest, err.Error())
			return
		}
		s.interact(m)
	}
}

func (s *session) equip(m protocol.EquipMsg) {
	if m.OffHand.Count == 0 {
		s.player.OffHand().Put(knitting.Stack{})
		s.player.OffHand().MarkDirty()
		return
	}
	id, err := catalogs.ParseAssetLocation(m.OffHand.Item)
	if err != nil {
		s.sendError(protocol.ErrBadRequest, err.Error())
		return
	}
	if m.OffHand.Count > s.srv.tune.MaxStack {
		s.sendError(protocol.ErrBadRequest, "count exceeds max stack")
		return
	}
	s.player.OffHand().Put(knitting.Stack{ID: id, Kind: catalogs.KindItem, Count: m.OffHand.Count})
	s.player.OffHand().MarkDirty()
}

func (s *session) interact(m protocol.InteractMsg) {
	switch m.Phase {
	case protocol.PhaseStart:
		if s.player.MainHand().Empty() {
			s.sendError(protocol.ErrInvalidTarget, "no knitting needles in hand")
			return
		}
		s.player.SetControls(world.Controls{Store: m.Store, FloorSitting: m.Sitting})
		s.driver.Begin(s.player, s.player.MainHand())
	case protocol.PhaseRelease:
		s.driver.Release()
	case protocol.PhaseCancel:
		reason := knitting.CancelReleased
		if m.Reason != "" {
			reason = knitting.CancelReason(m.Reason)
		}
		s.driver.Cancel(reason)
	}
}

// fallback stands in for the host's ground-storage interaction.
func (s *session) fallback(actor knitting.Actor) knitting.Handling {
	s.sink.add(protocol.Event{"type": protocol.EventDefault, "action": "GROUND_STORAGE"})
	return knitting.HandlingDefault
}

func (s *session) flush() {
	active := s.driver.Active()
	if s.wasActive && !active {
		outcome := s.server.LastOutcome()
		s.sink.add(protocol.Event{
			"type":           protocol.EventSessionEnd,
			"outcome":        string(outcome),
			"client_outcome": string(s.client.LastOutcome()),
		})
	}
	s.wasActive = active
	if s.player.TakeDirty() {
		s.sink.add(s.inventoryEvent())
	}

	events := s.sink.drain()
	if len(events) == 0 {
		return
	}
	s.send(protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Tick:            s.srv.world.CurrentTick(),
		Events:          events,
	})
}

func (s *session) inventoryEvent() protocol.Event {
	off := protocol.ItemStack{}
	if st, ok := s.player.OffHand().Stack(); ok {
		off = protocol.ItemStack{Item: st.ID.String(), Count: st.Count}
	}
	inv := []protocol.ItemStack{}
	for _, st := range s.player.Inventory().Stacks() {
		inv = append(inv, protocol.ItemStack{Item: st.ID.String(), Count: st.Count})
	}
	return protocol.Event{
		"type":               protocol.EventInventory,
		"off_hand":           off,
		"needles_durability": s.player.MainHand().Durability(),
		"inventory":          inv,
	}
}

func (s *session) sendError(code, msg string) {
	s.send(protocol.NewError(code, msg))
}

func (s *session) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.srv.logf("marshal: %v", err)
		return
	}
	select {
	case s.out <- b:
	default:
		s.srv.logf("player=%s outbound queue full; dropping message", s.player.ID())
	}
}
