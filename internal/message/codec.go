package message

import (
	"errors"
	"fmt"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/net/packet"
	"github.com/buxx/civ/internal/space"
	"github.com/buxx/civ/internal/world"
)

var ErrUnknownTag = errors.New("unknown union tag")

// Union tags. Each level of the message tree is a tag:u32 followed by the
// variant payload.
const (
	tagClientNetwork uint32 = 0
	tagClientGame    uint32 = 1

	tagNetworkHello   uint32 = 0
	tagNetworkGoodbye uint32 = 1

	tagGameEstablishment uint32 = 0
	tagGameInGame        uint32 = 1

	tagEstablishmentTakePlace uint32 = 0

	tagInGameSetWindow uint32 = 0
	tagInGameUnit      uint32 = 1
	tagInGameCity      uint32 = 2

	tagUnitSettle     uint32 = 0
	tagUnitCancelTask uint32 = 1

	tagCitySetProduction   uint32 = 0
	tagCitySetExploitation uint32 = 1
)

const (
	tagServerEstablishment uint32 = 0
	tagServerInGame        uint32 = 1

	tagServerResume     uint32 = 0
	tagTakePlaceRefused uint32 = 1

	tagInGameState        uint32 = 0
	tagInGameNotification uint32 = 1

	tagStateSetGameFrame uint32 = 0
	tagStateSetWindow    uint32 = 1
	tagStateSetGameSlice uint32 = 2
	tagStateSetCity      uint32 = 3
	tagStateRemoveCity   uint32 = 4
	tagStateSetUnit      uint32 = 5
	tagStateRemoveUnit   uint32 = 6
	tagStateAddTask      uint32 = 7
	tagStateRemoveTask   uint32 = 8
)

// EncodeClient serializes a client message.
func EncodeClient(m ClientMessage) ([]byte, error) {
	w := packet.NewWriter()
	switch m := m.(type) {
	case Hello:
		w.WriteTag(tagClientNetwork)
		w.WriteTag(tagNetworkHello)
		w.WriteUUID(m.Client)
		w.WriteUUID(m.Player)
		writeResolution(w, m.Resolution)
	case Goodbye:
		w.WriteTag(tagClientNetwork)
		w.WriteTag(tagNetworkGoodbye)
	case TakePlace:
		w.WriteTag(tagClientGame)
		w.WriteTag(tagGameEstablishment)
		w.WriteTag(tagEstablishmentTakePlace)
		w.WriteU32(uint32(m.Flag))
		writeResolution(w, m.Resolution)
	case SetWindowRequest:
		w.WriteTag(tagClientGame)
		w.WriteTag(tagGameInGame)
		w.WriteTag(tagInGameSetWindow)
		writeWindow(w, m.Window)
	case UnitSettle:
		w.WriteTag(tagClientGame)
		w.WriteTag(tagGameInGame)
		w.WriteTag(tagInGameUnit)
		w.WriteUUID(m.Unit)
		w.WriteTag(tagUnitSettle)
		w.WriteString(m.CityName)
	case UnitCancelTask:
		w.WriteTag(tagClientGame)
		w.WriteTag(tagGameInGame)
		w.WriteTag(tagInGameUnit)
		w.WriteUUID(m.Unit)
		w.WriteTag(tagUnitCancelTask)
	case CitySetProduction:
		w.WriteTag(tagClientGame)
		w.WriteTag(tagGameInGame)
		w.WriteTag(tagInGameCity)
		w.WriteUUID(m.City)
		w.WriteTag(tagCitySetProduction)
		writeProduction(w, m.Production)
	case CitySetExploitation:
		w.WriteTag(tagClientGame)
		w.WriteTag(tagGameInGame)
		w.WriteTag(tagInGameCity)
		w.WriteUUID(m.City)
		w.WriteTag(tagCitySetExploitation)
		w.WriteU64(uint64(m.Exploitation.Tons))
	default:
		return nil, fmt.Errorf("encode client message %T: %w", m, ErrUnknownTag)
	}
	return w.Bytes(), nil
}

// DecodeClient parses a client message payload.
func DecodeClient(data []byte) (ClientMessage, error) {
	r := packet.NewReader(data)
	m := readClient(r)
	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("decode client message: %w", err)
	}
	return m, nil
}

func readClient(r *packet.Reader) ClientMessage {
	switch tag := r.ReadTag(); tag {
	case tagClientNetwork:
		switch tag := r.ReadTag(); tag {
		case tagNetworkHello:
			return Hello{
				Client:     game.ClientID(r.ReadUUID()),
				Player:     game.PlayerID(r.ReadUUID()),
				Resolution: readResolution(r),
			}
		case tagNetworkGoodbye:
			return Goodbye{}
		default:
			r.Failf("network tag %d: %w", tag, ErrUnknownTag)
		}
	case tagClientGame:
		switch tag := r.ReadTag(); tag {
		case tagGameEstablishment:
			if tag := r.ReadTag(); tag != tagEstablishmentTakePlace {
				r.Failf("establishment tag %d: %w", tag, ErrUnknownTag)
				return nil
			}
			return TakePlace{Flag: readFlag(r), Resolution: readResolution(r)}
		case tagGameInGame:
			return readInGame(r)
		default:
			r.Failf("game tag %d: %w", tag, ErrUnknownTag)
		}
	default:
		r.Failf("client tag %d: %w", tag, ErrUnknownTag)
	}
	return nil
}

func readInGame(r *packet.Reader) ClientMessage {
	switch tag := r.ReadTag(); tag {
	case tagInGameSetWindow:
		return SetWindowRequest{Window: readWindow(r)}
	case tagInGameUnit:
		id := game.UnitID(r.ReadUUID())
		switch tag := r.ReadTag(); tag {
		case tagUnitSettle:
			return UnitSettle{Unit: id, CityName: r.ReadString()}
		case tagUnitCancelTask:
			return UnitCancelTask{Unit: id}
		default:
			r.Failf("unit tag %d: %w", tag, ErrUnknownTag)
		}
	case tagInGameCity:
		id := game.CityID(r.ReadUUID())
		switch tag := r.ReadTag(); tag {
		case tagCitySetProduction:
			return CitySetProduction{City: id, Production: readProduction(r)}
		case tagCitySetExploitation:
			return CitySetExploitation{City: id, Exploitation: game.NewExploitation(game.Tons(r.ReadU64()))}
		default:
			r.Failf("city tag %d: %w", tag, ErrUnknownTag)
		}
	default:
		r.Failf("in game tag %d: %w", tag, ErrUnknownTag)
	}
	return nil
}

// EncodeServer serializes a server message.
func EncodeServer(m ServerMessage) ([]byte, error) {
	w := packet.NewWriter()
	switch m := m.(type) {
	case ServerResume:
		w.WriteTag(tagServerEstablishment)
		w.WriteTag(tagServerResume)
		w.WriteU32(m.Resume.RuleSet)
		w.WriteU32(uint32(len(m.Resume.Flags)))
		for _, f := range m.Resume.Flags {
			w.WriteU32(uint32(f))
		}
		w.WriteBool(m.Flag != nil)
		if m.Flag != nil {
			w.WriteU32(uint32(*m.Flag))
		}
	case TakePlaceRefused:
		w.WriteTag(tagServerEstablishment)
		w.WriteTag(tagTakePlaceRefused)
		w.WriteTag(uint32(m.Reason))
		if m.Reason == RefusedFlagAlreadyTaken {
			w.WriteU32(uint32(m.Flag))
		}
	case Notification:
		w.WriteTag(tagServerInGame)
		w.WriteTag(tagInGameNotification)
		w.WriteU8(uint8(m.Level))
		w.WriteString(m.Text)
	default:
		w.WriteTag(tagServerInGame)
		w.WriteTag(tagInGameState)
		if err := writeState(w, m); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

func writeState(w *packet.Writer, m ServerMessage) error {
	switch m := m.(type) {
	case SetGameFrame:
		w.WriteTag(tagStateSetGameFrame)
		w.WriteU64(uint64(m.Frame))
	case SetWindow:
		w.WriteTag(tagStateSetWindow)
		writeWindow(w, m.Window)
	case SetGameSlice:
		w.WriteTag(tagStateSetGameSlice)
		writeSlice(w, m.Slice)
	case SetCity:
		w.WriteTag(tagStateSetCity)
		writeCity(w, m.City)
	case RemoveCity:
		w.WriteTag(tagStateRemoveCity)
		writePoint(w, m.Point)
		w.WriteUUID(m.ID)
	case SetUnit:
		w.WriteTag(tagStateSetUnit)
		writeUnit(w, m.Unit)
	case RemoveUnit:
		w.WriteTag(tagStateRemoveUnit)
		writePoint(w, m.Point)
		w.WriteUUID(m.ID)
	case AddTask:
		w.WriteTag(tagStateAddTask)
		writeConcern(w, m.Concern)
		writeTask(w, m.Task)
	case RemoveTask:
		w.WriteTag(tagStateRemoveTask)
		writeConcern(w, m.Concern)
		w.WriteUUID(m.ID)
	default:
		return fmt.Errorf("encode server message %T: %w", m, ErrUnknownTag)
	}
	return nil
}

// DecodeServer parses a server message payload.
func DecodeServer(data []byte) (ServerMessage, error) {
	r := packet.NewReader(data)
	m := readServer(r)
	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("decode server message: %w", err)
	}
	return m, nil
}

func readServer(r *packet.Reader) ServerMessage {
	switch tag := r.ReadTag(); tag {
	case tagServerEstablishment:
		switch tag := r.ReadTag(); tag {
		case tagServerResume:
			m := ServerResume{Resume: Resume{RuleSet: r.ReadU32()}}
			n := r.ReadLen(4)
			for range n {
				m.Resume.Flags = append(m.Resume.Flags, readFlag(r))
			}
			if r.ReadBool() {
				f := readFlag(r)
				m.Flag = &f
			}
			return m
		case tagTakePlaceRefused:
			m := TakePlaceRefused{Reason: RefusedReason(r.ReadTag())}
			switch m.Reason {
			case RefusedFlagAlreadyTaken:
				m.Flag = readFlag(r)
			case RefusedNoPlace:
			default:
				r.Failf("refused reason %d: %w", m.Reason, ErrUnknownTag)
			}
			return m
		default:
			r.Failf("establishment tag %d: %w", tag, ErrUnknownTag)
		}
	case tagServerInGame:
		switch tag := r.ReadTag(); tag {
		case tagInGameNotification:
			return Notification{Level: NotificationLevel(r.ReadU8()), Text: r.ReadString()}
		case tagInGameState:
			return readState(r)
		default:
			r.Failf("in game tag %d: %w", tag, ErrUnknownTag)
		}
	default:
		r.Failf("server tag %d: %w", tag, ErrUnknownTag)
	}
	return nil
}

func readState(r *packet.Reader) ServerMessage {
	switch tag := r.ReadTag(); tag {
	case tagStateSetGameFrame:
		return SetGameFrame{Frame: game.Frame(r.ReadU64())}
	case tagStateSetWindow:
		return SetWindow{Window: readWindow(r)}
	case tagStateSetGameSlice:
		return SetGameSlice{Slice: readSlice(r)}
	case tagStateSetCity:
		return SetCity{City: readCity(r)}
	case tagStateRemoveCity:
		return RemoveCity{Point: readPoint(r), ID: game.CityID(r.ReadUUID())}
	case tagStateSetUnit:
		return SetUnit{Unit: readUnit(r)}
	case tagStateRemoveUnit:
		return RemoveUnit{Point: readPoint(r), ID: game.UnitID(r.ReadUUID())}
	case tagStateAddTask:
		return AddTask{Concern: readConcern(r), Task: readTask(r)}
	case tagStateRemoveTask:
		return RemoveTask{Concern: readConcern(r), ID: game.TaskID(r.ReadUUID())}
	default:
		r.Failf("state tag %d: %w", tag, ErrUnknownTag)
	}
	return nil
}

func writePoint(w *packet.Writer, p space.Point) {
	w.WriteI64(p.X)
	w.WriteI64(p.Y)
}

func readPoint(r *packet.Reader) space.Point {
	return space.Point{X: r.ReadI64(), Y: r.ReadI64()}
}

func writeResolution(w *packet.Writer, res space.Resolution) {
	w.WriteU64(res.Width)
	w.WriteU64(res.Height)
}

func readResolution(r *packet.Reader) space.Resolution {
	return space.Resolution{Width: r.ReadU64(), Height: r.ReadU64()}
}

func writeWindow(w *packet.Writer, win space.Window) {
	writePoint(w, win.Start)
	writePoint(w, win.End)
}

// readWindow derives the display step from the decoded corners.
func readWindow(r *packet.Reader) space.Window {
	start := readPoint(r)
	end := readPoint(r)
	return space.NewWindow(start, end)
}

func readFlag(r *packet.Reader) game.Flag {
	f := game.Flag(r.ReadU32())
	if !f.Valid() {
		r.Failf("flag %d: %w", uint32(f), ErrUnknownTag)
	}
	return f
}

func writeProduction(w *packet.Writer, p game.Production) {
	w.WriteU32(uint32(len(p.Queue)))
	for _, product := range p.Queue {
		writeProduct(w, product)
	}
}

func readProduction(r *packet.Reader) game.Production {
	n := r.ReadLen(8)
	if r.Err() == nil && n == 0 {
		r.Failf("empty production queue")
	}
	p := game.Production{Queue: make([]game.Product, 0, n)}
	for range n {
		p.Queue = append(p.Queue, readProduct(r))
	}
	return p
}

func writeProduct(w *packet.Writer, p game.Product) {
	w.WriteTag(uint32(p.Kind))
	w.WriteU32(uint32(p.Unit))
}

func readProduct(r *packet.Reader) game.Product {
	kind := game.ProductKind(r.ReadTag())
	if kind != game.ProductUnit {
		r.Failf("product tag %d: %w", kind, ErrUnknownTag)
	}
	return game.Product{Kind: kind, Unit: readUnitType(r)}
}

func readUnitType(r *packet.Reader) game.UnitType {
	t := game.UnitType(r.ReadU32())
	if t != game.UnitSettlers && t != game.UnitWarriors {
		r.Failf("unit type %d: %w", uint32(t), ErrUnknownTag)
	}
	return t
}

func writeConcern(w *packet.Writer, c game.Concern) {
	w.WriteTag(uint32(c.Kind))
	switch c.Kind {
	case game.ConcernUnit:
		w.WriteUUID(c.Unit)
	case game.ConcernCity:
		w.WriteUUID(c.City)
	}
}

func readConcern(r *packet.Reader) game.Concern {
	switch kind := game.ConcernKind(r.ReadTag()); kind {
	case game.ConcernNothing:
		return game.Concern{}
	case game.ConcernUnit:
		return game.ConcernsUnit(game.UnitID(r.ReadUUID()))
	case game.ConcernCity:
		return game.ConcernsCity(game.CityID(r.ReadUUID()))
	default:
		r.Failf("concern tag %d: %w", kind, ErrUnknownTag)
		return game.Concern{}
	}
}

func writeTask(w *packet.Writer, t ClientTask) {
	w.WriteUUID(t.ID)
	w.WriteTag(uint32(t.Kind))
	w.WriteU64(uint64(t.Start))
	w.WriteU64(uint64(t.End))
}

func readTask(r *packet.Reader) ClientTask {
	return ClientTask{
		ID:    game.TaskID(r.ReadUUID()),
		Kind:  game.TaskKind(r.ReadTag()),
		Start: game.Frame(r.ReadU64()),
		End:   game.Frame(r.ReadU64()),
	}
}

func writeUnit(w *packet.Writer, u ClientUnit) {
	w.WriteUUID(u.ID)
	w.WriteU32(uint32(u.Flag))
	w.WriteU32(uint32(u.Type))
	writePoint(w, u.Point)
	w.WriteBool(u.Task != nil)
	if u.Task != nil {
		writeTask(w, *u.Task)
	}
	w.WriteU32(uint32(len(u.Can)))
	for _, c := range u.Can {
		w.WriteU32(uint32(c))
	}
}

func readUnit(r *packet.Reader) ClientUnit {
	u := ClientUnit{
		ID:    game.UnitID(r.ReadUUID()),
		Flag:  readFlag(r),
		Type:  readUnitType(r),
		Point: readPoint(r),
	}
	if r.ReadBool() {
		t := readTask(r)
		u.Task = &t
	}
	n := r.ReadLen(4)
	for range n {
		u.Can = append(u.Can, game.UnitCan(r.ReadU32()))
	}
	return u
}

func writeCity(w *packet.Writer, c ClientCity) {
	w.WriteUUID(c.ID)
	w.WriteU32(uint32(c.Flag))
	w.WriteString(c.Name)
	writePoint(w, c.Point)
	writeProduction(w, c.Production)
	w.WriteU64(uint64(c.Exploitation.Tons))
	writeTask(w, c.ProductionTask)
}

func readCity(r *packet.Reader) ClientCity {
	return ClientCity{
		ID:             game.CityID(r.ReadUUID()),
		Flag:           readFlag(r),
		Name:           r.ReadString(),
		Point:          readPoint(r),
		Production:     readProduction(r),
		Exploitation:   game.NewExploitation(game.Tons(r.ReadU64())),
		ProductionTask: readTask(r),
	}
}

func writeSlice(w *packet.Writer, s *GameSlice) {
	writePoint(w, s.Origin)
	w.WriteU64(s.Width)
	w.WriteU64(s.Height)
	w.WriteU32(uint32(len(s.Tiles)))
	for _, t := range s.Tiles {
		w.WriteBool(t.Outside)
		if !t.Outside {
			w.WriteU32(uint32(t.Tile.Terrain))
		}
	}
	w.WriteU32(uint32(len(s.Cities)))
	for _, c := range s.Cities {
		w.WriteBool(c != nil)
		if c != nil {
			writeCity(w, *c)
		}
	}
	w.WriteU32(uint32(len(s.Units)))
	for _, stack := range s.Units {
		w.WriteU32(uint32(len(stack)))
		for _, u := range stack {
			writeUnit(w, u)
		}
	}
}

func readSlice(r *packet.Reader) *GameSlice {
	s := &GameSlice{PartialWorld: PartialWorld{
		Origin: readPoint(r),
		Width:  r.ReadU64(),
		Height: r.ReadU64(),
	}}
	n := r.ReadLen(1)
	if r.Err() == nil && uint64(n) != s.Width*s.Height {
		r.Failf("slice of %dx%d carries %d tiles", s.Width, s.Height, n)
		return s
	}
	s.Tiles = make([]world.CtxTile, 0, n)
	for range n {
		if r.ReadBool() {
			s.Tiles = append(s.Tiles, world.OutsideTile())
			continue
		}
		terrain := world.Terrain(r.ReadU32())
		if !terrain.Valid() {
			r.Failf("terrain %d: %w", uint32(terrain), ErrUnknownTag)
		}
		s.Tiles = append(s.Tiles, world.Visible(world.Tile{Terrain: terrain}))
	}
	n = r.ReadLen(1)
	s.Cities = make([]*ClientCity, n)
	for i := range n {
		if r.ReadBool() {
			c := readCity(r)
			s.Cities[i] = &c
		}
	}
	n = r.ReadLen(4)
	s.Units = make([][]ClientUnit, n)
	for i := range n {
		m := r.ReadLen(1)
		for range m {
			s.Units[i] = append(s.Units[i], readUnit(r))
		}
	}
	return s
}
