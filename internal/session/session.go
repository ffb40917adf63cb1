package session

import "slices"

// NoSlot marks a client that does not occupy a slot.
const NoSlot = -1

// RandomCountry is the faction id that lets the game pick a faction at start.
const RandomCountry = "random"

type ClientState string

const (
	StateNotReady ClientState = "not_ready"
	StateReady    ClientState = "ready"
)

type Slot struct {
	Index     int    `json:"index"`
	Closed    bool   `json:"closed"`
	Spectator bool   `json:"spectator"`
	Bot       string `json:"bot,omitempty"` // "" when no bot is assigned
	MapPlayer string `json:"map_player"`
}

type Client struct {
	Index      int         `json:"index"`
	Name       string      `json:"name"`
	ColorRamp  ColorRamp   `json:"color_ramp"`
	Country    string      `json:"country"`
	Team       int         `json:"team"`
	SpawnPoint int         `json:"spawn_point"`
	Slot       int         `json:"slot"`
	State      ClientState `json:"state"`
}

func (c Client) Ready() bool { return c.State == StateReady }

type GlobalSettings struct {
	Map         string `json:"map"`
	ServerName  string `json:"server_name"`
	LockTeams   bool   `json:"lock_teams"`
	AllowCheats bool   `json:"allow_cheats"`
}

// Session is the replicated lobby record. The transport owns it; everything
// else reads snapshots.
type Session struct {
	Slots          []Slot         `json:"slots"`
	Clients        []Client       `json:"clients"`
	GlobalSettings GlobalSettings `json:"global_settings"`
}

func New(serverName, mapUID string, slots []Slot) Session {
	return Session{
		Slots:   slices.Clone(slots),
		Clients: []Client{},
		GlobalSettings: GlobalSettings{
			Map:        mapUID,
			ServerName: serverName,
		},
	}
}

// Clone returns a copy that shares no slices with s.
func (s Session) Clone() Session {
	out := s
	out.Slots = slices.Clone(s.Slots)
	out.Clients = slices.Clone(s.Clients)
	return out
}

func (s Session) SlotByIndex(index int) (Slot, bool) {
	i := slices.IndexFunc(s.Slots, func(sl Slot) bool { return sl.Index == index })
	if i < 0 {
		return Slot{}, false
	}
	return s.Slots[i], true
}

func (s Session) ClientByIndex(index int) (Client, bool) {
	i := slices.IndexFunc(s.Clients, func(c Client) bool { return c.Index == index })
	if i < 0 {
		return Client{}, false
	}
	return s.Clients[i], true
}

// ClientInSlot returns the client occupying the slot with the given index.
func (s Session) ClientInSlot(slotIndex int) (Client, bool) {
	i := slices.IndexFunc(s.Clients, func(c Client) bool { return c.Slot == slotIndex })
	if i < 0 {
		return Client{}, false
	}
	return s.Clients[i], true
}

// AllReady reports whether every client is Ready. An empty session is not.
func (s Session) AllReady() bool {
	if len(s.Clients) == 0 {
		return false
	}
	for _, c := range s.Clients {
		if !c.Ready() {
			return false
		}
	}
	return true
}

// UpdateClient replaces the client with the same Index. It reports false when
// no such client exists.
func (s *Session) UpdateClient(c Client) bool {
	i := slices.IndexFunc(s.Clients, func(x Client) bool { return x.Index == c.Index })
	if i < 0 {
		return false
	}
	s.Clients[i] = c
	return true
}

func (s *Session) UpdateSlot(sl Slot) bool {
	i := slices.IndexFunc(s.Slots, func(x Slot) bool { return x.Index == sl.Index })
	if i < 0 {
		return false
	}
	s.Slots[i] = sl
	return true
}

func (s *Session) RemoveClient(index int) bool {
	before := len(s.Clients)
	s.Clients = slices.DeleteFunc(s.Clients, func(c Client) bool { return c.Index == index })
	return len(s.Clients) != before
}
