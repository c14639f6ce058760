package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerName      string `json:"player_name"`
	Locale          string `json:"locale,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	PlayerID        string      `json:"player_id"`
	TickRateHz      int         `json:"tick_rate_hz"`
	Mods            []string    `json:"mods"`
	Conversions     Conversions `json:"conversions"`
	Help            []HelpEntry `json:"help"`
}

type Conversions struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

type HelpEntry struct {
	ActionLangCode string   `json:"action_lang_code"`
	Action         string   `json:"action"`
	MouseButton    string   `json:"mouse_button"`
	Examples       []string `json:"examples"`
}

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// EQUIP (client -> server): dev loadout for the off hand.
type EquipMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	OffHand         ItemStack `json:"off_hand"`
}

// Interact phases.
const (
	PhaseStart   = "START"
	PhaseRelease = "RELEASE"
	PhaseCancel  = "CANCEL"
)

// INTERACT (client -> server)
type InteractMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Phase           string `json:"phase"`
	Store           bool   `json:"store,omitempty"`
	Sitting         bool   `json:"sitting,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

type Event map[string]any

// Event kinds carried in EVENT messages.
const (
	EventSoundStart = "SOUND_START"
	EventSoundStop  = "SOUND_STOP"
	EventAnimation  = "ANIMATION"
	EventToast      = "TOAST"
	EventKnitted    = "KNITTED"
	EventSessionEnd = "SESSION_END"
	EventDefault    = "DEFAULT_ACTION"
	EventInventory  = "INVENTORY"
)

// EVENT (server -> client)
type EventMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            uint64  `json:"tick"`
	Events          []Event `json:"events"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
