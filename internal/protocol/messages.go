package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name"`
	// Token resumes an earlier session when it matches a WELCOME resume_token.
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	PlayerID        string         `json:"player_id"`
	SessionID       string         `json:"session_id"`
	ResumeToken     string         `json:"resume_token"`
	Renown          int            `json:"renown"`
	Tick            uint64         `json:"tick"`
	Params          WorldParams    `json:"world_params"`
	Zones           []ZoneRef      `json:"zones"`
	Monsters        []string       `json:"monsters,omitempty"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	TickRateHz         int   `json:"tick_rate_hz"`
	DayTicks           int   `json:"day_ticks"`
	ContainerCapacity  int   `json:"container_capacity"`
	UpkeepCycleDays    int   `json:"upkeep_cycle_days"`
	Seed               int64 `json:"seed"`
	MaxRecordingSteps  int   `json:"max_recording_steps"`
	SkillDecayInterval int   `json:"skill_decay_interval_ticks"`
}

type ZoneRef struct {
	ZoneID string `json:"zone_id"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type CatalogDigests struct {
	GoodTypes    string `json:"good_types"`
	MonsterTypes string `json:"monster_types"`
	Skills       string `json:"skills"`
	Zones        string `json:"zones,omitempty"`
	Tuning       string `json:"tuning,omitempty"`
}

// CATALOG (server -> client): one catalog per message.
type CatalogMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name"`   // good_types, monster_types, skills, zone:<id>
	Digest          string `json:"digest"` // sha256 hex
	Part            int    `json:"part"`
	TotalParts      int    `json:"total_parts"`
	Data            any    `json:"data"`
}

// ZoneLayout is the CATALOG payload for one zone.
type ZoneLayout struct {
	ZoneID      string   `json:"zone_id"`
	Name        string   `json:"name"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Encoding    string   `json:"encoding"` // "RLE"
	Terrain     string   `json:"terrain"`  // base64 of the RLE terrain mask, row-major
	SpawnPoints [][2]int `json:"spawn_points"`
}

// INTENT (client -> server)
type IntentMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Ref             string `json:"ref,omitempty"`
	MonsterID       string `json:"monster_id,omitempty"`
	Kind            string `json:"kind"`

	Dir        string   `json:"dir,omitempty"`
	TargetID   string   `json:"target_id,omitempty"`
	WorkshopID string   `json:"workshop_id,omitempty"`
	Recipe     string   `json:"recipe,omitempty"`
	Archetype  string   `json:"archetype,omitempty"`
	Name       string   `json:"name,omitempty"`
	Skills     []string `json:"skills,omitempty"`
}

// RESULT (server -> originating client only)
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ref             string `json:"ref,omitempty"`
	Kind            string `json:"kind"`
	Tick            uint64 `json:"tick"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	// EntityID names the entity created by the intent (spawned monster).
	EntityID string `json:"entity_id,omitempty"`
}

// DELTA (server -> every session with a monster in the zone)
type DeltaMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Tick            uint64        `json:"tick"`
	ZoneID          string        `json:"zone_id"`
	Changed         []EntityView  `json:"changed,omitempty"`
	Removed         []string      `json:"removed,omitempty"`
	Accounts        []AccountView `json:"accounts,omitempty"`
}

type EntityView struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Pos    [2]int `json:"pos"`
	Size   [2]int `json:"size"`
	Facing string `json:"facing,omitempty"`
	Blocks bool   `json:"blocks"`
	Owner  string `json:"owner,omitempty"`

	StoredIn string `json:"stored_in,omitempty"`
	Role     string `json:"role,omitempty"`
	Contents int    `json:"contents,omitempty"`

	Label      string   `json:"label,omitempty"`
	GoodType   string   `json:"good_type,omitempty"`
	Quality    float64  `json:"quality,omitempty"`
	Quantity   int      `json:"quantity,omitempty"`
	Value      int      `json:"value,omitempty"`
	Weight     int      `json:"weight,omitempty"`
	Durability int      `json:"durability,omitempty"`
	Tags       []string `json:"tags,omitempty"`

	Task      *TaskView `json:"task,omitempty"`
	Recorder  string    `json:"recorder,omitempty"`
	HitchedTo string    `json:"hitched_to,omitempty"`
	Carrying  string    `json:"carrying,omitempty"`

	SelectedRecipe string     `json:"selected_recipe,omitempty"`
	MissingInputs  [][]string `json:"missing_inputs,omitempty"`
	MissingTools   []string   `json:"missing_tools,omitempty"`
}

type TaskView struct {
	Kind      string  `json:"kind"`
	Recipe    string  `json:"recipe"`
	Remaining int     `json:"remaining"`
	Progress  float64 `json:"progress"`
}

type AccountView struct {
	PlayerID   string `json:"player_id"`
	Renown     int    `json:"renown"`
	TotalSpent int    `json:"total_spent"`
}
