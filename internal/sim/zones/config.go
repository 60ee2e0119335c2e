package zones

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"monsterworkshop.game/internal/sim/entity"
)

type Config struct {
	DefaultZoneID string     `yaml:"default_zone_id"`
	Zones         []ZoneSpec `yaml:"zones"`

	Digest string `yaml:"-"`
}

type ZoneSpec struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Width       int      `yaml:"width"`
	Height      int      `yaml:"height"`
	SpawnPoints [][2]int `yaml:"spawn_points"`

	Terrain  []RectSpec    `yaml:"terrain,omitempty"`
	Entities []EntitySpec  `yaml:"entities,omitempty"`
	Roads    []RoadSpec    `yaml:"roads,omitempty"`
	Scatter  []ScatterSpec `yaml:"scatter,omitempty"`
	Rocks    *ScatterSpec  `yaml:"rocks,omitempty"`
}

type RectSpec struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

func (r RectSpec) Rect() entity.Rect { return entity.Rect{X: r.X, Y: r.Y, W: r.W, H: r.H} }

// EntitySpec is a static entity of the zone layout. W and H default to the
// catalog footprint of GoodType.
type EntitySpec struct {
	ID       string `yaml:"id"`
	Kind     string `yaml:"kind"`
	Name     string `yaml:"name,omitempty"`
	GoodType string `yaml:"good_type,omitempty"`
	Owner    string `yaml:"owner,omitempty"`

	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w,omitempty"`
	H int `yaml:"h,omitempty"`

	GatheringGood string   `yaml:"gathering_good,omitempty"`
	AcceptedTags  []string `yaml:"accepted_tags,omitempty"`
	// Count pre-fills dispensers; Quality applies to pre-filled and loose items.
	Count   int     `yaml:"count,omitempty"`
	Quality float64 `yaml:"quality,omitempty"`
}

// RoadSpec places a signpost that links its cell to a cell of another zone.
type RoadSpec struct {
	ID     string `yaml:"id"`
	Label  string `yaml:"label"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	ToZone string `yaml:"to_zone"`
	ToX    int    `yaml:"to_x"`
	ToY    int    `yaml:"to_y"`
}

// ScatterSpec seeds items (or rocks) where layered noise exceeds Threshold.
type ScatterSpec struct {
	GoodType  string   `yaml:"good_type,omitempty"`
	Threshold float64  `yaml:"threshold"`
	Frequency float64  `yaml:"frequency"`
	Octaves   int      `yaml:"octaves"`
	Quality   float64  `yaml:"quality,omitempty"`
	Max       int      `yaml:"max,omitempty"`
	Region    RectSpec `yaml:"region"`
}

const (
	DefaultZoneID   = "starting_village"
	DefaultZoneName = "Starting Village"
)

// FallbackSpawn is used when every configured spawn point is taken.
var FallbackSpawn = entity.Cell{X: 2, Y: 2}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	cfg = Config{}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("zones.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("zones.yaml: %w", err)
	}
	sum := sha256.Sum256(b)
	cfg.Digest = hex.EncodeToString(sum[:])
	return cfg, nil
}

func defaults() Config {
	return Config{
		DefaultZoneID: DefaultZoneID,
		Zones: []ZoneSpec{
			{
				ID:          DefaultZoneID,
				Name:        DefaultZoneName,
				Width:       60,
				Height:      20,
				SpawnPoints: [][2]int{{3, 3}},
			},
		},
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	if len(c.Zones) == 0 {
		c.Zones = defaults().Zones
	}
	if strings.TrimSpace(c.DefaultZoneID) == "" {
		c.DefaultZoneID = c.Zones[0].ID
	}
	for i := range c.Zones {
		z := &c.Zones[i]
		if z.Name == "" {
			z.Name = z.ID
		}
		if len(z.SpawnPoints) == 0 {
			z.SpawnPoints = [][2]int{{3, 3}}
		}
		for j := range z.Entities {
			e := &z.Entities[j]
			e.Kind = strings.ToLower(strings.TrimSpace(e.Kind))
			if e.ID == "" {
				e.ID = fmt.Sprintf("%s_%s_%d", z.ID, e.Kind, j+1)
			}
		}
		for j := range z.Roads {
			r := &z.Roads[j]
			if r.ID == "" {
				r.ID = fmt.Sprintf("%s_road_%d", z.ID, j+1)
			}
			if r.Label == "" {
				r.Label = r.ToZone
			}
		}
		for j := range z.Scatter {
			z.Scatter[j].normalize()
		}
		if z.Rocks != nil {
			z.Rocks.normalize()
		}
	}
}

func (s *ScatterSpec) normalize() {
	if s.Frequency <= 0 {
		s.Frequency = 0.15
	}
	if s.Octaves <= 0 {
		s.Octaves = 2
	}
}

func (c Config) Validate() error {
	if len(c.Zones) == 0 {
		return fmt.Errorf("zones must not be empty")
	}
	seen := map[string]ZoneSpec{}
	ids := map[string]bool{}
	for _, z := range c.Zones {
		if strings.TrimSpace(z.ID) == "" {
			return fmt.Errorf("zone id must not be empty")
		}
		if _, dup := seen[z.ID]; dup {
			return fmt.Errorf("duplicate zone id: %s", z.ID)
		}
		seen[z.ID] = z
		if z.Width < 5 || z.Height < 5 {
			return fmt.Errorf("zone %s must be at least 5x5", z.ID)
		}
		play := z.Playable()
		for _, sp := range z.SpawnPoints {
			if !play.Contains(entity.Cell{X: sp[0], Y: sp[1]}) {
				return fmt.Errorf("zone %s spawn point %v outside the playable area", z.ID, sp)
			}
		}
		for i, t := range z.Terrain {
			if t.W <= 0 || t.H <= 0 || !t.Rect().Within(z.Bounds()) {
				return fmt.Errorf("zone %s terrain[%d] out of bounds", z.ID, i)
			}
		}
		for _, e := range z.Entities {
			if ids[e.ID] {
				return fmt.Errorf("duplicate entity id: %s", e.ID)
			}
			ids[e.ID] = true
			kind, ok := entity.ParseKind(e.Kind)
			if !ok || kind == entity.KindMonster || kind == entity.KindSignpost {
				return fmt.Errorf("zone %s entity %s: unsupported kind %q", z.ID, e.ID, e.Kind)
			}
			if !play.Contains(entity.Cell{X: e.X, Y: e.Y}) {
				return fmt.Errorf("zone %s entity %s outside the playable area", z.ID, e.ID)
			}
			if e.W < 0 || e.H < 0 {
				return fmt.Errorf("zone %s entity %s has negative size", z.ID, e.ID)
			}
			if kind == entity.KindGatheringSpot && e.GatheringGood == "" {
				return fmt.Errorf("zone %s gathering spot %s needs gathering_good", z.ID, e.ID)
			}
			if kind.IsWorkshop() && e.GoodType == "" {
				return fmt.Errorf("zone %s workshop %s needs good_type", z.ID, e.ID)
			}
			if kind == entity.KindDelivery && len(e.AcceptedTags) == 0 {
				return fmt.Errorf("zone %s delivery %s needs accepted_tags", z.ID, e.ID)
			}
		}
		for i, s := range z.Scatter {
			if s.GoodType == "" {
				return fmt.Errorf("zone %s scatter[%d] needs good_type", z.ID, i)
			}
			if err := s.validate(z); err != nil {
				return fmt.Errorf("zone %s scatter[%d]: %w", z.ID, i, err)
			}
		}
		if z.Rocks != nil {
			if err := z.Rocks.validate(z); err != nil {
				return fmt.Errorf("zone %s rocks: %w", z.ID, err)
			}
		}
	}
	if !containsZone(seen, c.DefaultZoneID) {
		return fmt.Errorf("default_zone_id %q not found in zones", c.DefaultZoneID)
	}
	for _, z := range c.Zones {
		for _, r := range z.Roads {
			if ids[r.ID] {
				return fmt.Errorf("duplicate entity id: %s", r.ID)
			}
			ids[r.ID] = true
			if !z.Playable().Contains(entity.Cell{X: r.X, Y: r.Y}) {
				return fmt.Errorf("zone %s road %s outside the playable area", z.ID, r.ID)
			}
			dst, ok := seen[r.ToZone]
			if !ok {
				return fmt.Errorf("zone %s road %s: to_zone %q not found", z.ID, r.ID, r.ToZone)
			}
			if !dst.Playable().Contains(entity.Cell{X: r.ToX, Y: r.ToY}) {
				return fmt.Errorf("zone %s road %s: destination outside %s", z.ID, r.ID, r.ToZone)
			}
		}
	}
	return nil
}

func (s ScatterSpec) validate(z ZoneSpec) error {
	if s.Threshold <= 0 || s.Threshold >= 1 {
		return fmt.Errorf("threshold must be in (0,1)")
	}
	if s.Region.W <= 0 || s.Region.H <= 0 || !s.Region.Rect().Within(z.Playable()) {
		return fmt.Errorf("region must lie inside the playable area")
	}
	return nil
}

func containsZone(m map[string]ZoneSpec, id string) bool {
	_, ok := m[id]
	return ok
}

func (z ZoneSpec) Bounds() entity.Rect { return entity.Rect{W: z.Width, H: z.Height} }

// Playable is the zone minus its boundary strips.
func (z ZoneSpec) Playable() entity.Rect {
	return entity.Rect{X: 1, Y: 1, W: z.Width - 2, H: z.Height - 2}
}

func (c Config) ZoneByID(id string) (ZoneSpec, bool) {
	for _, z := range c.Zones {
		if z.ID == id {
			return z, true
		}
	}
	return ZoneSpec{}, false
}
