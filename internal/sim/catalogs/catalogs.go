package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"monsterworkshop.game/internal/sim/skills"
)

type Catalogs struct {
	Goods    GoodCatalog
	Monsters MonsterCatalog
	Skills   SkillCatalog
}

type GoodCatalog struct {
	ByKey  map[string]GoodType
	Keys   []string
	Digest string
}

type MonsterCatalog struct {
	ByKey  map[string]MonsterType
	Keys   []string
	Digest string
}

type MonsterType struct {
	Name  string           `json:"name"`
	Cost  int              `json:"cost"`
	Stats skills.Abilities `json:"stats"`
	Notes string           `json:"notes,omitempty"`
}

type SkillCatalog struct {
	Transferable []string            `json:"transferable_skills"`
	Applied      []string            `json:"applied_skills"`
	Relevant     map[string][]string `json:"relevant_transferable_skills"`
	Digest       string              `json:"-"`

	transferable map[string]bool
	applied      map[string]bool
}

func (s SkillCatalog) IsTransferable(k string) bool { return s.transferable[skills.Key(k)] }
func (s SkillCatalog) IsApplied(k string) bool      { return s.applied[skills.Key(k)] }

// RelevantTransferable returns the transferable skills linked to an applied skill.
func (s SkillCatalog) RelevantTransferable(applied string) []string {
	return s.Relevant[skills.Key(applied)]
}

// Load reads and validates good_types.json, monster_types.json and skills.json
// from configDir. Any error is a data validation error and must halt boot.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	skillsRaw, err := readValidated(configDir, "skills.json")
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(skillsRaw, &c.Skills); err != nil {
		return nil, fmt.Errorf("skills.json: %w", err)
	}
	c.Skills.index()
	c.Skills.Digest = sha256Hex(skillsRaw)

	goodsRaw, err := readValidated(configDir, "good_types.json")
	if err != nil {
		return nil, err
	}
	var goods struct {
		GoodTypes []GoodType `json:"good_types"`
	}
	if err := json.Unmarshal(goodsRaw, &goods); err != nil {
		return nil, fmt.Errorf("good_types.json: %w", err)
	}
	c.Goods.ByKey = map[string]GoodType{}
	for _, g := range goods.GoodTypes {
		k := g.Key()
		if k == "" {
			return nil, fmt.Errorf("good_types.json: empty name")
		}
		if _, dup := c.Goods.ByKey[k]; dup {
			return nil, fmt.Errorf("good_types.json: duplicate good type %q", g.Name)
		}
		c.Goods.ByKey[k] = g
		c.Goods.Keys = append(c.Goods.Keys, k)
	}
	sort.Strings(c.Goods.Keys)
	c.Goods.Digest = sha256Hex(goodsRaw)

	monstersRaw, err := readValidated(configDir, "monster_types.json")
	if err != nil {
		return nil, err
	}
	var monsters struct {
		MonsterTypes map[string]MonsterType `json:"monster_types"`
	}
	if err := json.Unmarshal(monstersRaw, &monsters); err != nil {
		return nil, fmt.Errorf("monster_types.json: %w", err)
	}
	c.Monsters.ByKey = map[string]MonsterType{}
	for k, m := range monsters.MonsterTypes {
		key := skills.Key(k)
		if m.Name == "" {
			m.Name = k
		}
		c.Monsters.ByKey[key] = m
		c.Monsters.Keys = append(c.Monsters.Keys, key)
	}
	sort.Strings(c.Monsters.Keys)
	c.Monsters.Digest = sha256Hex(monstersRaw)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func readValidated(dir, name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := validateSchema(name, b); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

func (s *SkillCatalog) index() {
	s.transferable = map[string]bool{}
	s.applied = map[string]bool{}
	for _, k := range s.Transferable {
		s.transferable[skills.Key(k)] = true
	}
	for _, k := range s.Applied {
		s.applied[skills.Key(k)] = true
	}
	rel := make(map[string][]string, len(s.Relevant))
	for k, v := range s.Relevant {
		rel[skills.Key(k)] = v
	}
	s.Relevant = rel
}

// Validate checks cross-references that a schema cannot express.
func (c *Catalogs) Validate() error {
	for _, k := range c.Goods.Keys {
		g := c.Goods.ByKey[k]
		if err := c.validateGood(g); err != nil {
			return fmt.Errorf("good_types.json: %s: %w", g.Name, err)
		}
	}
	for _, k := range c.Monsters.Keys {
		m := c.Monsters.ByKey[k]
		if !m.Stats.Valid() {
			return fmt.Errorf("monster_types.json: %s: stats must be within [%d,%d]", k, skills.MinAbility, skills.MaxAbility)
		}
		if m.Cost < 0 {
			return fmt.Errorf("monster_types.json: %s: negative cost", k)
		}
	}
	for applied, rel := range c.Skills.Relevant {
		if !c.Skills.IsApplied(applied) {
			return fmt.Errorf("skills.json: relevant_transferable_skills key %q is not an applied skill", applied)
		}
		for _, t := range rel {
			if !c.Skills.IsTransferable(t) {
				return fmt.Errorf("skills.json: %q lists unknown transferable skill %q", applied, t)
			}
		}
	}
	return nil
}

func (c *Catalogs) validateGood(g GoodType) error {
	if w, h := g.Footprint(); w < 1 || h < 1 {
		return fmt.Errorf("size must be positive")
	}
	if !g.IsRecipe() {
		return nil
	}
	ws, ok := c.Goods.ByKey[skills.Key(g.RequiresWorkshop)]
	if !ok || !ws.IsWorkshop() {
		return fmt.Errorf("requires_workshop %q is not a workshop good type", g.RequiresWorkshop)
	}
	if g.RelevantAbility < skills.STR || g.RelevantAbility > skills.CHA {
		return fmt.Errorf("relevant_ability_score must be in [0,5]")
	}
	if g.PrimarySkill != "" && !c.Skills.IsApplied(g.PrimarySkill) {
		return fmt.Errorf("unknown primary_applied_skill %q", g.PrimarySkill)
	}
	for _, s := range append(append([]string(nil), g.SecondarySkills...), g.DestabilizerSkills...) {
		if !c.Skills.IsApplied(s) {
			return fmt.Errorf("unknown applied skill %q", s)
		}
	}
	for _, s := range g.TransferableSkills {
		if !c.Skills.IsTransferable(s) {
			return fmt.Errorf("unknown transferable skill %q", s)
		}
	}
	for i, group := range g.InputTags {
		if len(group) == 0 {
			return fmt.Errorf("input_goods_tags_required[%d] is empty", i)
		}
	}
	if len(g.CarryoverTags) > len(g.InputTags) {
		return fmt.Errorf("input_goods_tags_carryover has more groups than input_goods_tags_required")
	}
	if len(g.ToolsWeights) > len(g.ToolsRequired) {
		return fmt.Errorf("tools_weights has more entries than tools_required_tags")
	}
	return nil
}

func (c *Catalogs) Good(name string) (GoodType, bool) {
	g, ok := c.Goods.ByKey[skills.Key(name)]
	return g, ok
}

func (c *Catalogs) Monster(archetype string) (MonsterType, bool) {
	m, ok := c.Monsters.ByKey[skills.Key(archetype)]
	return m, ok
}

// RecipesFor returns the recipes bound to a workshop type, sorted by key.
func (c *Catalogs) RecipesFor(workshopType string) []GoodType {
	wt := skills.Key(workshopType)
	var out []GoodType
	for _, k := range c.Goods.Keys {
		g := c.Goods.ByKey[k]
		if g.IsRecipe() && skills.Key(g.RequiresWorkshop) == wt {
			out = append(out, g)
		}
	}
	return out
}

// Digests returns the raw-file digests keyed by catalog name.
func (c *Catalogs) Digests() map[string]string {
	return map[string]string{
		"good_types":    c.Goods.Digest,
		"monster_types": c.Monsters.Digest,
		"skills":        c.Skills.Digest,
	}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hasAllTags(have []string, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if strings.EqualFold(h, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
