package world

import (
	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/catalogs"
	"monsterworkshop.game/internal/sim/crafting"
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/ledger"
	"monsterworkshop.game/internal/sim/skills"
	"monsterworkshop.game/internal/sim/tasks"
)

// craftPlan is the set of stored items a recipe would consume or wear.
type craftPlan struct {
	inputs      []*entity.Entity
	tools       []*entity.Entity
	toolWeights []int

	missingInputs [][]string
	missingTools  []string
}

func (p craftPlan) complete() bool {
	return len(p.missingInputs) == 0 && len(p.missingTools) == 0
}

// resolveRecipe finds the good a workshop would produce for a requested
// recipe. Gathering spots always yield their gathering good.
func (w *World) resolveRecipe(ws *entity.Entity, recipe string) (catalogs.GoodType, error) {
	if ws.Kind == entity.KindGatheringSpot {
		g, ok := w.catalogs.Good(ws.Workshop.GatheringGood)
		if !ok {
			return catalogs.GoodType{}, invalidTask("gathering spot %s has no good", ws.ID)
		}
		if recipe != "" && skills.Key(recipe) != g.Key() {
			return catalogs.GoodType{}, invalidTask("%s only yields %s", ws.ID, g.Name)
		}
		return g, nil
	}
	g, ok := w.catalogs.Good(recipe)
	if !ok {
		return catalogs.GoodType{}, invalidTask("unknown recipe %q", recipe)
	}
	if !g.IsRecipe() || skills.Key(g.RequiresWorkshop) != ws.Workshop.WorkshopType {
		return catalogs.GoodType{}, invalidTask("%s cannot be made at %s", g.Name, ws.Workshop.WorkshopType)
	}
	return g, nil
}

// planCraft matches the workshop's stored inputs and tools against the
// recipe. Each stored item is used at most once.
func (w *World) planCraft(zr *zoneRuntime, ws *entity.Entity, recipe catalogs.GoodType) craftPlan {
	var p craftPlan
	stored := zr.grid.Stored(ws)
	used := map[string]bool{}
	for _, group := range recipe.InputTags {
		var found *entity.Entity
		for _, s := range stored {
			if used[s.ID] || s.Item == nil || s.Stored == nil || s.Stored.Role != entity.RoleInput {
				continue
			}
			if hasTags(w.itemTags(s.Item), group) {
				found = s
				break
			}
		}
		if found == nil {
			p.missingInputs = append(p.missingInputs, group)
			continue
		}
		used[found.ID] = true
		p.inputs = append(p.inputs, found)
	}
	for i, tag := range recipe.ToolsRequired {
		var found *entity.Entity
		for _, s := range stored {
			if used[s.ID] || s.Stored == nil || s.Stored.Role != entity.RoleTool {
				continue
			}
			if g, ok := w.goodOf(s); ok && g.ProvidesTool(tag) {
				found = s
				break
			}
		}
		if found == nil {
			p.missingTools = append(p.missingTools, tag)
			continue
		}
		used[found.ID] = true
		p.tools = append(p.tools, found)
		p.toolWeights = append(p.toolWeights, recipe.ToolWeight(i))
	}
	return p
}

// craftSelect starts a crafting or gathering task for mon at a workshop it
// touches.
func (w *World) craftSelect(zr *zoneRuntime, mon *entity.Entity, in protocol.IntentMsg, nowTick uint64, fromPlayback bool) (string, error) {
	m := mon.Monster
	if m.Busy() {
		return "", invalidTask("monster already has a task")
	}
	ws, ok := zr.grid.Get(in.WorkshopID)
	if !ok {
		return "", ErrNotFound
	}
	if !ws.Kind.IsWorkshop() || ws.Workshop == nil {
		return "", invalidTask("%s is not a workshop", ws.ID)
	}
	if !mon.Rect().Touches(ws.Rect()) {
		return "", invalidTask("not adjacent to %s", ws.ID)
	}
	if ws.Workshop.CrafterID != "" {
		return "", invalidTask("%s is busy", ws.ID)
	}
	recipe, err := w.resolveRecipe(ws, in.Recipe)
	if err != nil {
		return "", err
	}
	plan := w.planCraft(zr, ws, recipe)
	if !plan.complete() {
		ws.Workshop.SelectedRecipe = recipe.Name
		ws.Workshop.MissingInputs = plan.missingInputs
		ws.Workshop.MissingTools = plan.missingTools
		return "", invalidTask("missing %d inputs and %d tools for %s", len(plan.missingInputs), len(plan.missingTools), recipe.Name)
	}

	eff := w.effectiveAbilities(m, nowTick)
	d := crafting.Duration(recipe.BaseDuration(), eff.DEX, eff.INT)
	kind := tasks.KindCraft
	if ws.Kind == entity.KindGatheringSpot {
		kind = tasks.KindGather
	}
	m.Task = &tasks.Task{
		TaskID:       zr.newTaskID(),
		Kind:         kind,
		WorkshopID:   ws.ID,
		Recipe:       recipe.Name,
		Duration:     d,
		Remaining:    d,
		StartedTick:  nowTick,
		FromPlayback: fromPlayback,
	}
	ws.Workshop.CrafterID = mon.ID
	ws.Workshop.SelectedRecipe = recipe.Name
	ws.Workshop.MissingInputs = nil
	ws.Workshop.MissingTools = nil
	return m.Task.TaskID, nil
}

// systemTasks advances every active task of the zone. Tasks started this
// tick begin counting on the next one.
func (w *World) systemTasks(zr *zoneRuntime, nowTick uint64) {
	for _, mon := range zr.monsters() {
		t := mon.Monster.Task
		if t == nil || t.StartedTick == nowTick {
			continue
		}
		if t.Advance() {
			w.completeTask(zr, mon, nowTick)
		}
	}
}

func (w *World) abortTask(zr *zoneRuntime, mon *entity.Entity, nowTick uint64, reason string) {
	t := mon.Monster.Task
	zr.audit(AuditEntry{Tick: nowTick, Actor: mon.OwnerID, Action: "CRAFT_ABORTED", Entity: mon.ID, Pos: [2]int{mon.Pos.X, mon.Pos.Y}, Reason: reason, Details: map[string]any{"recipe": t.Recipe, "workshop": t.WorkshopID}})
	w.cancelTask(zr, mon)
}

// completeTask resolves a finished task: one output stack appears in the
// workshop, inputs are consumed, tools wear and the crafter learns.
func (w *World) completeTask(zr *zoneRuntime, mon *entity.Entity, nowTick uint64) {
	m := mon.Monster
	t := m.Task
	ws, ok := zr.grid.Get(t.WorkshopID)
	if !ok || ws.Workshop == nil {
		w.abortTask(zr, mon, nowTick, "workshop vanished")
		return
	}
	recipe, err := w.resolveRecipe(ws, t.Recipe)
	if err != nil {
		w.abortTask(zr, mon, nowTick, err.Error())
		return
	}
	plan := w.planCraft(zr, ws, recipe)
	if !plan.complete() {
		ws.Workshop.MissingInputs = plan.missingInputs
		ws.Workshop.MissingTools = plan.missingTools
		w.abortTask(zr, mon, nowTick, "inputs changed")
		return
	}

	eff := w.effectiveAbilities(m, nowTick)
	req := crafting.Request{
		WorldSeed:  w.cfg.Seed,
		Tick:       nowTick,
		WorkshopID: ws.ID,
		CrafterID:  mon.ID,
		Recipe:     recipe.Key(),
		Output: crafting.Output{
			GoodType:  recipe.Name,
			Raw:       recipe.IsRaw(),
			BaseValue: recipe.BaseValue(),
			Density:   recipe.RawDensity,
			Volume:    recipe.Volume(),
			Carryover: recipe.CarryoverTags,
		},
		CHA: eff.CHA,
	}
	for _, in := range plan.inputs {
		req.Inputs = append(req.Inputs, crafting.Input{Quality: in.Item.Quality, Lineage: in.Item.Lineage, Tags: w.itemTags(in.Item)})
	}
	primary := m.Skills.AppliedValue(recipe.PrimarySkill)
	specific := m.Skills.SpecificValue(recipe.Name)
	relevant := eff.Get(recipe.RelevantAbility)
	req.Quantity = crafting.QuantityParams{
		Base:     recipe.BaseQuantity(),
		Fixed:    recipe.IsFixedQuantity,
		Relevant: relevant,
		Primary:  primary,
		Specific: specific,
		STR:      eff.STR,
		DEX:      eff.DEX,
	}
	qp := crafting.QualityParams{
		HasQuality: recipe.QualityRolled(),
		Primary:    primary,
		Specific:   specific,
		Relevant:   relevant,
		Difficulty: recipe.DifficultyOrOne(),
		Matching:   skills.MatchingTransferable(recipe.TransferableSkills, m.Transferable),
		WIS:        eff.WIS,
		STR:        eff.STR,
	}
	for i, tl := range plan.tools {
		qp.Tools = append(qp.Tools, crafting.ToolUse{Quality: tl.Item.Quality, Weight: plan.toolWeights[i]})
	}
	for _, s := range recipe.SecondarySkills {
		qp.Secondary = append(qp.Secondary, m.Skills.AppliedValue(s))
	}
	for _, s := range recipe.DestabilizerSkills {
		qp.Destabilizer = append(qp.Destabilizer, m.Skills.AppliedValue(s))
	}
	req.Quality = qp
	out := crafting.Resolve(req)

	src := ledger.OutputSources{
		WorkshopOwner: ledger.Sole(ws.OwnerID),
		OwnerWeight:   w.cfg.OwnerWeight,
		Crafter:       mon.OwnerID,
		ValueAdded:    recipe.ValueAddedShares,
	}
	for _, in := range plan.inputs {
		src.Inputs = append(src.Inputs, ledger.InputSource{Shares: in.Item.Shares, Producer: in.Item.ProducerID, Count: in.Item.Quantity})
	}
	for i, tl := range plan.tools {
		sh := tl.Item.Shares
		if len(sh) == 0 {
			sh = ledger.Sole(tl.OwnerID)
		}
		src.Tools = append(src.Tools, ledger.ToolSource{Shares: sh, Weight: plan.toolWeights[i]})
	}
	shares := ledger.BuildOutputShares(src)
	if err := shares.Check(); err != nil {
		w.logger.Printf("world %s: share invariant broken for %s at %s: %v", w.cfg.ID, recipe.Name, ws.ID, err)
		w.abortTask(zr, mon, nowTick, err.Error())
		return
	}

	fw, fh := recipe.Footprint()
	ox, oy := crafting.OutputPosition(ws.Pos.X, ws.Pos.Y, ws.Size.W, ws.Size.H, fw, fh)
	at := entity.Cell{X: ox, Y: oy}
	item := &entity.Entity{
		ID:     zr.newItemID(),
		Kind:   entity.KindItem,
		Size:   entity.Size{W: fw, H: fh},
		Blocks: true,
		Stored: &entity.Storage{ContainerID: ws.ID, Role: entity.RoleOutput, Offset: entity.Cell{X: ox - ws.Pos.X, Y: oy - ws.Pos.Y}},
		Item: &entity.Item{
			GoodType:    recipe.Name,
			Quality:     out.Quality,
			Quantity:    out.Quantity,
			Tags:        out.Tags,
			Lineage:     out.Lineage,
			Value:       out.Value,
			Weight:      out.Weight,
			Shares:      shares,
			ProducerID:  mon.OwnerID,
			CreatedTick: nowTick,
		},
	}
	w.applyDurability(item.Item, recipe)
	if err := zr.grid.Place(item, at); err != nil {
		w.logger.Printf("world %s: placing output of %s failed: %v", w.cfg.ID, ws.ID, err)
		w.abortTask(zr, mon, nowTick, err.Error())
		return
	}
	ws.Contents = append(ws.Contents, item.ID)

	for _, in := range plan.inputs {
		zr.destroy(in.ID)
	}
	for _, tl := range plan.tools {
		left, broken := crafting.Wear(tl.Item.Durability, out.Weight, out.Quantity)
		if broken {
			zr.destroy(tl.ID)
			continue
		}
		tl.Item.Durability = left
	}

	gain := m.Skills.Learn(eff, skills.Exercise{
		Duration:             t.Duration,
		Primary:              recipe.PrimarySkill,
		Specific:             recipe.Name,
		Secondary:            recipe.SecondarySkills,
		Destabilize:          recipe.DestabilizerSkills,
		LearnDestabilizers:   recipe.LearnDestabilizers,
		RelevantTransferable: w.catalogs.Skills.RelevantTransferable(recipe.PrimarySkill),
		Transferable:         m.Transferable,
	})

	ws.Workshop.CrafterID = ""
	m.Task = nil
	zr.audit(AuditEntry{
		Tick:   nowTick,
		Actor:  mon.OwnerID,
		Action: "CRAFT_COMPLETE",
		Entity: item.ID,
		Pos:    [2]int{at.X, at.Y},
		Details: map[string]any{
			"monster":  mon.ID,
			"workshop": ws.ID,
			"recipe":   recipe.Name,
			"quantity": out.Quantity,
			"quality":  out.Quality,
			"value":    out.Value,
			"primary":  gain.Primary,
			"playback": t.FromPlayback,
		},
	})
}
