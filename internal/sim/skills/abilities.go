package skills

const (
	MinAbility = 1
	MaxAbility = 18
)

// Ability indexes as used by relevant_ability_score in good type data.
const (
	STR = iota
	DEX
	CON
	INT
	WIS
	CHA
)

type Abilities struct {
	STR int `json:"str"`
	DEX int `json:"dex"`
	CON int `json:"con"`
	INT int `json:"int"`
	WIS int `json:"wis"`
	CHA int `json:"cha"`
}

func (a Abilities) Get(idx int) int {
	switch idx {
	case STR:
		return a.STR
	case DEX:
		return a.DEX
	case CON:
		return a.CON
	case INT:
		return a.INT
	case WIS:
		return a.WIS
	case CHA:
		return a.CHA
	default:
		return 0
	}
}

// Plus returns a with bonus added to every score.
func (a Abilities) Plus(bonus int) Abilities {
	if bonus == 0 {
		return a
	}
	return Abilities{
		STR: a.STR + bonus,
		DEX: a.DEX + bonus,
		CON: a.CON + bonus,
		INT: a.INT + bonus,
		WIS: a.WIS + bonus,
		CHA: a.CHA + bonus,
	}
}

func (a Abilities) Valid() bool {
	for i := STR; i <= CHA; i++ {
		v := a.Get(i)
		if v < MinAbility || v > MaxAbility {
			return false
		}
	}
	return true
}

// AgeBonus is +1 from 30 game days of age and +2 from 60.
func AgeBonus(ageDays int) int {
	switch {
	case ageDays >= 60:
		return 2
	case ageDays >= 30:
		return 1
	default:
		return 0
	}
}
