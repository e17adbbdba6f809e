// Package access decides which katas a viewer may see and play based on belt rank.
package access

import "github.com/wko-katas/katas-engine/internal/models"

// CanAccess reports whether a viewer holding userBelt may open a kata of kataBelt.
// Comparison is by hierarchy index; an unknown belt on either side always fails.
func CanAccess(userBelt, kataBelt models.BeltLevel) bool {
	userIdx, kataIdx := userBelt.Index(), kataBelt.Index()
	if userIdx < 0 || kataIdx < 0 {
		return false
	}
	return userIdx >= kataIdx
}

// AccessibleLevels returns the hierarchy prefix up to and including userBelt
func AccessibleLevels(userBelt models.BeltLevel) []models.BeltLevel {
	idx := userBelt.Index()
	hierarchy := models.BeltHierarchy()
	return hierarchy[:idx+1]
}

// IsAdmin reports whether the belt carries administrative rights
func IsAdmin(belt models.BeltLevel) bool {
	return belt == models.HighestBelt()
}

// Gate filters catalog entries for one viewer. A nil viewer belt means an
// anonymous viewer, who may browse but not play.
type Gate struct {
	belt *models.BeltLevel
}

// NewGate creates a gate for the given viewer belt (nil for anonymous)
func NewGate(belt *models.BeltLevel) Gate {
	return Gate{belt: belt}
}

// Anonymous reports whether the gate has no viewer belt
func (g Gate) Anonymous() bool {
	return g.belt == nil
}

// Allows reports whether the viewer may play the kata
func (g Gate) Allows(kata models.Kata) bool {
	if g.belt == nil {
		return false
	}
	return CanAccess(*g.belt, kata.BeltLevel)
}
