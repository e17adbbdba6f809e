package models

import "strings"

// BeltLevel is a skill rank in the fixed belt hierarchy
type BeltLevel string

const (
	BeltBlanco             BeltLevel = "Blanco"
	BeltNaranja            BeltLevel = "Naranja"
	BeltAzul               BeltLevel = "Azul"
	BeltAzulBarraAmarillo  BeltLevel = "Azul barra Amarillo"
	BeltAmarillo           BeltLevel = "Amarillo"
	BeltAmarilloBarraVerde BeltLevel = "Amarillo barra Verde"
	BeltVerde              BeltLevel = "Verde"
	BeltVerdeBarraMarron   BeltLevel = "Verde barra Marrón"
	BeltMarron             BeltLevel = "Marrón"
	BeltMarronBarraNegro   BeltLevel = "Marrón barra Negro"
	BeltNegro1Dan          BeltLevel = "Negro 1er DAN"
	BeltNegro2Dan          BeltLevel = "Negro 2do DAN"
	BeltNegro3Dan          BeltLevel = "Negro 3er DAN"
	BeltNegro4Dan          BeltLevel = "Negro 4to DAN"
)

// beltHierarchy is ordered from lowest to highest rank. Never mutate it.
var beltHierarchy = [...]BeltLevel{
	BeltBlanco,
	BeltNaranja,
	BeltAzul,
	BeltAzulBarraAmarillo,
	BeltAmarillo,
	BeltAmarilloBarraVerde,
	BeltVerde,
	BeltVerdeBarraMarron,
	BeltMarron,
	BeltMarronBarraNegro,
	BeltNegro1Dan,
	BeltNegro2Dan,
	BeltNegro3Dan,
	BeltNegro4Dan,
}

// BeltHierarchy returns a copy of the belt ordering, lowest rank first
func BeltHierarchy() []BeltLevel {
	out := make([]BeltLevel, len(beltHierarchy))
	copy(out, beltHierarchy[:])
	return out
}

// LowestBelt returns the first rank of the hierarchy
func LowestBelt() BeltLevel { return beltHierarchy[0] }

// HighestBelt returns the last rank of the hierarchy
func HighestBelt() BeltLevel { return beltHierarchy[len(beltHierarchy)-1] }

// Index returns the position of the belt in the hierarchy, or -1 when unknown
func (b BeltLevel) Index() int {
	for i, level := range beltHierarchy {
		if level == b {
			return i
		}
	}
	return -1
}

// Valid reports whether the belt is part of the hierarchy
func (b BeltLevel) Valid() bool {
	return b.Index() >= 0
}

// BeltFromToken maps the belt token used in video file names to its display level.
// Tokens are matched exactly; there is no fuzzy matching.
func BeltFromToken(token string) (BeltLevel, bool) {
	switch token {
	case "Blanco":
		return BeltBlanco, true
	case "Naranja":
		return BeltNaranja, true
	case "Azul":
		return BeltAzul, true
	case "AzulAmarillo":
		return BeltAzulBarraAmarillo, true
	case "Amarillo":
		return BeltAmarillo, true
	case "AmarilloVerde":
		return BeltAmarilloBarraVerde, true
	case "Verde":
		return BeltVerde, true
	case "VerdeMarron":
		return BeltVerdeBarraMarron, true
	case "Marron":
		return BeltMarron, true
	case "MarronNegro":
		return BeltMarronBarraNegro, true
	case "Negro1Dan":
		return BeltNegro1Dan, true
	case "Negro2Dan":
		return BeltNegro2Dan, true
	case "Negro3Dan":
		return BeltNegro3Dan, true
	case "Negro4Dan":
		return BeltNegro4Dan, true
	default:
		return "", false
	}
}

// Category groups belts into curriculum tiers
type Category string

const (
	CategoryBasic    Category = "Básicos"
	CategoryAdvanced Category = "Avanzados"
	CategorySuperior Category = "Superiores"
)

// CategoryFor derives the category from the belt display name.
// The green/brown check runs first, so "Marrón barra Negro" is Advanced.
func CategoryFor(level BeltLevel) Category {
	name := string(level)
	switch {
	case strings.Contains(name, "Verde") || strings.Contains(name, "Marrón"):
		return CategoryAdvanced
	case strings.Contains(name, "Negro"):
		return CategorySuperior
	default:
		return CategoryBasic
	}
}
