// Package card models the 32-card Marias deck used by Oko bere.
package card

// Suit is one of the four Czech suits.
type Suit int

const (
	Srdce Suit = iota
	Kule
	Listy
	Zaludy
)

// Rank is one of the eight ranks of a Marias deck.
type Rank int

const (
	Sedm Rank = iota
	Osm
	Devet
	Deset
	Spodek
	Svrsek
	Kral
	Eso
)

var suitNames = [...]string{"SRDCE", "KULE", "LISTY", "ZALUDY"}
var rankNames = [...]string{"SEDM", "OSM", "DEVET", "DESET", "SPODEK", "SVRSEK", "KRAL", "ESO"}

// Card is one card identity. The zero value is the seven of hearts.
type Card struct {
	Suit Suit
	Rank Rank
}

// Value returns the card's point value under Oko bere rules. The double-ace
// special case is handled at the hand level, not here.
func (c Card) Value() int {
	switch c.Rank {
	case Sedm:
		return 7
	case Osm:
		return 8
	case Devet:
		return 9
	case Deset:
		return 10
	case Spodek, Svrsek:
		return 1
	case Kral:
		return 2
	case Eso:
		return 11
	default:
		return 0
	}
}

// String returns the canonical protocol token, e.g. "SRDCE-ESO".
func (c Card) String() string {
	return suitNames[c.Suit] + "-" + rankNames[c.Rank]
}
