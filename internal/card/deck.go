package card

import "math/rand/v2"

// DeckSize is the number of cards in a full Marias deck.
const DeckSize = 32

// Deck is a drawable pile of cards. When exhausted it automatically resets
// to a full shuffled deck, so Draw never fails.
type Deck struct {
	cards []Card
}

// NewDeck returns a full, shuffled deck.
func NewDeck() *Deck {
	d := &Deck{}
	d.reset()
	d.Shuffle()
	return d
}

func (d *Deck) reset() {
	d.cards = d.cards[:0]
	for s := Srdce; s <= Zaludy; s++ {
		for r := Sedm; r <= Eso; r++ {
			d.cards = append(d.cards, Card{Suit: s, Rank: r})
		}
	}
}

// Shuffle randomizes the remaining cards.
func (d *Deck) Shuffle() {
	rand.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card, reshuffling a fresh deck first if
// no cards remain.
func (d *Deck) Draw() Card {
	if len(d.cards) == 0 {
		d.reset()
		d.Shuffle()
	}
	c := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return c
}

// Stacked returns a deck that yields the given cards in order. Once they
// are exhausted Draw falls back to fresh shuffled decks.
func Stacked(cards ...Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	for i, c := range cards {
		d.cards[len(cards)-1-i] = c
	}
	return d
}

// Size returns the number of cards remaining.
func (d *Deck) Size() int {
	return len(d.cards)
}
