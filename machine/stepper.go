package machine

// Stepper is a board that does work on every machine cycle.
type Stepper interface {
	Step()
}

// Chain is the list of steppers in the order they run.
type Chain []Stepper

// Add appends s to the chain.
func (c *Chain) Add(s Stepper) { *c = append(*c, s) }

// Step steps each member of the chain once.
func (c Chain) Step() {
	for _, s := range c {
		s.Step()
	}
}
