package axi

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Find when no device carries the ID.
var ErrNotFound = errors.New("axi: device not found")

// Walk visits each device block on the page by reading the
// identification word at the start of each block. It stops when fn
// returns false or a block would run off the end of the page.
func Walk(p Port, fn func(base, id uint32) bool) {
	for base := uint32(0); base < Slots; {
		id := p.Read(base)
		n := Size(id)
		if base+n > Slots {
			return
		}
		if !fn(base, id) {
			return
		}
		base += n
	}
}

// ID returns the two character name in an identification word.
func ID(id uint32) string {
	return string([]byte{byte(id >> 24), byte(id >> 16)})
}

// Find returns the base slot of the first device named name.
func Find(p Port, name string) (uint32, error) {
	var (
		found uint32
		ok    bool
	)
	Walk(p, func(base, id uint32) bool {
		if ID(id) == name {
			found, ok = base, true
			return false
		}
		return true
	})
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return found, nil
}
