// Package unibus models the PDP-11 UNIBUS as seen by the simulator: a
// directory from physical addresses to the device that answers for them.
package unibus

import "fmt"

// Addr is an 18 bit unibus address.
type Addr uint32

// IOPage is the first address of the I/O page. Everything below it
// belongs to the memory device.
const IOPage Addr = 0760000

// Device is a board plugged into the unibus.
type Device interface {
	// BusReset is called for power-up and for the RESET instruction.
	BusReset()

	// BusInterrupt returns the vector the device wants serviced at
	// level, or zero.
	BusInterrupt(level uint16) uint8

	// BusRead reads the word at addr. false means the device did not
	// respond, which the master sees as a bus timeout.
	BusRead(addr Addr) (uint16, bool)

	// BusWrite writes data at addr. If byte is set only the byte at
	// addr is written, taken from the low 8 bits of data.
	BusWrite(addr Addr, data uint16, byte bool) bool
}

// Bus is a PDP11 UNIBUS 18 bus.
type Bus struct {
	memory Device

	// one entry per word of the I/O page, [760000, 1000000)
	table [4096]Device

	devs []Device
}

// New returns an empty bus.
func New() *Bus { return new(Bus) }

// Attach adds d to the reset and interrupt chains. Devices are visited in
// the order they were attached, so on a tie for an interrupt level the
// first attached device wins.
func (b *Bus) Attach(d Device) {
	b.devs = append(b.devs, d)
}

// AttachMemory makes d answer for every address below the I/O page.
func (b *Bus) AttachMemory(d Device) {
	b.memory = d
}

// Claim routes the I/O page registers at addrs to d. A later claim for
// the same register replaces an earlier one.
func (b *Bus) Claim(d Device, addrs ...Addr) {
	for _, a := range addrs {
		if a < IOPage {
			panic(fmt.Sprintf("unibus: claim of %06o below the i/o page", a))
		}
		b.table[(a>>1)&4095] = d
	}
}

func (b *Bus) route(addr Addr) Device {
	if addr < IOPage {
		return b.memory
	}
	return b.table[(addr>>1)&4095]
}

// Read reads the word at addr from the UNIBUS.
func (b *Bus) Read(addr Addr) (uint16, bool) {
	d := b.route(addr)
	if d == nil {
		return 0, false
	}
	return d.BusRead(addr)
}

// Write writes data to addr on the UNIBUS.
func (b *Bus) Write(addr Addr, data uint16, byte bool) bool {
	d := b.route(addr)
	if d == nil {
		return false
	}
	return d.BusWrite(addr, data, byte)
}

// Reset asserts INIT to every attached device.
func (b *Bus) Reset() {
	for _, d := range b.devs {
		d.BusReset()
	}
}

// Interrupt polls the attached devices for an interrupt at level.
func (b *Bus) Interrupt(level uint16) uint8 {
	for _, d := range b.devs {
		if v := d.BusInterrupt(level); v != 0 {
			return v
		}
	}
	return 0
}

// MergeByte folds the byte write of data at addr into word, the way a
// word-wide register takes a byte write.
func MergeByte(word uint16, addr Addr, data uint16) uint16 {
	if addr&1 != 0 {
		return data<<8 | word&0377
	}
	return word&0177400 | data&0377
}
