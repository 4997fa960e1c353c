package axi

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

type board struct {
	id   uint32
	regs map[uint32]uint32
}

func newBoard(id uint32) *board { return &board{id: id, regs: map[uint32]uint32{}} }

func (b *board) AxiRead(index uint32) uint32 {
	if index == 0 {
		return b.id
	}
	return b.regs[index]
}

func (b *board) AxiWrite(index, data uint32) { b.regs[index] = data }

// the boards of the simulator, in the order the machine registers them
func boards() (mem, cpu, dl, kl, ky, rl *board) {
	return newBoard(0x424D2005), newBoard(0x31314017), newBoard(0x444C1002),
		newBoard(0x4B4C0002), newBoard(0x4B59200D), newBoard(0x524C2002)
}

func TestBuildPacksLargestFirst(t *testing.T) {
	is := is.New(t)
	mem, cpu, dl, kl, ky, rl := boards()
	var b Builder
	for _, d := range []Device{mem, cpu, dl, kl, ky, rl} {
		b.Add(d)
	}
	p, err := b.Build()
	is.NoErr(err)

	is.Equal(p.Read(0), cpu.id)
	is.Equal(p.Read(32), mem.id)
	is.Equal(p.Read(40), ky.id)
	is.Equal(p.Read(48), rl.id)
	is.Equal(p.Read(56), dl.id)
	is.Equal(p.Read(60), kl.id)
	is.Equal(p.Read(62), uint32(Unassigned))
	is.Equal(p.Read(1023), uint32(Unassigned))
	is.Equal(p.Read(5000), uint32(Unassigned))
}

func TestIndexIsMaskedToBlock(t *testing.T) {
	is := is.New(t)
	mem, cpu, dl, kl, ky, rl := boards()
	var b Builder
	for _, d := range []Device{mem, cpu, dl, kl, ky, rl} {
		b.Add(d)
	}
	p, err := b.Build()
	is.NoErr(err)

	p.Write(40+3, 0777570)
	is.Equal(ky.regs[3], uint32(0777570))
	is.Equal(p.Read(43), uint32(0777570))
	p.Write(61, 1<<31)
	is.Equal(kl.regs[1], uint32(1<<31))
	p.Write(100, 1) // unassigned, dropped
	for _, d := range []*board{mem, cpu, dl, rl} {
		is.Equal(len(d.regs), 0)
	}
}

func TestBuildOverflow(t *testing.T) {
	is := is.New(t)
	var b Builder
	b.Add(newBoard(0x41418000)) // 512 slots
	b.Add(newBoard(0x42428000))
	b.Add(newBoard(0x43430000)) // 2 more don't fit
	_, err := b.Build()
	is.True(errors.Is(err, ErrOverflow))
}

func TestFind(t *testing.T) {
	is := is.New(t)
	mem, cpu, dl, kl, ky, rl := boards()
	var b Builder
	for _, d := range []Device{mem, cpu, dl, kl, ky, rl} {
		b.Add(d)
	}
	p, err := b.Build()
	is.NoErr(err)

	var names []string
	Walk(p, func(base, id uint32) bool {
		names = append(names, ID(id))
		return true
	})
	is.Equal(names, []string{"11", "BM", "KY", "RL", "DL", "KL"})

	base, err := Find(p, "KY")
	is.NoErr(err)
	is.Equal(base, uint32(40))

	_, err = Find(p, "XE")
	is.True(errors.Is(err, ErrNotFound))
}
