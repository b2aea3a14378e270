package hwio

import (
	"nesapu/emu/log"
)

// log unmapped accesses (useful for debugging but verbose since many drivers
// probe the whole register window)
const logUnmapped = false

// Table routes bus accesses to the registers mapped into an address window.
// The register space handled here is tiny, so the table is a plain map rather
// than anything clever.
type Table struct {
	Name string

	regs map[uint16]*Reg8
}

func NewTable(name string) *Table {
	t := &Table{Name: name}
	t.Reset()
	return t
}

func (t *Table) Reset() {
	t.regs = make(map[uint16]*Reg8)
}

// MapBank maps every offset-tagged register of bank at base+offset. The bank
// must have been initialized with MustInitRegs first.
func (t *Table) MapBank(base uint16, bank any) {
	regs, err := bankGetRegs(bank)
	if err != nil {
		panic(err)
	}
	for _, br := range regs {
		t.MapReg8(base+br.offset, br.reg)
	}
}

func (t *Table) MapReg8(addr uint16, reg *Reg8) {
	t.regs[addr] = reg
}

func (t *Table) Unmap(begin, end uint16) {
	for addr := uint32(begin); addr <= uint32(end); addr++ {
		delete(t.regs, uint16(addr))
	}
}

// Read8 forwards the read to the register mapped at addr. Unmapped reads
// return 0 (open bus is the dispatcher's concern, not ours).
func (t *Table) Read8(addr uint16) uint8 {
	reg := t.regs[addr]
	if reg == nil {
		if logUnmapped {
			log.ModHwIo.ErrorZ("unmapped Read8").
				String("name", t.Name).
				Hex16("addr", addr).
				End()
		}
		return 0
	}
	return reg.Read8(addr)
}

// Peek8 is a side-effect-free Read8.
func (t *Table) Peek8(addr uint16) uint8 {
	reg := t.regs[addr]
	if reg == nil {
		return 0
	}
	return reg.Peek8(addr)
}

func (t *Table) Write8(addr uint16, val uint8) {
	reg := t.regs[addr]
	if reg == nil {
		if logUnmapped {
			log.ModHwIo.ErrorZ("unmapped Write8").
				String("name", t.Name).
				Hex16("addr", addr).
				Hex8("val", val).
				End()
		}
		return
	}
	reg.Write8(addr, val)
}
