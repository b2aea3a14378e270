package hwio_test

import (
	"strings"
	"testing"

	"nesapu/hw/hwio"
)

type testBank struct {
	t   testing.TB
	Bus *hwio.Table

	// $2000
	Reg0 hwio.Reg8 `hwio:"offset=0x0,reset=0x77"`
	// $2001
	Reg1 hwio.Reg8 `hwio:"offset=0x1,rwmask=0xF0,rcb,reset=0x99"`
	// $2002
	Reg2 hwio.Reg8 `hwio:"offset=0x2,readonly,pcb=PeekReg2"`
	// $2003
	Reg3 hwio.Reg8 `hwio:"offset=0x3,writeonly,wcb"`

	wrote uint8
}

func newTestBank(tb testing.TB) *testBank {
	bank := &testBank{t: tb}
	hwio.MustInitRegs(bank)

	bank.Bus = hwio.NewTable("bus")
	bank.Bus.MapBank(0x2000, bank)
	return bank
}

// $2001
func (bank *testBank) ReadREG1(val uint8) uint8 { return bank.Reg1.Value + 1 }

// $2002
func (bank *testBank) PeekReg2(val uint8) uint8 { return 0x12 }

// $2003
func (bank *testBank) WriteREG3(old, val uint8) { bank.wrote = val }

func (bank *testBank) wantRead8(addr uint16, want uint8) {
	bank.t.Helper()

	if got := bank.Bus.Read8(addr); got != want {
		bank.t.Errorf("Read8(%04X) = %02X, want %02X", addr, got, want)
	}
}

func (bank *testBank) wantPeek8(addr uint16, want uint8) {
	bank.t.Helper()

	if got := bank.Bus.Peek8(addr); got != want {
		bank.t.Errorf("Peek8(%04X) = %02X, want %02X", addr, got, want)
	}
}

func TestTableRegs(t *testing.T) {
	bank := newTestBank(t)

	// Reg0: plain latched register with a reset value.
	bank.wantRead8(0x2000, 0x77)
	bank.Bus.Write8(0x2000, 0x12)
	bank.wantRead8(0x2000, 0x12)

	// Reg1: read callback and write mask.
	bank.wantRead8(0x2001, 0x9a)
	bank.Bus.Write8(0x2001, 0xff)
	bank.wantRead8(0x2001, 0xfa)
	bank.Bus.Write8(0x2001, 0x0F)
	bank.wantRead8(0x2001, 0x0A)

	// Reg2: readonly, reads latched value, peeks through callback.
	bank.wantRead8(0x2002, 0x00)
	bank.wantPeek8(0x2002, 0x12)
	bank.Bus.Write8(0x2002, 0x9b)
	bank.wantRead8(0x2002, 0x00)

	// Reg3: writeonly with a write callback.
	bank.Bus.Write8(0x2003, 0x55)
	if bank.wrote != 0x55 {
		t.Errorf("wrote = %02X, want 0x55", bank.wrote)
	}
	bank.wantRead8(0x2003, 0x00)
}

func TestTableUnmapped(t *testing.T) {
	bank := newTestBank(t)

	bank.wantRead8(0x2020, 0x00)
	bank.wantPeek8(0x2020, 0x00)
	bank.Bus.Write8(0x2020, 0xff) // no-op
}

func TestUnmap(t *testing.T) {
	bank := newTestBank(t)

	bank.wantRead8(0x2000, 0x77)
	bank.Bus.Unmap(0x2000, 0x2001)
	bank.wantRead8(0x2000, 0x00)
	bank.wantRead8(0x2001, 0x00)
	bank.wantRead8(0x2002, 0x00)
	bank.wantPeek8(0x2002, 0x12) // still mapped
}

func TestMapBankBases(t *testing.T) {
	bank := newTestBank(t)
	bank.Bus.MapBank(0x3000, bank)

	// The same registers are reachable at both bases.
	bank.Bus.Write8(0x3000, 0x42)
	bank.wantRead8(0x2000, 0x42)
	bank.wantRead8(0x3000, 0x42)
}

func TestInitRegsErrors(t *testing.T) {
	t.Run("not a pointer", func(t *testing.T) {
		err := hwio.InitRegs(struct{}{})
		if err == nil {
			t.Fatalf("expected error for non-pointer bank")
		}
	})

	t.Run("unknown option", func(t *testing.T) {
		var bank struct {
			R hwio.Reg8 `hwio:"offset=0x0,frobnicate"`
		}
		err := hwio.InitRegs(&bank)
		if err == nil || !strings.Contains(err.Error(), "unknown tag option") {
			t.Fatalf("err = %v, want unknown tag option", err)
		}
	})

	t.Run("missing callback", func(t *testing.T) {
		var bank struct {
			R hwio.Reg8 `hwio:"offset=0x0,rcb"`
		}
		err := hwio.InitRegs(&bank)
		if err == nil || !strings.Contains(err.Error(), "no method") {
			t.Fatalf("err = %v, want missing method", err)
		}
	})

	t.Run("bad offset", func(t *testing.T) {
		var bank struct {
			R hwio.Reg8 `hwio:"offset=zzz"`
		}
		err := hwio.InitRegs(&bank)
		if err == nil || !strings.Contains(err.Error(), "bad offset") {
			t.Fatalf("err = %v, want bad offset", err)
		}
	})
}
