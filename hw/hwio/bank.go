package hwio

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// A register bank is a structure containing multiple Reg8 fields, each
// carrying a "hwio" struct tag:
//
//	offset=0x15     Byte-offset within the register bank at which this
//	                register is mapped. If this option is missing the
//	                register is initialized but not part of the bank and is
//	                ignored by Table.MapBank.
//
//	reset=0xNN      Initial register value.
//
//	rwmask=0xNN     Mask of writable bits (other bits are read-only).
//
//	rcb[=Name]      Bind the read callback to the bank method Name, or to
//	                Read<FIELD> by default (e.g. field Duty -> WriteDUTY).
//	wcb[=Name]      Same for the write callback (Write<FIELD>).
//	pcb[=Name]      Same for the peek callback (Peek<FIELD>).
//
//	readonly        Bus writes are rejected (and logged).
//	writeonly       Bus reads are rejected (and logged).

// MustInitRegs initializes every tagged Reg8 field of bank: sets its name,
// applies reset value and access flags, and binds the declared callbacks to
// the bank's methods. Panics if a tag is malformed or a callback method is
// missing, since that is a programming error caught at construction.
func MustInitRegs(bank any) {
	if err := InitRegs(bank); err != nil {
		panic(err)
	}
}

func InitRegs(bank any) error {
	v := reflect.ValueOf(bank)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("hwio: bank must be a pointer to struct, got %T", bank)
	}

	sv := v.Elem()
	st := sv.Type()
	for i := range st.NumField() {
		field := st.Field(i)
		if field.Type != reflect.TypeFor[Reg8]() {
			continue
		}
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}

		reg := sv.Field(i).Addr().Interface().(*Reg8)
		reg.Name = field.Name

		for _, opt := range strings.Split(tag, ",") {
			key, val, _ := strings.Cut(opt, "=")
			switch key {
			case "offset":
				if _, err := parseNum(val); err != nil {
					return fmt.Errorf("hwio: %s: bad offset: %v", field.Name, err)
				}
			case "reset":
				n, err := parseNum(val)
				if err != nil {
					return fmt.Errorf("hwio: %s: bad reset value: %v", field.Name, err)
				}
				reg.Value = uint8(n)
			case "rwmask":
				n, err := parseNum(val)
				if err != nil {
					return fmt.Errorf("hwio: %s: bad rwmask: %v", field.Name, err)
				}
				reg.RoMask = ^uint8(n)
			case "readonly":
				reg.Flags |= ReadOnlyFlag
			case "writeonly":
				reg.Flags |= WriteOnlyFlag
			case "rcb":
				m, err := bankMethod(v, "Read", field.Name, val)
				if err != nil {
					return err
				}
				cb, ok := m.(func(uint8) uint8)
				if !ok {
					return fmt.Errorf("hwio: %s: read callback has wrong signature", field.Name)
				}
				reg.ReadCb = cb
			case "pcb":
				m, err := bankMethod(v, "Peek", field.Name, val)
				if err != nil {
					return err
				}
				cb, ok := m.(func(uint8) uint8)
				if !ok {
					return fmt.Errorf("hwio: %s: peek callback has wrong signature", field.Name)
				}
				reg.PeekCb = cb
			case "wcb":
				m, err := bankMethod(v, "Write", field.Name, val)
				if err != nil {
					return err
				}
				cb, ok := m.(func(uint8, uint8))
				if !ok {
					return fmt.Errorf("hwio: %s: write callback has wrong signature", field.Name)
				}
				reg.WriteCb = cb
			default:
				return fmt.Errorf("hwio: %s: unknown tag option %q", field.Name, key)
			}
		}
	}
	return nil
}

func parseNum(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 16)
}

// bankMethod resolves a callback method on the bank: either the explicit name
// given in the tag, or prefix + the uppercased field name.
func bankMethod(bank reflect.Value, prefix, fieldName, explicit string) (any, error) {
	name := explicit
	if name == "" {
		name = prefix + strings.ToUpper(fieldName)
	}
	m := bank.MethodByName(name)
	if !m.IsValid() {
		return nil, fmt.Errorf("hwio: no method %s on %s", name, bank.Type())
	}
	return m.Interface(), nil
}

type bankReg struct {
	offset uint16
	reg    *Reg8
}

// bankGetRegs collects the mappable registers of a bank (those with an
// offset= tag option).
func bankGetRegs(bank any) ([]bankReg, error) {
	v := reflect.ValueOf(bank)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("hwio: bank must be a pointer to struct, got %T", bank)
	}

	var regs []bankReg
	sv := v.Elem()
	st := sv.Type()
	for i := range st.NumField() {
		field := st.Field(i)
		if field.Type != reflect.TypeFor[Reg8]() {
			continue
		}
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		for _, opt := range strings.Split(tag, ",") {
			key, val, _ := strings.Cut(opt, "=")
			if key != "offset" {
				continue
			}
			n, err := parseNum(val)
			if err != nil {
				return nil, fmt.Errorf("hwio: %s: bad offset: %v", field.Name, err)
			}
			regs = append(regs, bankReg{
				offset: uint16(n),
				reg:    sv.Field(i).Addr().Interface().(*Reg8),
			})
		}
	}
	return regs, nil
}
