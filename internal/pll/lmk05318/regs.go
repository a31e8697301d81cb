package lmk05318

// Field is a bitfield within a 32-bit register word: a structured
// replacement for the shift-and-mask macros the original driver used,
// per the register-map redesign flag. Get/Set always operate in
// place so packing then unpacking a value round-trips exactly,
// provided the value fits Width bits.
type Field struct {
	Shift, Width uint
}

func (f Field) mask() uint32 { return (uint32(1)<<f.Width - 1) << f.Shift }

// Get extracts the field's value from word.
func (f Field) Get(word uint32) uint32 {
	return (word & f.mask()) >> f.Shift
}

// Set returns word with the field replaced by v, masked to Width bits.
func (f Field) Set(word uint32, v uint32) uint32 {
	return (word &^ f.mask()) | ((v << f.Shift) & f.mask())
}

// Register addresses. Synthetic but stable: this package hand-writes
// its register map (no generator in the retrieved corpus), grouped by
// functional block the way the vendor datasheet tables are laid out.
const (
	regPLL1NDiv   uint16 = 0x0100
	regPLL1Num    uint16 = 0x0104
	regPLL1Den    uint16 = 0x0108
	regPLL1RDiv   uint16 = 0x010C // pre_r/r_s pair feeding APLL2's PFD
	regPLL1Mode   uint16 = 0x0110 // free-run vs DPLL select, + DPLL sub-fields

	regPLL2NDiv uint16 = 0x0200
	regPLL2Num  uint16 = 0x0204
	regPLL2Den  uint16 = 0x0208
	regPD1      uint16 = 0x020C
	regPD2      uint16 = 0x0210

	regPortBase uint16 = 0x0300 // regPortBase + port*0x10
	portStride  uint16 = 0x10

	regStatus uint16 = 0x0400
)

var (
	fieldDPLLEnable = Field{Shift: 0, Width: 1}
	fieldPortDiv    = Field{Shift: 0, Width: 32}
	fieldPortMux    = Field{Shift: 0, Width: 2}
	fieldPortFormat = Field{Shift: 4, Width: 3}
	fieldPortInvert = Field{Shift: 8, Width: 1}

	fieldPrimaryLock   = Field{Shift: 0, Width: 1}
	fieldSecondaryLock = Field{Shift: 1, Width: 1}
)

func regPortDiv(port int) uint16  { return regPortBase + uint16(port)*portStride }
func regPortMux(port int) uint16  { return regPortBase + uint16(port)*portStride + 0x4 }
