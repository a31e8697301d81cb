// Package pll holds the types and helpers shared by every clock-tree
// synthesizer solver (C4): the output-port request/solution data
// model, the PLL state machine, and numeric primitives (binary GCD,
// VCO band intersection) the chip-specific solvers build on.
package pll

import "github.com/clocklab/sdrhw/internal/sdrerr"

// Format is the signal format a requested output port must drive.
type Format int

const (
	FormatOff Format = iota
	FormatLVDS
	FormatLVPECL
	FormatHCSL
	FormatCMOS
)

// Affinity hints which on-chip PLL should drive a given output port.
type Affinity int

const (
	AffinityAny Affinity = iota
	AffinityPrimaryPLL
	AffinitySecondaryPLL
)

// MuxSource is the multiplex source an output-port solution was routed
// through.
type MuxSource int

const (
	MuxPrimary MuxSource = iota
	MuxPrimaryInverted
	MuxSecondaryPostDiv1
	MuxSecondaryPostDiv2
)

// OutputRequest describes one requested clock output.
type OutputRequest struct {
	Port            int
	FreqHz          uint64
	TolerancePlusHz uint64
	ToleranceMinusHz uint64
	Format          Format
	PhaseInvert     bool
	Affinity        Affinity
}

// Disabled reports whether the request means "port not used".
func (r OutputRequest) Disabled() bool { return r.FreqHz == 0 }

// OutputSolution is attached to a request once it is solved.
type OutputSolution struct {
	Port       int
	Mux        MuxSource
	OutputDiv  uint64
	ActualFreqHz uint64
}

// WithinTolerance reports whether actual lies within [requested -
// toleranceMinus, requested + tolerancePlus].
func WithinTolerance(requested, actual, tolerancePlus, toleranceMinus uint64) bool {
	if actual >= requested {
		return actual-requested <= tolerancePlus
	}
	return requested-actual <= toleranceMinus
}

// DefaultToleranceHz is the absolute tolerance a port uses for any
// bound it declared as zero, per the numeric-semantics rule that
// equality is tested to within 1 Hz unless the port asked for more.
const DefaultToleranceHz = 1

// EffectiveTolerance returns the port's declared tolerance bounds, with
// each bound declared as zero replaced by DefaultToleranceHz.
func EffectiveTolerance(r OutputRequest) (plus, minus uint64) {
	plus, minus = r.TolerancePlusHz, r.ToleranceMinusHz
	if plus == 0 {
		plus = DefaultToleranceHz
	}
	if minus == 0 {
		minus = DefaultToleranceHz
	}
	return plus, minus
}

// State is the per-chip state machine every solver drives through.
type State int

const (
	StateUninit State = iota
	StateXOConfigured
	StateAPLL1Tuned
	StateAPLL2Tuned
	StateOutputsRouted
	StateLocked
)

func (s State) String() string {
	switch s {
	case StateUninit:
		return "uninit"
	case StateXOConfigured:
		return "xo_configured"
	case StateAPLL1Tuned:
		return "apll1_tuned"
	case StateAPLL2Tuned:
		return "apll2_tuned"
	case StateOutputsRouted:
		return "outputs_routed"
	case StateLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// XOType is the reference oscillator's electrical type.
type XOType int

const (
	XOTypeCMOS XOType = iota
	XODifferential
)

// XOSettings describes the reference oscillator feeding a chip.
type XOSettings struct {
	FreqHz         uint64
	DoublerEnabled bool
	Type           XOType
}

// DPLLConfig carries the inputs needed to configure a primary PLL in
// digital (TDC-referenced) mode instead of free-run.
type DPLLConfig struct {
	ExternalRefHz       uint64
	TDCRateHz           uint64
	RefValidationTimeoutUs uint64
	HoldoverEnabled     bool
	HitlessPriority     int
}

// Band is an inclusive frequency range in Hz, used for VCO candidate
// bands during secondary-PLL solving.
type Band struct {
	Min, Max uint64
}

// Intersect returns the overlap of a and b and whether one exists.
func (a Band) Intersect(b Band) (Band, bool) {
	lo := a.Min
	if b.Min > lo {
		lo = b.Min
	}
	hi := a.Max
	if b.Max < hi {
		hi = b.Max
	}
	if lo > hi {
		return Band{}, false
	}
	return Band{Min: lo, Max: hi}, true
}

// GCD computes the greatest common divisor of two uint64s using the
// binary (Stein's) algorithm, matching the numeric-semantics rule that
// fractional-PLL denominator reduction uses binary GCD.
func GCD(a, b uint64) uint64 {
	if a == 0 {
		return b
	}
	if b == 0 {
		return a
	}
	shift := 0
	for (a|b)&1 == 0 {
		a >>= 1
		b >>= 1
		shift++
	}
	for a&1 == 0 {
		a >>= 1
	}
	for b != 0 {
		for b&1 == 0 {
			b >>= 1
		}
		if a > b {
			a, b = b, a
		}
		b -= a
	}
	return a << shift
}

// ReduceFraction reduces num/den by their GCD, returning (0, 1) if num is 0.
func ReduceFraction(num, den uint64) (uint64, uint64) {
	if num == 0 {
		return 0, 1
	}
	g := GCD(num, den)
	return num / g, den / g
}

// errOp is a small helper so every solver raises errors with a
// consistent chip/operation signature.
func errOp(chip, op string, kind sdrerr.Kind, msg string, args ...any) error {
	return sdrerr.New(kind, chip, op, msg, args...)
}

// ErrOutOfRange reports a frequency outside the chip's absolute range.
func ErrOutOfRange(chip, op, msg string, args ...any) error {
	return errOp(chip, op, sdrerr.OutOfRange, msg, args...)
}

// ErrNoSolution reports an empty VCO band intersection.
func ErrNoSolution(chip, op, msg string, args ...any) error {
	return errOp(chip, op, sdrerr.NoSolution, msg, args...)
}

// ErrInvalidArgument reports an internally inconsistent request.
func ErrInvalidArgument(chip, op, msg string, args ...any) error {
	return errOp(chip, op, sdrerr.InvalidArgument, msg, args...)
}

// ErrUnsupported reports an unrecognised revision or a missing
// required constant.
func ErrUnsupported(chip, op, msg string, args ...any) error {
	return errOp(chip, op, sdrerr.Unsupported, msg, args...)
}
