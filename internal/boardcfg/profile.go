package boardcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clocklab/sdrhw/internal/pll"
)

// Profile is a YAML document describing one chip instance for test or
// bench use, per §3's board-profile data model. It feeds the same
// types the solvers consume directly, so a fixture file and a
// hand-built Go literal produce identical solver input.
type Profile struct {
	Family string `yaml:"family"`
	// BusAddr is the chip's address on its transport: an I2C 7-bit
	// address for i2cdev-backed chips, or unused for SPI chips framed
	// by chip-select alone.
	BusAddr uint8 `yaml:"bus_addr"`

	XO   XOProfile      `yaml:"xo"`
	DPLL *DPLLProfile   `yaml:"dpll,omitempty"`

	Outputs []OutputProfile `yaml:"outputs"`
}

// XOProfile mirrors pll.XOSettings with YAML tags.
type XOProfile struct {
	FreqHz   uint64 `yaml:"freq_hz"`
	Doubler  bool   `yaml:"doubler"`
	Type     string `yaml:"type"` // "cmos" or "differential"
}

// DPLLProfile mirrors pll.DPLLConfig with YAML tags.
type DPLLProfile struct {
	ExternalRefHz          uint64 `yaml:"external_ref_hz"`
	TDCRateHz              uint64 `yaml:"tdc_rate_hz"`
	RefValidationTimeoutUs uint64 `yaml:"ref_validation_timeout_us"`
	HoldoverEnabled        bool   `yaml:"holdover_enabled"`
	HitlessPriority        int    `yaml:"hitless_priority"`
}

// OutputProfile mirrors pll.OutputRequest with YAML tags.
type OutputProfile struct {
	Port             int    `yaml:"port"`
	FreqHz           uint64 `yaml:"freq_hz"`
	TolerancePlusHz  uint64 `yaml:"tolerance_plus_hz"`
	ToleranceMinusHz uint64 `yaml:"tolerance_minus_hz"`
	Format           string `yaml:"format"`
	PhaseInvert      bool   `yaml:"phase_invert"`
	Affinity         string `yaml:"affinity"`
}

// LoadProfile reads and parses a board-profile YAML file.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("boardcfg: reading %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("boardcfg: parsing %s: %w", path, err)
	}
	return p, nil
}

// XOSettings converts the profile's XO block to pll.XOSettings.
func (p Profile) XOSettings() (pll.XOSettings, error) {
	var t pll.XOType
	switch p.XO.Type {
	case "", "cmos":
		t = pll.XOTypeCMOS
	case "differential":
		t = pll.XODifferential
	default:
		return pll.XOSettings{}, fmt.Errorf("boardcfg: unknown xo type %q", p.XO.Type)
	}
	return pll.XOSettings{FreqHz: p.XO.FreqHz, DoublerEnabled: p.XO.Doubler, Type: t}, nil
}

// DPLLConfig converts the profile's optional dpll block to
// *pll.DPLLConfig, returning nil when the profile declared none.
func (p Profile) DPLLConfig() *pll.DPLLConfig {
	if p.DPLL == nil {
		return nil
	}
	return &pll.DPLLConfig{
		ExternalRefHz:          p.DPLL.ExternalRefHz,
		TDCRateHz:              p.DPLL.TDCRateHz,
		RefValidationTimeoutUs: p.DPLL.RefValidationTimeoutUs,
		HoldoverEnabled:        p.DPLL.HoldoverEnabled,
		HitlessPriority:        p.DPLL.HitlessPriority,
	}
}

// OutputRequests converts the profile's output table to
// []pll.OutputRequest, in the order they appear in the file.
func (p Profile) OutputRequests() ([]pll.OutputRequest, error) {
	reqs := make([]pll.OutputRequest, 0, len(p.Outputs))
	for _, o := range p.Outputs {
		format, err := parseFormat(o.Format)
		if err != nil {
			return nil, err
		}
		affinity, err := parseAffinity(o.Affinity)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, pll.OutputRequest{
			Port:             o.Port,
			FreqHz:           o.FreqHz,
			TolerancePlusHz:  o.TolerancePlusHz,
			ToleranceMinusHz: o.ToleranceMinusHz,
			Format:           format,
			PhaseInvert:      o.PhaseInvert,
			Affinity:         affinity,
		})
	}
	return reqs, nil
}

func parseFormat(s string) (pll.Format, error) {
	switch s {
	case "", "off":
		return pll.FormatOff, nil
	case "lvds":
		return pll.FormatLVDS, nil
	case "lvpecl":
		return pll.FormatLVPECL, nil
	case "hcsl":
		return pll.FormatHCSL, nil
	case "cmos":
		return pll.FormatCMOS, nil
	default:
		return 0, fmt.Errorf("boardcfg: unknown output format %q", s)
	}
}

func parseAffinity(s string) (pll.Affinity, error) {
	switch s {
	case "", "any":
		return pll.AffinityAny, nil
	case "primary":
		return pll.AffinityPrimaryPLL, nil
	case "secondary":
		return pll.AffinitySecondaryPLL, nil
	default:
		return 0, fmt.Errorf("boardcfg: unknown output affinity %q", s)
	}
}
