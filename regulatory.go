package wifiscan

import (
	"fmt"
	"os"
	"time"

	"github.com/mdlayher/wifiscan/internal/genl"
	"github.com/mdlayher/wifiscan/internal/nl80211"
	"github.com/mdlayher/wifiscan/internal/nlattr"
)

// A DFSRegion is the regulatory body whose radar detection rules apply.
type DFSRegion int

// Possible DFSRegion values.
const (
	DFSUnset DFSRegion = iota
	DFSFCC
	DFSETSI
	DFSJapan
)

// String returns the string representation of a DFSRegion.
func (r DFSRegion) String() string {
	switch r {
	case DFSUnset:
		return "unset"
	case DFSFCC:
		return "FCC"
	case DFSETSI:
		return "ETSI"
	case DFSJapan:
		return "JP"
	default:
		return fmt.Sprintf("DFSRegion(%d)", r)
	}
}

// A RegulatoryInitiator identifies who requested a regulatory domain change.
type RegulatoryInitiator int

// Possible RegulatoryInitiator values.
const (
	RegulatoryInitiatorCore RegulatoryInitiator = iota
	RegulatoryInitiatorUser
	RegulatoryInitiatorDriver
	RegulatoryInitiatorCountryIE
)

// String returns the string representation of a RegulatoryInitiator.
func (i RegulatoryInitiator) String() string {
	switch i {
	case RegulatoryInitiatorCore:
		return "core"
	case RegulatoryInitiatorUser:
		return "user"
	case RegulatoryInitiatorDriver:
		return "driver"
	case RegulatoryInitiatorCountryIE:
		return "country IE"
	default:
		return fmt.Sprintf("RegulatoryInitiator(%d)", i)
	}
}

// A RegulatoryType is the kind of regulatory domain in effect.
type RegulatoryType int

// Possible RegulatoryType values.
const (
	RegulatoryCountry RegulatoryType = iota
	RegulatoryWorld
	RegulatoryCustomWorld
	RegulatoryIntersection
)

// String returns the string representation of a RegulatoryType.
func (t RegulatoryType) String() string {
	switch t {
	case RegulatoryCountry:
		return "country"
	case RegulatoryWorld:
		return "world"
	case RegulatoryCustomWorld:
		return "custom world"
	case RegulatoryIntersection:
		return "intersection"
	default:
		return fmt.Sprintf("RegulatoryType(%d)", t)
	}
}

// RegulatoryRuleFlags restrict what may be done in a frequency range.
type RegulatoryRuleFlags uint32

// Possible RegulatoryRuleFlags bits.
const (
	RuleNoOFDM RegulatoryRuleFlags = 1 << iota
	RuleNoCCK
	RuleNoIndoor
	RuleNoOutdoor
	RuleDFS
	RulePTPOnly
	RulePTMPOnly
	RuleNoIR
	_
	_
	_
	RuleAutoBandwidth
)

// A RegulatoryRule describes the limits which apply to one frequency range.
type RegulatoryRule struct {
	// StartFrequency, EndFrequency and MaxBandwidth are in kHz.
	StartFrequency int
	EndFrequency   int
	MaxBandwidth   int

	// MaxAntennaGain is in mBi and MaxEIRP in mBm.
	MaxAntennaGain int
	MaxEIRP        int

	// CACTime is the channel availability check time of DFS ranges.
	CACTime time.Duration

	Flags RegulatoryRuleFlags
}

// Regulatory is a regulatory domain as reported by nl80211.
type Regulatory struct {
	// Country is the ISO 3166 alpha2 code, or "00" for the world domain.
	Country string

	DFSRegion DFSRegion
	Rules     []RegulatoryRule
}

// A RegulatoryChange is carried by an EventRegulatoryChange.
type RegulatoryChange struct {
	Initiator RegulatoryInitiator
	Type      RegulatoryType

	// Country is set when Type is RegulatoryCountry.
	Country string
}

// validAlpha2 reports whether s is an upper case alpha2 code or "00".
func validAlpha2(s string) bool {
	if s == "00" {
		return true
	}
	if len(s) != 2 {
		return false
	}

	for _, c := range []byte(s) {
		if c < 'A' || c > 'Z' {
			return false
		}
	}

	return true
}

// parseRegulatory parses the first regulatory domain in a GET_REG reply.
func parseRegulatory(msgs []genl.Message) (*Regulatory, error) {
	for _, m := range msgs {
		if !nlattr.Contains(m.Attributes, nl80211.AttrRegAlpha2) {
			continue
		}

		var reg Regulatory
		for _, a := range m.Attributes {
			switch a.Type {
			case nl80211.AttrRegAlpha2:
				reg.Country = a.Str
			case nl80211.AttrDFSRegion:
				reg.DFSRegion = DFSRegion(a.Int)
			case nl80211.AttrRegRules:
				reg.Rules = parseRegulatoryRules(a.Nested)
			}
		}

		return &reg, nil
	}

	return nil, os.ErrNotExist
}

// parseRegulatoryRules parses the elements of AttrRegRules.
func parseRegulatoryRules(elems []nlattr.Attribute) []RegulatoryRule {
	rules := make([]RegulatoryRule, 0, len(elems))
	for _, e := range elems {
		var r RegulatoryRule
		for _, a := range e.Nested {
			switch a.Type {
			case nl80211.RegRuleFlags:
				r.Flags = RegulatoryRuleFlags(a.Int)
			case nl80211.RegRuleFreqStart:
				r.StartFrequency = int(a.Int)
			case nl80211.RegRuleFreqEnd:
				r.EndFrequency = int(a.Int)
			case nl80211.RegRuleMaxBandwidth:
				r.MaxBandwidth = int(a.Int)
			case nl80211.RegRuleMaxAntGain:
				r.MaxAntennaGain = int(a.Int)
			case nl80211.RegRuleMaxEIRP:
				r.MaxEIRP = int(a.Int)
			case nl80211.RegRuleDFSCACTime:
				r.CACTime = time.Duration(a.Int) * time.Millisecond
			}
		}

		rules = append(rules, r)
	}

	return rules
}

// parseRegulatoryChange parses the attributes of a REG_CHANGE notification.
func parseRegulatoryChange(attrs []nlattr.Attribute) *RegulatoryChange {
	var rc RegulatoryChange
	for _, a := range attrs {
		switch a.Type {
		case nl80211.AttrRegInitiator:
			rc.Initiator = RegulatoryInitiator(a.Int)
		case nl80211.AttrRegType:
			rc.Type = RegulatoryType(a.Int)
		case nl80211.AttrRegAlpha2:
			rc.Country = a.Str
		}
	}

	return &rc
}
