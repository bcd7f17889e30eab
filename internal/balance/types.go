// Package balance holds the static tuning data for raids: raid classes,
// settlement loot tables, and the weights the resolvers apply.
package balance

import (
	"fmt"
	"strings"
)

// SettlementType is the cultural family a settlement belongs to. It selects
// the loot table and determines reputational spillover.
type SettlementType uint8

const (
	Viking SettlementType = iota
	Anglo
	Frankish
	Neutral
)

// SettlementTypes lists every settlement type.
var SettlementTypes = []SettlementType{Viking, Anglo, Frankish, Neutral}

func (t SettlementType) String() string {
	switch t {
	case Viking:
		return "viking"
	case Anglo:
		return "anglo"
	case Frankish:
		return "frankish"
	case Neutral:
		return "neutral"
	default:
		return fmt.Sprintf("settlement_type(%d)", uint8(t))
	}
}

// ParseSettlementType converts a name back to a SettlementType.
func ParseSettlementType(s string) (SettlementType, error) {
	for _, t := range SettlementTypes {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return Neutral, fmt.Errorf("unknown settlement type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t SettlementType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *SettlementType) UnmarshalText(b []byte) error {
	parsed, err := ParseSettlementType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
