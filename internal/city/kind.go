// Package city provides the grid, building, and zoning data model for the
// city simulation, along with the fixed policy tables for stats, taxes, and
// costs.
package city

import "fmt"

// Zone is a player-designated land-use category.
type Zone uint8

const (
	ZoneNone Zone = iota
	ZoneResidential
	ZoneCommercial
	ZoneIndustrial
)

var zoneNames = [...]string{"", "residential", "commercial", "industrial"}

func (z Zone) String() string {
	if int(z) < len(zoneNames) {
		return zoneNames[z]
	}
	return fmt.Sprintf("zone(%d)", z)
}

// ParseZone converts a zone name back into a Zone.
func ParseZone(s string) (Zone, error) {
	for i, name := range zoneNames {
		if i > 0 && name == s {
			return Zone(i), nil
		}
	}
	return ZoneNone, fmt.Errorf("%w: unknown zone %q", ErrInvalidConfiguration, s)
}

// Service is a non-zoned building kind providing area effects.
type Service uint8

const (
	ServiceNone Service = iota
	ServicePark
	ServiceSchool
	ServiceHospital
	ServicePowerPlant
	ServicePolice
)

var serviceNames = [...]string{"", "park", "school", "hospital", "powerplant", "police"}

func (s Service) String() string {
	if int(s) < len(serviceNames) {
		return serviceNames[s]
	}
	return fmt.Sprintf("service(%d)", s)
}

// ParseService converts a service name back into a Service.
func ParseService(s string) (Service, error) {
	for i, name := range serviceNames {
		if i > 0 && name == s {
			return Service(i), nil
		}
	}
	return ServiceNone, fmt.Errorf("%w: unknown service building %q", ErrInvalidConfiguration, s)
}

// Size is a building's size tier.
type Size uint8

const (
	SizeSmall Size = iota
	SizeMedium
	SizeLarge
	SizeBlock // multi-cell block footprint (2x2 by default)
)

var sizeNames = [...]string{"small", "medium", "large", "block_2x2"}

func (s Size) String() string {
	if int(s) < len(sizeNames) {
		return sizeNames[s]
	}
	return fmt.Sprintf("size(%d)", s)
}

// ParseSize converts a size name back into a Size. The empty string is small.
func ParseSize(s string) (Size, error) {
	if s == "" {
		return SizeSmall, nil
	}
	for i, name := range sizeNames {
		if name == s {
			return Size(i), nil
		}
	}
	return SizeSmall, fmt.Errorf("%w: unknown size %q", ErrInvalidConfiguration, s)
}

// Kind is the closed set of building categories. Every derived-stat table
// switches over it exhaustively.
type Kind uint8

const (
	KindResidential Kind = iota
	KindCommercial
	KindIndustrial
	KindResidentialBlock
	KindCommercialBlock
	KindIndustrialBlock
	KindPark
	KindSchool
	KindHospital
	KindPowerPlant
	KindPolice
)

var kindNames = [...]string{
	"residential", "commercial", "industrial",
	"residential_block", "commercial_block", "industrial_block",
	"park", "school", "hospital", "powerplant", "police",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// IsService reports whether the kind is a service building.
func (k Kind) IsService() bool {
	return k >= KindPark
}

// IsBlock reports whether the kind is a zoned block building.
func (k Kind) IsBlock() bool {
	return k >= KindResidentialBlock && k <= KindIndustrialBlock
}

// InfraKind is an infrastructure tile type.
type InfraKind uint8

const (
	InfraNone InfraKind = iota
	InfraRoad
	InfraPower
	InfraWater
)

var infraNames = [...]string{"", "road", "power", "water"}

func (k InfraKind) String() string {
	if int(k) < len(infraNames) {
		return infraNames[k]
	}
	return fmt.Sprintf("infra(%d)", k)
}

// MarshalText encodes the kind by name.
func (k InfraKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name. The empty string is InfraNone.
func (k *InfraKind) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = InfraNone
		return nil
	}
	v, err := ParseInfraKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseInfraKind converts an infrastructure name back into an InfraKind.
func ParseInfraKind(s string) (InfraKind, error) {
	for i, name := range infraNames {
		if i > 0 && name == s {
			return InfraKind(i), nil
		}
	}
	return InfraNone, fmt.Errorf("%w: unknown infrastructure %q", ErrInvalidConfiguration, s)
}
