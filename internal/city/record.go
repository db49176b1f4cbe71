package city

import (
	"encoding/json"
	"fmt"
)

// ServiceType is the record "type" for service buildings, which carry no
// zone category.
const ServiceType = "service"

// Record is the persisted form of a building. Field names are part of the
// save format.
type Record struct {
	ID           string `json:"id" db:"id"`
	X            int    `json:"x" db:"x"`
	Y            int    `json:"y" db:"y"`
	Type         string `json:"type" db:"type"`
	BuildingType string `json:"buildingType,omitempty" db:"building_type"`
	Size         string `json:"size" db:"size"`
	Population   int    `json:"population" db:"population"`
	Jobs         int    `json:"jobs" db:"jobs"`
	Pollution    int    `json:"pollution" db:"pollution"`
	Happiness    int    `json:"happiness" db:"happiness"`
	ServiceRange int    `json:"serviceRange" db:"service_range"`
	IsBlock      bool   `json:"isBlock" db:"is_block"`
	BlockWidth   int    `json:"blockWidth" db:"block_width"`
	BlockHeight  int    `json:"blockHeight" db:"block_height"`
}

// NewRecord returns a record with every defaulted field set, as if decoded
// from an empty object.
func NewRecord() Record {
	return Record{
		Happiness:    DefaultHappiness,
		ServiceRange: DefaultServiceRange,
		BlockWidth:   1,
		BlockHeight:  1,
	}
}

// UnmarshalJSON fills documented defaults for fields absent from data.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	p := plain(NewRecord())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Record(p)
	return nil
}

// Record converts the building into its persisted form.
func (b *Building) Record() Record {
	r := Record{
		ID:           b.ID,
		X:            b.X,
		Y:            b.Y,
		Size:         b.spec.Size.String(),
		Population:   b.stats.Population,
		Jobs:         b.stats.Jobs,
		Pollution:    b.stats.Pollution,
		Happiness:    b.happiness,
		ServiceRange: b.stats.ServiceRange,
		IsBlock:      b.spec.Block,
		BlockWidth:   1,
		BlockHeight:  1,
	}
	if b.spec.Service != ServiceNone {
		r.Type = ServiceType
		r.BuildingType = b.spec.Service.String()
	} else {
		r.Type = b.spec.Zone.String()
	}
	if b.spec.Block {
		r.BlockWidth = b.spec.BlockWidth
		r.BlockHeight = b.spec.BlockHeight
	}
	return r
}

// FromRecord rebuilds a building from its persisted form. Stored stats are
// authoritative and are not rerolled. Out-of-range numbers are coerced to
// their documented defaults; an unknown category is an error.
func FromRecord(r Record, opts ...Option) (*Building, error) {
	var spec Spec
	if r.Type == ServiceType || (r.Type == "" && r.BuildingType != "") {
		svc, err := ParseService(r.BuildingType)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		spec.Service = svc
	} else {
		zone, err := ParseZone(r.Type)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		spec.Zone = zone
	}

	size, err := ParseSize(r.Size)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.ID, err)
	}
	spec.Size = size
	if r.IsBlock {
		spec.Block = true
		spec.BlockWidth = max(r.BlockWidth, 1)
		spec.BlockHeight = max(r.BlockHeight, 1)
	} else if spec.Size == SizeBlock {
		spec.Size = SizeLarge
	}

	b, err := newBuilding(r.ID, r.X, r.Y, spec)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.ID, err)
	}
	for _, opt := range opts {
		opt(b)
	}

	serviceRange := r.ServiceRange
	if serviceRange <= 0 {
		serviceRange = DefaultServiceRange
	}
	b.stats = Stats{
		Population:   max(r.Population, 0),
		Jobs:         max(r.Jobs, 0),
		Pollution:    r.Pollution,
		ServiceRange: serviceRange,
	}
	b.SetHappiness(r.Happiness)
	return b, nil
}
