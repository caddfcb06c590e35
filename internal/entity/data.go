package entity

import "maps"

// Data is the concrete state of one placed tile or unit.
type Data struct {
	TypeID string           `json:"type_id"`
	Values map[string]Value `json:"values"`
}

// NewData spawns instance data for t with every property at its default.
func NewData(t Type) Data {
	values := make(map[string]Value, len(t.Properties))
	for _, prop := range t.Properties {
		values[prop.ID] = prop.Default
	}
	return Data{TypeID: t.ID, Values: values}
}

// Get returns the current value of propertyID.
func (d Data) Get(propertyID string) (Value, bool) {
	value, ok := d.Values[propertyID]
	return value, ok
}

// Set stores a value, allocating the map on first use.
func (d *Data) Set(propertyID string, value Value) {
	if d.Values == nil {
		d.Values = make(map[string]Value)
	}
	d.Values[propertyID] = value
}

// Clone returns a copy that shares no map with d.
func (d Data) Clone() Data {
	return Data{TypeID: d.TypeID, Values: maps.Clone(d.Values)}
}
