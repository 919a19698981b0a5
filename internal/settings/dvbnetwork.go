package settings

import "github.com/opendvr/tvcore/internal/models"

// DVBNetworkSchema exposes a models.DVBNetwork row through the same
// property-reflection schema used for the scrape configuration, so the
// DVB network loader (external collaborator scope: config record only,
// no tuner I/O) can read/write it via get_config/set_config-style maps
// instead of touching struct fields directly.
func DVBNetworkSchema(n *models.DVBNetwork) Schema {
	return Schema{
		{
			Name: "name",
			Type: FieldString,
			Get:  func() any { return n.Name },
			Set: func(v any) bool {
				s, ok := v.(string)
				if !ok || s == n.Name {
					return false
				}
				n.Name = s
				return true
			},
		},
		{
			Name: "type",
			Type: FieldString,
			Get:  func() any { return n.Type },
			Set: func(v any) bool {
				s, ok := v.(string)
				if !ok || s == n.Type {
					return false
				}
				n.Type = s
				return true
			},
		},
		{
			Name: "frequency",
			Type: FieldInt,
			Get:  func() any { return n.Frequency },
			Set: func(v any) bool {
				f, ok := v.(float64)
				if !ok || uint32(f) == n.Frequency {
					return false
				}
				n.Frequency = uint32(f)
				return true
			},
		},
		{
			Name: "symbol_rate",
			Type: FieldInt,
			Get:  func() any { return n.SymbolRate },
			Set: func(v any) bool {
				f, ok := v.(float64)
				if !ok || uint32(f) == n.SymbolRate {
					return false
				}
				n.SymbolRate = uint32(f)
				return true
			},
		},
		{
			Name: "polarization",
			Type: FieldString,
			Get:  func() any { return n.Polarization },
			Set: func(v any) bool {
				s, ok := v.(string)
				if !ok || s == n.Polarization {
					return false
				}
				n.Polarization = s
				return true
			},
		},
	}
}
