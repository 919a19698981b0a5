package models

// Setting is a single row in the persistent key/value settings store
// (§4.H). Value holds the serialized (JSON) form of whatever map was
// passed to save(); the mapping from key to meaning is opaque to this
// package, exactly as the core treats it.
type Setting struct {
	Key       string `gorm:"primarykey;type:varchar(255)" json:"key"`
	Value     string `gorm:"type:text" json:"value"`
	UpdatedAt Time   `json:"updated_at"`
}

// DVBNetwork is the persisted configuration for one DVB network loader
// entry (external collaborator scope only: no tuner I/O, just the
// configuration record a linuxdvb-style network loader would read).
type DVBNetwork struct {
	BaseModel
	Name        string `gorm:"not null" json:"name"`
	Type        string `json:"type"` // dvb-s, dvb-s2, dvb-c, dvb-t, dvb-t2, atsc
	Frequency   uint32 `json:"frequency"`
	SymbolRate  uint32 `json:"symbol_rate,omitempty"`
	Polarization string `json:"polarization,omitempty"` // h, v, l, r
}

func (n *DVBNetwork) Validate() error {
	if n.Name == "" {
		return ErrNameRequired
	}
	return nil
}
