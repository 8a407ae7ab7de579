package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Document is the unit of persistence: every profile and its holdings.
//
// Its JSON form is {"profiles": {"<name>": [<holding>, ...], ...}}.
type Document struct {
	Profiles map[string][]Holding
}

// EmptyDocument returns the document used when nothing could be loaded.
func EmptyDocument() Document {
	return Document{Profiles: map[string][]Holding{DefaultProfile: {}}}
}

// Shape classifies a raw document before any business logic runs.
type Shape int

const (
	ShapeEmpty    Shape = iota // nothing, null, or no known key
	ShapeLegacy                // {"portfolio": [...]}, a single list of holdings
	ShapeProfiles              // {"profiles": {...}}
)

func (s Shape) String() string {
	switch s {
	case ShapeLegacy:
		return "legacy"
	case ShapeProfiles:
		return "profiles"
	default:
		return "empty"
	}
}

// DecodeDocument classifies and decodes a raw document.
//
// Legacy documents are migrated in memory into a Default profile, nothing is
// written back. Empty documents decode to EmptyDocument. Malformed input
// returns ErrMalformedDocument together with EmptyDocument.
func DecodeDocument(raw []byte) (Document, Shape, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return EmptyDocument(), ShapeEmpty, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return EmptyDocument(), ShapeEmpty, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	if profiles, ok := top["profiles"]; ok && !isNull(profiles) {
		var m map[string][]Holding
		if err := json.Unmarshal(profiles, &m); err != nil {
			return EmptyDocument(), ShapeEmpty, fmt.Errorf("%w: profiles: %v", ErrMalformedDocument, err)
		}
		doc := Document{Profiles: make(map[string][]Holding, len(m))}
		for name, holdings := range m {
			if holdings == nil {
				holdings = []Holding{}
			}
			doc.Profiles[name] = holdings
		}
		if len(doc.Profiles) == 0 {
			doc.Profiles[DefaultProfile] = []Holding{}
		}
		return doc, ShapeProfiles, nil
	}

	if legacy, ok := top["portfolio"]; ok && !isNull(legacy) {
		var holdings []Holding
		if err := json.Unmarshal(legacy, &holdings); err != nil {
			return EmptyDocument(), ShapeEmpty, fmt.Errorf("%w: portfolio: %v", ErrMalformedDocument, err)
		}
		if holdings == nil {
			holdings = []Holding{}
		}
		return Document{Profiles: map[string][]Holding{DefaultProfile: holdings}}, ShapeLegacy, nil
	}

	return EmptyDocument(), ShapeEmpty, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// MarshalJSON writes the document in the profiles shape, profile names sorted.
func (d Document) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(d.Profiles))
	for name := range d.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	var profiles jsonObjectWriter
	for _, name := range names {
		holdings := d.Profiles[name]
		if holdings == nil {
			holdings = []Holding{}
		}
		profiles.Append(name, holdings)
	}
	raw, err := profiles.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var w jsonObjectWriter
	w.AppendRaw("profiles", raw)
	return w.MarshalJSON()
}

// UnmarshalJSON accepts any shape DecodeDocument accepts.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, _, err := DecodeDocument(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}
