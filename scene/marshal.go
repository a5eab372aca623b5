package scene

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// FormatVersion is written into every marshaled scene.
const FormatVersion = 1

// Document is the serialized form of a built scene.
type Document struct {
	Version int       `cbor:"version" json:"version"`
	Source  string    `cbor:"source,omitempty" json:"source,omitempty"`
	Roots   []*Entity `cbor:"roots" json:"roots"`
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes roots as canonical CBOR, so equal scenes produce equal
// bytes.
func Marshal(source string, roots []*Entity) ([]byte, error) {
	return encMode.Marshal(Document{Version: FormatVersion, Source: source, Roots: roots})
}

// Unmarshal decodes a scene written by Marshal. Component values decode to
// generic CBOR types.
func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("decode scene: unsupported version %d", doc.Version)
	}
	return &doc, nil
}
