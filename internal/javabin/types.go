// Package javabin implements the javabin v2 binary response encoding of the
// search engine: a value codec plus a streaming reader for the docs of a response.
package javabin

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Version is the only protocol version understood by this package.
const Version = 2

// Scalar tags.
const (
	tagNull         byte = 0
	tagBoolTrue     byte = 1
	tagBoolFalse    byte = 2
	tagByte         byte = 3
	tagShort        byte = 4
	tagDouble       byte = 5
	tagInt          byte = 6
	tagLong         byte = 7
	tagFloat        byte = 8
	tagDate         byte = 9
	tagMap          byte = 10
	tagSolrDoc      byte = 11
	tagSolrDocList  byte = 12
	tagByteArr      byte = 13
	tagIterator     byte = 14
	tagEnd          byte = 15
	tagSolrInputDoc byte = 16
	tagMapEntryIter byte = 17
	tagEnumField    byte = 18
	tagMapEntry     byte = 19
	tagUUID         byte = 20
)

// Sized tags carry a 5-bit length or small integer in their low bits.
const (
	tagStr          byte = 1 << 5
	tagSInt         byte = 2 << 5
	tagSLong        byte = 3 << 5
	tagArr          byte = 4 << 5
	tagOrderedMap   byte = 5 << 5
	tagNamedList    byte = 6 << 5
	tagExternString byte = 7 << 5
)

const (
	sizeMask  byte = 0x1f
	typeMask  byte = 0xe0
	smallMask byte = 0x0f
	smallCont byte = 0x10
)

const maxPrealloc = 1024

// Entry is one name/value pair of a NamedList.
type Entry struct {
	Name  string
	Value any
}

// NamedList is an ordered list of name/value pairs; names may repeat.
type NamedList []Entry

// Get returns the first value stored under name.
func (l NamedList) Get(name string) (any, bool) {
	for _, e := range l {
		if e.Name == name {
			return e.Value, true
		}
	}
	return nil, false
}

// Map flattens the list into a map; later duplicates win.
func (l NamedList) Map() map[string]any {
	m := make(map[string]any, len(l))
	for _, e := range l {
		m[e.Name] = e.Value
	}
	return m
}

// MarshalJSON renders the list as a JSON object preserving entry order.
func (l NamedList) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, e := range l {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(e.Name)
		if err != nil {
			return nil, fmt.Errorf("marshal name %q: %w", e.Name, err)
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal value of %q: %w", e.Name, err)
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

// DocumentList is a result page with its header.
type DocumentList struct {
	NumFound int64
	Start    int64
	MaxScore *float32
	Docs     []map[string]any
}

// MapEntry is a single key/value pair value.
type MapEntry struct {
	Key   any
	Value any
}

// EnumValue is an enum field value: its ordinal and display name.
type EnumValue struct {
	Value int32
	Name  string
}

// MarshalJSON renders the display name.
func (e EnumValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Name)
}

// UUID is a 128-bit identifier.
type UUID [16]byte

// String formats u in canonical 8-4-4-4-12 form.
func (u UUID) String() string {
	var buf [36]byte
	hex.Encode(buf[0:8], u[0:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], u[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], u[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], u[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:], u[10:])
	return string(buf[:])
}

// MarshalJSON renders the canonical string form.
func (u UUID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}
