package javabin

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

// Encoder writes javabin values. Map keys and names go through the extern-string
// table, so repeated field names cost one or two bytes after their first use.
// An Encoder is not safe for concurrent use.
type Encoder struct {
	w       *bufio.Writer
	externs map[string]int
	scratch [9]byte
}

// NewEncoder returns an encoder writing to w. Call Flush when done.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w), externs: map[string]int{}}
}

// WriteHeader writes the version byte.
func (e *Encoder) WriteHeader() error {
	return e.w.WriteByte(Version)
}

// Flush writes buffered data to the underlying writer.
func (e *Encoder) Flush() error {
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// BeginIterator opens an unsized sequence; close it with End.
func (e *Encoder) BeginIterator() error {
	return e.w.WriteByte(tagIterator)
}

// BeginMapEntries opens an unsized map; write key/value pairs and close it with End.
func (e *Encoder) BeginMapEntries() error {
	return e.w.WriteByte(tagMapEntryIter)
}

// End closes an iterator or map-entry sequence.
func (e *Encoder) End() error {
	return e.w.WriteByte(tagEnd)
}

// BeginNamedList writes the header of a named list of n entries.
// Follow it with n WriteName/WriteVal pairs.
func (e *Encoder) BeginNamedList(n int) error {
	return e.writeTag(tagNamedList, n)
}

// BeginOrderedMap writes the header of an ordered map of n entries.
func (e *Encoder) BeginOrderedMap(n int) error {
	return e.writeTag(tagOrderedMap, n)
}

// WriteName writes a name through the extern-string table.
func (e *Encoder) WriteName(s string) error {
	return e.writeExternString(s)
}

// WriteVal encodes v.
//
//nolint:gocyclo // one case per supported Go type
func (e *Encoder) WriteVal(v any) error {
	switch x := v.(type) {
	case nil:
		return e.w.WriteByte(tagNull)
	case bool:
		if x {
			return e.w.WriteByte(tagBoolTrue)
		}
		return e.w.WriteByte(tagBoolFalse)
	case int8:
		if err := e.w.WriteByte(tagByte); err != nil {
			return err
		}
		return e.w.WriteByte(byte(x))
	case int16:
		e.scratch[0] = tagShort
		binary.BigEndian.PutUint16(e.scratch[1:3], uint16(x))
		return e.write(e.scratch[:3])
	case int32:
		return e.writeInt(x)
	case int:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return e.writeInt(int32(x))
		}
		return e.writeLong(int64(x))
	case int64:
		return e.writeLong(x)
	case float32:
		e.scratch[0] = tagFloat
		binary.BigEndian.PutUint32(e.scratch[1:5], math.Float32bits(x))
		return e.write(e.scratch[:5])
	case float64:
		e.scratch[0] = tagDouble
		binary.BigEndian.PutUint64(e.scratch[1:9], math.Float64bits(x))
		return e.write(e.scratch[:9])
	case string:
		return e.writeStr(x)
	case []byte:
		if err := e.w.WriteByte(tagByteArr); err != nil {
			return err
		}
		if err := e.writeVInt(uint32(len(x))); err != nil {
			return err
		}
		return e.write(x)
	case time.Time:
		e.scratch[0] = tagDate
		binary.BigEndian.PutUint64(e.scratch[1:9], uint64(x.UnixMilli()))
		return e.write(e.scratch[:9])
	case []any:
		if err := e.writeTag(tagArr, len(x)); err != nil {
			return err
		}
		for _, item := range x {
			if err := e.WriteVal(item); err != nil {
				return err
			}
		}
		return nil
	case []string:
		if err := e.writeTag(tagArr, len(x)); err != nil {
			return err
		}
		for _, item := range x {
			if err := e.writeStr(item); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		return e.writeMap(x)
	case NamedList:
		if err := e.BeginNamedList(len(x)); err != nil {
			return err
		}
		for _, entry := range x {
			if err := e.writeExternString(entry.Name); err != nil {
				return err
			}
			if err := e.WriteVal(entry.Value); err != nil {
				return err
			}
		}
		return nil
	case *DocumentList:
		return e.writeDocList(x)
	case MapEntry:
		if err := e.w.WriteByte(tagMapEntry); err != nil {
			return err
		}
		if err := e.WriteVal(x.Key); err != nil {
			return err
		}
		return e.WriteVal(x.Value)
	case EnumValue:
		if err := e.w.WriteByte(tagEnumField); err != nil {
			return err
		}
		if err := e.writeInt(x.Value); err != nil {
			return err
		}
		return e.writeStr(x.Name)
	case UUID:
		if err := e.w.WriteByte(tagUUID); err != nil {
			return err
		}
		return e.write(x[:])
	}
	return fmt.Errorf("javabin: cannot encode %T", v)
}

func (e *Encoder) write(b []byte) error {
	_, err := e.w.Write(b)
	return err
}

func (e *Encoder) writeTag(tag byte, size int) error {
	if tag&typeMask != 0 {
		if size < int(sizeMask) {
			return e.w.WriteByte(tag | byte(size))
		}
		if err := e.w.WriteByte(tag | sizeMask); err != nil {
			return err
		}
		return e.writeVInt(uint32(size - int(sizeMask)))
	}
	if err := e.w.WriteByte(tag); err != nil {
		return err
	}
	return e.writeVInt(uint32(size))
}

func (e *Encoder) writeVInt(v uint32) error {
	for v&^0x7f != 0 {
		if err := e.w.WriteByte(byte(v&0x7f) | 0x80); err != nil {
			return err
		}
		v >>= 7
	}
	return e.w.WriteByte(byte(v))
}

func (e *Encoder) writeVLong(v uint64) error {
	for v&^0x7f != 0 {
		if err := e.w.WriteByte(byte(v&0x7f) | 0x80); err != nil {
			return err
		}
		v >>= 7
	}
	return e.w.WriteByte(byte(v))
}

// writeInt uses the small-int form for positive values and a fixed 4-byte int otherwise.
func (e *Encoder) writeInt(v int32) error {
	if v > 0 {
		b := tagSInt | byte(v)&smallMask
		if v >= int32(smallMask) {
			if err := e.w.WriteByte(b | smallCont); err != nil {
				return err
			}
			return e.writeVInt(uint32(v) >> 4)
		}
		return e.w.WriteByte(b)
	}
	e.scratch[0] = tagInt
	binary.BigEndian.PutUint32(e.scratch[1:5], uint32(v))
	return e.write(e.scratch[:5])
}

// writeLong uses the small-long form when the top byte is clear.
func (e *Encoder) writeLong(v int64) error {
	if uint64(v)&0xff00000000000000 == 0 {
		b := tagSLong | byte(v)&smallMask
		if v >= int64(smallMask) {
			if err := e.w.WriteByte(b | smallCont); err != nil {
				return err
			}
			return e.writeVLong(uint64(v) >> 4)
		}
		return e.w.WriteByte(b)
	}
	e.scratch[0] = tagLong
	binary.BigEndian.PutUint64(e.scratch[1:9], uint64(v))
	return e.write(e.scratch[:9])
}

func (e *Encoder) writeStr(s string) error {
	if err := e.writeTag(tagStr, len(s)); err != nil {
		return err
	}
	_, err := e.w.WriteString(s)
	return err
}

func (e *Encoder) writeExternString(s string) error {
	idx := e.externs[s]
	if err := e.writeTag(tagExternString, idx); err != nil {
		return err
	}
	if idx != 0 {
		return nil
	}
	if err := e.writeStr(s); err != nil {
		return err
	}
	e.externs[s] = len(e.externs) + 1
	return nil
}

// writeMap writes keys in sorted order so output is deterministic.
func (e *Encoder) writeMap(m map[string]any) error {
	if err := e.w.WriteByte(tagMap); err != nil {
		return err
	}
	if err := e.writeVInt(uint32(len(m))); err != nil {
		return err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := e.writeExternString(k); err != nil {
			return err
		}
		if err := e.WriteVal(m[k]); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	return nil
}

func (e *Encoder) writeDocList(dl *DocumentList) error {
	if err := e.w.WriteByte(tagSolrDocList); err != nil {
		return err
	}
	var maxScore any
	if dl.MaxScore != nil {
		maxScore = *dl.MaxScore
	}
	if err := e.WriteVal([]any{dl.NumFound, dl.Start, maxScore}); err != nil {
		return err
	}
	docs := make([]any, len(dl.Docs))
	for i, d := range dl.Docs {
		docs[i] = d
	}
	return e.WriteVal(docs)
}
