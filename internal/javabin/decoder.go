package javabin

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// ErrUnsupportedVersion is returned for a stream with an unknown version byte.
var ErrUnsupportedVersion = errors.New("javabin: unsupported version")

// ErrUnknownTag is returned for a tag byte the decoder does not understand.
var ErrUnknownTag = errors.New("javabin: unknown tag")

// errEnd is returned by readValue when it meets the END marker.
var errEnd = errors.New("javabin: end marker")

// Decoder reads javabin values from a stream.
// A Decoder keeps the extern-string table for the whole stream and is not safe for concurrent use.
type Decoder struct {
	r       *bufio.Reader
	externs []string
	scratch [8]byte
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{r: br}
}

// ReadHeader consumes and checks the version byte.
func (d *Decoder) ReadHeader() error {
	v, err := d.r.ReadByte()
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	if v != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	return nil
}

// ReadVal decodes the next value.
func (d *Decoder) ReadVal() (any, error) {
	tag, err := d.readTag()
	if err != nil {
		return nil, err
	}
	v, err := d.readValue(tag)
	if errors.Is(err, errEnd) {
		return nil, fmt.Errorf("javabin: unexpected end marker")
	}
	return v, err
}

func (d *Decoder) readTag() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.ErrUnexpectedEOF
		}
		return 0, fmt.Errorf("read tag: %w", err)
	}
	return b, nil
}

//nolint:gocyclo // one case per wire type
func (d *Decoder) readValue(tag byte) (any, error) {
	switch tag & typeMask {
	case tagStr:
		return d.readStr(tag)
	case tagSInt:
		return d.readSmallInt(tag)
	case tagSLong:
		return d.readSmallLong(tag)
	case tagArr:
		n, err := d.readSize(tag)
		if err != nil {
			return nil, err
		}
		return d.readArray(n)
	case tagOrderedMap, tagNamedList:
		n, err := d.readSize(tag)
		if err != nil {
			return nil, err
		}
		return d.readNamedList(n)
	case tagExternString:
		return d.readExternString(tag)
	}

	switch tag {
	case tagNull:
		return nil, nil
	case tagBoolTrue:
		return true, nil
	case tagBoolFalse:
		return false, nil
	case tagByte:
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, unexpected(err)
		}
		return int8(b), nil
	case tagShort:
		if err := d.readFull(2); err != nil {
			return nil, err
		}
		return int16(binary.BigEndian.Uint16(d.scratch[:2])), nil
	case tagInt:
		return d.readInt32()
	case tagLong:
		return d.readInt64()
	case tagFloat:
		if err := d.readFull(4); err != nil {
			return nil, err
		}
		return math.Float32frombits(binary.BigEndian.Uint32(d.scratch[:4])), nil
	case tagDouble:
		if err := d.readFull(8); err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(d.scratch[:8])), nil
	case tagDate:
		ms, err := d.readInt64()
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(ms).UTC(), nil
	case tagMap:
		n, err := d.readVInt()
		if err != nil {
			return nil, err
		}
		return d.readMap(int(n))
	case tagSolrDoc:
		return d.readSolrDoc()
	case tagSolrDocList:
		return d.readDocList()
	case tagByteArr:
		n, err := d.readVInt()
		if err != nil {
			return nil, err
		}
		return d.readBytes(int64(n))
	case tagIterator:
		return d.readIterator()
	case tagEnd:
		return nil, errEnd
	case tagMapEntryIter:
		return d.readMapEntryIter()
	case tagMapEntry:
		k, err := d.ReadVal()
		if err != nil {
			return nil, err
		}
		v, err := d.ReadVal()
		if err != nil {
			return nil, err
		}
		return MapEntry{Key: k, Value: v}, nil
	case tagEnumField:
		return d.readEnum()
	case tagUUID:
		var u UUID
		if _, err := io.ReadFull(d.r, u[:]); err != nil {
			return nil, unexpected(err)
		}
		return u, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
}

func (d *Decoder) readFull(n int) error {
	if _, err := io.ReadFull(d.r, d.scratch[:n]); err != nil {
		return unexpected(err)
	}
	return nil
}

func (d *Decoder) readInt32() (int32, error) {
	if err := d.readFull(4); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(d.scratch[:4])), nil
}

func (d *Decoder) readInt64() (int64, error) {
	if err := d.readFull(8); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(d.scratch[:8])), nil
}

func (d *Decoder) readVInt() (uint32, error) {
	var v uint32
	for shift := uint(0); ; shift += 7 {
		if shift > 28 {
			return 0, fmt.Errorf("javabin: vint overflow")
		}
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, unexpected(err)
		}
		v |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
	}
}

func (d *Decoder) readVLong() (uint64, error) {
	var v uint64
	for shift := uint(0); ; shift += 7 {
		if shift > 63 {
			return 0, fmt.Errorf("javabin: vlong overflow")
		}
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, unexpected(err)
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
	}
}

func (d *Decoder) readSize(tag byte) (int, error) {
	n := int(tag & sizeMask)
	if tag&sizeMask == sizeMask {
		more, err := d.readVInt()
		if err != nil {
			return 0, err
		}
		n += int(more)
	}
	return n, nil
}

func (d *Decoder) readSmallInt(tag byte) (int32, error) {
	v := uint32(tag & smallMask)
	if tag&smallCont != 0 {
		more, err := d.readVInt()
		if err != nil {
			return 0, err
		}
		v |= more << 4
	}
	return int32(v), nil
}

func (d *Decoder) readSmallLong(tag byte) (int64, error) {
	v := uint64(tag & smallMask)
	if tag&smallCont != 0 {
		more, err := d.readVLong()
		if err != nil {
			return 0, err
		}
		v |= more << 4
	}
	return int64(v), nil
}

func (d *Decoder) readStr(tag byte) (string, error) {
	n, err := d.readSize(tag)
	if err != nil {
		return "", err
	}
	buf, err := d.readBytes(int64(n))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// readBytes reads exactly n bytes. The buffer grows with the data actually
// received, so a corrupt length cannot force a large allocation up front.
func (d *Decoder) readBytes(n int64) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(min(n, maxPrealloc)))
	if _, err := io.CopyN(&buf, d.r, n); err != nil {
		return nil, unexpected(err)
	}
	if n == 0 {
		return []byte{}, nil
	}
	return buf.Bytes(), nil
}

func (d *Decoder) readExternString(tag byte) (string, error) {
	idx, err := d.readSize(tag)
	if err != nil {
		return "", err
	}
	if idx != 0 {
		if idx > len(d.externs) {
			return "", fmt.Errorf("javabin: extern string index %d out of range (%d known)", idx, len(d.externs))
		}
		return d.externs[idx-1], nil
	}
	strTag, err := d.readTag()
	if err != nil {
		return "", err
	}
	if strTag&typeMask != tagStr {
		return "", fmt.Errorf("javabin: extern string definition has tag %d", strTag)
	}
	s, err := d.readStr(strTag)
	if err != nil {
		return "", err
	}
	d.externs = append(d.externs, s)
	return s, nil
}

func (d *Decoder) readArray(n int) ([]any, error) {
	out := make([]any, 0, min(n, maxPrealloc))
	for range n {
		v, err := d.ReadVal()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (d *Decoder) readIterator() ([]any, error) {
	var out []any
	for {
		tag, err := d.readTag()
		if err != nil {
			return nil, err
		}
		v, err := d.readValue(tag)
		if errors.Is(err, errEnd) {
			if out == nil {
				out = []any{}
			}
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func (d *Decoder) readName() (string, error) {
	v, err := d.ReadVal()
	if err != nil {
		return "", err
	}
	return nameOf(v), nil
}

func (d *Decoder) readNamedList(n int) (NamedList, error) {
	out := make(NamedList, 0, min(n, maxPrealloc))
	for range n {
		name, err := d.readName()
		if err != nil {
			return nil, err
		}
		v, err := d.ReadVal()
		if err != nil {
			return nil, fmt.Errorf("value of %q: %w", name, err)
		}
		out = append(out, Entry{Name: name, Value: v})
	}
	return out, nil
}

func (d *Decoder) readMap(n int) (map[string]any, error) {
	out := make(map[string]any, min(n, maxPrealloc))
	for range n {
		name, err := d.readName()
		if err != nil {
			return nil, err
		}
		v, err := d.ReadVal()
		if err != nil {
			return nil, fmt.Errorf("value of %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func (d *Decoder) readMapEntryIter() (map[string]any, error) {
	out := map[string]any{}
	for {
		tag, err := d.readTag()
		if err != nil {
			return nil, err
		}
		k, err := d.readValue(tag)
		if errors.Is(err, errEnd) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		v, err := d.ReadVal()
		if err != nil {
			return nil, err
		}
		out[nameOf(k)] = v
	}
}

// readSolrDoc reads a document: an ORDERED_MAP header followed by fields.
// Nested documents among the entries are collected as child documents.
func (d *Decoder) readSolrDoc() (map[string]any, error) {
	tag, err := d.readTag()
	if err != nil {
		return nil, err
	}
	n, err := d.readSize(tag)
	if err != nil {
		return nil, err
	}
	doc := make(map[string]any, min(n, maxPrealloc))
	var children []any
	for range n {
		k, err := d.ReadVal()
		if err != nil {
			return nil, err
		}
		if child, ok := k.(map[string]any); ok {
			children = append(children, child)
			continue
		}
		name := nameOf(k)
		v, err := d.ReadVal()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		doc[name] = v
	}
	if len(children) > 0 {
		doc[ChildDocumentsField] = children
	}
	return doc, nil
}

// ChildDocumentsField holds anonymous child documents of a decoded document.
const ChildDocumentsField = "_childDocuments_"

func (d *Decoder) readDocListHeader() (*DocumentList, error) {
	hv, err := d.ReadVal()
	if err != nil {
		return nil, err
	}
	header, ok := hv.([]any)
	if !ok {
		return nil, fmt.Errorf("javabin: doc list header is %T", hv)
	}
	dl := &DocumentList{}
	if len(header) > 0 {
		dl.NumFound = toInt64(header[0])
	}
	if len(header) > 1 {
		dl.Start = toInt64(header[1])
	}
	if len(header) > 2 {
		if f, ok := header[2].(float32); ok {
			dl.MaxScore = &f
		}
	}
	return dl, nil
}

func (d *Decoder) readDocList() (*DocumentList, error) {
	dl, err := d.readDocListHeader()
	if err != nil {
		return nil, err
	}
	dv, err := d.ReadVal()
	if err != nil {
		return nil, err
	}
	docs, ok := dv.([]any)
	if !ok {
		return nil, fmt.Errorf("javabin: doc list body is %T", dv)
	}
	dl.Docs = make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		m, err := asDoc(doc)
		if err != nil {
			return nil, err
		}
		dl.Docs = append(dl.Docs, m)
	}
	return dl, nil
}

func (d *Decoder) readEnum() (EnumValue, error) {
	iv, err := d.ReadVal()
	if err != nil {
		return EnumValue{}, err
	}
	sv, err := d.ReadVal()
	if err != nil {
		return EnumValue{}, err
	}
	return EnumValue{Value: int32(toInt64(iv)), Name: nameOf(sv)}, nil
}

func nameOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	default:
		return 0
	}
}

func asDoc(v any) (map[string]any, error) {
	switch x := v.(type) {
	case map[string]any:
		return x, nil
	case NamedList:
		return x.Map(), nil
	default:
		return nil, fmt.Errorf("javabin: document is %T, not a map", v)
	}
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
