package javabin

import (
	"errors"
	"fmt"
	"io"
)

// DocsKey is the response entry holding the document sequence.
const DocsKey = "docs"

const numFoundKey = "numFound"

type docsMode int

const (
	docsNone docsMode = iota
	docsArray
	docsIterator
)

// TupleParser reads a javabin response and yields the entries of its docs
// sequence one at a time, without buffering the whole response.
type TupleParser struct {
	d         *Decoder
	mode      docsMode
	remaining int
	numFound  int64
	done      bool
}

// NewTupleParser reads the response header and positions the parser on the docs.
// A response without docs yields io.EOF from the first Next.
func NewTupleParser(r io.Reader) (*TupleParser, error) {
	p := &TupleParser{d: NewDecoder(r), numFound: -1}
	if err := p.d.ReadHeader(); err != nil {
		return nil, err
	}
	tag, err := p.d.readTag()
	if err != nil {
		return nil, err
	}
	found, err := p.seek(tag)
	if err != nil {
		return nil, fmt.Errorf("seek docs: %w", err)
	}
	if !found {
		p.done = true
	}
	return p, nil
}

// NumFound returns the numFound header when the response carried one before its docs, or -1.
func (p *TupleParser) NumFound() int64 { return p.numFound }

// Next returns the next document or io.EOF after the last one.
func (p *TupleParser) Next() (map[string]any, error) {
	if p.done {
		return nil, io.EOF
	}
	var tag byte
	var err error
	switch p.mode {
	case docsArray:
		if p.remaining == 0 {
			p.done = true
			return nil, io.EOF
		}
		p.remaining--
		tag, err = p.d.readTag()
	case docsIterator:
		tag, err = p.d.readTag()
		if err == nil && tag == tagEnd {
			p.done = true
			return nil, io.EOF
		}
	default:
		p.done = true
		return nil, io.EOF
	}
	if err != nil {
		p.done = true
		return nil, err
	}
	v, err := p.d.readValue(tag)
	if err != nil {
		p.done = true
		return nil, fmt.Errorf("read doc: %w", err)
	}
	doc, err := asDoc(v)
	if err != nil {
		p.done = true
		return nil, err
	}
	return doc, nil
}

// seek walks map-like containers depth first until it finds the docs entry.
// Entries before docs are decoded and dropped; entries after it are never read.
func (p *TupleParser) seek(tag byte) (bool, error) {
	switch {
	case tag == tagMap:
		n, err := p.d.readVInt()
		if err != nil {
			return false, err
		}
		return p.seekEntries(int(n))
	case tag&typeMask == tagOrderedMap, tag&typeMask == tagNamedList:
		n, err := p.d.readSize(tag)
		if err != nil {
			return false, err
		}
		return p.seekEntries(n)
	case tag == tagMapEntryIter:
		return p.seekEntries(-1)
	case tag == tagSolrDocList:
		return true, p.enterDocList()
	}
	if _, err := p.d.readValue(tag); err != nil {
		return false, err
	}
	return false, nil
}

// seekEntries scans n name/value pairs, or END-terminated pairs when n < 0.
func (p *TupleParser) seekEntries(n int) (bool, error) {
	for i := 0; n < 0 || i < n; i++ {
		kt, err := p.d.readTag()
		if err != nil {
			return false, err
		}
		k, err := p.d.readValue(kt)
		if errors.Is(err, errEnd) && n < 0 {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		name := nameOf(k)
		if name == DocsKey {
			return true, p.enterDocs()
		}
		vt, err := p.d.readTag()
		if err != nil {
			return false, err
		}
		if name == numFoundKey {
			v, err := p.d.readValue(vt)
			if err != nil {
				return false, err
			}
			p.numFound = toInt64(v)
			continue
		}
		found, err := p.seek(vt)
		if err != nil || found {
			return found, err
		}
	}
	return false, nil
}

func (p *TupleParser) enterDocs() error {
	tag, err := p.d.readTag()
	if err != nil {
		return err
	}
	switch {
	case tag == tagIterator:
		p.mode = docsIterator
	case tag&typeMask == tagArr:
		n, err := p.d.readSize(tag)
		if err != nil {
			return err
		}
		p.mode, p.remaining = docsArray, n
	case tag == tagSolrDocList:
		return p.enterDocList()
	case tag == tagNull:
		p.mode = docsNone
	default:
		return fmt.Errorf("javabin: docs entry has tag %d", tag)
	}
	return nil
}

func (p *TupleParser) enterDocList() error {
	dl, err := p.d.readDocListHeader()
	if err != nil {
		return err
	}
	p.numFound = dl.NumFound
	tag, err := p.d.readTag()
	if err != nil {
		return err
	}
	switch {
	case tag&typeMask == tagArr:
		n, err := p.d.readSize(tag)
		if err != nil {
			return err
		}
		p.mode, p.remaining = docsArray, n
	case tag == tagIterator:
		p.mode = docsIterator
	default:
		return fmt.Errorf("javabin: doc list body has tag %d", tag)
	}
	return nil
}
