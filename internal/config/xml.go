package config

import (
	"encoding/xml"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Cursor walks the start and end elements of an XML document.
type Cursor struct {
	dec *xml.Decoder
	tok xml.Token
	err error
}

func NewCursor(r io.Reader) *Cursor {
	return &Cursor{dec: xml.NewDecoder(r)}
}

// Next advances to the next start or end element. It returns false at the end
// of input or on error; Err tells the two apart.
func (c *Cursor) Next() bool {
	if c.err != nil {
		return false
	}
	for {
		tok, err := c.dec.Token()
		if err == io.EOF {
			c.tok = nil
			return false
		}
		if err != nil {
			c.err = err
			c.tok = nil
			return false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			c.tok = t.Copy()
			return true
		case xml.EndElement:
			c.tok = t
			return true
		}
	}
}

func (c *Cursor) Err() error { return c.err }

// IsStart reports whether the cursor sits on the opening tag of name. An
// empty name matches any start element.
func (c *Cursor) IsStart(name string) bool {
	t, ok := c.tok.(xml.StartElement)
	return ok && (name == "" || t.Name.Local == name)
}

func (c *Cursor) IsEnd(name string) bool {
	t, ok := c.tok.(xml.EndElement)
	return ok && (name == "" || t.Name.Local == name)
}

// Name is the local name of the current element.
func (c *Cursor) Name() string {
	switch t := c.tok.(type) {
	case xml.StartElement:
		return t.Name.Local
	case xml.EndElement:
		return t.Name.Local
	}
	return ""
}

// Attr looks up an attribute of the current start element.
func (c *Cursor) Attr(key string) (string, bool) {
	t, ok := c.tok.(xml.StartElement)
	if !ok {
		return "", false
	}
	for _, a := range t.Attr {
		if a.Name.Local == key {
			return a.Value, true
		}
	}
	return "", false
}

func (c *Cursor) attrs() []xml.Attr {
	if t, ok := c.tok.(xml.StartElement); ok {
		return t.Attr
	}
	return nil
}

// Decode reads one document into a Block tree.
func Decode(r io.Reader) (*Block, error) {
	c := NewCursor(r)
	var root *Block
	var stack []*Block
	for c.Next() {
		switch {
		case c.IsStart(""):
			b := &Block{Name: c.Name()}
			for _, a := range c.attrs() {
				b.Set(a.Name.Local, a.Value)
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.Errorf("multiple root elements: %s and %s", root.Name, b.Name)
				}
				root = b
			} else {
				stack[len(stack)-1].AddChild(b)
			}
			stack = append(stack, b)
		case c.IsEnd(""):
			stack = stack[:len(stack)-1]
		}
	}
	if err := c.Err(); err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}
	if root == nil {
		return nil, errors.New("decode configuration: empty document")
	}
	return root, nil
}

// Encode writes b and its children as indented XML. Attribute order follows
// insertion order so repeated encodes are byte-identical.
func Encode(w io.Writer, b *Block) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := encodeBlock(enc, b); err != nil {
		return errors.Wrapf(err, "encode %s", b.Label())
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func encodeBlock(enc *xml.Encoder, b *Block) error {
	start := xml.StartElement{Name: xml.Name{Local: b.Name}}
	for _, k := range b.keys {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: k}, Value: b.attrs[k]})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, child := range b.Children {
		if err := encodeBlock(enc, child); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// ReadFile decodes the configuration document at path.
func ReadFile(path string) (*Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "[ReadFile] failed to open %s", path)
	}
	defer f.Close()
	b, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "[ReadFile] failed to parse %s", path)
	}
	return b, nil
}

// WriteFile encodes b to path, replacing any existing file.
func WriteFile(path string, b *Block) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "[WriteFile] failed to create %s", path)
	}
	if err := Encode(f, b); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
