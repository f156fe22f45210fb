// Package config holds the attributed configuration tree used to persist and
// restore model and statistic settings.
package config

import (
	"strconv"
)

// TypeKey is the attribute that identifies what a block configures.
const TypeKey = "type"

// Configurable is implemented by every model or statistic that can be
// restored from and written to a Block.
type Configurable interface {
	// TypeTag is the stable value of the block's type attribute.
	TypeTag() string
	// ApplyConfig updates the receiver's own settings from b.
	ApplyConfig(b *Block) error
	// ConfigBlock serializes the current settings.
	ConfigBlock() *Block
}

// Block is a named element with ordered, unique attributes and ordered
// children.
type Block struct {
	Name     string
	Children []*Block

	keys  []string
	attrs map[string]string
}

// NewBlock creates a block and sets its type attribute when typeTag is not
// empty.
func NewBlock(name, typeTag string) *Block {
	b := &Block{Name: name}
	if typeTag != "" {
		b.Set(TypeKey, typeTag)
	}
	return b
}

// Set stores value under key. A repeated key keeps its original position and
// takes the latest value.
func (b *Block) Set(key, value string) *Block {
	if b.attrs == nil {
		b.attrs = make(map[string]string)
	}
	if _, ok := b.attrs[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.attrs[key] = value
	return b
}

func (b *Block) SetInt(key string, v int) *Block {
	return b.Set(key, strconv.Itoa(v))
}

func (b *Block) SetInt64(key string, v int64) *Block {
	return b.Set(key, strconv.FormatInt(v, 10))
}

// SetFloat writes the shortest representation that parses back to v.
func (b *Block) SetFloat(key string, v float64) *Block {
	return b.Set(key, strconv.FormatFloat(v, 'g', -1, 64))
}

func (b *Block) SetBool(key string, v bool) *Block {
	return b.Set(key, strconv.FormatBool(v))
}

func (b *Block) Get(key string) (string, bool) {
	if b == nil {
		return "", false
	}
	v, ok := b.attrs[key]
	return v, ok
}

func (b *Block) Has(key string) bool {
	_, ok := b.Get(key)
	return ok
}

// Keys returns attribute keys in insertion order.
func (b *Block) Keys() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.keys...)
}

// Type returns the block's type attribute, empty when unset.
func (b *Block) Type() string {
	v, _ := b.Get(TypeKey)
	return v
}

func (b *Block) AddChild(child *Block) *Block {
	b.Children = append(b.Children, child)
	return b
}

// Child returns the first child named name.
func (b *Block) Child(name string) *Block {
	if b == nil {
		return nil
	}
	for _, c := range b.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildByType returns the first child whose type attribute equals typeTag.
func (b *Block) ChildByType(typeTag string) *Block {
	if b == nil {
		return nil
	}
	for _, c := range b.Children {
		if c.Type() == typeTag {
			return c
		}
	}
	return nil
}

// Label names the block in diagnostics, e.g. statistic[stat.colless].
func (b *Block) Label() string {
	if b == nil {
		return "<nil>"
	}
	if t := b.Type(); t != "" {
		return b.Name + "[" + t + "]"
	}
	return b.Name
}
