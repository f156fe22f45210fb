package config

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// Int returns the integer stored under key. A missing key yields def; an
// unparsable value yields def and a warning.
func (b *Block) Int(key string, def int) int {
	raw, ok := b.Get(key)
	if !ok {
		return def
	}
	v, err := cast.ToIntE(strings.TrimSpace(raw))
	if err != nil {
		b.warnDefault(key, raw, def, err)
		return def
	}
	return v
}

func (b *Block) Int64(key string, def int64) int64 {
	raw, ok := b.Get(key)
	if !ok {
		return def
	}
	v, err := cast.ToInt64E(strings.TrimSpace(raw))
	if err != nil {
		b.warnDefault(key, raw, def, err)
		return def
	}
	return v
}

func (b *Block) Float(key string, def float64) float64 {
	raw, ok := b.Get(key)
	if !ok {
		return def
	}
	v, err := cast.ToFloat64E(strings.TrimSpace(raw))
	if err != nil {
		b.warnDefault(key, raw, def, err)
		return def
	}
	return v
}

func (b *Block) Bool(key string, def bool) bool {
	raw, ok := b.Get(key)
	if !ok {
		return def
	}
	v, err := cast.ToBoolE(strings.TrimSpace(raw))
	if err != nil {
		b.warnDefault(key, raw, def, err)
		return def
	}
	return v
}

// RequireString fails with a ConfigError when key is absent or blank.
func (b *Block) RequireString(key string) (string, error) {
	raw, ok := b.Get(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return "", Errorf(b.Label(), "missing mandatory attribute %q", key)
	}
	return raw, nil
}

func (b *Block) RequireInt(key string) (int, error) {
	raw, err := b.RequireString(key)
	if err != nil {
		return 0, err
	}
	v, err := cast.ToIntE(strings.TrimSpace(raw))
	if err != nil {
		return 0, Errorf(b.Label(), "attribute %q: %q is not an integer", key, raw)
	}
	return v, nil
}

func (b *Block) RequireFloat(key string) (float64, error) {
	raw, err := b.RequireString(key)
	if err != nil {
		return 0, err
	}
	v, err := cast.ToFloat64E(strings.TrimSpace(raw))
	if err != nil {
		return 0, Errorf(b.Label(), "attribute %q: %q is not a number", key, raw)
	}
	return v, nil
}

// ExpectType fails unless the block's type attribute is typeTag.
func (b *Block) ExpectType(typeTag string) error {
	if b == nil {
		return Errorf("<nil>", "expected block of type %q", typeTag)
	}
	if got := b.Type(); got != typeTag {
		return Errorf(b.Label(), "expected type %q, got %q", typeTag, got)
	}
	return nil
}

func (b *Block) warnDefault(key, raw string, def any, err error) {
	log.WithFields(log.Fields{
		"block":   b.Label(),
		"key":     key,
		"value":   raw,
		"default": def,
	}).WithError(err).Warn("unparsable configuration value, using default")
}
