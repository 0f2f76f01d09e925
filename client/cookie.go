package client

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// AttrKind tags the type held by an AttrValue.
type AttrKind int

const (
	AttrString AttrKind = iota
	AttrInt
	AttrBool
)

// AttrValue is one typed cookie attribute value. Raw keeps the text that was
// received, including text dropped by the type coercion.
type AttrValue struct {
	Kind AttrKind
	Str  string
	Int  int
	Bool bool
	Raw  string
}

func StringValue(s string) AttrValue { return AttrValue{Kind: AttrString, Str: s, Raw: s} }
func IntValue(n int, raw string) AttrValue {
	return AttrValue{Kind: AttrInt, Int: n, Raw: raw}
}
func FlagValue(raw string) AttrValue { return AttrValue{Kind: AttrBool, Bool: true, Raw: raw} }

// Interface returns the value as a string, int or bool.
func (v AttrValue) Interface() any {
	switch v.Kind {
	case AttrInt:
		return v.Int
	case AttrBool:
		return v.Bool
	}
	return v.Str
}

func (v AttrValue) String() string {
	switch v.Kind {
	case AttrInt:
		return strconv.Itoa(v.Int)
	case AttrBool:
		return strconv.FormatBool(v.Bool)
	}
	return v.Str
}

func (v AttrValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Attr is a named cookie attribute.
type Attr struct {
	Name  string
	Value AttrValue
}

// CookieAttributes is one parsed Set-Cookie value. The first attribute is the
// cookie's own name and value.
type CookieAttributes struct {
	Attrs []Attr
	Raw   string
}

// Name returns the cookie name.
func (c CookieAttributes) Name() string {
	if len(c.Attrs) == 0 {
		return ""
	}
	return c.Attrs[0].Name
}

// Value returns the cookie value.
func (c CookieAttributes) Value() string {
	if len(c.Attrs) == 0 {
		return ""
	}
	return c.Attrs[0].Value.String()
}

// Get looks an attribute up by case-insensitive name.
func (c CookieAttributes) Get(name string) (AttrValue, bool) {
	for _, a := range c.Attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}
	return AttrValue{}, false
}

// Map flattens the attributes into plain Go values.
func (c CookieAttributes) Map() map[string]any {
	m := make(map[string]any, len(c.Attrs))
	for _, a := range c.Attrs {
		m[a.Name] = a.Value.Interface()
	}
	return m
}

// set records an attribute. The cookie's own pair at index 0 is never
// overwritten.
func (c *CookieAttributes) set(name string, v AttrValue) {
	for i := 1; i < len(c.Attrs); i++ {
		if c.Attrs[i].Name == name {
			c.Attrs[i].Value = v
			return
		}
	}
	c.Attrs = append(c.Attrs, Attr{Name: name, Value: v})
}

// MarshalJSON keeps attribute order.
func (c CookieAttributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range c.Attrs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		v, err := a.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseCookie parses a Set-Cookie header value. It never fails: a part with
// no "=" becomes a true flag and an unparsable Max-Age stays a string.
// HttpOnly, Secure and SameSite are always recorded as true, so the SameSite
// mode only survives in AttrValue.Raw.
func ParseCookie(value string) CookieAttributes {
	c := CookieAttributes{Raw: value}
	first := true
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, val, hasValue := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		val = strings.TrimSpace(val)

		if first {
			first = false
			if hasValue {
				c.set(name, StringValue(val))
			} else {
				c.set(name, FlagValue(""))
			}
			continue
		}
		c.set(name, coerceAttr(name, val, hasValue))
	}
	return c
}

func coerceAttr(name, val string, hasValue bool) AttrValue {
	switch {
	case !hasValue:
		return FlagValue("")
	case strings.EqualFold(name, "Max-Age"):
		if n, err := strconv.Atoi(val); err == nil {
			return IntValue(n, val)
		}
		return StringValue(val)
	case strings.EqualFold(name, "HttpOnly"),
		strings.EqualFold(name, "Secure"),
		strings.EqualFold(name, "SameSite"):
		return FlagValue(val)
	}
	return StringValue(val)
}
