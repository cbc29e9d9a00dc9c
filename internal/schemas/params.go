package schemas

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Parameters maps parameter names to values and keeps the order they
// were written in, which the parameter tree depends on.
type Parameters struct {
	names  []string
	values map[string]string
}

// Len returns the number of parameters.
func (p Parameters) Len() int { return len(p.names) }

// Names returns parameter names in order.
func (p Parameters) Names() []string { return append([]string(nil), p.names...) }

// Values returns parameter values in order.
func (p Parameters) Values() []string {
	out := make([]string, len(p.names))
	for i, n := range p.names {
		out[i] = p.values[n]
	}
	return out
}

// Get returns the value of the named parameter.
func (p Parameters) Get(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Set adds or replaces a parameter. New names go last.
func (p *Parameters) Set(name, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = value
}

func (p Parameters) Validate() error {
	for _, n := range p.names {
		if err := Identifier(n).Validate(); err != nil {
			return fmt.Errorf("%s: %w", n, err)
		}
	}
	return nil
}

func (p Parameters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range p.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.values[n])
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

func (p *Parameters) UnmarshalJSON(data []byte) error {
	*p = Parameters{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("parameters must be an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name := tok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("parameter %s: %w", name, err)
		}
		if _, dup := p.values[name]; dup {
			return fmt.Errorf("duplicate parameter %s", name)
		}
		p.Set(name, value)
	}
	_, err = dec.Token()
	return err
}
