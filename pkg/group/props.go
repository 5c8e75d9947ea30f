package group

// PropertyList is an encoded group creation property list. It is stored
// and returned verbatim; nothing in this package interprets it.
type PropertyList []byte

// DefaultCreateProps is the property list used when a request carries none
// and no other default was configured.
var DefaultCreateProps = PropertyList("group-create:default")

// IsDefault reports whether p is empty, meaning "use the default".
func (p PropertyList) IsDefault() bool {
	return len(p) == 0
}

// Or returns p, or def if p is empty.
func (p PropertyList) Or(def PropertyList) PropertyList {
	if p.IsDefault() {
		return def
	}
	return p
}

func (p PropertyList) clone() PropertyList {
	if p == nil {
		return nil
	}
	out := make(PropertyList, len(p))
	copy(out, p)
	return out
}
