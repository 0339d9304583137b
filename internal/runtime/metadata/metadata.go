package metadata

// Metadata holds the string headers carried by event and record messages.
type Metadata map[string]string

// New builds Metadata from alternating key/value pairs. A trailing key
// without a value is ignored.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

// Merge returns a new map holding m overlaid with each of others in turn.
// Neither input is modified.
func (m Metadata) Merge(others ...Metadata) Metadata {
	size := len(m)
	for _, o := range others {
		size += len(o)
	}
	out := make(Metadata, size)
	for k, v := range m {
		out[k] = v
	}
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// WithoutEmpty returns a copy with empty values dropped, so unset optional
// headers never reach the broker.
func (m Metadata) WithoutEmpty() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
