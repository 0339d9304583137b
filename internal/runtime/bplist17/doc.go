// Package bplist17 decodes "bplist17" documents, the self-referential binary
// object graphs embedded in XPC messages.
//
// A document is the 8-byte header ("bplist" + "17") followed by tag-addressed
// values; the top-level object sits right after the header. Each value starts
// with a tag byte whose high nibble selects the type class and whose low
// nibble carries an inline length. Containers store an absolute end address
// instead of an element count, and reference tokens point at a value stored
// elsewhere in the same buffer.
//
// Decoding is purely structural. In the default mode keyed-archive
// dictionaries (NSDictionary / NSMutableDictionary with paired NS.keys and
// NS.objects arrays) are flattened into one mapping; in type-info mode every
// node is wrapped and nothing is flattened.
//
// Legacy "bplist00" documents embedded as data are left as hex.
package bplist17
