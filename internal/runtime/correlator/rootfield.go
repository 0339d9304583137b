package correlator

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/bytedance/sonic/ast"

	"github.com/drblury/wormhole/internal/runtime/bplist17"
	"github.com/drblury/wormhole/internal/runtime/jsoncodec"
	"github.com/drblury/wormhole/internal/runtime/logging"
)

// RootField is the JSON object key whose string value may hold a base64
// encoded document.
const RootField = "root"

var documentMagic = []byte(bplist17.Magic + bplist17.Version17)

// normalizer rewrites "root" fields in payload trees.
type normalizer struct {
	maxDepth int
	metrics  Recorder
	logger   logging.ServiceLogger
}

// payload turns hook arguments into one JSON value: nothing becomes null, a
// single argument stands alone and several become an array.
func (n *normalizer) payload(args []string) json.RawMessage {
	switch len(args) {
	case 0:
		return json.RawMessage("null")
	case 1:
		return n.argument(args[0])
	}
	items := make([]json.RawMessage, len(args))
	for i, a := range args {
		items[i] = n.argument(a)
	}
	out, err := jsoncodec.Marshal(items)
	if err != nil {
		return json.RawMessage("null")
	}
	return out
}

// argument parses arg as JSON when it is JSON and keeps it as a string
// otherwise. Root fields are rewritten at any depth.
func (n *normalizer) argument(arg string) json.RawMessage {
	if jsoncodec.Valid([]byte(arg)) {
		if tree, err := jsoncodec.Parse([]byte(arg)); err == nil {
			if err := n.walk(&tree); err == nil {
				if out, err := tree.MarshalJSON(); err == nil {
					return out
				}
			}
		}
	}
	out, err := jsoncodec.Marshal(arg)
	if err != nil {
		return json.RawMessage("null")
	}
	return out
}

// walk rewrites root fields in place. Member order is left untouched.
func (n *normalizer) walk(node *ast.Node) error {
	switch node.TypeSafe() {
	case ast.V_OBJECT:
		it, err := node.Properties()
		if err != nil {
			return err
		}
		var keys []string
		seen := make(map[string]struct{})
		var p ast.Pair
		for it.Next(&p) {
			if _, dup := seen[p.Key]; !dup {
				seen[p.Key] = struct{}{}
				keys = append(keys, p.Key)
			}
		}
		for _, key := range keys {
			child := node.Get(key)
			if key == RootField && child.TypeSafe() == ast.V_STRING {
				s, err := child.String()
				if err != nil {
					return err
				}
				if decoded, ok := n.root(s); ok {
					if _, err := node.Set(key, ast.NewRaw(string(decoded))); err != nil {
						return err
					}
				}
				continue
			}
			if err := n.walk(child); err != nil {
				return err
			}
			if _, err := node.Set(key, *child); err != nil {
				return err
			}
		}
	case ast.V_ARRAY:
		size, err := node.Len()
		if err != nil {
			return err
		}
		for i := range size {
			child := node.Index(i)
			if err := n.walk(child); err != nil {
				return err
			}
			if _, err := node.SetByIndex(i, *child); err != nil {
				return err
			}
		}
	}
	return nil
}

// root decodes one root field value. ok is false when the field must stay as
// it is.
func (n *normalizer) root(s string) (json.RawMessage, bool) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		n.metrics.RootField(RootBadBase64)
		n.logger.Debug("Root field is not base64", logging.LogFields{"error": err.Error()})
		return nil, false
	}
	if !bplist17.HasMagic(raw) {
		n.metrics.RootField(RootNotDocument)
		return nil, false
	}
	v, outcome, err := n.decode(raw)
	if err != nil {
		n.metrics.RootField(RootFailed)
		n.logger.Error("Root field left undecoded", err, logging.LogFields{"size": len(raw)})
		return nil, false
	}
	out, err := v.MarshalJSON()
	if err != nil {
		n.metrics.RootField(RootFailed)
		n.logger.Error("Root field did not render", err, nil)
		return nil, false
	}
	n.metrics.RootField(outcome)
	return out, true
}

// decode tries value mode first and falls back to type-info mode.
func (n *normalizer) decode(doc []byte) (bplist17.Value, RootOutcome, error) {
	v, err := bplist17.DecodeWithOptions(doc, bplist17.Options{MaxDepth: n.maxDepth})
	if err == nil {
		return v, RootDecoded, nil
	}
	n.logger.Debug("Falling back to typed decode", logging.LogFields{"error": err.Error()})
	v, typedErr := bplist17.DecodeWithOptions(doc, bplist17.Options{TypeInfo: true, MaxDepth: n.maxDepth})
	if typedErr != nil {
		return bplist17.Value{}, RootFailed, typedErr
	}
	return v, RootTypedFallback, nil
}

// data renders payload bytes: an embedded document decodes in place, any
// other bytes become a hex string.
func (n *normalizer) data(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	if idx := bytes.Index(b, documentMagic); idx >= 0 {
		if v, _, err := n.decode(b[idx:]); err == nil {
			if out, err := v.MarshalJSON(); err == nil {
				return out
			}
		}
	}
	out, _ := jsoncodec.Marshal(hex.EncodeToString(b))
	return out
}

// ExtractEmbedded finds the first document embedded in a raw message body,
// such as a mach message whose header precedes the payload, and decodes it.
// found is false when the body carries no document.
func ExtractEmbedded(raw []byte, opts bplist17.Options) (v bplist17.Value, offset int, found bool, err error) {
	offset = bytes.Index(raw, documentMagic)
	if offset < 0 {
		return bplist17.Value{}, -1, false, nil
	}
	v, err = bplist17.DecodeWithOptions(raw[offset:], opts)
	return v, offset, true, err
}
