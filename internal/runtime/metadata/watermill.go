package metadata

import "github.com/ThreeDotsLabs/watermill/message"

// Pick copies the listed keys out of Watermill metadata. Missing keys are
// left out.
func Pick(md message.Metadata, keys ...string) Metadata {
	out := make(Metadata, len(keys))
	for _, k := range keys {
		if v, ok := md[k]; ok {
			out[k] = v
		}
	}
	return out
}

// ToWatermill copies metadata into a fresh Watermill map. The result is
// never nil, so callers can Set on it directly.
func ToWatermill(md Metadata) message.Metadata {
	wm := make(message.Metadata, len(md))
	for k, v := range md {
		wm[k] = v
	}
	return wm
}
