package correlator

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/wormhole/internal/runtime/bplist17"
	"github.com/drblury/wormhole/internal/runtime/logging"
)

func newTestNormalizer() (*normalizer, *recordingMetrics) {
	metrics := newRecordingMetrics()
	return &normalizer{maxDepth: bplist17.DefaultMaxDepth, metrics: metrics, logger: logging.NewDiscardLogger()}, metrics
}

func TestRootFieldDecoded(t *testing.T) {
	n, metrics := newTestNormalizer()
	arg := fmt.Sprintf(`{"name":"x","root":%q}`, singleEntryDict("k", 5).base64())

	assert.JSONEq(t, `{"name":"x","root":{"k":5}}`, string(n.argument(arg)))
	assert.Equal(t, 1, metrics.roots[RootDecoded])
}

func TestArgumentKeepsMemberOrder(t *testing.T) {
	n, _ := newTestNormalizer()
	root := singleEntryDict("k", 5).base64()
	arg := fmt.Sprintf(`{"z":1,"y":[{"q":2,"p":3}],"root":%q,"a":5,"b":6}`, root)

	assert.Equal(t, `{"z":1,"y":[{"q":2,"p":3}],"root":{"k":5},"a":5,"b":6}`, string(n.argument(arg)))
}

func TestRootFieldNestedAtAnyDepth(t *testing.T) {
	n, _ := newTestNormalizer()
	root := newDoc().ascii("deep").base64()
	arg := fmt.Sprintf(`{"outer":[{"inner":{"root":%q}}]}`, root)

	assert.JSONEq(t, `{"outer":[{"inner":{"root":"deep"}}]}`, string(n.argument(arg)))
}

func TestRootFieldInvalidBase64PassesThrough(t *testing.T) {
	n, metrics := newTestNormalizer()

	assert.JSONEq(t, `{"root":"%%% not base64"}`, string(n.argument(`{"root":"%%% not base64"}`)))
	assert.Equal(t, 1, metrics.roots[RootBadBase64])
}

func TestRootFieldWithoutMagicPassesThrough(t *testing.T) {
	n, metrics := newTestNormalizer()
	plain := base64.StdEncoding.EncodeToString([]byte("hello world"))
	legacy := base64.StdEncoding.EncodeToString([]byte("bplist00\x00"))

	out := n.argument(fmt.Sprintf(`[{"root":%q},{"root":%q}]`, plain, legacy))
	assert.JSONEq(t, fmt.Sprintf(`[{"root":%q},{"root":%q}]`, plain, legacy), string(out))
	assert.Equal(t, 2, metrics.roots[RootNotDocument])
}

func TestRootFieldFallsBackToTypedDecode(t *testing.T) {
	n, metrics := newTestNormalizer()
	arg := fmt.Sprintf(`{"root":%q}`, unevenArchive().base64())

	assert.JSONEq(t, `{"root":{"value":{
		"$class":{"value":"NSDictionary"},
		"NS.keys":{"value":[{"value":"a"},{"value":"b"}]},
		"NS.objects":{"value":[{"value":1}]}
	}}}`, string(n.argument(arg)))
	assert.Equal(t, 1, metrics.roots[RootTypedFallback])
}

func TestRootFieldUndecodableStaysUnchanged(t *testing.T) {
	n, metrics := newTestNormalizer()
	root := newDoc().raw(0x30).base64()
	arg := fmt.Sprintf(`{"root":%q}`, root)

	assert.JSONEq(t, arg, string(n.argument(arg)))
	assert.Equal(t, 1, metrics.roots[RootFailed])
}

func TestRootFieldOnlyRewritesStrings(t *testing.T) {
	n, metrics := newTestNormalizer()
	assert.JSONEq(t, `{"root":{"nested":1}}`, string(n.argument(`{"root":{"nested":1}}`)))
	assert.Empty(t, metrics.roots)
}

func TestPayloadShapes(t *testing.T) {
	n, _ := newTestNormalizer()

	assert.JSONEq(t, `null`, string(n.payload(nil)))
	assert.JSONEq(t, `"not json"`, string(n.payload([]string{"not json"})))
	assert.JSONEq(t, `[{"a":1},"text",7]`, string(n.payload([]string{`{"a":1}`, "text", "7"})))
	assert.Equal(t, `{"n":9007199254740993}`, string(n.payload([]string{`{"n":9007199254740993}`})))
}

func TestDataRendering(t *testing.T) {
	n, _ := newTestNormalizer()

	assert.Nil(t, n.data(nil))
	assert.JSONEq(t, `"dead"`, string(n.data([]byte{0xDE, 0xAD})))

	header := make([]byte, 44)
	copy(header[24:], "CPX@")
	body := append(header, newDoc().ascii("abc").buf...)
	assert.JSONEq(t, `"abc"`, string(n.data(body)))
}

func TestExtractEmbedded(t *testing.T) {
	header := make([]byte, 44)
	body := append(header, singleEntryDict("k", 1).buf...)

	v, offset, found, err := ExtractEmbedded(body, bplist17.Options{})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 44, offset)
	assert.Equal(t, `{"k":1}`, v.String())

	_, offset, found, err = ExtractEmbedded([]byte("no document here"), bplist17.Options{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, -1, offset)

	_, _, found, err = ExtractEmbedded(append(header, newDoc().raw(0x30).buf...), bplist17.Options{})
	assert.True(t, found)
	assert.ErrorIs(t, err, bplist17.ErrUnsupportedTag)
}

func TestCorrelatorRecordsCarryData(t *testing.T) {
	c, _ := newTestCorrelator(t, Options{})
	rec, ok := c.Observe(Event{Symbol: symNotify, Service: "svc", PayloadBytes: newDoc().ascii("xyz").buf})
	require.True(t, ok)
	assert.JSONEq(t, `"xyz"`, string(rec.Data))
}
