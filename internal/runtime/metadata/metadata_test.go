package metadata

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPairs(t *testing.T) {
	md := New(KeyRecordKind, "completed", KeyEventSchema, RecordSchema, "dangling")
	assert.Equal(t, Metadata{KeyRecordKind: "completed", KeyEventSchema: RecordSchema}, md)
	assert.Empty(t, New())
}

func TestMergeDoesNotAlias(t *testing.T) {
	base := Metadata{KeyService: "com.apple.example", KeyDirection: "outbound"}
	merged := base.Merge(Metadata{KeyDirection: "inbound"}, nil, Metadata{KeyThreadID: "7"})

	assert.Equal(t, Metadata{KeyService: "com.apple.example", KeyDirection: "inbound", KeyThreadID: "7"}, merged)
	assert.Equal(t, "outbound", base[KeyDirection])

	var empty Metadata
	require.NotNil(t, empty.Merge())
}

func TestWithoutEmpty(t *testing.T) {
	md := Metadata{KeyService: "svc", KeyCorrelationID: ""}.WithoutEmpty()
	assert.Equal(t, Metadata{KeyService: "svc"}, md)
}

func TestPick(t *testing.T) {
	wm := message.Metadata{KeyCorrelationID: "c-1", KeyTraceID: "", "other": "x"}
	md := Pick(wm, KeyCorrelationID, KeyTraceID, KeySpanID)
	assert.Equal(t, Metadata{KeyCorrelationID: "c-1", KeyTraceID: ""}, md)
	assert.Empty(t, Pick(nil, KeyCorrelationID))
}

func TestToWatermill(t *testing.T) {
	md := Metadata{KeyService: "hook"}
	wm := ToWatermill(md)
	assert.Equal(t, "hook", wm.Get(KeyService))
	wm.Set(KeyService, "mutation")
	assert.Equal(t, "hook", md[KeyService])

	empty := ToWatermill(nil)
	require.NotNil(t, empty)
	empty.Set(KeyThreadID, "1")
	assert.Equal(t, "1", empty.Get(KeyThreadID))
}
