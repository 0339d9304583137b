package wormhole

import (
	runtimepkg "github.com/drblury/wormhole/internal/runtime"
	"github.com/drblury/wormhole/internal/runtime/bplist17"
	"github.com/drblury/wormhole/internal/runtime/cborcodec"
	configpkg "github.com/drblury/wormhole/internal/runtime/config"
	"github.com/drblury/wormhole/internal/runtime/correlator"
	errspkg "github.com/drblury/wormhole/internal/runtime/errors"
	idspkg "github.com/drblury/wormhole/internal/runtime/ids"
	"github.com/drblury/wormhole/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/wormhole/internal/runtime/logging"
	metadatapkg "github.com/drblury/wormhole/internal/runtime/metadata"
	transportpkg "github.com/drblury/wormhole/internal/runtime/transport"
	registry "github.com/drblury/wormhole/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Transport           = transportpkg.Transport
	TransportFactory    = transportpkg.Factory
	Capabilities        = transportpkg.Capabilities

	// Correlation
	Correlator        = correlator.Correlator
	CorrelatorOptions = correlator.Options
	Event             = correlator.Event
	EventKind         = correlator.EventKind
	Record            = correlator.Record
	RecordKind        = correlator.RecordKind
	Direction         = correlator.Direction
	NoiseFilter       = correlator.NoiseFilter
	Recorder          = correlator.Recorder

	// Decoding
	Value         = bplist17.Value
	Kind          = bplist17.Kind
	Pair          = bplist17.Pair
	DecodeOptions = bplist17.Options
	FormatError   = bplist17.FormatError

	CorrelatorHandler         = runtimepkg.CorrelatorHandler
	RecordCodec               = runtimepkg.RecordCodec
	CorrelatorMetrics         = runtimepkg.CorrelatorMetrics
	CorrelatorMetricsSnapshot = runtimepkg.CorrelatorMetricsSnapshot
	StatsResponse             = runtimepkg.StatsResponse
	EventValidator            = runtimepkg.EventValidator
	EventSchemaError          = runtimepkg.EventSchemaError

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig  = runtimepkg.RetryMiddlewareConfig

	Producer = runtimepkg.Producer

	Metadata = metadatapkg.Metadata

	LogFields                 = loggingpkg.LogFields
	ServiceLogger             = loggingpkg.ServiceLogger
	EntryLoggerAdapter[T any] = loggingpkg.EntryLoggerAdapter[T]

	UnprocessableEventError = errspkg.UnprocessableEventError
	ConfigValidationError   = errspkg.ConfigValidationError

	// Modular transport types
	TransportBuilder      = registry.Builder
	TransportConfig       = registry.Config
	TransportRegistry     = registry.Registry
	TransportCapabilities = registry.Capabilities
)

var (
	NewService     = runtimepkg.NewService
	LoadConfig     = configpkg.Load
	ParseConfig    = configpkg.Parse
	DefaultConfig  = configpkg.Default
	ValidateConfig = configpkg.ValidateConfig

	NewCorrelator  = correlator.New
	Classify       = correlator.Classify
	NewNoiseFilter = correlator.NewNoiseFilter

	DecodeDocument  = bplist17.DecodeWithOptions
	HasMagic        = bplist17.HasMagic
	ExtractEmbedded = correlator.ExtractEmbedded

	NewCorrelatorHandler = runtimepkg.NewCorrelatorHandler
	NewRecordCodec       = runtimepkg.NewRecordCodec
	NewCorrelatorMetrics = runtimepkg.NewCorrelatorMetrics
	NewEventValidator    = runtimepkg.NewEventValidator
	NewEventMessage      = runtimepkg.NewEventMessage
	PublishEvent         = runtimepkg.PublishEvent
	DecodeEvent          = runtimepkg.DecodeEvent
	RecordMetadata       = runtimepkg.RecordMetadata

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	EventSchemaMiddleware   = runtimepkg.EventSchemaMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RetryMiddleware         = runtimepkg.RetryMiddleware
	PoisonQueueMiddleware   = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	DefaultTransportFactory  = transportpkg.DefaultFactory
	GetCapabilities          = transportpkg.GetCapabilities
	DefaultTransportRegistry = registry.DefaultRegistry
	RegisterTransport        = registry.Register
	BuildTransport           = registry.Build

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	MarshalCBOR     = cborcodec.Marshal
	UnmarshalCBOR   = cborcodec.Unmarshal
	DiagnoseCBOR    = cborcodec.Diagnose
	IsUnprocessable = errspkg.IsUnprocessable

	ErrServiceRequired      = errspkg.ErrServiceRequired
	ErrConfigRequired       = errspkg.ErrConfigRequired
	ErrLoggerRequired       = errspkg.ErrLoggerRequired
	ErrPublisherRequired    = errspkg.ErrPublisherRequired
	ErrTopicRequired        = errspkg.ErrTopicRequired
	ErrEventPayloadRequired = errspkg.ErrEventPayloadRequired
	ErrCorrelatorRequired   = errspkg.ErrCorrelatorRequired
	ErrUnknownEncoding      = errspkg.ErrUnknownEncoding
	ErrInvalidEvent         = errspkg.ErrInvalidEvent
	ErrFormat               = bplist17.ErrFormat
	ErrUnsupportedTag       = bplist17.ErrUnsupportedTag

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewDiscardLogger     = loggingpkg.NewDiscardLogger

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID
	// ULIDTime recovers the observation time encoded in a Record ID.
	ULIDTime = idspkg.Time
)

// Record kinds.
const (
	RecordCompleted = correlator.RecordCompleted
	RecordSync      = correlator.RecordSync
	RecordCall      = correlator.RecordCall
	RecordOrphan    = correlator.RecordOrphan
)

// Event kinds.
const (
	KindCall      = correlator.KindCall
	KindAsyncCall = correlator.KindAsyncCall
	KindSyncCall  = correlator.KindSyncCall
	KindReply     = correlator.KindReply
)

// Metadata keys set on record messages.
const (
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
	MetadataKeyEventSchema   = metadatapkg.KeyEventSchema
	MetadataKeyService       = metadatapkg.KeyService
	MetadataKeyDirection     = metadatapkg.KeyDirection
	MetadataKeyThreadID      = metadatapkg.KeyThreadID
	MetadataKeyRecordKind    = metadatapkg.KeyRecordKind
	MetadataKeyEncoding      = metadatapkg.KeyEncoding
	MetadataKeyTraceID       = metadatapkg.KeyTraceID
	MetadataKeySpanID        = metadatapkg.KeySpanID

	RecordSchema = metadatapkg.RecordSchema
	EventSchema  = metadatapkg.EventSchema
)

func NewEntryServiceLogger[T EntryLoggerAdapter[T]](entry T) ServiceLogger {
	return loggingpkg.NewEntryServiceLogger(entry)
}
