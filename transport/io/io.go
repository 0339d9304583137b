// Package io is the file transport. Every message is one NDJSON line, so a
// capture can be replayed or inspected with ordinary tools.
package io

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/wormhole/internal/runtime/jsoncodec"
	"github.com/drblury/wormhole/transport"
)

// TransportName is the PubSubSystem value for this transport.
const TransportName = "io"

// DefaultFilePath is used when no file is configured.
const DefaultFilePath = "wormhole.ndjson"

// PollInterval is how long a subscriber waits at end of file.
var PollInterval = 50 * time.Millisecond

// PublisherFactory creates the publisher. Tests may replace it.
var PublisherFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return NewPublisher(filePath, logger), nil
}

// SubscriberFactory creates the subscriber. Tests may replace it.
var SubscriberFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return NewSubscriber(filePath, logger), nil
}

func init() {
	Register()
}

// Register adds the transport to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.IOCapabilities)
}

// Build opens the configured file for both sides.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	filePath := DefaultFilePath
	if cfg != nil && cfg.GetIOFile() != "" {
		filePath = cfg.GetIOFile()
	}

	pub, err := PublisherFactory(filePath, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	sub, err := SubscriberFactory(filePath, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  pub,
		Subscriber: sub,
	}, nil
}

// Capabilities returns IOCapabilities.
func Capabilities() transport.Capabilities {
	return transport.IOCapabilities
}

// line is one message as stored in the file. JSON payloads are kept inline;
// anything else, CBOR records for instance, goes to PayloadBase64.
type line struct {
	UUID          string            `json:"uuid"`
	Topic         string            `json:"topic"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Payload       json.RawMessage   `json:"payload,omitempty"`
	PayloadBase64 []byte            `json:"payload_b64,omitempty"`
}

// EncodeLine renders msg as an NDJSON line including the trailing newline.
func EncodeLine(topic string, msg *message.Message) ([]byte, error) {
	l := line{UUID: msg.UUID, Topic: topic, Metadata: msg.Metadata}
	if len(msg.Payload) > 0 {
		if jsoncodec.Valid(msg.Payload) {
			l.Payload = json.RawMessage(msg.Payload)
		} else {
			l.PayloadBase64 = msg.Payload
		}
	}

	b, err := jsoncodec.Marshal(l)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// DecodeLine parses one stored line into its topic and message.
func DecodeLine(b []byte) (string, *message.Message, error) {
	var l line
	if err := jsoncodec.Unmarshal(b, &l); err != nil {
		return "", nil, err
	}

	payload := []byte(l.Payload)
	if len(l.PayloadBase64) > 0 {
		payload = l.PayloadBase64
	}
	msg := message.NewMessage(l.UUID, payload)
	for k, v := range l.Metadata {
		msg.Metadata.Set(k, v)
	}
	return l.Topic, msg, nil
}

// Publisher appends messages to a file.
type Publisher struct {
	filePath string
	logger   watermill.LoggerAdapter

	mu     sync.Mutex
	file   *os.File
	closed bool
}

// NewPublisher returns a publisher that opens filePath on first use.
func NewPublisher(filePath string, logger watermill.LoggerAdapter) *Publisher {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Publisher{filePath: filePath, logger: logger}
}

// Publish appends one line per message.
func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("io publisher is closed")
	}
	if p.file == nil {
		f, err := os.OpenFile(p.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		p.file = f
	}

	for _, msg := range messages {
		b, err := EncodeLine(topic, msg)
		if err != nil {
			return err
		}
		if _, err := p.file.Write(b); err != nil {
			return err
		}
		p.logger.Trace("Appended message", watermill.LogFields{"uuid": msg.UUID, "topic": topic})
	}
	return nil
}

// Close closes the file.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}

// Subscriber follows a file from its start, delivering lines for the
// subscribed topic one at a time.
type Subscriber struct {
	filePath string
	logger   watermill.LoggerAdapter

	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSubscriber returns a subscriber reading filePath.
func NewSubscriber(filePath string, logger watermill.LoggerAdapter) *Subscriber {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Subscriber{filePath: filePath, logger: logger, closing: make(chan struct{})}
}

// Subscribe starts following the file. The channel closes when ctx ends or
// the subscriber is closed.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	f, err := os.OpenFile(s.filePath, os.O_RDONLY|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}

	out := make(chan *message.Message)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(out)
		defer f.Close()
		s.follow(ctx, f, out, topic)
	}()
	return out, nil
}

// Close stops every subscription and waits for them.
func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() { close(s.closing) })
	s.wg.Wait()
	return nil
}

func (s *Subscriber) follow(ctx context.Context, f *os.File, out chan<- *message.Message, topic string) {
	reader := bufio.NewReader(f)
	var offset int64

	for {
		b, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// A partial line is re-read once the writer finishes it.
			if !s.wait(ctx) {
				return
			}
			if _, err := f.Seek(offset, io.SeekStart); err != nil {
				s.logger.Error("Failed to seek file", err, watermill.LogFields{"file": s.filePath})
				return
			}
			reader.Reset(f)
			continue
		}
		if err != nil {
			s.logger.Error("Failed to read file", err, watermill.LogFields{"file": s.filePath})
			return
		}
		offset += int64(len(b))

		if !s.deliver(ctx, out, b, topic) {
			return
		}
	}
}

func (s *Subscriber) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.closing:
		return false
	case <-time.After(PollInterval):
		return true
	}
}

// deliver hands one line to out and blocks until it is acked. A nacked
// message is sent again.
func (s *Subscriber) deliver(ctx context.Context, out chan<- *message.Message, b []byte, topic string) bool {
	lineTopic, msg, err := DecodeLine(b)
	if err != nil {
		s.logger.Error("Skipping malformed line", err, watermill.LogFields{"file": s.filePath})
		return true
	}
	if lineTopic != topic {
		return true
	}

	for {
		m := msg.Copy()
		m.SetContext(ctx)
		select {
		case out <- m:
		case <-ctx.Done():
			return false
		case <-s.closing:
			return false
		}

		select {
		case <-m.Acked():
			return true
		case <-m.Nacked():
			s.logger.Debug("Message nacked, redelivering", watermill.LogFields{"uuid": m.UUID})
		case <-ctx.Done():
			return false
		case <-s.closing:
			return false
		}
	}
}
