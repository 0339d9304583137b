package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/wormhole/transport"
	"github.com/drblury/wormhole/transport/transporttest"
)

type stubPubSub struct{ closed bool }

func (s *stubPubSub) Publish(string, ...*message.Message) error { return nil }
func (s *stubPubSub) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (s *stubPubSub) Close() error { s.closed = true; return nil }

type captured struct {
	loadOpts  int
	accountID string
	region    string
	pub       sns.PublisherConfig
	sub       sns.SubscriberConfig
	sqs       sqs.SubscriberConfig
}

func stubAWS(t *testing.T, pub message.Publisher, loadErr, subErr error) *captured {
	t.Helper()
	origLoader, origResolver, origPub, origSub := DefaultConfigLoader, TopicResolverFactory, PublisherFactory, SubscriberFactory
	t.Cleanup(func() {
		DefaultConfigLoader, TopicResolverFactory, PublisherFactory, SubscriberFactory = origLoader, origResolver, origPub, origSub
	})

	c := &captured{}
	DefaultConfigLoader = func(_ context.Context, opts ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		c.loadOpts = len(opts)
		return aws.Config{Region: "eu-west-1"}, loadErr
	}
	TopicResolverFactory = func(accountID, region string) (*sns.GenerateArnTopicResolver, error) {
		c.accountID, c.region = accountID, region
		return sns.NewGenerateArnTopicResolver(accountID, region)
	}
	PublisherFactory = func(cfg sns.PublisherConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
		c.pub = cfg
		return pub, nil
	}
	SubscriberFactory = func(cfg sns.SubscriberConfig, sqsCfg sqs.SubscriberConfig, _ watermill.LoggerAdapter) (message.Subscriber, error) {
		c.sub, c.sqs = cfg, sqsCfg
		return &stubPubSub{}, subErr
	}
	return c
}

func TestRegistersOnImport(t *testing.T) {
	assert.True(t, transport.DefaultRegistry.Has(TransportName))
	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, Capabilities(), caps)
	assert.True(t, caps.SupportsReliableDelivery())
}

func TestBuildAgainstAWS(t *testing.T) {
	c := stubAWS(t, &stubPubSub{}, nil, nil)

	tr, err := Build(context.Background(), &transporttest.Config{
		AWSRegion:          "us-east-1",
		AWSAccountID:       "123456789012",
		AWSAccessKeyID:     "key",
		AWSSecretAccessKey: "secret",
	}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.NotNil(t, tr.Publisher)
	assert.NotNil(t, tr.Subscriber)

	assert.Equal(t, 2, c.loadOpts, "region and credentials")
	assert.Equal(t, "123456789012", c.accountID)
	assert.Equal(t, "us-east-1", c.region, "configured region wins over the loader")
	assert.Equal(t, "us-east-1", c.pub.AWSConfig.Region)
	assert.Empty(t, c.pub.OptFns)
	assert.Empty(t, c.sqs.OptFns)
	assert.NotNil(t, c.sub.GenerateSqsQueueName)
}

func TestStaticCredentials(t *testing.T) {
	creds, err := staticCredentials("key", "secret").Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}

func TestBuildAgainstLocalstack(t *testing.T) {
	c := stubAWS(t, &stubPubSub{}, nil, nil)

	_, err := Build(context.Background(), &transporttest.Config{
		AWSRegion:   "us-east-1",
		AWSEndpoint: "http://localhost:4566",
	}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, LocalstackAccountID, c.accountID)
	assert.Len(t, c.pub.OptFns, 1)
	assert.Len(t, c.sub.OptFns, 1)
	assert.Len(t, c.sqs.OptFns, 1)
	assert.Equal(t, 1, c.loadOpts)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(context.Background(), nil, watermill.NopLogger{})
	assert.Error(t, err)

	stubAWS(t, &stubPubSub{}, errors.New("config error"), nil)
	_, err = Build(context.Background(), &transporttest.Config{AWSRegion: "us-east-1"}, watermill.NopLogger{})
	assert.ErrorContains(t, err, "config error")

	stubAWS(t, &stubPubSub{}, nil, nil)
	_, err = Build(context.Background(), &transporttest.Config{AWSRegion: "us-east-1", AWSEndpoint: "localhost"}, watermill.NopLogger{})
	assert.ErrorContains(t, err, "not an absolute URL")

	pub := &stubPubSub{}
	stubAWS(t, pub, nil, errors.New("subscriber error"))
	_, err = Build(context.Background(), &transporttest.Config{AWSRegion: "us-east-1", AWSAccountID: "123456789012"}, watermill.NopLogger{})
	assert.ErrorContains(t, err, "subscriber error")
	assert.True(t, pub.closed)
}

func TestResolveAccountID(t *testing.T) {
	log := watermill.NopLogger{}
	assert.Equal(t, "123456789012", resolveAccountID(&transporttest.Config{AWSAccountID: `"123456789012"`}, log))
	assert.Equal(t, "abc", resolveAccountID(&transporttest.Config{AWSAccountID: "abc"}, log), "kept without a custom endpoint")
	assert.Equal(t, LocalstackAccountID, resolveAccountID(&transporttest.Config{AWSAccountID: "abc", AWSEndpoint: "http://ls:4566"}, log))
	assert.Equal(t, LocalstackAccountID, resolveAccountID(&transporttest.Config{AWSEndpoint: "http://ls:4566"}, log))
}

func TestQueueName(t *testing.T) {
	name, err := QueueName(context.Background(), "arn:aws:sns:us-east-1:123456789012:wormhole-records")
	require.NoError(t, err)
	assert.Equal(t, "wormhole-records", name)
}
