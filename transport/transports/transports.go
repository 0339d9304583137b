// Package transports registers every built-in transport with the default
// registry. Import it for side effects.
package transports

import (
	_ "github.com/drblury/wormhole/transport/aws"
	_ "github.com/drblury/wormhole/transport/channel"
	_ "github.com/drblury/wormhole/transport/http"
	_ "github.com/drblury/wormhole/transport/io"
	_ "github.com/drblury/wormhole/transport/kafka"
	_ "github.com/drblury/wormhole/transport/nats"
	_ "github.com/drblury/wormhole/transport/rabbitmq"
)
