// Package natstest runs an in-process NATS server for tests.
package natstest

import (
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
)

// Connect starts a server on a random port and returns a client connected
// to it. Both are shut down when the test ends.
func Connect(t testing.TB) *nats.Conn {
	t.Helper()

	opts := natsserver.DefaultTestOptions
	opts.Port = server.RANDOM_PORT
	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect to test NATS server: %v", err)
	}
	t.Cleanup(nc.Close)

	return nc
}
