package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/diamondsgame/internal/testutil"
)

func TestServerAddr(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 9123

	server := NewServer(context.Background(), nil, cfg, testutil.NopLogger())
	assert.Equal(t, "127.0.0.1:9123", server.Addr())
	assert.Zero(t, server.server.WriteTimeout)
}
