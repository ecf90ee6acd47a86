package proxy

import (
	"context"
	"testing"

	"courier-sync/internal/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		s := FromConfig(config.ProxyConfig{Hostname: "geo.example.com", Port: 12321})
		assert.False(t, s.HasProxy())
		assert.Empty(t, s.HostPort())
		assert.Empty(t, s.FullURL())
	})

	t.Run("WithoutCredentials", func(t *testing.T) {
		s := Settings{Enabled: true, Hostname: "geo.example.com", Port: 12321}
		assert.True(t, s.HasProxy())
		assert.False(t, s.HasCredentials())
		assert.Equal(t, "http://geo.example.com:12321", s.HostPort())
		assert.Equal(t, "http://geo.example.com:12321", s.FullURL())
	})

	t.Run("WithCredentials", func(t *testing.T) {
		s := Settings{Enabled: true, Hostname: "geo.example.com", Port: 12321, Username: "u", Password: "p"}
		assert.True(t, s.HasCredentials())
		assert.Equal(t, "http://u:p@geo.example.com:12321", s.FullURL())
	})
}

func TestForwardingProxy_ShouldTunnel(t *testing.T) {
	fp, err := NewForwardingProxy("http://u:p@upstream.example.com:8080", "coordinadora.com")
	require.NoError(t, err)

	assert.True(t, fp.shouldTunnel("coordinadora.com:443"))
	assert.True(t, fp.shouldTunnel("www.coordinadora.com:443"))
	assert.False(t, fp.shouldTunnel("fonts.googleapis.com:443"))
	assert.False(t, fp.shouldTunnel("evilcoordinadora.com:443"))

	open, err := NewForwardingProxy("http://upstream.example.com:8080")
	require.NoError(t, err)
	assert.True(t, open.shouldTunnel("anything.example.org:443"))
}

func TestForwardingProxy_InvalidURL(t *testing.T) {
	_, err := NewForwardingProxy("not a url")
	assert.Error(t, err)
}

func TestForwardingProxy_StartStop(t *testing.T) {
	fp, err := NewForwardingProxy("http://upstream.example.com:8080")
	require.NoError(t, err)

	addr, err := fp.Start(context.Background())
	require.NoError(t, err)
	assert.Contains(t, addr, "http://127.0.0.1:")
	assert.True(t, fp.IsRunning())

	again, err := fp.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, addr, again)

	require.NoError(t, fp.Stop())
	assert.False(t, fp.IsRunning())
	require.NoError(t, fp.Stop())
}
