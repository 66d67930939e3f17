package upstream

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Direct(t *testing.T) {
	client, err := NewClient("")
	require.NoError(t, err)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Nil(t, transport.Proxy)
}

func TestNewClient_WithProxy(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:10809")
	require.NoError(t, err)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, transport.Proxy)

	req, _ := http.NewRequest(http.MethodGet, "https://zenmux.ai/api/v1", nil)
	proxyURL, err := transport.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:10809", proxyURL.String())
}

func TestNewClient_InvalidProxyURL(t *testing.T) {
	_, err := NewClient("://bad")
	assert.Error(t, err)
}
