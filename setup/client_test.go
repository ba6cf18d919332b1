package setup_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/castanet/emulator"
	"github.com/moyoez/castanet/setup"
	"github.com/moyoez/castanet/tool"
	"github.com/moyoez/castanet/types"
)

func newEmulatedClient(t *testing.T) (*setup.Client, *emulator.Server) {
	t.Helper()
	emu, err := emulator.New(emulator.DefaultFixture())
	require.NoError(t, err)
	srv := httptest.NewTLSServer(emu.Handler())
	t.Cleanup(srv.Close)
	return setup.NewClient(srv.URL+"/setup", tool.NewHTTPClient(true, 5*time.Second)), emu
}

func newRawClient(t *testing.T, handler http.HandlerFunc) *setup.Client {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)
	return setup.NewClient(srv.URL+"/setup", tool.NewHTTPClient(true, 5*time.Second))
}

func TestClientAgainstEmulator(t *testing.T) {
	ctx := context.Background()
	client, emu := newEmulatedClient(t)

	info, err := client.EurekaInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, emu.Info().PublicKey, info.PublicKey)

	require.NoError(t, client.ScanWifi(ctx))
	networks, err := client.ScanResults(ctx)
	require.NoError(t, err)
	assert.Len(t, networks, 3)

	resp, err := client.SaveWifi(ctx, types.NewSaveCommand())
	require.NoError(t, err, "non-2xx answers are not errors")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, resp.OK())

	resp, err = client.SetEurekaInfo(ctx, types.NewRenameCommand("Kitchen"))
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "Kitchen", emu.Info().Name)

	configured, err := client.ConfiguredNetworks(ctx)
	require.NoError(t, err)
	assert.Empty(t, configured)

	resp, err = client.ForgetWifi(ctx, types.ForgetCommand{WpaID: 3})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	received := emu.Received()
	require.Len(t, received, 3)
	assert.JSONEq(t, `{"keep_hotspot_until_connected":true}`, string(received[0].Body))
	assert.JSONEq(t, `{"name":"Kitchen","opt_in":{"crash":false,"stats":false,"opencast":false}}`, string(received[1].Body))
	assert.JSONEq(t, `{"wpa_id":3}`, string(received[2].Body))
}

func TestClientScanResultsKeepRawEntries(t *testing.T) {
	client := newRawClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"ssid":"Home","wpa_auth":7,"wpa_cipher":4,"wpa_id":2,"ap_list":[{"bssid":"aa"}]}]`))
	})
	networks, err := client.ScanResults(context.Background())
	require.NoError(t, err)
	require.Len(t, networks, 1)
	assert.Equal(t, "Home", networks[0].SSID)
	require.NotNil(t, networks[0].WpaID)
	assert.Equal(t, 2, *networks[0].WpaID)
	assert.Contains(t, networks[0].Raw, "ap_list")
	assert.Equal(t, "Home", networks[0].Raw["ssid"])
}

func TestClientSendsJSONContentType(t *testing.T) {
	var (
		mu           sync.Mutex
		contentTypes []string
	)
	client := newRawClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		contentTypes = append(contentTypes, r.Method+" "+r.URL.Path+" "+r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()
	require.NoError(t, client.ScanWifi(ctx))
	_, err := client.ConnectWifi(ctx, types.ConnectCommand{SSID: "x"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"POST /setup/scan_wifi ",
		"POST /setup/connect_wifi application/json",
	}, contentTypes)
}

func TestClientMalformedResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "notJSON", status: http.StatusOK, body: "<html>setup</html>", wantErr: setup.ErrMalformedResponse},
		{name: "empty", status: http.StatusOK, body: "", wantErr: setup.ErrMalformedResponse},
		{name: "missingKey", status: http.StatusOK, body: `{"name":"cc"}`, wantErr: setup.ErrMalformedResponse},
		{name: "serverErrorNotJSON", status: http.StatusInternalServerError, body: "internal error", wantErr: setup.ErrUnexpectedStatus},
		{name: "serverErrorEmpty", status: http.StatusServiceUnavailable, body: "", wantErr: setup.ErrUnexpectedStatus},
		{name: "serverErrorMissingKey", status: http.StatusInternalServerError, body: `{}`, wantErr: setup.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newRawClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.EurekaInfo(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("errorStatusWithUsableBody", func(t *testing.T) {
		client := newRawClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"name":"cc","public_key":"MIIBCgKCAQEA"}`))
		})
		info, err := client.EurekaInfo(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "cc", info.Name)
	})

	t.Run("scanResultsNotAList", func(t *testing.T) {
		client := newRawClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"ssid":"x"}`))
		})
		_, err := client.ScanResults(context.Background())
		assert.ErrorIs(t, err, setup.ErrMalformedResponse)
	})
}

func TestClientTransportErrors(t *testing.T) {
	t.Run("selfSignedWithoutInsecure", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.NotFoundHandler())
		defer srv.Close()
		client := setup.NewClient(srv.URL+"/setup", tool.NewHTTPClient(false, 5*time.Second))
		_, err := client.EurekaInfo(context.Background())
		assert.ErrorIs(t, err, setup.ErrTransport)
		assert.Contains(t, err.Error(), "--insecure")
	})
	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		client := setup.NewClient(url+"/setup", tool.NewHTTPClient(true, time.Second))
		err := client.ScanWifi(context.Background())
		assert.ErrorIs(t, err, setup.ErrTransport)
	})
	t.Run("cancelled", func(t *testing.T) {
		client, _ := newEmulatedClient(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.EurekaInfo(ctx)
		assert.ErrorIs(t, err, setup.ErrTransport)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
