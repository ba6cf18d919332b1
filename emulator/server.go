package emulator

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/moyoez/castanet/keys"
	"github.com/moyoez/castanet/setup"
	"github.com/moyoez/castanet/tool"
	"github.com/moyoez/castanet/types"
)

const (
	scanKey        = "scan"
	DefaultScanTTL = 120 * time.Second
)

// Command is a request body the emulator received on a command endpoint.
type Command struct {
	Endpoint string
	Body     []byte
}

type scanState struct {
	started time.Time
}

// Server emulates the setup API of a cast device in setup mode.
type Server struct {
	key     *rsa.PrivateKey
	fixture Fixture
	scans   *ttlworker.Cache[string, scanState]
	engine  *gin.Engine

	mu         sync.Mutex
	info       types.EurekaInfo
	configured []types.ConfiguredNetwork
	pending    *types.ConnectCommand
	received   []Command
	passwords  []string
	server     *http.Server
}

// Option customises a Server.
type Option func(*Server)

// WithKey makes the emulator use key instead of generating one.
func WithKey(key *rsa.PrivateKey) Option {
	return func(s *Server) { s.key = key }
}

// New creates an emulator for fixture.
func New(fixture Fixture, opts ...Option) (*Server, error) {
	s := &Server{
		fixture:    fixture,
		scans:      ttlworker.NewCache[string, scanState](DefaultScanTTL),
		configured: slices.Clone(fixture.Configured),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.key == nil {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("generate device key: %w", err)
		}
		s.key = key
	}
	s.info = types.EurekaInfo{
		Name:              fixture.Name,
		PublicKey:         keys.EncodePublicKey(&s.key.PublicKey),
		SsdpUdn:           uuid.NewString(),
		BuildVersion:      "1.56.500000",
		CastBuildRevision: "1.56.500000",
		MacAddress:        "00:00:00:00:00:00",
		SetupState:        60,
		Locale:            "en-US",
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	g := r.Group("/setup")
	g.GET("/"+setup.EndpointEurekaInfo, s.handleEurekaInfo)
	g.POST("/"+setup.EndpointScanWifi, s.handleScanWifi)
	g.GET("/"+setup.EndpointScanResults, s.handleScanResults)
	g.POST("/"+setup.EndpointConnectWifi, s.handleConnectWifi)
	g.POST("/"+setup.EndpointSaveWifi, s.handleSaveWifi)
	g.POST("/"+setup.EndpointSetEurekaInfo, s.handleSetEurekaInfo)
	g.GET("/"+setup.EndpointConfiguredNetworks, s.handleConfiguredNetworks)
	g.POST("/"+setup.EndpointForgetWifi, s.handleForgetWifi)
	return r
}

// Handler returns the HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves HTTPS on addr with a fresh self-signed certificate. It blocks until Stop.
func (s *Server) Start(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	cert, err := tool.GenerateTLSCert(host, "localhost", "127.0.0.1")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12},
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Emulating %q on https://%s/setup", s.fixture.Name, addr)
	if err := srv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Key returns the device private key.
func (s *Server) Key() *rsa.PrivateKey {
	return s.key
}

// Info returns the current eureka info.
func (s *Server) Info() types.EurekaInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Received returns the command bodies received so far, oldest first.
func (s *Server) Received() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.received)
}

// Passwords returns the decrypted enc_passwd of every connect command received.
func (s *Server) Passwords() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.passwords)
}

// Configured returns the networks saved on the device.
func (s *Server) Configured() []types.ConfiguredNetwork {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.configured)
}

func (s *Server) record(endpoint string, body []byte) {
	s.received = append(s.received, Command{Endpoint: endpoint, Body: body})
}

func writeJSON(c *gin.Context, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(status, "application/json", data)
}

func (s *Server) handleEurekaInfo(c *gin.Context) {
	writeJSON(c, http.StatusOK, s.Info())
}

func (s *Server) handleScanWifi(c *gin.Context) {
	s.scans.Set(scanKey, scanState{started: time.Now()})
	c.Status(http.StatusOK)
}

func (s *Server) handleScanResults(c *gin.Context) {
	state := s.scans.Get(scanKey)
	if state.started.IsZero() || time.Since(state.started) < s.fixture.ScanDelay {
		writeJSON(c, http.StatusOK, []types.WifiNetwork{})
		return
	}
	networks := s.fixture.Networks
	if networks == nil {
		networks = []types.WifiNetwork{}
	}
	writeJSON(c, http.StatusOK, networks)
}

func (s *Server) handleConnectWifi(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	var cmd types.ConnectCommand
	if err := sonic.Unmarshal(body, &cmd); err != nil || cmd.SSID == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	password, err := keys.DecryptPassword(cmd.EncPasswd, s.key)
	if err != nil {
		tool.DefaultLogger.Warnf("Emulator rejected connect_wifi: %v", err)
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(setup.EndpointConnectWifi, body)
	s.passwords = append(s.passwords, password)
	s.pending = &cmd
	c.Status(http.StatusOK)
}

func (s *Server) handleSaveWifi(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	var cmd types.SaveCommand
	if err := sonic.Unmarshal(body, &cmd); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(setup.EndpointSaveWifi, body)
	if s.pending == nil {
		c.Status(http.StatusConflict)
		return
	}
	next := 0
	for _, n := range s.configured {
		next = max(next, n.WpaID+1)
	}
	s.configured = append(s.configured, types.ConfiguredNetwork{
		SSID:      s.pending.SSID,
		WpaAuth:   s.pending.WpaAuth,
		WpaCipher: s.pending.WpaCipher,
		WpaID:     next,
	})
	s.info.SSID = s.pending.SSID
	s.info.Connected = true
	s.pending = nil
	c.Status(http.StatusOK)
}

func (s *Server) handleSetEurekaInfo(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	var cmd types.RenameCommand
	if err := sonic.Unmarshal(body, &cmd); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(setup.EndpointSetEurekaInfo, body)
	if cmd.Name != "" {
		s.info.Name = cmd.Name
	}
	c.Status(http.StatusOK)
}

func (s *Server) handleConfiguredNetworks(c *gin.Context) {
	writeJSON(c, http.StatusOK, s.Configured())
}

func (s *Server) handleForgetWifi(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	var cmd types.ForgetCommand
	if err := sonic.Unmarshal(body, &cmd); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(setup.EndpointForgetWifi, body)
	s.configured = slices.DeleteFunc(s.configured, func(n types.ConfiguredNetwork) bool {
		return n.WpaID == cmd.WpaID
	})
	c.Status(http.StatusOK)
}
