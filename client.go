// Package wifiscan provides access to IEEE 802.11 WiFi devices on Linux
// through nl80211: interface and station queries, connection management and
// a scan workflow driven by nl80211 multicast events.
package wifiscan

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds each nl80211 request when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Config contains options for a Client.
type Config struct {
	// Timeout bounds the wait for the replies to each request. If zero,
	// DefaultTimeout is used.
	Timeout time.Duration

	// ReceiveBufferSize sizes the read buffer of each netlink socket. If
	// zero, a 32KiB buffer is used.
	ReceiveBufferSize int

	// NetNS, if non-zero, is a network namespace file descriptor in which
	// the netlink sockets are opened.
	NetNS int

	// Strict enables extended acknowledgements and strict attribute
	// checking, on kernels which support them.
	Strict bool

	// EventGroups names nl80211 multicast groups to join in addition to
	// "scan", such as "mlme" or "regulatory".
	EventGroups []string

	// Logger receives diagnostic logs. If nil, logs are discarded.
	Logger *slog.Logger

	// Registerer, if set, registers the Client's Prometheus metrics.
	Registerer prometheus.Registerer

	// TracerProvider creates the tracer for request and scan spans. If nil,
	// the global provider is used.
	TracerProvider trace.TracerProvider
}

// withDefaults returns a copy of cfg with defaults applied. cfg may be nil.
func (cfg *Config) withDefaults() *Config {
	var c Config
	if cfg != nil {
		c = *cfg
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.TracerProvider == nil {
		c.TracerProvider = otel.GetTracerProvider()
	}

	return &c
}

// A Client is a type which can access WiFi device actions and statistics
// using nl80211.
type Client struct {
	c *client
}

// New creates a new Client. cfg may be nil to use the defaults.
func New(cfg *Config) (*Client, error) {
	c, err := newClient(cfg.withDefaults())
	if err != nil {
		return nil, err
	}

	return &Client{
		c: c,
	}, nil
}

// Close releases resources used by a Client. Requests and scans in progress
// fail with ErrCanceled.
func (c *Client) Close() error {
	return c.c.Close()
}

// Connect starts connecting the interface to the specified ssid.
func (c *Client) Connect(ctx context.Context, ifi *Interface, ssid string) error {
	return c.c.Connect(ctx, ifi, ssid)
}

// Disconnect disconnects the interface.
func (c *Client) Disconnect(ctx context.Context, ifi *Interface) error {
	return c.c.Disconnect(ctx, ifi)
}

// ConnectWPAPSK starts connecting the interface to the specified ssid using
// WPA2-PSK. It returns ErrNotSupported if the driver cannot perform the 4-way
// handshake itself.
func (c *Client) ConnectWPAPSK(ctx context.Context, ifi *Interface, ssid, psk string) error {
	return c.c.ConnectWPAPSK(ctx, ifi, ssid, psk)
}

// Interfaces returns a list of the system's WiFi network interfaces.
func (c *Client) Interfaces(ctx context.Context) ([]*Interface, error) {
	return c.c.Interfaces(ctx)
}

// BSS retrieves the BSS associated with a WiFi interface. It returns
// os.ErrNotExist if the interface is not associated.
func (c *Client) BSS(ctx context.Context, ifi *Interface) (*ScanResult, error) {
	return c.c.BSS(ctx, ifi)
}

// StationInfo retrieves all station statistics about a WiFi interface.
//
// If there are no stations, an empty slice is returned.
func (c *Client) StationInfo(ctx context.Context, ifi *Interface) ([]*StationInfo, error) {
	return c.c.StationInfo(ctx, ifi)
}

// SurveyInfo retrieves the channel survey statistics of a WiFi interface.
func (c *Client) SurveyInfo(ctx context.Context, ifi *Interface) ([]*SurveyInfo, error) {
	return c.c.SurveyInfo(ctx, ifi)
}

// Scan triggers a scan on a WiFi interface, waits for the kernel to report
// its results and returns them. opts may be nil.
//
// Only one scan may be triggered or awaited per interface at a time; a
// second one fails with ErrScanInProgress without contacting the kernel. If
// the kernel aborts the scan, the error wraps ErrScanAborted. A scan
// triggered without the required privileges fails with a *KernelError
// matching os.ErrPermission.
func (c *Client) Scan(ctx context.Context, ifi *Interface, opts *ScanOptions) ([]*ScanResult, error) {
	return c.c.scan(ctx, ifi, opts)
}

// TriggerScan starts a scan on a WiFi interface without waiting for its
// results. opts may be nil. Like Scan, it fails with ErrScanInProgress while
// another scan of the interface is triggering or waiting.
func (c *Client) TriggerScan(ctx context.Context, ifi *Interface, opts *ScanOptions) error {
	return c.c.TriggerScan(ctx, ifi, opts)
}

// AbortScan aborts the scan running on a WiFi interface.
func (c *Client) AbortScan(ctx context.Context, ifi *Interface) error {
	return c.c.AbortScan(ctx, ifi)
}

// ScanResults returns the scan results the kernel holds for a WiFi
// interface, without starting a scan.
func (c *Client) ScanResults(ctx context.Context, ifi *Interface) ([]*ScanResult, error) {
	return c.c.ScanResults(ctx, ifi)
}

// ScanState returns the state of the scan workflow of a WiFi interface. A
// finished scan reports ScanCompleted or ScanError until the next scan of the
// interface begins.
func (c *Client) ScanState(ifi *Interface) ScanState {
	return c.c.scans.state(ifi.Index)
}

// StartScheduledScan starts a scan of a WiFi interface which the kernel
// repeats every interval. Results are announced by
// EventScheduledScanResults.
func (c *Client) StartScheduledScan(ctx context.Context, ifi *Interface, interval time.Duration, opts *ScanOptions) error {
	return c.c.StartScheduledScan(ctx, ifi, interval, opts)
}

// StopScheduledScan stops the scheduled scan of a WiFi interface.
func (c *Client) StopScheduledScan(ctx context.Context, ifi *Interface) error {
	return c.c.StopScheduledScan(ctx, ifi)
}

// Regulatory returns the regulatory domain the kernel currently applies.
func (c *Client) Regulatory(ctx context.Context) (*Regulatory, error) {
	return c.c.Regulatory(ctx)
}

// SetRegulatory requests the regulatory domain of the country with the
// specified ISO 3166 alpha2 code, or "00" for the world domain. It requires
// CAP_NET_ADMIN.
func (c *Client) SetRegulatory(ctx context.Context, alpha2 string) error {
	return c.c.SetRegulatory(ctx, alpha2)
}

// Subscribe returns a channel of nl80211 events from the "scan" group and
// Config.EventGroups, and a function which ends the subscription. Events are
// dropped if the channel is not drained quickly enough. The last event is
// EventTerminated, after which the channel is closed.
func (c *Client) Subscribe() (<-chan Event, func(), error) {
	return c.c.Subscribe()
}
