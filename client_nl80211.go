package wifiscan

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/wifiscan/internal/genl"
	"github.com/mdlayher/wifiscan/internal/nl80211"
	"github.com/mdlayher/wifiscan/internal/nlattr"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/pbkdf2"
)

const tracerName = "github.com/mdlayher/wifiscan"

// Cipher and AKM suite selectors for WPA2-PSK.
const (
	cipherSuiteCCMP = 0x000fac04
	akmSuitePSK     = 0x000fac02
)

// A client speaks nl80211 over a request transport and, once events are
// needed, a second transport joined to nl80211 multicast groups.
type client struct {
	d      *dispatcher
	family genetlink.Family
	groups []string

	log     *slog.Logger
	metrics *metrics
	tracer  trace.Tracer
	scans   *scanner

	// dial opens the transport of the event listener.
	dial func() (transport, error)

	mu     sync.Mutex
	l      *listener
	closed bool
}

// initClient resolves the nl80211 family over t. cfg must have its defaults
// applied.
func initClient(t transport, dial func() (transport, error), cfg *Config) (*client, error) {
	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		_ = t.Close()
		return nil, err
	}

	tracer := cfg.TracerProvider.Tracer(tracerName)
	d := newDispatcher(t, cfg.Timeout, cfg.Logger, m, tracer)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	family, err := genl.ResolveFamily(ctx, d, nl80211.GenlName)
	if err != nil {
		// Ensure the socket is closed on error to avoid leaking file
		// descriptors.
		_ = d.close()
		return nil, err
	}

	cfg.Logger.Debug("resolved nl80211 family",
		slog.Int("id", int(family.ID)),
		slog.Int("version", int(family.Version)),
		slog.Int("groups", len(family.Groups)),
	)

	return &client{
		d:       d,
		family:  family,
		groups:  eventGroups(cfg.EventGroups),
		log:     cfg.Logger,
		metrics: m,
		tracer:  tracer,
		scans:   newScanner(cfg.Logger),
		dial:    dial,
	}, nil
}

// eventGroups returns the scan group followed by the other named groups,
// without duplicates.
func eventGroups(names []string) []string {
	groups := []string{nl80211.GroupScan}
	for _, n := range names {
		if !slices.Contains(groups, n) {
			groups = append(groups, n)
		}
	}

	return groups
}

// Close closes the event listener, if any, and the request transport.
// Requests and scans in progress fail with ErrCanceled.
func (c *client) Close() error {
	c.mu.Lock()
	c.closed = true
	l := c.l
	c.l = nil
	c.mu.Unlock()

	var errs []error
	if l != nil {
		errs = append(errs, l.close())
	}
	errs = append(errs, c.d.close())

	return errors.Join(errs...)
}

// events returns the running event listener, starting one if needed.
func (c *client) events() (*listener, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("%w: client is closed", ErrCanceled)
	}
	if c.l != nil {
		if c.l.stopErr() == nil {
			return c.l, nil
		}

		// The previous listener hit a socket error; replace it.
		_ = c.l.close()
		c.l = nil
	}

	ids := make([]uint32, 0, len(c.groups))
	for _, name := range c.groups {
		id, err := genl.FindGroup(c.family, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	t, err := c.dial()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := t.JoinGroup(id); err != nil {
			_ = t.Close()
			return nil, err
		}
	}

	c.log.Debug("starting nl80211 event listener", slog.Any("groups", c.groups))

	l := newListener(t, c.family.ID, c.log, c.metrics)
	l.start()
	c.l = l

	return l, nil
}

// Subscribe returns a channel of nl80211 events and a function which ends the
// subscription.
func (c *client) Subscribe() (<-chan Event, func(), error) {
	l, err := c.events()
	if err != nil {
		return nil, nil, err
	}

	events, cancel := l.subscribe()
	return events, cancel, nil
}

// Interfaces requests that nl80211 return a list of all WiFi interfaces present
// on this system.
func (c *client) Interfaces(ctx context.Context) ([]*Interface, error) {
	// Ask nl80211 to dump a list of all WiFi interfaces
	msgs, err := c.get(ctx, nl80211.CmdGetInterface, netlink.Dump, nil)
	if err != nil {
		return nil, err
	}

	return parseInterfaces(msgs), nil
}

// Connect starts connecting the interface to the specified ssid.
func (c *client) Connect(ctx context.Context, ifi *Interface, ssid string) error {
	_, err := c.get(ctx, nl80211.CmdConnect, netlink.Acknowledge, ifi,
		nlattr.Bytes(nl80211.AttrSSID, []byte(ssid)),
		nlattr.Uint32(nl80211.AttrAuthType, nl80211.AuthTypeOpenSystem),
	)
	return err
}

// Disconnect disconnects the interface.
func (c *client) Disconnect(ctx context.Context, ifi *Interface) error {
	_, err := c.get(ctx, nl80211.CmdDisconnect, netlink.Acknowledge, ifi)
	return err
}

// ConnectWPAPSK starts connecting the interface to the specified SSID using
// WPA2-PSK, with the 4-way handshake offloaded to the driver.
func (c *client) ConnectWPAPSK(ctx context.Context, ifi *Interface, ssid, psk string) error {
	support, err := c.checkExtFeature(ctx, ifi, nl80211.ExtFeature4WayHandshakeStaPSK)
	if err != nil {
		return err
	}
	if !support {
		return ErrNotSupported
	}

	_, err = c.get(ctx, nl80211.CmdConnect, netlink.Acknowledge, ifi,
		nlattr.Bytes(nl80211.AttrSSID, []byte(ssid)),
		nlattr.Uint32(nl80211.AttrWPAVersions, nl80211.WPAVersion2),
		nlattr.Uint32(nl80211.AttrCipherSuiteGroup, cipherSuiteCCMP),
		nlattr.Uint32(nl80211.AttrCipherSuitesPairwise, cipherSuiteCCMP),
		nlattr.Uint32(nl80211.AttrAKMSuites, akmSuitePSK),
		nlattr.Flag(nl80211.AttrWant1x4WayHS),
		nlattr.Bytes(nl80211.AttrPMK, wpaPassphrase([]byte(ssid), []byte(psk))),
		nlattr.Uint32(nl80211.AttrAuthType, nl80211.AuthTypeOpenSystem),
	)
	return err
}

// wpaPassphrase computes a WPA passphrase given an SSID and preshared key.
func wpaPassphrase(ssid, psk []byte) []byte {
	return pbkdf2.Key(psk, ssid, 4096, 32, sha1.New)
}

// checkExtFeature reports whether the PHY of ifi supports an extended feature.
func (c *client) checkExtFeature(ctx context.Context, ifi *Interface, feature uint) (bool, error) {
	msgs, err := c.get(ctx, nl80211.CmdGetWiphy, netlink.Dump, ifi,
		nlattr.Flag(nl80211.AttrSplitWiphyDump),
	)
	if err != nil {
		return false, err
	}

	var features []byte
	for _, m := range msgs {
		if a, ok := nlattr.Find(m.Attributes, nl80211.AttrExtFeatures); ok {
			features = a.Data
			break
		}
	}

	if feature/8 >= uint(len(features)) {
		return false, nil
	}

	return features[feature/8]&(1<<(feature%8)) != 0, nil
}

// BSS requests that nl80211 return the BSS the interface is authenticated to
// or associated with. It returns os.ErrNotExist if there is none.
func (c *client) BSS(ctx context.Context, ifi *Interface) (*ScanResult, error) {
	msgs, err := c.get(ctx, nl80211.CmdGetScan, netlink.Dump, ifi, ifi.macAttrs()...)
	if err != nil {
		return nil, err
	}

	return parseBSS(msgs)
}

// StationInfo requests that nl80211 return all station info for the specified
// Interface.
func (c *client) StationInfo(ctx context.Context, ifi *Interface) ([]*StationInfo, error) {
	msgs, err := c.get(ctx, nl80211.CmdGetStation, netlink.Dump, ifi, ifi.macAttrs()...)
	if err != nil {
		return nil, err
	}

	stations := make([]*StationInfo, len(msgs))
	for i := range msgs {
		if stations[i], err = parseStationInfo(msgs[i].Attributes); err != nil {
			return nil, err
		}
	}

	return stations, nil
}

// SurveyInfo requests that nl80211 return a list of survey information for the
// specified Interface.
func (c *client) SurveyInfo(ctx context.Context, ifi *Interface) ([]*SurveyInfo, error) {
	msgs, err := c.get(ctx, nl80211.CmdGetSurvey, netlink.Dump, ifi, ifi.macAttrs()...)
	if err != nil {
		return nil, err
	}

	surveys := make([]*SurveyInfo, len(msgs))
	for i := range msgs {
		if surveys[i], err = parseSurveyInfo(msgs[i].Attributes); err != nil {
			return nil, err
		}
	}

	return surveys, nil
}

// TriggerScan asks nl80211 to start a scan on ifi without waiting for it to
// finish. The interface is held in ScanTriggering for the duration of the
// request.
func (c *client) TriggerScan(ctx context.Context, ifi *Interface, opts *ScanOptions) error {
	r, err := c.scans.begin(ifi.Index)
	if err != nil {
		return err
	}
	defer c.scans.release(r)

	if opts == nil {
		opts = &ScanOptions{}
	}

	return c.triggerScan(ctx, ifi, opts)
}

func (c *client) triggerScan(ctx context.Context, ifi *Interface, opts *ScanOptions) error {
	_, err := c.get(ctx, nl80211.CmdTriggerScan, netlink.Acknowledge, ifi, opts.encode()...)
	return err
}

// AbortScan asks nl80211 to abort the scan running on ifi.
func (c *client) AbortScan(ctx context.Context, ifi *Interface) error {
	_, err := c.get(ctx, nl80211.CmdAbortScan, netlink.Acknowledge, ifi)
	return err
}

// ScanResults dumps the scan results cached by the kernel for ifi.
func (c *client) ScanResults(ctx context.Context, ifi *Interface) ([]*ScanResult, error) {
	return c.scanResults(ctx, ifi)
}

func (c *client) scanResults(ctx context.Context, ifi *Interface) ([]*ScanResult, error) {
	msgs, err := c.get(ctx, nl80211.CmdGetScan, netlink.Dump, ifi)
	if err != nil {
		return nil, err
	}

	return parseScanResults(msgs), nil
}

// StartScheduledScan starts a periodic scan on ifi. Non-empty SSIDs in opts
// are also used as match sets, so only matching results are reported.
func (c *client) StartScheduledScan(ctx context.Context, ifi *Interface, interval time.Duration, opts *ScanOptions) error {
	if interval < time.Millisecond {
		return fmt.Errorf("wifiscan: invalid scheduled scan interval %s", interval)
	}
	if opts == nil {
		opts = &ScanOptions{}
	}

	attrs := append(opts.encode(),
		nlattr.Uint32(nl80211.AttrSchedScanInterval, uint32(interval.Milliseconds())))

	var matches []nlattr.Attribute
	for _, ssid := range opts.SSIDs {
		if len(ssid) == 0 {
			continue
		}
		matches = append(matches, nlattr.Nest(uint16(len(matches)+1),
			nlattr.Bytes(nl80211.SchedScanMatchAttrSSID, ssid)))
	}
	if len(matches) > 0 {
		attrs = append(attrs, nlattr.Nest(nl80211.AttrSchedScanMatch, matches...))
	}

	_, err := c.get(ctx, nl80211.CmdStartSchedScan, netlink.Acknowledge, ifi, attrs...)
	return err
}

// StopScheduledScan stops the periodic scan on ifi.
func (c *client) StopScheduledScan(ctx context.Context, ifi *Interface) error {
	_, err := c.get(ctx, nl80211.CmdStopSchedScan, netlink.Acknowledge, ifi)
	return err
}

// Regulatory requests that nl80211 return the global regulatory domain.
func (c *client) Regulatory(ctx context.Context) (*Regulatory, error) {
	msgs, err := c.get(ctx, nl80211.CmdGetReg, netlink.Acknowledge, nil)
	if err != nil {
		return nil, err
	}

	return parseRegulatory(msgs)
}

// SetRegulatory asks the kernel to apply the regulatory domain of a country.
// The change is confirmed by EventRegulatoryChange.
func (c *client) SetRegulatory(ctx context.Context, alpha2 string) error {
	if !validAlpha2(alpha2) {
		return fmt.Errorf("wifiscan: invalid regulatory alpha2 %q", alpha2)
	}

	_, err := c.get(ctx, nl80211.CmdReqSetReg, netlink.Acknowledge, nil,
		nlattr.String(nl80211.AttrRegAlpha2, alpha2),
	)
	return err
}

// get performs a request/response interaction with nl80211 about ifi, which
// may be nil.
func (c *client) get(
	ctx context.Context,
	cmd uint8,
	flags netlink.HeaderFlags,
	ifi *Interface,
	params ...nlattr.Attribute,
) ([]genl.Message, error) {
	return c.execute(ctx, cmd, flags, append(ifi.encode(), params...))
}

// execute executes the specified command with additional header flags and
// attributes. The netlink.Request header flag is always set.
func (c *client) execute(
	ctx context.Context,
	cmd uint8,
	flags netlink.HeaderFlags,
	attrs []nlattr.Attribute,
) ([]genl.Message, error) {
	return c.d.Execute(ctx, genl.Request{
		Family: c.family.ID,
		Header: genetlink.Header{
			Command: cmd,
			Version: c.family.Version,
		},
		Attributes: attrs,
		Flags:      flags,
		Schema:     nl80211.Attrs,
	})
}

// encode returns the attributes which identify ifi. If ifi is nil, encode
// returns nil.
func (ifi *Interface) encode() []nlattr.Attribute {
	if ifi == nil {
		return nil
	}

	return []nlattr.Attribute{nlattr.Uint32(nl80211.AttrIfindex, uint32(ifi.Index))}
}

func (ifi *Interface) macAttrs() []nlattr.Attribute {
	if ifi == nil || ifi.HardwareAddr == nil {
		return nil
	}

	return []nlattr.Attribute{nlattr.Bytes(nl80211.AttrMac, ifi.HardwareAddr)}
}

// encode returns the TRIGGER_SCAN attributes for o.
func (o *ScanOptions) encode() []nlattr.Attribute {
	ssids := o.SSIDs
	if len(ssids) == 0 {
		// A single zero length SSID is the wildcard.
		ssids = [][]byte{{}}
	}

	nested := make([]nlattr.Attribute, 0, len(ssids))
	for i, s := range ssids {
		nested = append(nested, nlattr.Bytes(uint16(i+1), s))
	}
	attrs := []nlattr.Attribute{nlattr.Nest(nl80211.AttrScanSSIDs, nested...)}

	if len(o.Frequencies) > 0 {
		freqs := make([]nlattr.Attribute, 0, len(o.Frequencies))
		for i, f := range o.Frequencies {
			freqs = append(freqs, nlattr.Uint32(uint16(i+1), uint32(f)))
		}
		attrs = append(attrs, nlattr.Nest(nl80211.AttrScanFrequencies, freqs...))
	}

	if o.Flags != 0 {
		attrs = append(attrs, nlattr.Uint32(nl80211.AttrScanFlags, o.Flags))
	}

	return attrs
}

// parseInterfaces parses zero or more Interfaces from nl80211 interface
// messages.
func parseInterfaces(msgs []genl.Message) []*Interface {
	ifis := make([]*Interface, 0, len(msgs))
	for _, m := range msgs {
		var ifi Interface
		ifi.parseAttributes(m.Attributes)
		ifis = append(ifis, &ifi)
	}

	return ifis
}

// parseAttributes parses nl80211 attributes into an Interface's fields.
func (ifi *Interface) parseAttributes(attrs []nlattr.Attribute) {
	for _, a := range attrs {
		switch a.Type {
		case nl80211.AttrIfindex:
			ifi.Index = int(a.Int)
		case nl80211.AttrIfname:
			ifi.Name = a.Str
		case nl80211.AttrMac:
			ifi.HardwareAddr = net.HardwareAddr(a.Data)
		case nl80211.AttrWiphy:
			ifi.PHY = int(a.Int)
		case nl80211.AttrIftype:
			// NOTE: InterfaceType copies the ordering of nl80211's interface
			// type constants.
			ifi.Type = InterfaceType(a.Int)
		case nl80211.AttrWdev:
			ifi.Device = int(a.Int)
		case nl80211.AttrWiphyFreq:
			ifi.Frequency = int(a.Int)
		}
	}
}

// parseScanResults parses the BSS of each GET_SCAN reply, skipping replies
// without one.
func parseScanResults(msgs []genl.Message) []*ScanResult {
	results := make([]*ScanResult, 0, len(msgs))
	for _, m := range msgs {
		a, ok := nlattr.Find(m.Attributes, nl80211.AttrBSS)
		if !ok {
			continue
		}

		results = append(results, parseScanResult(a.Nested))
	}

	return results
}

// parseBSS returns the first BSS with a status attribute.
func parseBSS(msgs []genl.Message) (*ScanResult, error) {
	for _, m := range msgs {
		a, ok := nlattr.Find(m.Attributes, nl80211.AttrBSS)
		if !ok {
			continue
		}

		// The BSS which is associated with an interface will have a status
		// attribute.
		if !nlattr.Contains(a.Nested, nl80211.BSSStatus) {
			continue
		}

		return parseScanResult(a.Nested), nil
	}

	return nil, os.ErrNotExist
}

// parseScanResult parses the attributes nested in NL80211_ATTR_BSS.
// Malformed information elements are left out rather than failing the result.
func parseScanResult(attrs []nlattr.Attribute) *ScanResult {
	r := &ScanResult{Status: BSSStatusNone}
	for _, a := range attrs {
		switch a.Type {
		case nl80211.BSSBSSID:
			r.BSSID = net.HardwareAddr(a.Data)
		case nl80211.BSSFrequency:
			r.Frequency = int(a.Int)
		case nl80211.BSSSignalMBM:
			r.Signal = int(a.Int64()) / 100
		case nl80211.BSSSignalUnspec:
			r.SignalQuality = int(a.Int)
		case nl80211.BSSBeaconInterval:
			// Raw value is in Time Units of 1024us.
			r.BeaconInterval = time.Duration(a.Int) * 1024 * time.Microsecond
		case nl80211.BSSSeenMsAgo:
			r.LastSeen = time.Duration(a.Int) * time.Millisecond
		case nl80211.BSSStatus:
			// NOTE: BSSStatus copies the ordering of nl80211's BSS status
			// constants.
			r.Status = BSSStatus(a.Int)
		case nl80211.BSSInformationElems:
			ies, err := parseIEs(a.Data)
			if err != nil {
				continue
			}

			r.InformationElements = ies
			for _, ie := range ies {
				switch ie.ID {
				case ieSSID:
					r.SSID = string(ie.Data)
				case ieBSSLoad:
					if load, err := decodeBSSLoad(ie.Data); err == nil {
						r.Load = load
					}
				}
			}
		}
	}

	return r
}

// parseStationInfo parses StationInfo from the attributes of a GET_STATION
// reply.
func parseStationInfo(attrs []nlattr.Attribute) (*StationInfo, error) {
	var info StationInfo
	for _, a := range attrs {
		switch a.Type {
		case nl80211.AttrIfindex:
			info.InterfaceIndex = int(a.Int)
		case nl80211.AttrMac:
			info.HardwareAddr = net.HardwareAddr(a.Data)
		case nl80211.AttrStaInfo:
			info.parseAttributes(a.Nested)

			// Parsed the necessary data.
			return &info, nil
		}
	}

	// No station info found
	return nil, os.ErrNotExist
}

// parseAttributes parses nl80211 attributes into a StationInfo's fields.
func (info *StationInfo) parseAttributes(attrs []nlattr.Attribute) {
	for _, a := range attrs {
		switch a.Type {
		case nl80211.StaInfoConnectedTime:
			// Though nl80211 does not specify, this value appears to be in
			// seconds.
			info.Connected = time.Duration(a.Int) * time.Second
		case nl80211.StaInfoInactiveTime:
			info.Inactive = time.Duration(a.Int) * time.Millisecond
		case nl80211.StaInfoRxBytes64:
			info.ReceivedBytes = int(a.Int)
		case nl80211.StaInfoTxBytes64:
			info.TransmittedBytes = int(a.Int)
		case nl80211.StaInfoSignal:
			info.Signal = int(a.Int64())
		case nl80211.StaInfoSignalAvg:
			info.SignalAverage = int(a.Int64())
		case nl80211.StaInfoRxPackets:
			info.ReceivedPackets = int(a.Int)
		case nl80211.StaInfoTxPackets:
			info.TransmittedPackets = int(a.Int)
		case nl80211.StaInfoTxRetries:
			info.TransmitRetries = int(a.Int)
		case nl80211.StaInfoTxFailed:
			info.TransmitFailed = int(a.Int)
		case nl80211.StaInfoBeaconLoss:
			info.BeaconLoss = int(a.Int)
		case nl80211.StaInfoRxBitrate:
			info.ReceiveBitrate = parseRateInfo(a.Nested)
		case nl80211.StaInfoTxBitrate:
			info.TransmitBitrate = parseRateInfo(a.Nested)
		}

		// Only use 32-bit counters if the 64-bit counters are not present.
		// If the 64-bit counters appear later in the slice, they will overwrite
		// these values.
		if info.ReceivedBytes == 0 && a.Type == nl80211.StaInfoRxBytes {
			info.ReceivedBytes = int(a.Int)
		}
		if info.TransmittedBytes == 0 && a.Type == nl80211.StaInfoTxBytes {
			info.TransmittedBytes = int(a.Int)
		}
	}
}

// parseRateInfo returns the bitrate in bits/second from rate information
// attributes.
func parseRateInfo(attrs []nlattr.Attribute) int {
	var bitrate int
	for _, a := range attrs {
		switch a.Type {
		case nl80211.RateInfoBitrate32:
			bitrate = int(a.Int)
		case nl80211.RateInfoBitrate:
			// Only use the 16-bit rate if the 32-bit rate is not present.
			if bitrate == 0 {
				bitrate = int(a.Int)
			}
		}
	}

	// Scale from units of 100kbit/s.
	return bitrate * 100 * 1000
}

// parseSurveyInfo parses a single SurveyInfo from the attributes of a
// GET_SURVEY reply.
func parseSurveyInfo(attrs []nlattr.Attribute) (*SurveyInfo, error) {
	var info SurveyInfo
	for _, a := range attrs {
		switch a.Type {
		case nl80211.AttrIfindex:
			info.InterfaceIndex = int(a.Int)
		case nl80211.AttrSurveyInfo:
			info.parseAttributes(a.Nested)

			// Parsed the necessary data.
			return &info, nil
		}
	}

	// No survey info found
	return nil, os.ErrNotExist
}

// parseAttributes parses nl80211 attributes into a SurveyInfo's fields.
func (s *SurveyInfo) parseAttributes(attrs []nlattr.Attribute) {
	for _, a := range attrs {
		ms := time.Duration(a.Int) * time.Millisecond

		switch a.Type {
		case nl80211.SurveyInfoFrequency:
			s.Frequency = int(a.Int)
		case nl80211.SurveyInfoNoise:
			s.Noise = int(a.Int64())
		case nl80211.SurveyInfoInUse:
			s.InUse = true
		case nl80211.SurveyInfoTime:
			s.ChannelTime = ms
		case nl80211.SurveyInfoTimeBusy:
			s.ChannelTimeBusy = ms
		case nl80211.SurveyInfoTimeExtBusy:
			s.ChannelTimeExtBusy = ms
		case nl80211.SurveyInfoTimeBSSRx:
			s.ChannelTimeBssRx = ms
		case nl80211.SurveyInfoTimeRx:
			s.ChannelTimeRx = ms
		case nl80211.SurveyInfoTimeTx:
			s.ChannelTimeTx = ms
		case nl80211.SurveyInfoTimeScan:
			s.ChannelTimeScan = ms
		}
	}
}
