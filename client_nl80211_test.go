package wifiscan

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/wifiscan/internal/genl"
	"github.com/mdlayher/wifiscan/internal/nl80211"
	"github.com/mdlayher/wifiscan/internal/nlattr"
)

func TestClientInterfacesOK(t *testing.T) {
	want := []*Interface{
		{
			Index:        1,
			Name:         "wlan0",
			HardwareAddr: net.HardwareAddr{0xe, 0xad, 0xbe, 0xef, 0xde, 0xad},
			PHY:          0,
			Device:       1,
			Type:         InterfaceTypeStation,
			Frequency:    2412,
		},
		{
			HardwareAddr: net.HardwareAddr{0xe, 0xad, 0xbe, 0xef, 0xde, 0xae},
			PHY:          1,
			Device:       2,
			Type:         InterfaceTypeP2PDevice,
		},
	}

	c, _ := testClient(t, func(greq genl.Message, nreq netlink.Message) []netlink.Message {
		if want, got := uint8(nl80211.CmdGetInterface), greq.Header.Command; want != got {
			t.Errorf("unexpected command:\n- want: %d\n-  got: %d", want, got)
		}
		if nreq.Header.Flags&netlink.Dump == 0 {
			t.Error("interfaces request is not a dump")
		}

		return dumpReplies(
			reply(t, nl80211.CmdNewInterface, 0, interfaceAttrs(want[0])...),
			reply(t, nl80211.CmdNewInterface, 0, interfaceAttrs(want[1])...),
		)
	})

	ifis, err := c.Interfaces(context.Background())
	if err != nil {
		t.Fatalf("failed to get interfaces: %v", err)
	}

	if diff := cmp.Diff(want, ifis); diff != "" {
		t.Fatalf("unexpected interfaces (-want +got):\n%s", diff)
	}
}

func TestClientBSSNotExist(t *testing.T) {
	tests := []struct {
		name string
		msgs func(t *testing.T) []netlink.Message
	}{
		{
			name: "no BSS",
			msgs: func(t *testing.T) []netlink.Message {
				return dumpReplies(reply(t, nl80211.CmdNewScanResults, 0,
					nlattr.Uint32(nl80211.AttrIfindex, 1)))
			},
		},
		{
			name: "no status",
			msgs: func(t *testing.T) []netlink.Message {
				return dumpReplies(reply(t, nl80211.CmdNewScanResults, 0,
					nlattr.Nest(nl80211.AttrBSS,
						nlattr.Bytes(nl80211.BSSBSSID, []byte{0xde, 0xad, 0xbe, 0xef, 0xde, 0xad}),
					)))
			},
		},
		{
			name: "empty dump",
			msgs: func(t *testing.T) []netlink.Message {
				return dumpReplies()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testClient(t, func(_ genl.Message, _ netlink.Message) []netlink.Message {
				return tt.msgs(t)
			})

			_, err := c.BSS(context.Background(), &Interface{Index: 1})
			if !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("expected is not exist, got: %v", err)
			}
		})
	}
}

func TestClientBSSOK(t *testing.T) {
	ifi := &Interface{
		Index:        1,
		HardwareAddr: net.HardwareAddr{0xe, 0xad, 0xbe, 0xef, 0xde, 0xad},
	}

	ies := []byte{
		ieSSID, 4, 'h', 'o', 'm', 'e',
		ieBSSLoad, 5, 3, 0, 28, 0x10, 0x00,
	}

	want := &ScanResult{
		BSSID:          net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
		SSID:           "home",
		Frequency:      2412,
		Signal:         -50,
		BeaconInterval: 100 * 1024 * time.Microsecond,
		LastSeen:       500 * time.Millisecond,
		Status:         BSSStatusAssociated,
		Load: BSSLoad{
			Version:                    2,
			StationCount:               3,
			ChannelUtilization:         28,
			AvailableAdmissionCapacity: 16,
		},
		InformationElements: []InformationElement{
			{ID: ieSSID, Data: []byte("home")},
			{ID: ieBSSLoad, Data: []byte{3, 0, 28, 0x10, 0x00}},
		},
	}

	c, _ := testClient(t, func(greq genl.Message, _ netlink.Message) []netlink.Message {
		if want, got := uint8(nl80211.CmdGetScan), greq.Header.Command; want != got {
			t.Errorf("unexpected command:\n- want: %d\n-  got: %d", want, got)
		}
		if want, got := uint64(ifi.Index), findAttr(t, greq.Attributes, nl80211.AttrIfindex).Int; want != got {
			t.Errorf("unexpected interface index:\n- want: %d\n-  got: %d", want, got)
		}
		if diff := cmp.Diff([]byte(ifi.HardwareAddr), findAttr(t, greq.Attributes, nl80211.AttrMac).Data); diff != "" {
			t.Errorf("unexpected hardware address (-want +got):\n%s", diff)
		}

		return dumpReplies(
			// Not associated with this one.
			reply(t, nl80211.CmdNewScanResults, 0, nlattr.Nest(nl80211.AttrBSS,
				nlattr.Bytes(nl80211.BSSBSSID, []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}),
				nlattr.Uint32(nl80211.BSSFrequency, 5180),
			)),
			reply(t, nl80211.CmdNewScanResults, 0, nlattr.Nest(nl80211.AttrBSS,
				nlattr.Bytes(nl80211.BSSBSSID, want.BSSID),
				nlattr.Uint32(nl80211.BSSFrequency, 2412),
				nlattr.Int32(nl80211.BSSSignalMBM, -5000),
				nlattr.Uint16(nl80211.BSSBeaconInterval, 100),
				nlattr.Uint32(nl80211.BSSSeenMsAgo, 500),
				nlattr.Uint32(nl80211.BSSStatus, uint32(BSSStatusAssociated)),
				nlattr.Bytes(nl80211.BSSInformationElems, ies),
			)),
		)
	})

	bss, err := c.BSS(context.Background(), ifi)
	if err != nil {
		t.Fatalf("failed to get BSS: %v", err)
	}

	if diff := cmp.Diff(want, bss); diff != "" {
		t.Fatalf("unexpected BSS (-want +got):\n%s", diff)
	}
}

func TestClientScanResultsMalformedIEs(t *testing.T) {
	c, _ := testClient(t, func(_ genl.Message, _ netlink.Message) []netlink.Message {
		return dumpReplies(reply(t, nl80211.CmdNewScanResults, 0, nlattr.Nest(nl80211.AttrBSS,
			nlattr.Bytes(nl80211.BSSBSSID, []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}),
			nlattr.Uint8(nl80211.BSSSignalUnspec, 70),
			// Claims 9 bytes but carries 2.
			nlattr.Bytes(nl80211.BSSInformationElems, []byte{ieSSID, 9, 'h', 'o'}),
		)))
	})

	results, err := c.ScanResults(context.Background(), &Interface{Index: 1})
	if err != nil {
		t.Fatalf("failed to get scan results: %v", err)
	}

	want := []*ScanResult{{
		BSSID:         net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
		SignalQuality: 70,
		Status:        BSSStatusNone,
	}}

	if diff := cmp.Diff(want, results); diff != "" {
		t.Fatalf("unexpected scan results (-want +got):\n%s", diff)
	}
}

func TestClientStationInfoNotExist(t *testing.T) {
	c, _ := testClient(t, func(_ genl.Message, _ netlink.Message) []netlink.Message {
		return dumpReplies(reply(t, nl80211.CmdNewStation, 0,
			nlattr.Uint32(nl80211.AttrIfindex, 1)))
	})

	_, err := c.StationInfo(context.Background(), &Interface{Index: 1})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected is not exist, got: %v", err)
	}
}

func TestClientStationInfoNoStations(t *testing.T) {
	c, _ := testClient(t, func(_ genl.Message, _ netlink.Message) []netlink.Message {
		return dumpReplies()
	})

	stations, err := c.StationInfo(context.Background(), &Interface{Index: 1})
	if err != nil {
		t.Fatalf("failed to get station info: %v", err)
	}
	if len(stations) != 0 {
		t.Fatalf("expected no stations, got: %d", len(stations))
	}
}

func TestClientStationInfoOK(t *testing.T) {
	want := []*StationInfo{
		{
			InterfaceIndex:     1,
			HardwareAddr:       net.HardwareAddr{0xb8, 0x27, 0xeb, 0xd5, 0xf3, 0xef},
			Connected:          30 * time.Minute,
			Inactive:           4 * time.Millisecond,
			ReceivedBytes:      1000,
			TransmittedBytes:   2000,
			ReceivedPackets:    10,
			TransmittedPackets: 20,
			ReceiveBitrate:     130000000,
			TransmitBitrate:    130000000,
			Signal:             -50,
			SignalAverage:      -53,
			TransmitRetries:    5,
			TransmitFailed:     2,
			BeaconLoss:         3,
		},
		{
			InterfaceIndex:     1,
			HardwareAddr:       net.HardwareAddr{0x40, 0xa5, 0xef, 0xd9, 0x96, 0x6f},
			Connected:          60 * time.Minute,
			Inactive:           8 * time.Millisecond,
			ReceivedBytes:      2000,
			TransmittedBytes:   4000,
			ReceivedPackets:    20,
			TransmittedPackets: 40,
			ReceiveBitrate:     260000000,
			TransmitBitrate:    260000000,
			Signal:             -25,
			SignalAverage:      -27,
			TransmitRetries:    10,
			TransmitFailed:     4,
			BeaconLoss:         6,
		},
	}

	ifi := &Interface{
		Index:        1,
		HardwareAddr: net.HardwareAddr{0xe, 0xad, 0xbe, 0xef, 0xde, 0xad},
	}

	c, _ := testClient(t, func(greq genl.Message, _ netlink.Message) []netlink.Message {
		if want, got := uint8(nl80211.CmdGetStation), greq.Header.Command; want != got {
			t.Errorf("unexpected command:\n- want: %d\n-  got: %d", want, got)
		}

		msgs := make([]netlink.Message, 0, len(want))
		for i, s := range want {
			// The first station reports 64-bit counters and 32-bit
			// bitrates, the second the older encodings.
			msgs = append(msgs, reply(t, nl80211.CmdNewStation, 0, stationAttrs(s, i == 0)...))
		}

		return dumpReplies(msgs...)
	})

	stations, err := c.StationInfo(context.Background(), ifi)
	if err != nil {
		t.Fatalf("failed to get station info: %v", err)
	}

	if diff := cmp.Diff(want, stations); diff != "" {
		t.Fatalf("unexpected stations (-want +got):\n%s", diff)
	}
}

func TestClientSurveyInfoOK(t *testing.T) {
	want := []*SurveyInfo{
		{
			InterfaceIndex:  1,
			Frequency:       2412,
			Noise:           -95,
			InUse:           true,
			ChannelTime:     100 * time.Millisecond,
			ChannelTimeBusy: 50 * time.Millisecond,
			ChannelTimeRx:   20 * time.Millisecond,
			ChannelTimeTx:   10 * time.Millisecond,
		},
		{
			InterfaceIndex:  1,
			Frequency:       5180,
			Noise:           -91,
			ChannelTimeScan: 40 * time.Millisecond,
		},
	}

	c, _ := testClient(t, func(greq genl.Message, _ netlink.Message) []netlink.Message {
		if want, got := uint8(nl80211.CmdGetSurvey), greq.Header.Command; want != got {
			t.Errorf("unexpected command:\n- want: %d\n-  got: %d", want, got)
		}

		return dumpReplies(
			reply(t, nl80211.CmdNewSurveyResults, 0,
				nlattr.Uint32(nl80211.AttrIfindex, 1),
				nlattr.Nest(nl80211.AttrSurveyInfo,
					nlattr.Uint32(nl80211.SurveyInfoFrequency, 2412),
					nlattr.Int8(nl80211.SurveyInfoNoise, -95),
					nlattr.Flag(nl80211.SurveyInfoInUse),
					nlattr.Uint64(nl80211.SurveyInfoTime, 100),
					nlattr.Uint64(nl80211.SurveyInfoTimeBusy, 50),
					nlattr.Uint64(nl80211.SurveyInfoTimeRx, 20),
					nlattr.Uint64(nl80211.SurveyInfoTimeTx, 10),
				),
			),
			reply(t, nl80211.CmdNewSurveyResults, 0,
				nlattr.Uint32(nl80211.AttrIfindex, 1),
				nlattr.Nest(nl80211.AttrSurveyInfo,
					nlattr.Uint32(nl80211.SurveyInfoFrequency, 5180),
					nlattr.Int8(nl80211.SurveyInfoNoise, -91),
					nlattr.Uint64(nl80211.SurveyInfoTimeScan, 40),
				),
			),
		)
	})

	surveys, err := c.SurveyInfo(context.Background(), &Interface{Index: 1})
	if err != nil {
		t.Fatalf("failed to get survey info: %v", err)
	}

	if diff := cmp.Diff(want, surveys); diff != "" {
		t.Fatalf("unexpected surveys (-want +got):\n%s", diff)
	}
}

func TestClientRegulatoryOK(t *testing.T) {
	c, _ := testClient(t, func(greq genl.Message, nreq netlink.Message) []netlink.Message {
		if want, got := uint8(nl80211.CmdGetReg), greq.Header.Command; want != got {
			t.Errorf("unexpected command:\n- want: %d\n-  got: %d", want, got)
		}

		return []netlink.Message{
			reply(t, nl80211.CmdGetReg, 0,
				nlattr.String(nl80211.AttrRegAlpha2, "DE"),
				nlattr.Uint8(nl80211.AttrDFSRegion, 2),
				nlattr.Nest(nl80211.AttrRegRules,
					nlattr.Nest(1,
						nlattr.Uint32(nl80211.RegRuleFlags, 0),
						nlattr.Uint32(nl80211.RegRuleFreqStart, 2400000),
						nlattr.Uint32(nl80211.RegRuleFreqEnd, 2483500),
						nlattr.Uint32(nl80211.RegRuleMaxBandwidth, 40000),
						nlattr.Uint32(nl80211.RegRuleMaxAntGain, 0),
						nlattr.Uint32(nl80211.RegRuleMaxEIRP, 2000),
					),
					nlattr.Nest(2,
						nlattr.Uint32(nl80211.RegRuleFlags, uint32(RuleDFS|RuleNoOutdoor|RuleAutoBandwidth)),
						nlattr.Uint32(nl80211.RegRuleFreqStart, 5250000),
						nlattr.Uint32(nl80211.RegRuleFreqEnd, 5350000),
						nlattr.Uint32(nl80211.RegRuleMaxBandwidth, 80000),
						nlattr.Uint32(nl80211.RegRuleMaxEIRP, 2000),
						nlattr.Uint32(nl80211.RegRuleDFSCACTime, 60000),
					),
				),
			),
			ackReply(nreq),
		}
	})

	reg, err := c.Regulatory(context.Background())
	if err != nil {
		t.Fatalf("failed to get regulatory domain: %v", err)
	}

	want := &Regulatory{
		Country:   "DE",
		DFSRegion: DFSETSI,
		Rules: []RegulatoryRule{
			{
				StartFrequency: 2400000,
				EndFrequency:   2483500,
				MaxBandwidth:   40000,
				MaxEIRP:        2000,
			},
			{
				StartFrequency: 5250000,
				EndFrequency:   5350000,
				MaxBandwidth:   80000,
				MaxEIRP:        2000,
				CACTime:        time.Minute,
				Flags:          RuleDFS | RuleNoOutdoor | RuleAutoBandwidth,
			},
		},
	}
	if diff := cmp.Diff(want, reg); diff != "" {
		t.Fatalf("unexpected regulatory domain (-want +got):\n%s", diff)
	}
}

func TestClientRegulatoryNotExist(t *testing.T) {
	c, _ := testClient(t, func(_ genl.Message, nreq netlink.Message) []netlink.Message {
		return []netlink.Message{ackReply(nreq)}
	})

	_, err := c.Regulatory(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected is not exist, got: %v", err)
	}
}

func TestClientSetRegulatory(t *testing.T) {
	tests := []struct {
		name   string
		alpha2 string
		ok     bool
	}{
		{name: "country", alpha2: "US", ok: true},
		{name: "world", alpha2: "00", ok: true},
		{name: "lower case", alpha2: "us"},
		{name: "too long", alpha2: "USA"},
		{name: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testClient(t, func(greq genl.Message, nreq netlink.Message) []netlink.Message {
				if want, got := uint8(nl80211.CmdReqSetReg), greq.Header.Command; want != got {
					t.Errorf("unexpected command:\n- want: %d\n-  got: %d", want, got)
				}
				if nreq.Header.Flags&netlink.Acknowledge == 0 {
					t.Error("set regulatory request does not ask for an acknowledgement")
				}

				return []netlink.Message{ackReply(nreq)}
			})

			err := c.SetRegulatory(context.Background(), tt.alpha2)
			reqs := requestTransport(c).requests(t)
			if !tt.ok {
				if err == nil {
					t.Fatal("expected an error, but none occurred")
				}
				if len(reqs) != 0 {
					t.Fatalf("expected no requests, got %d", len(reqs))
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to set regulatory domain: %v", err)
			}

			if want, got := tt.alpha2, findAttr(t, reqs[0].Attributes, nl80211.AttrRegAlpha2).Str; want != got {
				t.Fatalf("unexpected alpha2:\n- want: %q\n-  got: %q", want, got)
			}
		})
	}
}

func TestClientConnect(t *testing.T) {
	c, _ := testClient(t, func(greq genl.Message, nreq netlink.Message) []netlink.Message {
		if want, got := uint8(nl80211.CmdConnect), greq.Header.Command; want != got {
			t.Errorf("unexpected command:\n- want: %d\n-  got: %d", want, got)
		}
		if nreq.Header.Flags&netlink.Acknowledge == 0 {
			t.Error("connect request does not ask for an acknowledgement")
		}

		if diff := cmp.Diff([]byte("home"), findAttr(t, greq.Attributes, nl80211.AttrSSID).Data); diff != "" {
			t.Errorf("unexpected SSID (-want +got):\n%s", diff)
		}
		if want, got := uint64(nl80211.AuthTypeOpenSystem), findAttr(t, greq.Attributes, nl80211.AttrAuthType).Int; want != got {
			t.Errorf("unexpected auth type:\n- want: %d\n-  got: %d", want, got)
		}

		return []netlink.Message{ackReply(nreq)}
	})

	if err := c.Connect(context.Background(), &Interface{Index: 1}, "home"); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
}

func TestClientConnectWPAPSK(t *testing.T) {
	tests := []struct {
		name     string
		features []byte
		ok       bool
	}{
		{
			name:     "supported",
			features: []byte{0x00, 0x80},
			ok:       true,
		},
		{
			name:     "feature clear",
			features: []byte{0xff, 0x7f},
		},
		{
			name:     "short feature set",
			features: []byte{0xff},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testClient(t, func(greq genl.Message, nreq netlink.Message) []netlink.Message {
				switch greq.Header.Command {
				case nl80211.CmdGetWiphy:
					if !nlattr.Contains(greq.Attributes, nl80211.AttrSplitWiphyDump) {
						t.Error("wiphy request is not split")
					}

					return dumpReplies(
						reply(t, nl80211.CmdNewWiphy, 0, nlattr.Uint32(nl80211.AttrWiphy, 0)),
						reply(t, nl80211.CmdNewWiphy, 0, nlattr.Bytes(nl80211.AttrExtFeatures, tt.features)),
					)
				case nl80211.CmdConnect:
					pmk := findAttr(t, greq.Attributes, nl80211.AttrPMK).Data
					if !bytes.Equal(wpaPassphrase([]byte("home"), []byte("password")), pmk) {
						t.Errorf("unexpected PMK: %x", pmk)
					}
					if !nlattr.Contains(greq.Attributes, nl80211.AttrWant1x4WayHS) {
						t.Error("connect request does not offload the handshake")
					}

					return []netlink.Message{ackReply(nreq)}
				default:
					t.Errorf("unexpected command: %d", greq.Header.Command)
					return nil
				}
			})

			err := c.ConnectWPAPSK(context.Background(), &Interface{Index: 1}, "home", "password")
			if tt.ok && err != nil {
				t.Fatalf("failed to connect: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrNotSupported) {
				t.Fatalf("expected not supported, got: %v", err)
			}

			n := 1
			if tt.ok {
				n = 2
			}
			if want, got := n, len(requestTransport(c).requests(t)); want != got {
				t.Fatalf("unexpected number of requests:\n- want: %d\n-  got: %d", want, got)
			}
		})
	}
}

func Test_wpaPassphrase(t *testing.T) {
	// IEEE 802.11i-2004, H.4.
	want, _ := hex.DecodeString("f42c6fc52df0ebef9ebb4b90b38a5f902e83fe1b135a70e23aed762e9710a12e")

	if diff := cmp.Diff(want, wpaPassphrase([]byte("IEEE"), []byte("password"))); diff != "" {
		t.Fatalf("unexpected PMK (-want +got):\n%s", diff)
	}
}

func TestClientScheduledScan(t *testing.T) {
	c, _ := testClient(t, func(greq genl.Message, nreq netlink.Message) []netlink.Message {
		switch greq.Header.Command {
		case nl80211.CmdStartSchedScan:
			if want, got := uint64(30000), findAttr(t, greq.Attributes, nl80211.AttrSchedScanInterval).Int; want != got {
				t.Errorf("unexpected interval:\n- want: %d\n-  got: %d", want, got)
			}

			var ssids [][]byte
			for _, a := range findAttr(t, greq.Attributes, nl80211.AttrScanSSIDs).Nested {
				ssids = append(ssids, a.Data)
			}
			if diff := cmp.Diff([][]byte{[]byte("home"), {}}, ssids, cmp.Comparer(bytes.Equal)); diff != "" {
				t.Errorf("unexpected SSIDs (-want +got):\n%s", diff)
			}

			// The wildcard SSID is not a match set.
			matches := findAttr(t, greq.Attributes, nl80211.AttrSchedScanMatch).Nested
			if want, got := 1, len(matches); want != got {
				t.Fatalf("unexpected number of match sets:\n- want: %d\n-  got: %d", want, got)
			}
			if diff := cmp.Diff([]byte("home"), findAttr(t, matches[0].Nested, nl80211.SchedScanMatchAttrSSID).Data); diff != "" {
				t.Errorf("unexpected match SSID (-want +got):\n%s", diff)
			}
		case nl80211.CmdStopSchedScan:
		default:
			t.Errorf("unexpected command: %d", greq.Header.Command)
		}

		return []netlink.Message{ackReply(nreq)}
	})

	ifi := &Interface{Index: 1}
	opts := &ScanOptions{SSIDs: [][]byte{[]byte("home"), {}}}

	if err := c.StartScheduledScan(context.Background(), ifi, 30*time.Second, opts); err != nil {
		t.Fatalf("failed to start scheduled scan: %v", err)
	}
	if err := c.StopScheduledScan(context.Background(), ifi); err != nil {
		t.Fatalf("failed to stop scheduled scan: %v", err)
	}

	if err := c.StartScheduledScan(context.Background(), ifi, 0, nil); err == nil {
		t.Fatal("expected an error for a zero interval")
	}
	if want, got := 2, len(requestTransport(c).requests(t)); want != got {
		t.Fatalf("unexpected number of requests:\n- want: %d\n-  got: %d", want, got)
	}
}

func findAttr(t *testing.T, attrs []nlattr.Attribute, typ uint16) nlattr.Attribute {
	t.Helper()

	a, ok := nlattr.Find(attrs, typ)
	if !ok {
		t.Fatalf("missing attribute %d", typ)
	}

	return a
}

func interfaceAttrs(ifi *Interface) []nlattr.Attribute {
	attrs := []nlattr.Attribute{
		nlattr.Uint32(nl80211.AttrWiphy, uint32(ifi.PHY)),
		nlattr.Uint32(nl80211.AttrIftype, uint32(ifi.Type)),
		nlattr.Uint64(nl80211.AttrWdev, uint64(ifi.Device)),
		nlattr.Bytes(nl80211.AttrMac, ifi.HardwareAddr),
	}

	// P2P devices have no netdev.
	if ifi.Index != 0 {
		attrs = append(attrs,
			nlattr.Uint32(nl80211.AttrIfindex, uint32(ifi.Index)),
			nlattr.String(nl80211.AttrIfname, ifi.Name),
		)
	}
	if ifi.Frequency != 0 {
		attrs = append(attrs, nlattr.Uint32(nl80211.AttrWiphyFreq, uint32(ifi.Frequency)))
	}

	return attrs
}

func stationAttrs(s *StationInfo, modern bool) []nlattr.Attribute {
	info := []nlattr.Attribute{
		nlattr.Uint32(nl80211.StaInfoConnectedTime, uint32(s.Connected.Seconds())),
		nlattr.Uint32(nl80211.StaInfoInactiveTime, uint32(s.Inactive.Milliseconds())),
		nlattr.Uint32(nl80211.StaInfoRxPackets, uint32(s.ReceivedPackets)),
		nlattr.Uint32(nl80211.StaInfoTxPackets, uint32(s.TransmittedPackets)),
		nlattr.Int8(nl80211.StaInfoSignal, int8(s.Signal)),
		nlattr.Int8(nl80211.StaInfoSignalAvg, int8(s.SignalAverage)),
		nlattr.Uint32(nl80211.StaInfoTxRetries, uint32(s.TransmitRetries)),
		nlattr.Uint32(nl80211.StaInfoTxFailed, uint32(s.TransmitFailed)),
		nlattr.Uint32(nl80211.StaInfoBeaconLoss, uint32(s.BeaconLoss)),
	}

	// Bitrates are carried in units of 100kbit/s.
	rx, tx := s.ReceiveBitrate/100000, s.TransmitBitrate/100000
	if modern {
		info = append(info,
			nlattr.Uint64(nl80211.StaInfoRxBytes64, uint64(s.ReceivedBytes)),
			nlattr.Uint64(nl80211.StaInfoTxBytes64, uint64(s.TransmittedBytes)),
			nlattr.Nest(nl80211.StaInfoRxBitrate, nlattr.Uint32(nl80211.RateInfoBitrate32, uint32(rx))),
			nlattr.Nest(nl80211.StaInfoTxBitrate, nlattr.Uint32(nl80211.RateInfoBitrate32, uint32(tx))),
		)
	} else {
		info = append(info,
			nlattr.Uint32(nl80211.StaInfoRxBytes, uint32(s.ReceivedBytes)),
			nlattr.Uint32(nl80211.StaInfoTxBytes, uint32(s.TransmittedBytes)),
			nlattr.Nest(nl80211.StaInfoRxBitrate, nlattr.Uint16(nl80211.RateInfoBitrate, uint16(rx))),
			nlattr.Nest(nl80211.StaInfoTxBitrate, nlattr.Uint16(nl80211.RateInfoBitrate, uint16(tx))),
		)
	}

	return []nlattr.Attribute{
		nlattr.Uint32(nl80211.AttrIfindex, uint32(s.InterfaceIndex)),
		nlattr.Bytes(nl80211.AttrMac, s.HardwareAddr),
		nlattr.Nest(nl80211.AttrStaInfo, info...),
	}
}
