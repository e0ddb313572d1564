package wifiscan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"
)

var (
	// errInvalidIE is returned when one or more IEs are malformed.
	errInvalidIE = errors.New("invalid 802.11 information element")

	// errInvalidBSSLoad is returned when a BSS Load IE has the wrong length.
	errInvalidBSSLoad = errors.New("802.11 information element BSS Load has wrong length")
)

// An InterfaceType is the operating mode of an Interface.
type InterfaceType int

// Possible InterfaceType values, in nl80211_iftype order.
const (
	InterfaceTypeUnspecified InterfaceType = iota
	InterfaceTypeAdHoc
	InterfaceTypeStation
	InterfaceTypeAP
	InterfaceTypeAPVLAN
	InterfaceTypeWDS
	InterfaceTypeMonitor
	InterfaceTypeMeshPoint
	InterfaceTypeP2PClient
	InterfaceTypeP2PGroupOwner
	InterfaceTypeP2PDevice
	InterfaceTypeOCB
	InterfaceTypeNAN
)

// String returns the string representation of an InterfaceType.
func (t InterfaceType) String() string {
	switch t {
	case InterfaceTypeUnspecified:
		return "unspecified"
	case InterfaceTypeAdHoc:
		return "ad-hoc"
	case InterfaceTypeStation:
		return "station"
	case InterfaceTypeAP:
		return "access point"
	case InterfaceTypeAPVLAN:
		return "access point/VLAN"
	case InterfaceTypeWDS:
		return "wireless distribution"
	case InterfaceTypeMonitor:
		return "monitor"
	case InterfaceTypeMeshPoint:
		return "mesh point"
	case InterfaceTypeP2PClient:
		return "P2P client"
	case InterfaceTypeP2PGroupOwner:
		return "P2P group owner"
	case InterfaceTypeP2PDevice:
		return "P2P device"
	case InterfaceTypeOCB:
		return "outside context of BSS"
	case InterfaceTypeNAN:
		return "near-me area network"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// An Interface is a WiFi network interface.
type Interface struct {
	// Index and Name identify the network interface.
	Index int
	Name  string

	HardwareAddr net.HardwareAddr

	// PHY is the physical device the interface belongs to, and Device the
	// wireless device (wdev) identifier within it.
	PHY    int
	Device int

	Type InterfaceType

	// Frequency is the operating frequency in MHz, if any.
	Frequency int
}

// StationInfo contains statistics about a WiFi interface operating in
// station mode.
type StationInfo struct {
	InterfaceIndex int
	HardwareAddr   net.HardwareAddr

	Connected time.Duration
	Inactive  time.Duration

	ReceivedBytes      int
	TransmittedBytes   int
	ReceivedPackets    int
	TransmittedPackets int

	// Bitrates are in bits/second.
	ReceiveBitrate  int
	TransmitBitrate int

	// Signal strengths are in dBm.
	Signal        int
	SignalAverage int

	TransmitRetries int
	TransmitFailed  int
	BeaconLoss      int
}

// BSSLoad is the BSS Load information element: measurements of the load on
// a BSS advertised by its access point.
type BSSLoad struct {
	// Version is 1 for the 4 byte Cisco QBSS form, 2 for the 802.11 form.
	Version int

	StationCount uint16

	// ChannelUtilization is the share of time, scaled to 0-255, the access
	// point sensed the primary channel busy.
	ChannelUtilization uint8

	// AvailableAdmissionCapacity is the remaining medium time available via
	// explicit admission control, in units of 32us/s.
	AvailableAdmissionCapacity uint16
}

// String returns the string representation of a BSSLoad.
func (l BSSLoad) String() string {
	switch l.Version {
	case 1, 2:
		return fmt.Sprintf("BSS Load v%d: %d stations, utilization %d/255, admission capacity %d",
			l.Version, l.StationCount, l.ChannelUtilization, l.AvailableAdmissionCapacity)
	default:
		return fmt.Sprintf("invalid BSS Load version: %d", l.Version)
	}
}

// A ScanResult describes one 802.11 basic service set seen by a scan.
type ScanResult struct {
	// BSSID is the hardware address of the access point in infrastructure
	// mode.
	BSSID net.HardwareAddr

	// SSID holds the raw bytes of the network name, which need not be UTF-8.
	SSID string

	// Frequency is the BSS's operating frequency in MHz.
	Frequency int

	// Signal is the received signal strength in dBm. If the driver only
	// reports an unspecified unit, Signal is zero and SignalQuality holds a
	// value from 0 to 100.
	Signal        int
	SignalQuality int

	BeaconInterval time.Duration

	// LastSeen is the time since the BSS was last seen by a scan.
	LastSeen time.Duration

	// Status is BSSStatusNone unless the interface is authenticated to or
	// associated with the BSS.
	Status BSSStatus

	Load BSSLoad

	// InformationElements are the IEs from the most recent beacon or probe
	// response.
	InformationElements []InformationElement
}

// A BSSStatus indicates the current status of client within a BSS.
type BSSStatus int

// Possible BSSStatus values.
const (
	BSSStatusNone BSSStatus = iota - 1
	BSSStatusAuthenticated
	BSSStatusAssociated
	BSSStatusIBSSJoined
)

// String returns the string representation of a BSSStatus.
func (s BSSStatus) String() string {
	switch s {
	case BSSStatusNone:
		return "none"
	case BSSStatusAuthenticated:
		return "authenticated"
	case BSSStatusAssociated:
		return "associated"
	case BSSStatusIBSSJoined:
		return "IBSS joined"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// SurveyInfo contains channel survey statistics for one frequency.
type SurveyInfo struct {
	InterfaceIndex int

	Frequency int

	// Noise is the noise level in dBm.
	Noise int

	// Channel times: total, and while busy, busy with external traffic,
	// receiving from the BSS, receiving, transmitting and scanning.
	ChannelTime        time.Duration
	ChannelTimeBusy    time.Duration
	ChannelTimeExtBusy time.Duration
	ChannelTimeBssRx   time.Duration
	ChannelTimeRx      time.Duration
	ChannelTimeTx      time.Duration
	ChannelTimeScan    time.Duration

	InUse bool
}

// FrequencyToChannel returns the channel number given the frequency in MHz, as
// defined by IEEE802.11-2007, 17.3.8.3.2 and Annex J.
func FrequencyToChannel(freq int) int {
	switch {
	case freq == 2484:
		return 14
	case freq < 2484:
		return (freq - 2407) / 5
	case freq >= 4910 && freq <= 4980:
		return (freq - 4000) / 5
	case freq <= 45000:
		return (freq - 5000) / 5
	case freq >= 58320 && freq <= 64800:
		return (freq - 56160) / 2160
	default:
		return 0
	}
}

// WiFi frequency bands, using nl80211_band values.
const (
	Band2GHz  = 0
	Band5GHz  = 1
	Band60GHz = 2
)

// ChannelToFrequency returns the frequency given the channel number and the
// band, as there are overlapping channel numbers between bands.
func ChannelToFrequency(channel int, band int) int {
	if channel <= 0 {
		return 0
	}

	switch band {
	case Band2GHz:
		switch {
		case channel == 14:
			return 2484
		case channel < 14:
			return 2407 + channel*5
		}
	case Band5GHz:
		if channel >= 182 && channel <= 196 {
			return 4000 + channel*5
		}
		return 5000 + channel*5
	case Band60GHz:
		if channel < 5 {
			return 56160 + channel*2160
		}
	}

	return 0
}

// 802.11 information element ids.
const (
	ieSSID    = 0
	ieBSSLoad = 11
)

// An InformationElement is an 802.11 information element.
type InformationElement struct {
	ID uint8

	// Data aliases the buffer the element was parsed from; the length
	// field is implied.
	Data []byte
}

// parseIEs parses zero or more information elements from b.
func parseIEs(b []byte) ([]InformationElement, error) {
	var ies []InformationElement
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, errInvalidIE
		}

		id, l := b[0], int(b[1])
		b = b[2:]
		if len(b) < l {
			return nil, errInvalidIE
		}

		ies = append(ies, InformationElement{ID: id, Data: b[:l]})
		b = b[l:]
	}

	return ies, nil
}

// decodeBSSLoad decodes the payload of a BSS Load information element.
func decodeBSSLoad(b []byte) (BSSLoad, error) {
	switch len(b) {
	case 4:
		// Cisco QBSS version 1, with a one byte admission capacity.
		return BSSLoad{
			Version:                    1,
			StationCount:               binary.LittleEndian.Uint16(b[0:2]),
			ChannelUtilization:         b[2],
			AvailableAdmissionCapacity: uint16(b[3]),
		}, nil
	case 5:
		return BSSLoad{
			Version:                    2,
			StationCount:               binary.LittleEndian.Uint16(b[0:2]),
			ChannelUtilization:         b[2],
			AvailableAdmissionCapacity: binary.LittleEndian.Uint16(b[3:5]),
		}, nil
	default:
		return BSSLoad{}, errInvalidBSSLoad
	}
}
