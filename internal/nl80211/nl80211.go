// Package nl80211 describes the commands, attributes and multicast groups of
// the nl80211 generic netlink family.
//
// Values mirror include/uapi/linux/nl80211.h. They are kept here, rather than
// taken from golang.org/x/sys/unix, so that the tables are available on every
// platform; a Linux test checks them against the unix package.
package nl80211

import "fmt"

// GenlName is the name of the nl80211 generic netlink family.
const GenlName = "nl80211"

// Commands.
const (
	CmdGetWiphy         = 0x1
	CmdNewWiphy         = 0x3
	CmdGetInterface     = 0x5
	CmdNewInterface     = 0x7
	CmdDelInterface     = 0x8
	CmdGetStation       = 0x11
	CmdNewStation       = 0x13
	CmdReqSetReg        = 0x1b
	CmdGetReg           = 0x1f
	CmdGetScan          = 0x20
	CmdTriggerScan      = 0x21
	CmdNewScanResults   = 0x22
	CmdScanAborted      = 0x23
	CmdRegChange        = 0x24
	CmdAuthenticate     = 0x25
	CmdAssociate        = 0x26
	CmdDeauthenticate   = 0x27
	CmdDisassociate     = 0x28
	CmdConnect          = 0x2e
	CmdRoam             = 0x2f
	CmdDisconnect       = 0x30
	CmdGetSurvey        = 0x32
	CmdNewSurveyResults = 0x33
	CmdStartSchedScan   = 0x4b
	CmdStopSchedScan    = 0x4c
	CmdSchedScanResults = 0x4d
	CmdSchedScanStopped = 0x4e
	CmdAbortScan        = 0x72
)

// Top-level attributes.
const (
	AttrWiphy                = 0x1
	AttrWiphyName            = 0x2
	AttrIfindex              = 0x3
	AttrIfname               = 0x4
	AttrIftype               = 0x5
	AttrMac                  = 0x6
	AttrStaInfo              = 0x15
	AttrRegAlpha2            = 0x21
	AttrRegRules             = 0x22
	AttrWiphyFreq            = 0x26
	AttrIE                   = 0x2a
	AttrMaxNumScanSSIDs      = 0x2b
	AttrScanFrequencies      = 0x2c
	AttrScanSSIDs            = 0x2d
	AttrGeneration           = 0x2e
	AttrBSS                  = 0x2f
	AttrRegInitiator         = 0x30
	AttrRegType              = 0x31
	AttrSSID                 = 0x34
	AttrAuthType             = 0x35
	AttrReasonCode           = 0x36
	AttrTimedOut             = 0x41
	AttrCipherSuitesPairwise = 0x49
	AttrCipherSuiteGroup     = 0x4a
	AttrWPAVersions          = 0x4b
	AttrAKMSuites            = 0x4c
	AttrSurveyInfo           = 0x54
	AttrCookie               = 0x58
	AttrSchedScanInterval    = 0x77
	AttrScanSuppRates        = 0x7d
	AttrSchedScanMatch       = 0x84
	AttrDFSRegion            = 0x92
	AttrWdev                 = 0x99
	AttrScanFlags            = 0x9e
	AttrSplitWiphyDump       = 0xae
	AttrExtFeatures          = 0xd9
	AttrScanStartTimeTSF     = 0xe9
	AttrPMK                  = 0xfe
	AttrWant1x4WayHS         = 0x101
)

// AttrScanGeneration shares its value with AttrGeneration.
const AttrScanGeneration = AttrGeneration

// BSS attributes, nested in AttrBSS.
const (
	BSSBSSID            = 0x1
	BSSFrequency        = 0x2
	BSSTSF              = 0x3
	BSSBeaconInterval   = 0x4
	BSSCapability       = 0x5
	BSSInformationElems = 0x6
	BSSSignalMBM        = 0x7
	BSSSignalUnspec     = 0x8
	BSSStatus           = 0x9
	BSSSeenMsAgo        = 0xa
	BSSBeaconIEs        = 0xb
	BSSChanWidth        = 0xc
	BSSLastSeenBoottime = 0xf
)

// BSS status values.
const (
	BSSStatusAuthenticated = 0x0
	BSSStatusAssociated    = 0x1
	BSSStatusIBSSJoined    = 0x2
)

// Station information attributes, nested in AttrStaInfo.
const (
	StaInfoInactiveTime  = 0x1
	StaInfoRxBytes       = 0x2
	StaInfoTxBytes       = 0x3
	StaInfoSignal        = 0x7
	StaInfoTxBitrate     = 0x8
	StaInfoRxPackets     = 0x9
	StaInfoTxPackets     = 0xa
	StaInfoTxRetries     = 0xb
	StaInfoTxFailed      = 0xc
	StaInfoSignalAvg     = 0xd
	StaInfoRxBitrate     = 0xe
	StaInfoConnectedTime = 0x10
	StaInfoBeaconLoss    = 0x12
	StaInfoRxBytes64     = 0x17
	StaInfoTxBytes64     = 0x18
)

// Rate information attributes, nested in StaInfoRxBitrate and
// StaInfoTxBitrate.
const (
	RateInfoBitrate   = 0x1
	RateInfoBitrate32 = 0x5
)

// Survey information attributes, nested in AttrSurveyInfo.
const (
	SurveyInfoFrequency   = 0x1
	SurveyInfoNoise       = 0x2
	SurveyInfoInUse       = 0x3
	SurveyInfoTime        = 0x4
	SurveyInfoTimeBusy    = 0x5
	SurveyInfoTimeExtBusy = 0x6
	SurveyInfoTimeRx      = 0x7
	SurveyInfoTimeTx      = 0x8
	SurveyInfoTimeScan    = 0x9
	SurveyInfoTimeBSSRx   = 0xb
)

// Regulatory rule attributes, nested in each element of AttrRegRules.
const (
	RegRuleFlags        = 0x1
	RegRuleFreqStart    = 0x2
	RegRuleFreqEnd      = 0x3
	RegRuleMaxBandwidth = 0x4
	RegRuleMaxAntGain   = 0x5
	RegRuleMaxEIRP      = 0x6
	RegRuleDFSCACTime   = 0x7
)

// Scheduled scan match attributes, nested in AttrSchedScanMatch.
const SchedScanMatchAttrSSID = 0x1

// Scan flags carried in AttrScanFlags.
const (
	ScanFlagLowPriority = 0x1
	ScanFlagFlush       = 0x2
	ScanFlagAP          = 0x4
	ScanFlagRandomAddr  = 0x8
)

// Connection parameters.
const (
	AuthTypeOpenSystem            = 0x0
	WPAVersion2                   = 0x2
	ExtFeature4WayHandshakeStaPSK = 0xf
)

var commandNames = map[uint8]string{
	CmdGetWiphy:         "GET_WIPHY",
	CmdNewWiphy:         "NEW_WIPHY",
	CmdGetInterface:     "GET_INTERFACE",
	CmdNewInterface:     "NEW_INTERFACE",
	CmdDelInterface:     "DEL_INTERFACE",
	CmdGetStation:       "GET_STATION",
	CmdNewStation:       "NEW_STATION",
	CmdReqSetReg:        "REQ_SET_REG",
	CmdGetReg:           "GET_REG",
	CmdGetScan:          "GET_SCAN",
	CmdTriggerScan:      "TRIGGER_SCAN",
	CmdNewScanResults:   "NEW_SCAN_RESULTS",
	CmdScanAborted:      "SCAN_ABORTED",
	CmdRegChange:        "REG_CHANGE",
	CmdAuthenticate:     "AUTHENTICATE",
	CmdAssociate:        "ASSOCIATE",
	CmdDeauthenticate:   "DEAUTHENTICATE",
	CmdDisassociate:     "DISASSOCIATE",
	CmdConnect:          "CONNECT",
	CmdRoam:             "ROAM",
	CmdDisconnect:       "DISCONNECT",
	CmdGetSurvey:        "GET_SURVEY",
	CmdNewSurveyResults: "NEW_SURVEY_RESULTS",
	CmdStartSchedScan:   "START_SCHED_SCAN",
	CmdStopSchedScan:    "STOP_SCHED_SCAN",
	CmdSchedScanResults: "SCHED_SCAN_RESULTS",
	CmdSchedScanStopped: "SCHED_SCAN_STOPPED",
	CmdAbortScan:        "ABORT_SCAN",
}

// CommandName returns the name of an nl80211 command for diagnostics.
func CommandName(cmd uint8) string {
	if s, ok := commandNames[cmd]; ok {
		return s
	}

	return fmt.Sprintf("cmd(%d)", cmd)
}
