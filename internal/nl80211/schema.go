package nl80211

import "github.com/mdlayher/wifiscan/internal/nlattr"

var (
	// BSS describes the attributes nested in AttrBSS.
	BSS = &nlattr.Schema{
		Name: "nl80211_bss",
		Attrs: map[uint16]nlattr.Shape{
			BSSBSSID:            nlattr.AsBytes("BSSID"),
			BSSFrequency:        nlattr.AsUint32("FREQUENCY"),
			BSSTSF:              nlattr.AsUint64("TSF"),
			BSSBeaconInterval:   nlattr.AsUint16("BEACON_INTERVAL"),
			BSSCapability:       nlattr.AsUint16("CAPABILITY"),
			BSSInformationElems: nlattr.AsBytes("INFORMATION_ELEMENTS"),
			BSSSignalMBM:        nlattr.AsInt32("SIGNAL_MBM"),
			BSSSignalUnspec:     nlattr.AsUint8("SIGNAL_UNSPEC"),
			BSSStatus:           nlattr.AsUint32("STATUS"),
			BSSSeenMsAgo:        nlattr.AsUint32("SEEN_MS_AGO"),
			BSSBeaconIEs:        nlattr.AsBytes("BEACON_IES"),
			BSSChanWidth:        nlattr.AsUint32("CHAN_WIDTH"),
			BSSLastSeenBoottime: nlattr.AsUint64("LAST_SEEN_BOOTTIME"),
		},
	}

	// RateInfo describes the attributes nested in the station bitrates.
	RateInfo = &nlattr.Schema{
		Name: "nl80211_rate_info",
		Attrs: map[uint16]nlattr.Shape{
			RateInfoBitrate:   nlattr.AsUint16("BITRATE"),
			RateInfoBitrate32: nlattr.AsUint32("BITRATE32"),
		},
	}

	// StationInfo describes the attributes nested in AttrStaInfo.
	StationInfo = &nlattr.Schema{
		Name: "nl80211_sta_info",
		Attrs: map[uint16]nlattr.Shape{
			StaInfoInactiveTime:  nlattr.AsUint32("INACTIVE_TIME"),
			StaInfoRxBytes:       nlattr.AsUint32("RX_BYTES"),
			StaInfoTxBytes:       nlattr.AsUint32("TX_BYTES"),
			StaInfoSignal:        nlattr.AsInt8("SIGNAL"),
			StaInfoTxBitrate:     nlattr.AsNested("TX_BITRATE", RateInfo),
			StaInfoRxPackets:     nlattr.AsUint32("RX_PACKETS"),
			StaInfoTxPackets:     nlattr.AsUint32("TX_PACKETS"),
			StaInfoTxRetries:     nlattr.AsUint32("TX_RETRIES"),
			StaInfoTxFailed:      nlattr.AsUint32("TX_FAILED"),
			StaInfoSignalAvg:     nlattr.AsInt8("SIGNAL_AVG"),
			StaInfoRxBitrate:     nlattr.AsNested("RX_BITRATE", RateInfo),
			StaInfoConnectedTime: nlattr.AsUint32("CONNECTED_TIME"),
			StaInfoBeaconLoss:    nlattr.AsUint32("BEACON_LOSS"),
			StaInfoRxBytes64:     nlattr.AsUint64("RX_BYTES64"),
			StaInfoTxBytes64:     nlattr.AsUint64("TX_BYTES64"),
		},
	}

	// SurveyInfo describes the attributes nested in AttrSurveyInfo.
	SurveyInfo = &nlattr.Schema{
		Name: "nl80211_survey_info",
		Attrs: map[uint16]nlattr.Shape{
			SurveyInfoFrequency:   nlattr.AsUint32("FREQUENCY"),
			SurveyInfoNoise:       nlattr.AsInt8("NOISE"),
			SurveyInfoInUse:       nlattr.AsFlag("IN_USE"),
			SurveyInfoTime:        nlattr.AsUint64("TIME"),
			SurveyInfoTimeBusy:    nlattr.AsUint64("TIME_BUSY"),
			SurveyInfoTimeExtBusy: nlattr.AsUint64("TIME_EXT_BUSY"),
			SurveyInfoTimeRx:      nlattr.AsUint64("TIME_RX"),
			SurveyInfoTimeTx:      nlattr.AsUint64("TIME_TX"),
			SurveyInfoTimeScan:    nlattr.AsUint64("TIME_SCAN"),
			SurveyInfoTimeBSSRx:   nlattr.AsUint64("TIME_BSS_RX"),
		},
	}

	// RegRule describes one rule in AttrRegRules.
	RegRule = &nlattr.Schema{
		Name: "nl80211_reg_rule",
		Attrs: map[uint16]nlattr.Shape{
			RegRuleFlags:        nlattr.AsUint32("REG_RULE_FLAGS"),
			RegRuleFreqStart:    nlattr.AsUint32("FREQ_RANGE_START"),
			RegRuleFreqEnd:      nlattr.AsUint32("FREQ_RANGE_END"),
			RegRuleMaxBandwidth: nlattr.AsUint32("FREQ_RANGE_MAX_BW"),
			RegRuleMaxAntGain:   nlattr.AsUint32("POWER_RULE_MAX_ANT_GAIN"),
			RegRuleMaxEIRP:      nlattr.AsUint32("POWER_RULE_MAX_EIRP"),
			RegRuleDFSCACTime:   nlattr.AsUint32("DFS_CAC_TIME"),
		},
	}

	ruleElem = nlattr.AsNested("RULE", RegRule)

	ssidElem = nlattr.AsBytes("SSID")
	freqElem = nlattr.AsUint32("FREQUENCY")

	// ScanSSIDs describes the indexed array in AttrScanSSIDs.
	ScanSSIDs = &nlattr.Schema{Name: "nl80211_scan_ssids", Elem: &ssidElem}

	// ScanFrequencies describes the indexed array in AttrScanFrequencies.
	ScanFrequencies = &nlattr.Schema{Name: "nl80211_scan_freqs", Elem: &freqElem}

	// SchedScanMatch describes one match set in AttrSchedScanMatch.
	SchedScanMatch = &nlattr.Schema{
		Name: "nl80211_sched_scan_match",
		Attrs: map[uint16]nlattr.Shape{
			SchedScanMatchAttrSSID: nlattr.AsBytes("SSID"),
		},
	}

	matchElem = nlattr.AsNested("MATCH", SchedScanMatch)

	// Attrs describes the top-level attributes of nl80211 messages.
	Attrs = &nlattr.Schema{
		Name: "nl80211_attrs",
		Attrs: map[uint16]nlattr.Shape{
			AttrWiphy:                nlattr.AsUint32("WIPHY"),
			AttrWiphyName:            nlattr.AsString("WIPHY_NAME"),
			AttrIfindex:              nlattr.AsUint32("IFINDEX"),
			AttrIfname:               nlattr.AsString("IFNAME"),
			AttrIftype:               nlattr.AsUint32("IFTYPE"),
			AttrMac:                  nlattr.AsBytes("MAC"),
			AttrStaInfo:              nlattr.AsNested("STA_INFO", StationInfo),
			AttrRegAlpha2:            nlattr.AsString("REG_ALPHA2"),
			AttrRegRules:             nlattr.AsNested("REG_RULES", &nlattr.Schema{Name: "nl80211_reg_rules", Elem: &ruleElem}),
			AttrWiphyFreq:            nlattr.AsUint32("WIPHY_FREQ"),
			AttrIE:                   nlattr.AsBytes("IE"),
			AttrMaxNumScanSSIDs:      nlattr.AsUint8("MAX_NUM_SCAN_SSIDS"),
			AttrScanFrequencies:      nlattr.AsNested("SCAN_FREQUENCIES", ScanFrequencies),
			AttrScanSSIDs:            nlattr.AsNested("SCAN_SSIDS", ScanSSIDs),
			AttrGeneration:           nlattr.AsUint32("GENERATION"),
			AttrBSS:                  nlattr.AsNested("BSS", BSS),
			AttrRegInitiator:         nlattr.AsUint8("REG_INITIATOR"),
			AttrRegType:              nlattr.AsUint8("REG_TYPE"),
			AttrSSID:                 nlattr.AsBytes("SSID"),
			AttrAuthType:             nlattr.AsUint32("AUTH_TYPE"),
			AttrReasonCode:           nlattr.AsUint16("REASON_CODE"),
			AttrTimedOut:             nlattr.AsFlag("TIMED_OUT"),
			AttrCipherSuitesPairwise: nlattr.AsUint32("CIPHER_SUITES_PAIRWISE"),
			AttrCipherSuiteGroup:     nlattr.AsUint32("CIPHER_SUITE_GROUP"),
			AttrWPAVersions:          nlattr.AsUint32("WPA_VERSIONS"),
			AttrAKMSuites:            nlattr.AsUint32("AKM_SUITES"),
			AttrSurveyInfo:           nlattr.AsNested("SURVEY_INFO", SurveyInfo),
			AttrCookie:               nlattr.AsUint64("COOKIE"),
			AttrSchedScanInterval:    nlattr.AsUint32("SCHED_SCAN_INTERVAL"),
			AttrScanSuppRates:        nlattr.AsBytes("SCAN_SUPP_RATES"),
			AttrDFSRegion:            nlattr.AsUint8("DFS_REGION"),
			AttrSchedScanMatch:       nlattr.AsNested("SCHED_SCAN_MATCH", &nlattr.Schema{Name: "nl80211_sched_scan_matches", Elem: &matchElem}),
			AttrWdev:                 nlattr.AsUint64("WDEV"),
			AttrScanFlags:            nlattr.AsUint32("SCAN_FLAGS"),
			AttrSplitWiphyDump:       nlattr.AsFlag("SPLIT_WIPHY_DUMP"),
			AttrExtFeatures:          nlattr.AsBytes("EXT_FEATURES"),
			AttrScanStartTimeTSF:     nlattr.AsUint64("SCAN_START_TIME_TSF"),
			AttrPMK:                  nlattr.AsBytes("PMK"),
			AttrWant1x4WayHS:         nlattr.AsFlag("WANT_1X_4WAY_HS"),
		},
	}
)
