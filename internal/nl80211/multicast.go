package nl80211

// Multicast group names from the nl80211_mcgrps table in net/wireless/nl80211.c.
// The kernel advertises their ids through the generic netlink controller.
const (
	GroupConfig     = "config"
	GroupScan       = "scan"
	GroupRegulatory = "regulatory"
	GroupMlme       = "mlme"
	GroupVendor     = "vendor"
	GroupNan        = "nan"
	GroupTestmode   = "testmode"
)

// Groups lists every nl80211 multicast group in the kernel's order.
var Groups = []string{
	GroupConfig,
	GroupScan,
	GroupRegulatory,
	GroupMlme,
	GroupVendor,
	GroupNan,
	GroupTestmode,
}
