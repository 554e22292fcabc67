package campaign

import (
	"math/big"

	"github.com/tonkeeper/tongo/ton"

	"tonaffiliate/core/wire"
)

const (
	// MaxAffiliates caps the affiliate table of one campaign.
	MaxAffiliates = 10_000
	// TopAffiliatesLimit is the size of the earnings ranking.
	TopAffiliatesLimit = 10
	// SecondsPerDay converts CampaignValidForNumDays into a deadline.
	SecondsPerDay = 86_400
)

var (
	// MinTonsForStorage stays on a native campaign and is never promised to
	// affiliates.
	MinTonsForStorage = big.NewInt(10_000_000)
	// JettonTransferValue is the native value attached to every jetton
	// transfer the campaign starts.
	JettonTransferValue = big.NewInt(50_000_000)
	// JettonForwardValue is forwarded with the transfer so the recipient
	// gets a notification.
	JettonForwardValue = big.NewInt(10_000_000)
)

// AffiliateState is the lifecycle of an affiliate slot.
type AffiliateState uint8

const (
	AffiliatePendingApproval AffiliateState = 0
	AffiliateActive          AffiliateState = 1
	AffiliateRemoved         AffiliateState = 2
)

func (s AffiliateState) String() string {
	switch s {
	case AffiliatePendingApproval:
		return "PENDING_APPROVAL"
	case AffiliateActive:
		return "ACTIVE"
	case AffiliateRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// ActionCounter tracks one op code for one affiliate.
type ActionCounter struct {
	Count               uint64
	LastActionTimestamp uint64
}

// AffiliateRecord is the per-affiliate ledger. Records are never deleted,
// only marked removed.
type AffiliateRecord struct {
	Affiliate               ton.AccountID
	State                   AffiliateState
	RegularUsers            map[uint32]ActionCounter
	PremiumUsers            map[uint32]ActionCounter
	PendingApprovalEarnings *big.Int
	TotalEarnings           *big.Int
	WithdrawnEarnings       *big.Int
}

func newAffiliateRecord(addr ton.AccountID, state AffiliateState) *AffiliateRecord {
	return &AffiliateRecord{
		Affiliate:               addr,
		State:                   state,
		RegularUsers:            make(map[uint32]ActionCounter),
		PremiumUsers:            make(map[uint32]ActionCounter),
		PendingApprovalEarnings: new(big.Int),
		TotalEarnings:           new(big.Int),
		WithdrawnEarnings:       new(big.Int),
	}
}

// Clone returns a deep copy of the record.
func (r *AffiliateRecord) Clone() *AffiliateRecord {
	if r == nil {
		return nil
	}
	out := newAffiliateRecord(r.Affiliate, r.State)
	for k, v := range r.RegularUsers {
		out.RegularUsers[k] = v
	}
	for k, v := range r.PremiumUsers {
		out.PremiumUsers[k] = v
	}
	out.PendingApprovalEarnings.Set(r.PendingApprovalEarnings)
	out.TotalEarnings.Set(r.TotalEarnings)
	out.WithdrawnEarnings.Set(r.WithdrawnEarnings)
	return out
}

// Unwithdrawn returns total minus withdrawn earnings.
func (r *AffiliateRecord) Unwithdrawn() *big.Int {
	return new(big.Int).Sub(r.TotalEarnings, r.WithdrawnEarnings)
}

// Payable returns what a withdrawal would pay right now. Earnings still
// awaiting approval are held back when approval is required.
func (r *AffiliateRecord) Payable(requiresApproval bool) *big.Int {
	out := r.Unwithdrawn()
	if requiresApproval {
		out.Sub(out, r.PendingApprovalEarnings)
	}
	return out
}

// State is the stored campaign lifecycle. StoppedByAdmin and Expired are
// never stored; Effective derives them.
type State uint8

const (
	StateCreated                State = 0
	StateDetailsSetByAdvertiser State = 1
	StateActive                 State = 2
	StateStoppedByAdmin         State = 3
	StateExpired                State = 4
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CAMPAIGN_CREATED"
	case StateDetailsSetByAdvertiser:
		return "DETAILS_SET_BY_ADVERTISER"
	case StateActive:
		return "ACTIVE"
	case StateStoppedByAdmin:
		return "STOPPED_BY_ADMIN"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Counters are monotone per action class.
type Counters struct {
	AdvertiserWithdrawals uint32
	SignOffs              uint32
	Replenishments        uint32
	AffiliateWithdrawals  uint32
	UserActions           uint32
	Bounces               uint32
}

// Data is a read-only snapshot of a campaign, returned by the campaignData
// getter.
type Data struct {
	Parent                  ton.AccountID
	CampaignID              uint32
	Advertiser              ton.AccountID
	Payout                  ton.AccountID
	Bot                     ton.AccountID
	Deployed                bool
	State                   State
	Paused                  bool
	Expired                 bool
	Active                  bool
	Details                 *wire.CampaignDetails
	StartTimestamp          uint64
	LastActionTimestamp     uint64
	NumAffiliates           uint32
	Counters                Counters
	TotalAffiliateEarnings  *big.Int
	TotalWithdrawnEarnings  *big.Int
	MaxCpaValue             *big.Int
	PlatformFeesOwed        *big.Int
	AdvertiserFeePercentage uint32
	AffiliateFeePercentage  uint32
	TopAffiliates           map[uint32]*big.Int
	USDT                    *wire.USDTConfig
	ContractUSDTBalance     *big.Int
}
