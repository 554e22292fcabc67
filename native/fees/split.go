package fees

import (
	"fmt"
	"math/big"

	coreerrors "tonaffiliate/core/errors"
)

// MaxPercentage is the denominator of every fee percentage; 10000 is 100%.
const MaxPercentage uint32 = 10_000

var maxPercentageBig = big.NewInt(int64(MaxPercentage))

// Split is the result of dividing a gross payment between the affiliate and
// the platform.
type Split struct {
	Net           *big.Int
	AdvertiserFee *big.Int
	AffiliateFee  *big.Int
}

// Fee returns the combined platform fee.
func (s Split) Fee() *big.Int {
	return new(big.Int).Add(s.AdvertiserFee, s.AffiliateFee)
}

// ValidatePercentages rejects fee rates that could together exceed the gross
// amount.
func ValidatePercentages(advertiserPct, affiliatePct uint32) error {
	if advertiserPct > MaxPercentage || affiliatePct > MaxPercentage {
		return fmt.Errorf("fees: percentage above %d: %w", MaxPercentage, coreerrors.ErrPercentageOutOfRange)
	}
	if uint64(advertiserPct)+uint64(affiliatePct) > uint64(MaxPercentage) {
		return fmt.Errorf("fees: combined percentage %d above %d: %w", advertiserPct+affiliatePct, MaxPercentage, coreerrors.ErrPercentageOutOfRange)
	}
	return nil
}

// SplitPayment floors both fees and assigns the remainder to Net, so
// Net+AdvertiserFee+AffiliateFee always equals gross.
func SplitPayment(gross *big.Int, advertiserPct, affiliatePct uint32) (Split, error) {
	if err := ValidatePercentages(advertiserPct, affiliatePct); err != nil {
		return Split{}, err
	}
	if gross == nil {
		gross = big.NewInt(0)
	}
	if gross.Sign() < 0 {
		return Split{}, fmt.Errorf("fees: negative gross %s: %w", gross, coreerrors.ErrPercentageOutOfRange)
	}
	advertiserFee := portion(gross, advertiserPct)
	affiliateFee := portion(gross, affiliatePct)
	net := new(big.Int).Sub(gross, advertiserFee)
	net.Sub(net, affiliateFee)
	return Split{Net: net, AdvertiserFee: advertiserFee, AffiliateFee: affiliateFee}, nil
}

func portion(gross *big.Int, pct uint32) *big.Int {
	if pct == 0 || gross.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(gross, big.NewInt(int64(pct)))
	return out.Quo(out, maxPercentageBig)
}

// Totals aggregates collected platform fees per currency.
type Totals struct {
	Native *big.Int
	USDT   *big.Int
}

// Clone returns a copy of the totals structure with duplicated big.Int values.
func (t Totals) Clone() Totals {
	clone := Totals{Native: big.NewInt(0), USDT: big.NewInt(0)}
	if t.Native != nil {
		clone.Native.Set(t.Native)
	}
	if t.USDT != nil {
		clone.USDT.Set(t.USDT)
	}
	return clone
}

// Add returns the totals with amount added to the native or USDT bucket.
func (t Totals) Add(usdt bool, amount *big.Int) Totals {
	out := t.Clone()
	if amount == nil || amount.Sign() <= 0 {
		return out
	}
	if usdt {
		out.USDT.Add(out.USDT, amount)
	} else {
		out.Native.Add(out.Native, amount)
	}
	return out
}
