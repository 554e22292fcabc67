package errors

import (
	stderrors "errors"
	"fmt"
)

// ExitError is a failure surfaced by an actor handler. The code is the only
// thing observable on-chain, so every value below is part of the public ABI
// and must never be renumbered.
type ExitError struct {
	Code int32
	Name string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d: %s", e.Code, e.Name)
}

func newExit(code int32, name string) *ExitError {
	return &ExitError{Code: code, Name: name}
}

// ExitCodeUnknown is reported for failures that do not carry an ExitError.
const ExitCodeUnknown int32 = 0xffff

// Protocol errors.
var (
	ErrCellUnderflow       = newExit(9, "Cell underflow")
	ErrInsufficientBalance = newExit(37, "Not enough balance for outbound message")
	ErrInvalidPrefix       = newExit(129, "Invalid serialization prefix")
	ErrInvalidMessage      = newExit(130, "Invalid incoming message")
	ErrInvalidAddress      = newExit(136, "Invalid address")
)

// Jetton wallet errors, numbered as in the reference TEP-74 wallet.
var (
	ErrJettonUnauthorized        = newExit(705, "Jetton transfer not authorized")
	ErrJettonBalanceInsufficient = newExit(706, "Jetton balance insufficient")
)

// Authorization errors.
var (
	ErrAccessDenied                      = newExit(132, "Access denied")
	ErrOnlyBotCanInvoke                  = newExit(1001, "Only bot can invoke")
	ErrOnlyAdvertiserCanInvoke           = newExit(1002, "Only advertiser can invoke")
	ErrOnlyAffiliateCanInvoke            = newExit(1003, "Only affiliate can invoke")
	ErrOnlyParentCanInvoke               = newExit(1004, "Only parent can invoke")
	ErrOnlyContractWalletAllowedToInvoke = newExit(1005, "Only contract wallet allowed to invoke")
	ErrOnlyOwnerCanInvoke                = newExit(1006, "Only owner can invoke")
)

// State and argument errors.
var (
	ErrMustBeInStateCampaignCreated            = newExit(2001, "Must be in state campaign created")
	ErrMustBeInStateDetailsSet                 = newExit(2002, "Must be in state details set")
	ErrCampaignNotActive                       = newExit(2003, "Campaign not active")
	ErrAffiliateNotActive                      = newExit(2004, "Affiliate not active")
	ErrAffiliateNotFound                       = newExit(2005, "Affiliate not found")
	ErrAffiliateNotPendingApproval             = newExit(2006, "Affiliate not pending approval")
	ErrAffiliateAlreadyRemoved                 = newExit(2007, "Affiliate already removed")
	ErrAffiliateHasPendingEarnings             = newExit(2008, "Affiliate has earnings pending approval")
	ErrCannotAddAffiliatesToPublicCampaign     = newExit(2009, "Cannot add affiliates to public campaign")
	ErrMaxAffiliatesReached                    = newExit(2010, "Max affiliates reached")
	ErrOpCodeNotFound                          = newExit(2011, "Op code not found")
	ErrBotCanVerifyOnlyOpCodesUnder20000       = newExit(2012, "Bot can verify only op codes under 20000")
	ErrAdvertiserCanVerifyOnlyOpCodesOver20000 = newExit(2013, "Advertiser can verify only op codes over 20000")
	ErrAmountExceedsPending                    = newExit(2014, "Amount exceeds pending approval earnings")
	ErrAdvertiserApprovalNotRequired           = newExit(2015, "Advertiser approval not required")
	ErrCampaignAlreadyDeployed                 = newExit(2016, "Campaign already deployed")
	ErrCampaignNotDeployed                     = newExit(2017, "Campaign not deployed")
	ErrInvalidCampaignDetails                  = newExit(2018, "Invalid campaign details")
	ErrUSDTNotConfigured                       = newExit(2019, "USDT not configured")
	ErrPaymentMethodMismatch                   = newExit(2020, "Payment method mismatch")
	ErrNoEarningsToWithdraw                    = newExit(2021, "No earnings to withdraw")
	ErrPercentageOutOfRange                    = newExit(2022, "Percentage out of range")
	ErrInvalidAmount                           = newExit(2023, "Invalid amount")
)

// Solvency errors.
var (
	ErrInsufficientCampaignFunds              = newExit(3001, "Insufficient campaign funds")
	ErrInsufficientContractFundsToMakePayment = newExit(3002, "Insufficient contract funds to make payment")
	ErrInsufficientFundsToDeploy              = newExit(3003, "Insufficient funds to deploy")
)

var all = []*ExitError{
	ErrCellUnderflow, ErrInsufficientBalance, ErrInvalidPrefix, ErrInvalidMessage, ErrInvalidAddress,
	ErrJettonUnauthorized, ErrJettonBalanceInsufficient,
	ErrAccessDenied, ErrOnlyBotCanInvoke, ErrOnlyAdvertiserCanInvoke, ErrOnlyAffiliateCanInvoke,
	ErrOnlyParentCanInvoke, ErrOnlyContractWalletAllowedToInvoke, ErrOnlyOwnerCanInvoke,
	ErrMustBeInStateCampaignCreated, ErrMustBeInStateDetailsSet, ErrCampaignNotActive,
	ErrAffiliateNotActive, ErrAffiliateNotFound, ErrAffiliateNotPendingApproval,
	ErrAffiliateAlreadyRemoved, ErrAffiliateHasPendingEarnings, ErrCannotAddAffiliatesToPublicCampaign,
	ErrMaxAffiliatesReached, ErrOpCodeNotFound, ErrBotCanVerifyOnlyOpCodesUnder20000,
	ErrAdvertiserCanVerifyOnlyOpCodesOver20000, ErrAmountExceedsPending, ErrAdvertiserApprovalNotRequired,
	ErrCampaignAlreadyDeployed, ErrCampaignNotDeployed, ErrInvalidCampaignDetails, ErrUSDTNotConfigured,
	ErrPaymentMethodMismatch, ErrNoEarningsToWithdraw, ErrPercentageOutOfRange, ErrInvalidAmount,
	ErrInsufficientCampaignFunds, ErrInsufficientContractFundsToMakePayment, ErrInsufficientFundsToDeploy,
}

// ExitCode extracts the numeric code carried by err. A nil error maps to 0.
func ExitCode(err error) int32 {
	if err == nil {
		return 0
	}
	var exit *ExitError
	if stderrors.As(err, &exit) {
		return exit.Code
	}
	return ExitCodeUnknown
}

// Table returns every documented exit code keyed by its numeric value.
func Table() map[int32]string {
	out := make(map[int32]string, len(all))
	for _, e := range all {
		out[e.Code] = e.Name
	}
	return out
}
