package rpc

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tonkeeper/tongo/ton"

	"tonaffiliate/core/ledger"
	"tonaffiliate/native/campaign"
	"tonaffiliate/native/marketplace"
)

var errWrongContract = errors.New("rpc: account holds a different contract")

func (s *Server) handleMarketplace(w http.ResponseWriter, _ *http.Request) {
	var out MarketplaceResult
	err := s.ledger.View(s.marketplace, func(c ledger.Contract, balance *big.Int) error {
		mp, ok := c.(*marketplace.Marketplace)
		if !ok {
			return errWrongContract
		}
		out = marketplaceResult(s.marketplace, balance, mp.Snapshot())
		return nil
	})
	if err != nil {
		s.writeViewError(w, err)
		return
	}
	writeResult(w, out)
}

func (s *Server) handleDerive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := strconv.ParseUint(q.Get("campaignId"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidParams, "campaignId must be a uint32")
		return
	}
	advertiser, err := ton.ParseAccountID(strings.TrimSpace(q.Get("advertiser")))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidParams, fmt.Sprintf("invalid advertiser: %v", err))
		return
	}
	addr, err := campaign.Address(s.marketplace, uint32(id), advertiser)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeServerError, err.Error())
		return
	}
	writeResult(w, DeriveResult{
		Address:    addr.ToRaw(),
		CampaignID: uint32(id),
		Advertiser: advertiser.ToRaw(),
		Deployed:   s.ledger.Exists(addr),
	})
}

// viewCampaign resolves {address} and runs fn against the campaign under the
// ledger read lock.
func (s *Server) viewCampaign(w http.ResponseWriter, r *http.Request, fn func(addr ton.AccountID, c *campaign.Campaign, balance *big.Int)) {
	addr, err := ton.ParseAccountID(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidParams, fmt.Sprintf("invalid address: %v", err))
		return
	}
	err = s.ledger.View(addr, func(c ledger.Contract, balance *big.Int) error {
		cp, ok := c.(*campaign.Campaign)
		if !ok {
			return errWrongContract
		}
		fn(addr, cp, balance)
		return nil
	})
	if err != nil {
		s.writeViewError(w, err)
	}
}

func (s *Server) handleCampaign(w http.ResponseWriter, r *http.Request) {
	now := s.ledger.Now()
	s.viewCampaign(w, r, func(addr ton.AccountID, c *campaign.Campaign, balance *big.Int) {
		writeResult(w, campaignResult(addr, balance, c.Snapshot(now)))
	})
}

func (s *Server) handleCampaignBalance(w http.ResponseWriter, r *http.Request) {
	s.viewCampaign(w, r, func(_ ton.AccountID, _ *campaign.Campaign, balance *big.Int) {
		writeResult(w, map[string]string{"balance": amount(balance)})
	})
}

func (s *Server) handleCampaignStopped(w http.ResponseWriter, r *http.Request) {
	s.viewCampaign(w, r, func(_ ton.AccountID, c *campaign.Campaign, _ *big.Int) {
		writeResult(w, map[string]bool{"stopped": c.Stopped()})
	})
}

func (s *Server) handleCampaignOwner(w http.ResponseWriter, r *http.Request) {
	s.viewCampaign(w, r, func(_ ton.AccountID, c *campaign.Campaign, _ *big.Int) {
		writeResult(w, map[string]string{"owner": c.Owner().ToRaw()})
	})
}

func (s *Server) handleAffiliates(w http.ResponseWriter, r *http.Request) {
	from, err := parseUint32Param(r, "from", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidParams, err.Error())
		return
	}
	to, err := parseUint32Param(r, "to", campaign.MaxAffiliates)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidParams, err.Error())
		return
	}
	if to < from {
		writeError(w, http.StatusBadRequest, codeInvalidParams, "to must not be below from")
		return
	}
	s.viewCampaign(w, r, func(_ ton.AccountID, c *campaign.Campaign, _ *big.Int) {
		records := c.AffiliatesInRange(from, to)
		out := make([]AffiliateResult, 0, len(records))
		for id := from; id <= to && len(out) < len(records); id++ {
			if rec, ok := records[id]; ok {
				out = append(out, affiliateResult(id, rec))
			}
		}
		writeResult(w, out)
	})
}

func (s *Server) handleAffiliate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidParams, "affiliate id must be a uint32")
		return
	}
	s.viewCampaign(w, r, func(_ ton.AccountID, c *campaign.Campaign, _ *big.Int) {
		rec, ok := c.Affiliate(uint32(id))
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "affiliate not found")
			return
		}
		writeResult(w, affiliateResult(uint32(id), rec))
	})
}

func (s *Server) writeViewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, ledger.ErrNotContract), errors.Is(err, errWrongContract):
		writeError(w, http.StatusConflict, codeInvalidParams, err.Error())
	default:
		s.logger.Error("rpc view failed", "error", err)
		writeError(w, http.StatusInternalServerError, codeServerError, err.Error())
	}
}

func parseUint32Param(r *http.Request, name string, fallback uint32) (uint32, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a uint32", name)
	}
	return uint32(v), nil
}
