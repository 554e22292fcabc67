package rpc

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/tonkeeper/tongo/ton"

	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
	"tonaffiliate/native/campaign"
	"tonaffiliate/native/marketplace"
)

const oneCoin = 1_000_000_000

func testAddr(seed byte) ton.AccountID {
	var id ton.AccountID
	id.Address[0] = 0x7c
	id.Address[31] = seed
	return id
}

type testEnv struct {
	ledger      *ledger.Ledger
	handler     http.Handler
	owner       ton.AccountID
	advertiser  ton.AccountID
	marketplace ton.AccountID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		ledger:     ledger.New(),
		owner:      testAddr(1),
		advertiser: testAddr(3),
	}
	env.ledger.SetClock(clockwork.NewFakeClock())
	for _, w := range []ton.AccountID{env.owner, testAddr(2), env.advertiser} {
		require.NoError(t, env.ledger.CreateWallet(w, big.NewInt(10*oneCoin)))
	}
	init, err := marketplace.StateInit(env.owner, testAddr(2), 100, 200)
	require.NoError(t, err)
	env.marketplace, err = env.ledger.Genesis(init, big.NewInt(oneCoin))
	require.NoError(t, err)
	env.handler = NewServer(env.ledger, env.marketplace, nil).Handler()
	return env
}

func (env *testEnv) get(t *testing.T, path string, out interface{}) int {
	t.Helper()
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func (env *testEnv) submit(t *testing.T, req SubmitRequest) (*httptest.ResponseRecorder, SubmitResult) {
	t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewReader(payload)))
	var out SubmitResult
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func encodeBody(t *testing.T, msg wire.Message) string {
	t.Helper()
	cell, err := wire.Encode(msg)
	require.NoError(t, err)
	data, err := wire.ToBoc(cell)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(data)
}

func (env *testEnv) deployCampaign(t *testing.T) ton.AccountID {
	t.Helper()
	rec, out := env.submit(t, SubmitRequest{
		From:  env.advertiser.ToRaw(),
		To:    env.marketplace.ToRaw(),
		Value: "500000000",
		Body:  encodeBody(t, &wire.AdvertiserDeployNewCampaign{}),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.GreaterOrEqual(t, len(out.Receipts), 2)
	for _, r := range out.Receipts {
		require.Zero(t, r.ExitCode, "receipt %+v", r)
	}
	addr, err := campaign.Address(env.marketplace, 1, env.advertiser)
	require.NoError(t, err)
	return addr
}

func TestSubmitDeploysCampaignAndGettersServeIt(t *testing.T) {
	env := newTestEnv(t)
	addr := env.deployCampaign(t)

	var mp MarketplaceResult
	require.Equal(t, http.StatusOK, env.get(t, "/v1/marketplace", &mp))
	require.Equal(t, uint32(1), mp.CampaignCount)
	require.Equal(t, env.owner.ToRaw(), mp.Owner)
	require.Equal(t, uint32(200), mp.AffiliateFeePercentage)

	var derived DeriveResult
	path := "/v1/campaigns/derive?campaignId=1&advertiser=" + env.advertiser.ToRaw()
	require.Equal(t, http.StatusOK, env.get(t, path, &derived))
	require.Equal(t, addr.ToRaw(), derived.Address)
	require.True(t, derived.Deployed)

	var cp CampaignResult
	require.Equal(t, http.StatusOK, env.get(t, "/v1/campaigns/"+addr.ToRaw(), &cp))
	require.True(t, cp.Deployed)
	require.Equal(t, uint32(1), cp.CampaignID)
	require.Equal(t, env.advertiser.ToRaw(), cp.Advertiser)
	require.Equal(t, env.marketplace.ToRaw(), cp.Parent)
	require.Nil(t, cp.Details)

	var owner map[string]string
	require.Equal(t, http.StatusOK, env.get(t, "/v1/campaigns/"+addr.ToRaw()+"/owner", &owner))
	require.Equal(t, env.marketplace.ToRaw(), owner["owner"])

	var stopped map[string]bool
	require.Equal(t, http.StatusOK, env.get(t, "/v1/campaigns/"+addr.ToRaw()+"/stopped", &stopped))
	require.False(t, stopped["stopped"])

	var balance map[string]string
	require.Equal(t, http.StatusOK, env.get(t, "/v1/campaigns/"+addr.ToRaw()+"/balance", &balance))
	require.NotEqual(t, "0", balance["balance"])

	var affiliates []AffiliateResult
	require.Equal(t, http.StatusOK, env.get(t, "/v1/campaigns/"+addr.ToRaw()+"/affiliates?from=1&to=10", &affiliates))
	require.Empty(t, affiliates)
	require.Equal(t, http.StatusNotFound, env.get(t, "/v1/campaigns/"+addr.ToRaw()+"/affiliates/1", nil))
}

func TestGetterErrors(t *testing.T) {
	env := newTestEnv(t)

	missing, err := campaign.Address(env.marketplace, 7, env.advertiser)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, env.get(t, "/v1/campaigns/"+missing.ToRaw(), nil))
	require.Equal(t, http.StatusBadRequest, env.get(t, "/v1/campaigns/not-an-address", nil))
	require.Equal(t, http.StatusBadRequest, env.get(t, "/v1/campaigns/derive?campaignId=x&advertiser="+env.advertiser.ToRaw(), nil))
	require.Equal(t, http.StatusConflict, env.get(t, "/v1/campaigns/"+env.owner.ToRaw(), nil))
	require.Equal(t, http.StatusConflict, env.get(t, "/v1/campaigns/"+env.marketplace.ToRaw(), nil))

	addr := env.deployCampaign(t)
	require.Equal(t, http.StatusBadRequest, env.get(t, "/v1/campaigns/"+addr.ToRaw()+"/affiliates?from=5&to=2", nil))
	require.Equal(t, http.StatusBadRequest, env.get(t, "/v1/campaigns/"+addr.ToRaw()+"/affiliates/abc", nil))
}

func TestSubmitRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.submit(t, SubmitRequest{From: testAddr(99).ToRaw(), To: env.marketplace.ToRaw(), Value: "1"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.submit(t, SubmitRequest{From: env.owner.ToRaw(), To: env.marketplace.ToRaw(), Value: "-1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.submit(t, SubmitRequest{From: env.owner.ToRaw(), To: env.marketplace.ToRaw(), Body: "%%%"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.submit(t, SubmitRequest{From: env.owner.ToRaw(), To: env.marketplace.ToRaw(), Value: "1000000000000000"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmitReportsAbortedDelivery(t *testing.T) {
	env := newTestEnv(t)
	bounce := true
	rec, out := env.submit(t, SubmitRequest{
		From:   env.advertiser.ToRaw(),
		To:     env.marketplace.ToRaw(),
		Value:  "1000",
		Bounce: &bounce,
		Body:   encodeBody(t, &wire.AdvertiserDeployNewCampaign{}),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, out.Receipts)
	first := out.Receipts[0]
	require.Equal(t, env.marketplace.ToRaw(), first.To)
	require.Equal(t, int32(3003), first.ExitCode)
	require.NotEmpty(t, first.Error)
}

func TestSubmitRateLimited(t *testing.T) {
	env := newTestEnv(t)
	server := NewServer(env.ledger, env.marketplace, nil)
	server.SetSubmitRate(0, 1)
	env.handler = server.Handler()

	req := SubmitRequest{From: env.owner.ToRaw(), To: env.marketplace.ToRaw(), Value: "1"}
	rec, _ := env.submit(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.submit(t, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.get(t, "/healthz", nil))

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "affiliate_rpc_requests_total"))
}
