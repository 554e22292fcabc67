package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	ownerRaw = "0:1111111111111111111111111111111111111111111111111111111111111111"
	botRaw   = "0:2222222222222222222222222222222222222222222222222222222222222222"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.Log.Format != LogFormatJSON {
		t.Fatalf("unexpected log format %q", cfg.Log.Format)
	}
	if len(cfg.Wallets) != 2 {
		t.Fatalf("expected 2 devnet wallets, got %d", len(cfg.Wallets))
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Marketplace.Owner != cfg.Marketplace.Owner {
		t.Fatalf("owner changed across reload: %q != %q", reloaded.Marketplace.Owner, cfg.Marketplace.Owner)
	}
}

func TestLoadParsesGenesis(t *testing.T) {
	path := writeConfig(t, `DataDir = "/var/lib/affiliate"
RPCAddress = "127.0.0.1:9090"

[log]
Format = "console"
Level = "debug"

[marketplace]
Owner = "`+ownerRaw+`"
Bot = "`+botRaw+`"
AdvertiserFeePercentage = 150
AffiliateFeePercentage = 250
Balance = "5000000000"

[usdt]
Enabled = true

[relay]
Addr = "localhost:6379"
Channel = "affiliate"

[[wallets]]
Address = "`+ownerRaw+`"
Balance = "42"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/var/lib/affiliate" || cfg.RPCAddress != "127.0.0.1:9090" {
		t.Fatalf("unexpected node settings: %+v", cfg)
	}
	if cfg.Log.Env != "dev" {
		t.Fatalf("expected default env, got %q", cfg.Log.Env)
	}

	g, err := cfg.Genesis()
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if g.Owner.ToRaw() != ownerRaw || g.Bot.ToRaw() != botRaw {
		t.Fatalf("unexpected roles: owner=%s bot=%s", g.Owner.ToRaw(), g.Bot.ToRaw())
	}
	if g.AdvertiserFeePercentage != 150 || g.AffiliateFeePercentage != 250 {
		t.Fatalf("unexpected fees: %d/%d", g.AdvertiserFeePercentage, g.AffiliateFeePercentage)
	}
	if g.MarketplaceBalance.String() != "5000000000" {
		t.Fatalf("unexpected marketplace balance %s", g.MarketplaceBalance)
	}
	if g.USDTAdmin == nil || *g.USDTAdmin != g.Owner {
		t.Fatalf("usdt admin should default to the owner")
	}
	if bal := g.Wallets[g.Owner]; bal == nil || bal.Int64() != 42 {
		t.Fatalf("unexpected wallet balance %v", bal)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "fees",
			body: "[marketplace]\nOwner = \"" + ownerRaw + "\"\nBot = \"" + botRaw + "\"\nAdvertiserFeePercentage = 10001\n",
			want: "marketplace",
		},
		{
			name: "owner",
			body: "[marketplace]\nOwner = \"not-an-address\"\nBot = \"" + botRaw + "\"\n",
			want: "marketplace.Owner",
		},
		{
			name: "log format",
			body: "[log]\nFormat = \"xml\"\n[marketplace]\nOwner = \"" + ownerRaw + "\"\nBot = \"" + botRaw + "\"\n",
			want: "unknown format",
		},
		{
			name: "negative wallet",
			body: "[marketplace]\nOwner = \"" + ownerRaw + "\"\nBot = \"" + botRaw + "\"\n[[wallets]]\nAddress = \"" + botRaw + "\"\nBalance = \"-1\"\n",
			want: "negative",
		},
		{
			name: "duplicate wallet",
			body: "[marketplace]\nOwner = \"" + ownerRaw + "\"\nBot = \"" + botRaw + "\"\n[[wallets]]\nAddress = \"" + botRaw + "\"\n[[wallets]]\nAddress = \"" + botRaw + "\"\n",
			want: "duplicate",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
