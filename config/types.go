package config

const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

const (
	devnetOwner = "0:0000000000000000000000000000000000000000000000000000000000000001"
	devnetBot   = "0:0000000000000000000000000000000000000000000000000000000000000002"
)

// Log selects the slog handler.
type Log struct {
	Format string `toml:"Format"`
	Level  string `toml:"Level"`
	Env    string `toml:"Env"`
}

// Marketplace is the genesis configuration of the marketplace contract.
// Balance is in nanotons.
type Marketplace struct {
	Owner                   string `toml:"Owner"`
	Bot                     string `toml:"Bot"`
	AdvertiserFeePercentage uint32 `toml:"AdvertiserFeePercentage"`
	AffiliateFeePercentage  uint32 `toml:"AffiliateFeePercentage"`
	Balance                 string `toml:"Balance"`
}

// USDT deploys a jetton minter at genesis and points the marketplace at it.
type USDT struct {
	Enabled bool   `toml:"Enabled"`
	Admin   string `toml:"Admin"`
}

// Relay publishes ledger events to Redis. An empty Addr disables it.
type Relay struct {
	Addr     string `toml:"Addr"`
	Password string `toml:"Password"`
	DB       int    `toml:"DB"`
	Channel  string `toml:"Channel"`
}

// Wallet is a genesis wallet funded with Balance nanotons.
type Wallet struct {
	Address string `toml:"Address"`
	Balance string `toml:"Balance"`
}
