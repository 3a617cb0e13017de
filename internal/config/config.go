package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	// PolicyYieldSplit allocates harvested yield across user pool, seed and
	// treasury by basis points.
	PolicyYieldSplit = "yield_split"
	// PolicyDepositSplit carves the seed cut out of each deposit instead and
	// accrues harvested yield into a pool distributed by an admin call.
	PolicyDepositSplit = "deposit_split"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Vault    VaultConfig    `mapstructure:"vault"`
	Protocol ProtocolConfig `mapstructure:"protocol"`
	Roles    RolesConfig    `mapstructure:"roles"`
	Cron     CronConfig     `mapstructure:"cron"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type VaultConfig struct {
	// Mode selects the adapter implementation: "rest" or "sim".
	Mode    string        `mapstructure:"mode"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// SimYieldBps drives the simulator's accrual rate in dev runs.
	SimYieldBps int64 `mapstructure:"sim_yield_bps"`
}

// ProtocolConfig holds the economic parameters of the protection-seed
// lifecycle. Admin endpoints may mutate the bps splits, the compensation
// share, the cooldown and the role identities at runtime; the rest is fixed
// at boot.
type ProtocolConfig struct {
	Policy     string          `mapstructure:"policy"`
	MinDeposit decimal.Decimal `mapstructure:"min_deposit"`

	UserYieldBps     int64 `mapstructure:"user_yield_bps"`
	SeedYieldBps     int64 `mapstructure:"seed_yield_bps"`
	TreasuryYieldBps int64 `mapstructure:"treasury_yield_bps"`

	// deposit_split policy: cut of every deposit routed into the seed.
	DepositSeedBps int64 `mapstructure:"deposit_seed_bps"`

	MaxCompensationBps int64 `mapstructure:"max_compensation_bps"`
	// SlippageBps bounds the tolerated shortfall on bulk vault withdrawals
	// (compensation funding and dormancy exit). 500 = accept >= 95%.
	SlippageBps int64 `mapstructure:"slippage_bps"`

	TriggerCooldown   time.Duration `mapstructure:"trigger_cooldown"`
	ConfirmMinDelay   time.Duration `mapstructure:"confirm_min_delay"`
	ConfirmWindow     time.Duration `mapstructure:"confirm_window"`
	HaltBuffer        time.Duration `mapstructure:"halt_buffer"`
	ClaimWindow       time.Duration `mapstructure:"claim_window"`
	DormancyThreshold time.Duration `mapstructure:"dormancy_threshold"`
	DormancyCapBps    int64         `mapstructure:"dormancy_cap_bps"`

	// EmergencyTriggers enables the admin bypass of the propose/confirm
	// cycle. Meant for pre-launch environments only.
	EmergencyTriggers bool `mapstructure:"emergency_triggers"`
}

type RolesConfig struct {
	Admin    string `mapstructure:"admin"`
	Oracle   string `mapstructure:"oracle"`
	Multisig string `mapstructure:"multisig"`

	AdminKey    string `mapstructure:"admin_key"`
	OracleKey   string `mapstructure:"oracle_key"`
	MultisigKey string `mapstructure:"multisig_key"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Harvest   string `mapstructure:"harvest"`
	Heartbeat string `mapstructure:"heartbeat"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("vault.mode", "sim")
	v.SetDefault("vault.base_url", "")
	v.SetDefault("vault.timeout", "15s")
	v.SetDefault("vault.sim_yield_bps", 0)
	v.SetDefault("protocol.policy", PolicyYieldSplit)
	v.SetDefault("protocol.min_deposit", "100")
	v.SetDefault("protocol.user_yield_bps", 8000)
	v.SetDefault("protocol.seed_yield_bps", 1000)
	v.SetDefault("protocol.treasury_yield_bps", 1000)
	v.SetDefault("protocol.deposit_seed_bps", 500)
	v.SetDefault("protocol.max_compensation_bps", 5000)
	v.SetDefault("protocol.slippage_bps", 500)
	v.SetDefault("protocol.trigger_cooldown", "168h")
	v.SetDefault("protocol.confirm_min_delay", "1h")
	v.SetDefault("protocol.confirm_window", "24h")
	v.SetDefault("protocol.halt_buffer", "1h")
	v.SetDefault("protocol.claim_window", "72h")
	v.SetDefault("protocol.dormancy_threshold", "4320h")
	v.SetDefault("protocol.dormancy_cap_bps", 1000)
	v.SetDefault("protocol.emergency_triggers", false)
	v.SetDefault("cron.enabled", false)
	v.SetDefault("cron.harvest", "@every 1h")
	v.SetDefault("cron.heartbeat", "@every 24h")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decimalDecodeHook)); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Protocol.Validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.Roles.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the parameter constraints of the configuration surface;
// runtime admin updates go through the same checks.
func (p ProtocolConfig) Validate() error {
	switch p.Policy {
	case PolicyYieldSplit, PolicyDepositSplit:
	default:
		return fmt.Errorf("protocol.policy: unknown policy %q", p.Policy)
	}
	if p.MinDeposit.IsNegative() {
		return errors.New("protocol.min_deposit: must not be negative")
	}
	if err := ValidateSplit(p.UserYieldBps, p.SeedYieldBps, p.TreasuryYieldBps); err != nil {
		return err
	}
	if p.DepositSeedBps < 0 || p.DepositSeedBps > 10000 {
		return errors.New("protocol.deposit_seed_bps: must be within 0..10000")
	}
	if err := ValidateMaxCompensationBps(p.MaxCompensationBps); err != nil {
		return err
	}
	if p.SlippageBps < 0 || p.SlippageBps > 10000 {
		return errors.New("protocol.slippage_bps: must be within 0..10000")
	}
	if err := ValidateCooldown(p.TriggerCooldown); err != nil {
		return err
	}
	if p.ConfirmMinDelay <= 0 || p.ConfirmWindow <= p.ConfirmMinDelay {
		return errors.New("protocol confirmation window must exceed the minimum delay")
	}
	if p.HaltBuffer < 0 {
		return errors.New("protocol.halt_buffer: must not be negative")
	}
	if p.ClaimWindow <= 0 {
		return errors.New("protocol.claim_window: must be positive")
	}
	if p.DormancyThreshold <= 0 {
		return errors.New("protocol.dormancy_threshold: must be positive")
	}
	if p.DormancyCapBps <= 0 || p.DormancyCapBps > 10000 {
		return errors.New("protocol.dormancy_cap_bps: must be within 1..10000")
	}
	return nil
}

func (r RolesConfig) Validate() error {
	if strings.TrimSpace(r.Admin) == "" {
		return errors.New("roles.admin: must not be empty")
	}
	if strings.TrimSpace(r.Oracle) == "" {
		return errors.New("roles.oracle: must not be empty")
	}
	if strings.TrimSpace(r.Multisig) == "" {
		return errors.New("roles.multisig: must not be empty")
	}
	return nil
}

func ValidateSplit(userBps, seedBps, treasuryBps int64) error {
	if userBps < 0 || seedBps < 0 || treasuryBps < 0 {
		return errors.New("yield split: shares must not be negative")
	}
	if userBps+seedBps+treasuryBps != 10000 {
		return errors.New("yield split: shares must sum to 10000 bps")
	}
	return nil
}

func ValidateMaxCompensationBps(bps int64) error {
	if bps < 100 || bps > 5000 {
		return errors.New("max compensation share: must be within 100..5000 bps")
	}
	return nil
}

func ValidateCooldown(d time.Duration) error {
	if d < 168*time.Hour {
		return errors.New("trigger cooldown: must be at least 168h")
	}
	return nil
}

// decimalDecodeHook lets viper read decimal amounts from YAML strings or
// numbers without going through float64 for the string case.
func decimalDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(decimal.Decimal{}) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return decimal.NewFromString(v)
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return data, nil
	}
}
