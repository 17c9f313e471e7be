package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("ALIENTU_AUTH_JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("ALIENTU_MAIL_SMTP_HOST", "smtp.example.it")
	t.Setenv("ALIENTU_SERVER_PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "0123456789abcdef0123", cfg.Auth.JWTSecret)
	require.Equal(t, "smtp.example.it", cfg.Mail.SMTPHost)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 8*time.Hour, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 3, cfg.RateLimit.PublicLimit)
	require.Equal(t, 10*time.Minute, cfg.RateLimit.PublicWindow)
	require.EqualValues(t, 64<<10, cfg.Server.PublicMaxBodyBytes)

	camp, ok := cfg.Campaign("alientu-2026")
	require.True(t, ok)
	require.Equal(t, "ALIENTU26", camp.CodePrefix)
	game, social := camp.Prices()
	require.True(t, game.Equal(decimal.NewFromInt(3)))
	require.True(t, social.Equal(decimal.NewFromInt(5)))
}

func TestLoad_FileNormalizesPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
auth:
  jwt_secret: "a-long-enough-test-secret"
campaigns:
  - id: estate-2027
    event_id: ESTATE_2027
    code_prefix: " estate27 "
    price_game: "4.50"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Campaigns, 1)

	camp, ok := cfg.Campaign("estate-2027")
	require.True(t, ok)
	require.Equal(t, "ESTATE27", camp.CodePrefix)

	// 未配置的价格使用默认值
	game, social := camp.Prices()
	require.Equal(t, "4.50", game.StringFixed(2))
	require.Equal(t, DefaultPriceSocial, social.StringFixed(2))

	_, ok = cfg.Campaign("alientu-2026")
	require.False(t, ok)
}

func TestLoad_RejectsBadPrice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
auth:
  jwt_secret: "a-long-enough-test-secret"
campaigns:
  - id: estate-2027
    event_id: ESTATE_2027
    code_prefix: ESTATE27
    price_social: "oops"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	_, err := Load(path)
	require.ErrorContains(t, err, "price_social")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Auth:   AuthConfig{JWTSecret: "0123456789abcdef"},
			Campaigns: []CampaignConfig{
				{ID: "alientu-2026", EventID: "ALIENTU_2026", CodePrefix: "ALIENTU26"},
			},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"EmptySecret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"ShortSecret", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"BadPort", func(c *Config) { c.Server.Port = 70000 }},
		{"NoCampaigns", func(c *Config) { c.Campaigns = nil }},
		{"MissingEventID", func(c *Config) { c.Campaigns[0].EventID = "" }},
		{"DuplicateCampaign", func(c *Config) { c.Campaigns = append(c.Campaigns, c.Campaigns[0]) }},
		{"BadPrefix", func(c *Config) { c.Campaigns[0].CodePrefix = "ALI-26" }},
		{"NegativeLimit", func(c *Config) { c.RateLimit.PublicLimit = -1 }},
		{"NegativeGamePrice", func(c *Config) { c.Campaigns[0].PriceGame = "-3.00" }},
		{"MalformedSocialPrice", func(c *Config) { c.Campaigns[0].PriceSocial = "cinque" }},
		{"HugePrice", func(c *Config) { c.Campaigns[0].PriceGame = "1e20000000" }},
		{"PriceAboveMax", func(c *Config) { c.Campaigns[0].PriceSocial = "10000" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			require.Error(t, c.Validate())
		})
	}
}
