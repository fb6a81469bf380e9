package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	SetDefaults(v)
	if yaml != "" {
		require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	}
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, TenantModeJWT, cfg.Tenant.Mode)
	assert.Equal(t, 60*time.Second, cfg.Policy.CacheTTL)
	assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, AuditSinkSQL, cfg.Audit.Sink)
	assert.Equal(t, "/api/v1", cfg.Server.APIPrefix)
	assert.ElementsMatch(t, DefaultAuditDenylist, cfg.Audit.Denylist)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(newViper(t, `
tenant:
  mode: header
policy:
  cacheTTL: 5m
audit:
  sink: elasticsearch
  denylist: [password, pin]
`))
	require.NoError(t, err)

	assert.Equal(t, TenantModeHeader, cfg.Tenant.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Policy.CacheTTL)
	assert.Equal(t, AuditSinkElasticsearch, cfg.Audit.Sink)
	assert.Equal(t, []string{"password", "pin"}, cfg.Audit.Denylist)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"tenant mode":  "tenant:\n  mode: cookie\n",
		"store driver": "store:\n  driver: mongo\n",
		"audit sink":   "audit:\n  sink: kafka\n",
		"sql audit on neo4j": `
store:
  driver: neo4j
audit:
  sink: sql
`,
		"zero ttl": "policy:\n  cacheTTL: 0s\n",
	}

	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(newViper(t, yaml))
			assert.Error(t, err)
		})
	}
}
