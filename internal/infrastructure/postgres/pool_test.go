package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/endmill-ledger/pkg/config"
)

func TestBuildPoolConfig_AppliesLimits(t *testing.T) {
	cfg := config.DBConfig{
		Host: "127.0.0.1", Port: 5433, User: "ledger", Password: "p@ss", DBName: "endmill", SSLMode: "disable",
		MaxConns: 8, MinConns: 2, ConnMaxIdle: 5 * time.Minute,
	}

	pc, err := buildPoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, int32(2), pc.MinConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
	assert.Equal(t, 5*time.Minute, pc.MaxConnIdleTime)
	assert.Equal(t, "127.0.0.1", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
	assert.Equal(t, "p@ss", pc.ConnConfig.Password)
	assert.NotNil(t, pc.AfterConnect)
}

func TestBuildPoolConfig_MinAboveMaxIsIgnored(t *testing.T) {
	pc, err := buildPoolConfig(config.DBConfig{DatabaseURL: "postgres://u:p@127.0.0.1:5432/db", MaxConns: 2, MinConns: 5})
	require.NoError(t, err)
	assert.Equal(t, int32(2), pc.MaxConns)
	assert.Zero(t, pc.MinConns)
}

func TestBuildPoolConfig_ForceIPv4InstallsDialer(t *testing.T) {
	forced, err := buildPoolConfig(config.DBConfig{DatabaseURL: "postgres://u:p@127.0.0.1/db", ForceIPv4: true})
	require.NoError(t, err)

	assert.Equal(t, uint16(5432), forced.ConnConfig.Port)
	assert.Equal(t, "127.0.0.1", forced.ConnConfig.Host)
	assert.NotNil(t, forced.ConnConfig.DialFunc)
}

func TestIPv4Resolver_Literals(t *testing.T) {
	r := ipv4Resolver{}
	ctx := context.Background()

	addr, err := r.lookup(ctx, "10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", addr)

	_, err = r.lookup(ctx, "::1")
	assert.ErrorIs(t, err, errNoIPv4)
}

func TestIPv4Resolver_PinDSN(t *testing.T) {
	r := ipv4Resolver{}

	assert.Equal(t, "postgres://u:p@10.0.0.7:5432/db", r.pinDSN("postgres://u:p@10.0.0.7/db"))
	assert.Equal(t, "postgres://u:p@10.0.0.7:6543/db?sslmode=require", r.pinDSN("postgres://u:p@10.0.0.7:6543/db?sslmode=require"))
	// IPv6 literal sin registro A: se conserva el DSN original
	assert.Equal(t, "postgres://u:p@[::1]:5432/db", r.pinDSN("postgres://u:p@[::1]:5432/db"))
	assert.Equal(t, "host=db user=u", r.pinDSN("host=db user=u"))
}
