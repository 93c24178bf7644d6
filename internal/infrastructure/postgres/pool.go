package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jhoicas/endmill-ledger/pkg/config"
)

const defaultPort = "5432"

var errNoIPv4 = errors.New("sin dirección IPv4")

// NewPool abre el pool del ledger, verifica la conexión y, con DB_AUTO_MIGRATE,
// aplica schema.sql antes de devolverlo.
func NewPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := buildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	if cfg.AutoMigrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return pool, nil
}

// buildPoolConfig traduce DBConfig a la configuración de pgxpool sin abrir conexiones.
func buildPoolConfig(cfg config.DBConfig) (*pgxpool.Config, error) {
	res := ipv4Resolver{fallbackDNS: cfg.FallbackDNS}

	dsn := cfg.ConnectionString()
	if cfg.ForceIPv4 {
		dsn = res.pinDSN(dsn)
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	if cfg.ForceIPv4 {
		poolCfg.ConnConfig.DialFunc = res.dial
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 && cfg.MinConns <= cfg.MaxConns {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	poolCfg.MaxConnLifetime = orDefault(cfg.ConnMaxLife, time.Hour)
	poolCfg.MaxConnIdleTime = orDefault(cfg.ConnMaxIdle, 30*time.Minute)
	poolCfg.HealthCheckPeriod = time.Minute

	// unit_price y total_amount son NUMERIC
	poolCfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	return poolCfg, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// ipv4Resolver resuelve hosts a registros A. Los contenedores sin IPv6 fallan
// al conectar si el DNS devuelve primero AAAA (Supabase, por ejemplo).
type ipv4Resolver struct {
	fallbackDNS string // host:port; vacío desactiva el segundo intento
}

// lookup devuelve la primera IPv4 del host. Una IP literal se devuelve tal cual.
func (r ipv4Resolver) lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() == nil {
			return "", errNoIPv4
		}
		return host, nil
	}
	addr, err := firstIPv4(ctx, net.DefaultResolver, host)
	if err == nil || r.fallbackDNS == "" {
		return addr, err
	}
	fallback := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "udp", r.fallbackDNS)
		},
	}
	return firstIPv4(ctx, fallback, host)
}

func firstIPv4(ctx context.Context, res *net.Resolver, host string) (string, error) {
	ips, err := res.LookupIP(ctx, "ip4", host)
	if err != nil {
		return "", err
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return "", errNoIPv4
}

// pinDSN sustituye el host del DSN por su IPv4. Si no se puede resolver o el
// DSN no es una URL, lo devuelve sin cambios.
func (r ipv4Resolver) pinDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Hostname() == "" {
		return dsn
	}
	addr, err := r.lookup(context.Background(), u.Hostname())
	if err != nil {
		return dsn
	}
	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	u.Host = net.JoinHostPort(addr, port)
	return u.String()
}

// dial es el DialFunc del pool: tcp4 cuando hay registro A, dial normal si no.
func (r ipv4Resolver) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	v4, err := r.lookup(ctx, host)
	if err != nil {
		return d.DialContext(ctx, network, addr)
	}
	return d.DialContext(ctx, "tcp4", net.JoinHostPort(v4, port))
}
