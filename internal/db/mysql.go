package db

import (
	"fmt"
	"time"

	"diversifia/ordersync/internal/config"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// NewMySQLPool opens the bounded, read-only pool used to extract Dolibarr draft orders.
// The pool is owned by the composition root and closed on shutdown.
func NewMySQLPool(cfg config.SourceDB) (*sqlx.DB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = cfg.ConnectTimeout

	var (
		pool *sqlx.DB
		err  error
	)
	for i := 0; i < 5; i++ {
		pool, err = sqlx.Connect("mysql", mc.FormatDSN())
		if err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to dolibarr mysql: %w", err)
	}

	pool.SetMaxOpenConns(cfg.MaxConns)
	pool.SetMaxIdleConns(cfg.MaxConns)
	pool.SetConnMaxLifetime(5 * time.Minute)

	return pool, nil
}
