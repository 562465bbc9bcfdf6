package database

import (
	"context"
	"database/sql/driver"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// pragmaConnector runs per-connection pragmas on every connection the pool
// opens.
type pragmaConnector struct {
	driver.Connector
	pragmas []string
}

func (pc *pragmaConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := pc.Connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	for _, pragma := range pc.pragmas {
		if err := execConn(ctx, conn, pragma); err != nil {
			_ = conn.Close()
			return nil, errors.Wrapf(err, "failed to run %q", pragma)
		}
	}
	return conn, nil
}

func execConn(ctx context.Context, conn driver.Conn, query string) error {
	if execer, ok := conn.(driver.ExecerContext); ok {
		_, err := execer.ExecContext(ctx, query, nil)
		return err
	}
	stmt, err := conn.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(nil) //nolint:staticcheck // fallback for drivers without ExecerContext
	return err
}

// driverConnector adapts a driver without OpenConnector to sql.OpenDB.
type driverConnector struct {
	driver driver.Driver
	dsn    string
}

func (dc *driverConnector) Connect(_ context.Context) (driver.Conn, error) {
	return dc.driver.Open(dc.dsn)
}

func (dc *driverConnector) Driver() driver.Driver {
	return dc.driver
}

// maxConnectDelay caps the doubling delay between connection attempts.
const maxConnectDelay = 30 * time.Second

// connectWithRetry pings the database until it answers, doubling delay after
// each failure. attempts below 1 is treated as 1.
func connectWithRetry(ctx context.Context, db *bun.DB, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	log := logger.FromContext(ctx)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		_, err = db.ExecContext(ctx, "SELECT 1")
		if err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		log.Warn("database not ready, retrying", logger.Data{"attempt": attempt, "delay_ms": delay.Milliseconds(), "error": err.Error()})

		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxConnectDelay {
			delay = maxConnectDelay
		}
	}

	return errors.Wrapf(err, "database unreachable after %d attempts", attempts)
}
