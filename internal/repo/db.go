package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txdb extends db with the ability to open a transaction. *pgxpool.Pool
// begins a real transaction; pgx.Tx begins a savepoint, so repos that need
// multi-statement atomicity still work under test rollback isolation.
type txdb interface {
	db
	Begin(ctx context.Context) (pgx.Tx, error)
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

const (
	readRetries   = 3
	retryBaseWait = 50 * time.Millisecond
)

// withRetry runs op, retrying transient storage failures with fibonacci
// backoff up to readRetries extra attempts. Only read paths use it: a
// retried read at worst repeats work, while a retried write needs the
// stronger pgconn.SafeToRetry guarantee that op cannot give once it has
// sent the statement.
func withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(readRetries, retry.NewFibonacci(retryBaseWait))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := op(ctx)
		if err != nil && transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// transient reports whether err is worth retrying: the connection failed
// before the statement reached the server, or the server aborted it with a
// serialization or deadlock error that a fresh attempt can win.
func transient(err error) bool {
	if pgconn.SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		}
	}
	return false
}
