package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Command is a statement bound to a live connection.
type Command struct {
	SQL string
	// Timeout bounds execution. Zero leaves the driver default in place.
	Timeout time.Duration

	native Native
}

// Query runs the command. Timeout and cancellation of ctx only bound the
// execution; once rows are returned they stay readable until the returned
// cancel func is called, which must happen after the rows are closed.
func (c *Command) Query(ctx context.Context) (*sql.Rows, context.CancelFunc, error) {
	rowsCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopWatch := context.AfterFunc(ctx, cancel)

	var timer *time.Timer
	if c.Timeout > 0 {
		timer = time.AfterFunc(c.Timeout, cancel)
	}

	rows, err := c.native.QueryContext(rowsCtx, c.SQL)

	expired := timer != nil && !timer.Stop()
	aborted := !stopWatch()
	switch {
	case expired:
		err = fmt.Errorf("command exceeded %s: %w", c.Timeout, context.DeadlineExceeded)
	case aborted:
		err = ctx.Err()
	}
	if err != nil {
		if rows != nil {
			rows.Close()
		}
		cancel()
		return nil, nil, err
	}
	return rows, cancel, nil
}

// Exec runs a command that returns no rows.
func (c *Command) Exec(ctx context.Context) (sql.Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return c.native.ExecContext(ctx, c.SQL)
}
