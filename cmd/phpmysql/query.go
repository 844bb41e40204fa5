package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kendallb/PhalangerMySql/internal/parser"
	"github.com/kendallb/PhalangerMySql/internal/spinner"
	"github.com/kendallb/PhalangerMySql/internal/styles"
	"github.com/kendallb/PhalangerMySql/internal/table"
	"github.com/urfave/cli/v3"
)

func (a *App) handleQuery(ctx context.Context, cmd *cli.Command) error {
	sql, err := sqlArg(cmd, "sql")
	if err != nil {
		return err
	}
	if _, err := a.connect(ctx, cmd); err != nil {
		return err
	}

	if cmd.Bool("echo") {
		fmt.Fprintln(a.out, parser.Highlight(parser.Format(sql)))
	}

	start := time.Now()
	stop := spinner.Start(a.progress)
	id, err := a.session.Query(ctx, a.link, sql, !cmd.Bool("raw"))
	stop()
	if err != nil {
		return a.failure(err)
	}
	if id == uuid.Nil {
		fmt.Fprintln(a.out, styles.Success.Render("✓ OK"))
		return nil
	}
	defer a.session.Free(id)

	opts := table.Options{CellWidth: int(cmd.Int("width")), MaxRows: int(cmd.Int("limit"))}
	if _, err := table.Render(a.out, a.session.Result(id), opts); err != nil {
		return a.failure(err)
	}
	fmt.Fprintln(a.out, styles.Faint.Render(fmt.Sprintf("took %s", time.Since(start).Round(time.Millisecond))))
	return nil
}

func (a *App) handleExec(ctx context.Context, cmd *cli.Command) error {
	sql, err := sqlArg(cmd, "sql")
	if err != nil {
		return err
	}
	if _, err := a.connect(ctx, cmd); err != nil {
		return err
	}

	res, err := a.session.Exec(ctx, a.link, sql)
	if err != nil {
		return a.failure(err)
	}

	msg := "✓ OK"
	if res.RowsAffected >= 0 {
		msg = fmt.Sprintf("✓ %d rows affected", res.RowsAffected)
	}
	fmt.Fprintln(a.out, styles.Success.Render(msg))
	if res.LastInsertID > 0 {
		fmt.Fprintln(a.out, styles.Faint.Render(fmt.Sprintf("last insert id %d", res.LastInsertID)))
	}
	return nil
}

func (a *App) handleFields(ctx context.Context, cmd *cli.Command) error {
	sql, err := sqlArg(cmd, "sql")
	if err != nil {
		return err
	}
	if _, err := a.connect(ctx, cmd); err != nil {
		return err
	}

	id, err := a.session.Query(ctx, a.link, sql, true)
	if err != nil {
		return a.failure(err)
	}
	if id == uuid.Nil {
		return fmt.Errorf("statement returned no result set")
	}
	defer a.session.Free(id)

	return table.RenderFields(a.out, a.session.Result(id))
}

func (a *App) handleVar(ctx context.Context, cmd *cli.Command) error {
	name, err := sqlArg(cmd, "name")
	if err != nil {
		return err
	}
	conn, err := a.connect(ctx, cmd)
	if err != nil {
		return err
	}

	value, err := conn.QueryGlobalVariable(ctx, name)
	if err != nil {
		return a.failure(err)
	}
	fmt.Fprintf(a.out, "%s %s\n", styles.Title.Render(name), table.CellText(value))
	return nil
}
