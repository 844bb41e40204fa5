package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kendallb/PhalangerMySql/internal/export"
	"github.com/kendallb/PhalangerMySql/internal/spinner"
	"github.com/kendallb/PhalangerMySql/internal/styles"
	"github.com/urfave/cli/v3"
)

func (a *App) handleExport(ctx context.Context, cmd *cli.Command) error {
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

	output := cmd.String("out")
	stop := spinner.Start(a.progress)
	n, err := export.ToFile(ctx, a.session.Result(id), output)
	stop()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, styles.Success.Render(fmt.Sprintf("✓ Exported %d rows to %s", n, output)))
	return nil
}
