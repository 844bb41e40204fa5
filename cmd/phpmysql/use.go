package main

import (
	"context"
	"fmt"

	"github.com/kendallb/PhalangerMySql/internal/styles"
	"github.com/urfave/cli/v3"
)

func (a *App) handleUse(ctx context.Context, cmd *cli.Command) error {
	name, err := sqlArg(cmd, "name")
	if err != nil {
		return err
	}

	conn, ok := a.config.Connections[name]
	if !ok {
		return fmt.Errorf("connection %q does not exist", name)
	}
	a.config.CurrentConnection = name
	if err := a.config.Save(a.cfgPath); err != nil {
		return fmt.Errorf("could not save configuration file: %w", err)
	}

	fmt.Fprintln(a.out, styles.Success.Render("✓ Now using:"), fmt.Sprintf("%s/%s", conn.Driver, name))
	return nil
}
