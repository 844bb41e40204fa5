package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kendallb/PhalangerMySql/internal/styles"
)

func main() {
	app := NewApp(os.Stdout)
	app.progress = os.Stderr
	if err := app.Command().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render(err.Error()))
		os.Exit(1)
	}
}
