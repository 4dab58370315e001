package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"

	"github.com/daylog/daylog/cmd/common"
	"github.com/daylog/daylog/internal/config"
	"github.com/daylog/daylog/internal/scheduler"
	"github.com/daylog/daylog/internal/store"
	"github.com/daylog/daylog/pkg/logger"
)

func schedule(ctx *cli.Context) error {
	return withStore(func(bg context.Context, _ *config.Config, st *store.SQLite, _ logger.Logger) error {
		users, err := st.LoadUsers(bg)
		if err != nil {
			return err
		}
		now := clock.Now().UTC()
		cohorts := scheduler.Plan(users, now.Truncate(time.Minute))
		if len(cohorts) == 0 {
			fmt.Fprintln(stdout, "Nothing scheduled.")
			return nil
		}
		for _, c := range cohorts {
			at := c.Target.Instant(now)
			names := make([]string, len(c.Users))
			for i, u := range c.Users {
				names[i] = u.Username
			}
			fmt.Fprintf(stdout, "%s %s %s\n",
				common.Pad(c.Target.String()+" UTC", 20),
				common.Pad(humanize.RelTime(at, now, "ago", "from now"), 18),
				strings.Join(names, ", "))
		}
		return nil
	})
}
