package cli

import (
	"context"

	"github.com/spf13/cobra"

	"go-reviewlens/cronjobs"
)

func (a *app) scheduleCmd() *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Re-run the batch on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			env, err := a.setup(ctx, cmd)
			if err != nil {
				a.report(err)
				return nil
			}
			defer env.close()

			s, err := cronjobs.Start(ctx, spec, func(ctx context.Context) error {
				err := env.runOnce(ctx, a)
				if err != nil {
					a.report(err)
				}
				return err
			}, env.logger)
			if err != nil {
				a.report(err)
				return nil
			}
			env.logger.WithField("next", s.Next()).Info("schedule started")

			<-ctx.Done()
			s.Stop()
			env.logger.Info("schedule stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&spec, "cron", "@hourly", "Cron schedule (five-field or descriptor such as @every 30m)")
	return cmd
}
