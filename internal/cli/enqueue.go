package cli

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

func newEnqueueCommand(g *globals) *cobra.Command {
	var (
		periods []string
		reports []string
	)
	cmd := &cobra.Command{
		Use:       "enqueue <integrity|warmup>",
		Short:     "Submit a background job to the worker queue",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"integrity", "warmup"},
		RunE: func(cmd *cobra.Command, args []string) error {
			client := jobs.NewClient(asynq.RedisClientOpt{
				Addr:     g.cfg.RedisAddr,
				Password: g.cfg.RedisPassword,
				DB:       g.cfg.RedisDB,
			})
			defer func() { _ = client.Close() }()

			var (
				info *asynq.TaskInfo
				err  error
			)
			switch args[0] {
			case "integrity":
				info, err = client.EnqueueIntegrity(cmd.Context(), g.asOf)
			case "warmup":
				info, err = client.EnqueueWarmup(cmd.Context(), jobs.WarmupPayload{Periods: periods, Reports: reports})
			default:
				return fmt.Errorf("unsupported job %q", args[0])
			}
			if err != nil {
				return fmt.Errorf("enqueue %s: %w", args[0], err)
			}
			_, err = fmt.Fprintf(g.opts.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return err
		},
	}
	cmd.Flags().StringSliceVar(&periods, "periods", nil, "period tokens to warm (warmup only)")
	cmd.Flags().StringSliceVar(&reports, "reports", nil, "report kinds to warm (warmup only)")
	return cmd
}
