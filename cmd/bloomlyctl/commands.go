package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/xwerkax/BloomlyApp/internal/app"
	"github.com/xwerkax/BloomlyApp/internal/clients/redis"
	"github.com/xwerkax/BloomlyApp/internal/services"
)

func parsePlantID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid plant id %q", raw)
	}
	return id, nil
}

// optionalPlantID returns uuid.Nil when no argument was given.
func optionalPlantID(args []string) (uuid.UUID, error) {
	if len(args) == 0 {
		return uuid.Nil, nil
	}
	return parsePlantID(args[0])
}

// --- training ---

var trainCmd = &cobra.Command{
	Use:   "train <plant-id>",
	Short: "Train and store the model for one plant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePlantID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			sum, err := a.Services.Training.Train(ctx, id)
			if err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "Trained %s model on %d samples", sum.ModelType, sum.NSamples)
			return printJSON(cmd.OutOrStdout(), sum)
		})
	},
}

var retrainAllCmd = &cobra.Command{
	Use:   "retrain-all",
	Short: "Retrain every active plant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Services.Training.RetrainAll(ctx)
			if err != nil {
				return err
			}
			w := cmd.ErrOrStderr()
			printSuccess(w, "Retrained %d plants", res.Total)
			printStatus(w, "trained", "%d", res.Trained)
			printStatus(w, "skipped", "%d", res.Skipped)
			printStatus(w, "errored", "%d", res.Errored)
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

var modelStatsCmd = &cobra.Command{
	Use:   "model-stats",
	Short: "List stored models and their metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			stats, err := a.Services.Training.ModelStats(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"models": stats, "count": len(stats)})
		})
	},
}

// --- analysis ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [plant-id]",
	Short: "Recompute the care analysis for one plant, or for all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := optionalPlantID(args)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if id == uuid.Nil {
				res, err := a.Services.Analysis.AnalyzeAll(ctx)
				if err != nil {
					return err
				}
				printSuccess(cmd.ErrOrStderr(), "Analyzed %d plants", res.Succeeded)
				return printJSON(cmd.OutOrStdout(), res)
			}
			out, err := a.Services.Analysis.UpdateAnalysis(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		})
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply [plant-id]",
	Short: "Apply confident recommendations as the default watering interval",
	Long: `Apply confident recommendations as the default watering interval.

With a plant id the analysis is refreshed and applied when its confidence
reaches --min-confidence. Without one every active plant is considered.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := optionalPlantID(args)
		if err != nil {
			return err
		}
		minConf, _ := cmd.Flags().GetFloat64("min-confidence")
		if minConf > 1 {
			return fmt.Errorf("--min-confidence must be at most 1")
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if id == uuid.Nil {
				res, err := a.Services.Recommendations.AutoApply(ctx)
				if err != nil {
					return err
				}
				printSuccess(cmd.ErrOrStderr(), "Applied %d of %d recommendations", res.Succeeded, res.Total)
				return printJSON(cmd.OutOrStdout(), res)
			}
			if minConf < 0 {
				minConf = a.Cfg.Thresholds.ApplyMinConfidence
			}
			res, err := a.Services.Recommendations.Apply(ctx, id, minConf)
			if err != nil {
				return err
			}
			if res.Applied {
				printSuccess(cmd.ErrOrStderr(), "Interval %d -> %d days", res.OldDays, res.NewDays)
			} else {
				printWarning(cmd.ErrOrStderr(), "Not applied: %s", res.Reason)
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

func init() {
	applyCmd.Flags().Float64("min-confidence", -1, "confidence required to apply (default from thresholds)")
}

// --- reminders ---

var refreshRemindersCmd = &cobra.Command{
	Use:   "refresh-reminders [plant-id]",
	Short: "Bring open reminders in line with the current analysis",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := optionalPlantID(args)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			now := time.Now()
			if id == uuid.Nil {
				res, err := a.Services.Reminders.RefreshAll(ctx, now)
				if err != nil {
					return err
				}
				printSuccess(cmd.ErrOrStderr(), "Refreshed %d of %d plants", res.Succeeded, res.Total)
				return printJSON(cmd.OutOrStdout(), res)
			}
			rem, outcome, err := a.Services.Reminders.RefreshReminder(ctx, id, now)
			if err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "Reminder %s", outcome)
			return printJSON(cmd.OutOrStdout(), rem)
		})
	},
}

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List reminders that should be notified now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			rows, err := a.Services.Reminders.DueForNotification(ctx, time.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"reminders": rows, "count": len(rows)})
		})
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup-reminders",
	Short: "Delete completed reminders past the retention period",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Services.Reminders.CleanupDone(ctx, time.Now())
			if err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "Deleted %d reminders", n)
			return nil
		})
	},
}

// --- jobs ---

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <job-type>",
	Short: "Queue a background job for the worker",
	Long: `Queue a background job for the worker.

Examples:
  bloomlyctl enqueue retrain_all
  bloomlyctl enqueue reminders_refresh --plant 6a1f3c2e-7d1b-4c55-9a3e-2b8f7e0c1d44
  bloomlyctl enqueue reminders_cleanup --payload '{"note":"manual"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := services.EnqueueRequest{JobType: strings.TrimSpace(args[0])}
		if raw, _ := cmd.Flags().GetString("plant"); raw != "" {
			id, err := parsePlantID(raw)
			if err != nil {
				return err
			}
			req.EntityType = "plant"
			req.EntityID = &id
		}
		if raw, _ := cmd.Flags().GetString("payload"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Payload); err != nil {
				return fmt.Errorf("invalid --payload: %w", err)
			}
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			job, err := a.Services.Jobs.Enqueue(ctx, req)
			if err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "Queued %s job %s", job.JobType, job.ID)
			return printJSON(cmd.OutOrStdout(), job)
		})
	},
}

func init() {
	enqueueCmd.Flags().String("plant", "", "plant id the job applies to")
	enqueueCmd.Flags().String("payload", "", "JSON object passed to the job handler")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream reminder and job events from the event bus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		channels, err := watchChannels(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if a.Clients.Bus == nil {
				return fmt.Errorf("event bus disabled; set REDIS_ADDR")
			}
			out := cmd.OutOrStdout()
			for _, ch := range channels {
				channel := ch
				err := a.Clients.Bus.Subscribe(ctx, channel, func(env redis.Envelope) {
					fmt.Fprintf(out, "%s %s %s %s\n", env.At.Format(time.RFC3339), channel, env.Event, string(env.Data))
				})
				if err != nil {
					return err
				}
			}
			printSuccess(cmd.ErrOrStderr(), "Watching %s", strings.Join(channels, ", "))
			<-ctx.Done()
			return nil
		})
	},
}

func watchChannels(cmd *cobra.Command) ([]string, error) {
	which, _ := cmd.Flags().GetString("channel")
	switch which {
	case "all":
		return []string{redis.ChannelReminders, redis.ChannelJobs}, nil
	case "reminders":
		return []string{redis.ChannelReminders}, nil
	case "jobs":
		return []string{redis.ChannelJobs}, nil
	default:
		return nil, fmt.Errorf("unknown --channel %q (want all, reminders or jobs)", which)
	}
}

func init() {
	watchCmd.Flags().String("channel", "all", "which events to stream: all, reminders or jobs")
}
