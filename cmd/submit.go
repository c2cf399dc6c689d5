package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/paperglass/paperglass/config"
	"github.com/paperglass/paperglass/pkg/queues"
)

// NewSubmitCommand enqueues documents for the worker pool.
func NewSubmitCommand() *cobra.Command {
	var (
		priority int
		batchID  string
	)

	cmd := &cobra.Command{
		Use:   "submit <file.pdf> [file.pdf ...]",
		Short: "Enqueue PDF files for background processing",
		Long: `Push documents onto the Redis document queue. Paths are resolved to
absolute paths, so the workers must share the filesystem.

Examples:
  paperglass submit invoice.pdf
  paperglass submit --priority 2 urgent.pdf
  paperglass submit --batch month-end ./invoices/*.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := buildLogger(cmd, cfg)

			client := newRedisClient(cfg.Redis)
			defer client.Close()
			if err := client.Ping(cmd.Context()).Err(); err != nil {
				return fmt.Errorf("redis at %s: %w", cfg.Redis.Addr, err)
			}

			queue := queues.NewRedisQueue(client, queues.DefaultQueueConfig(cfg.Redis.DocumentQueue), logger)
			defer queue.Close()

			if batchID == "" {
				batchID = uuid.New().String()
			}

			msgs := make([]queues.Message, 0, len(args))
			for _, path := range args {
				abs, err := filepath.Abs(path)
				if err != nil {
					return err
				}
				if _, err := os.Stat(abs); err != nil {
					return fmt.Errorf("document %s: %w", path, err)
				}
				msgs = append(msgs, &queues.DocumentMessage{
					DocumentID:  uuid.New().String(),
					Path:        abs,
					Filename:    filepath.Base(abs),
					ContentType: "application/pdf",
					Priority:    queues.Priority(priority),
					SubmittedAt: time.Now().UTC(),
					BatchID:     batchID,
				})
			}

			if err := queue.EnqueueBatch(msgs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %d documents (batch %s)\n", len(msgs), batchID)
			return nil
		},
	}

	cmd.Flags().IntVar(&priority, "priority", int(queues.PriorityNormal), "queue priority (0=low 1=normal 2=high)")
	cmd.Flags().StringVar(&batchID, "batch", "", "batch id (generated when empty)")
	return cmd
}

func newRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
