package etl

import (
	"context"
	"fmt"
	"os"

	"github.com/openedx/forum/src/forumcmd"
	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/logging"
	"github.com/spf13/cobra"
)

func init() {
	var sourceEngine, targetEngine string
	var batchSize int

	addEngineFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&sourceEngine, "source", "mongo", "Source storage engine (mongo or postgres)")
		cmd.Flags().StringVar(&targetEngine, "target", "postgres", "Target storage engine (mongo or postgres)")
		cmd.Flags().IntVar(&batchSize, "batch", DefaultBatchSize, "Source listing page size")
	}

	runJob := func(migrate func(context.Context, *Job) (*Report, error)) {
		ctx := context.Background()

		if sourceEngine == targetEngine {
			fmt.Println("Source and target engine must differ.")
			os.Exit(1)
		}

		source, closeSource, err := forumcmd.OpenStore(ctx, sourceEngine)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to open source engine")
		}
		defer closeSource()

		target, closeTarget, err := forumcmd.OpenStore(ctx, targetEngine)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to open target engine")
		}
		defer closeTarget()

		job := &Job{Source: source, Target: target, BatchSize: batchSize}
		report, err := migrate(ctx, job)
		if err != nil {
			logging.Fatal().Err(err).Msg("migration failed")
		}
		printReport(report)
	}

	migrateCourseCommand := &cobra.Command{
		Use:   "migrate-course <course id>",
		Short: "Copy one course's forum data between storage engines",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a course id.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			runJob(func(ctx context.Context, job *Job) (*Report, error) {
				return job.MigrateCourse(ctx, args[0])
			})
		},
	}
	addEngineFlags(migrateCourseCommand)

	migrateAllCommand := &cobra.Command{
		Use:   "migrate-all",
		Short: "Copy every course's forum data between storage engines",
		Run: func(cmd *cobra.Command, args []string) {
			runJob(func(ctx context.Context, job *Job) (*Report, error) {
				return job.MigrateAll(ctx)
			})
		},
	}
	addEngineFlags(migrateAllCommand)

	var deleteEngine string
	var dryRun, deleteAll bool
	deleteCourseCommand := &cobra.Command{
		Use:   "delete-course [course id]",
		Short: "Delete all forum data for a course, or for every course",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 && !deleteAll {
				fmt.Printf("You must provide a course id or pass --all.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			ctx := context.Background()

			store, closeStore, err := forumcmd.OpenStore(ctx, deleteEngine)
			if err != nil {
				logging.Fatal().Err(err).Msg("failed to open engine")
			}
			defer closeStore()

			courseIDs := args
			if deleteAll {
				courseIDs, err = store.ListCourseIDs(ctx)
				if err != nil {
					logging.Fatal().Err(err).Msg("failed to list courses")
				}
			}

			for _, courseID := range courseIDs {
				var counts *forumdata.CourseDataCounts
				if dryRun {
					counts, err = store.CountCourseData(ctx, courseID)
				} else {
					counts, err = store.DeleteCourseData(ctx, courseID)
				}
				if err != nil {
					logging.Fatal().Err(err).Str("course", courseID).Msg("failed to delete course data")
				}

				verb := "Deleted"
				if dryRun {
					verb = "Would delete"
				}
				fmt.Printf("%s for course %s:\n", verb, courseID)
				fmt.Printf("  Threads:       %d\n", counts.Threads)
				fmt.Printf("  Comments:      %d\n", counts.Comments)
				fmt.Printf("  Subscriptions: %d\n", counts.Subscriptions)
				fmt.Printf("  Course stats:  %d\n", counts.CourseStats)
				fmt.Printf("  Read states:   %d\n", counts.ReadStates)
			}
		},
	}
	deleteCourseCommand.Flags().StringVar(&deleteEngine, "engine", "postgres", "Storage engine (mongo or postgres)")
	deleteCourseCommand.Flags().BoolVar(&dryRun, "dry-run", false, "Report counts without deleting anything")
	deleteCourseCommand.Flags().BoolVar(&deleteAll, "all", false, "Delete forum data for every course")

	forumcmd.ForumCommand.AddCommand(migrateCourseCommand)
	forumcmd.ForumCommand.AddCommand(migrateAllCommand)
	forumcmd.ForumCommand.AddCommand(deleteCourseCommand)
}

func printReport(r *Report) {
	fmt.Println("Migrated:")
	fmt.Printf("  Users:            %d\n", r.Users)
	fmt.Printf("  Threads:          %d (%d skipped)\n", r.Threads, r.SkippedThreads)
	fmt.Printf("  Comments:         %d (%d skipped)\n", r.Comments, r.SkippedComments)
	fmt.Printf("  Votes:            %d (%d skipped)\n", r.Votes, r.SkippedVotes)
	fmt.Printf("  Active flags:     %d\n", r.ActiveFlags)
	fmt.Printf("  Historical flags: %d (%d flags skipped)\n", r.HistoricalFlags, r.SkippedFlags)
	fmt.Printf("  Subscriptions:    %d (%d skipped)\n", r.Subscriptions, r.SkippedSubscriptions)
	fmt.Printf("  Read states:      %d (%d skipped)\n", r.ReadStates, r.SkippedReadStates)
	fmt.Printf("  Stats rebuilt:    %d\n", r.StatsRebuilt)
}
