package admintools

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
	var engine string

	adminCommand := &cobra.Command{
		Use:   "admin",
		Short: "Miscellaneous admin commands",
	}
	adminCommand.PersistentFlags().StringVar(&engine, "engine", "postgres", "Storage engine (mongo or postgres)")
	forumcmd.ForumCommand.AddCommand(adminCommand)

	withStore := func(run func(ctx context.Context, store forumdata.Store)) {
		ctx := context.Background()
		store, closeStore, err := forumcmd.OpenStore(ctx, engine)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to open engine")
		}
		defer closeStore()
		run(ctx, store)
	}

	resyncStatsCommand := &cobra.Command{
		Use:   "resyncstats [course id]",
		Short: "Recompute user course stats from content",
		Run: func(cmd *cobra.Command, args []string) {
			withStore(func(ctx context.Context, store forumdata.Store) {
				courseIDs := args
				if len(courseIDs) == 0 {
					var err error
					courseIDs, err = store.ListCourseIDs(ctx)
					if err != nil {
						logging.Fatal().Err(err).Msg("failed to list courses")
					}
				}

				for _, courseID := range courseIDs {
					authors, numFailed, err := forumdata.RebuildCourseStats(ctx, store, courseID)
					if err != nil {
						logging.Fatal().Err(err).Str("course", courseID).Msg("failed to rebuild course stats")
					}
					fmt.Printf("%s: rebuilt stats for %d users", courseID, len(authors)-numFailed)
					if numFailed > 0 {
						fmt.Printf(" (%d failed)", numFailed)
					}
					fmt.Println()
				}
			})
		},
	}
	adminCommand.AddCommand(resyncStatsCommand)

	userStatsCommand := &cobra.Command{
		Use:   "userstats <user id> <course id>",
		Short: "Print one user's stats for a course",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a user id and a course id.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			withStore(func(ctx context.Context, store forumdata.Store) {
				stat, err := store.GetCourseStats(ctx, args[0], args[1])
				if err != nil {
					logging.Fatal().Err(err).Msg("failed to fetch stats")
				}
				fmt.Printf("User %s in course %s:\n", args[0], args[1])
				fmt.Printf("  Threads:        %d\n", stat.Threads)
				fmt.Printf("  Responses:      %d\n", stat.Responses)
				fmt.Printf("  Replies:        %d\n", stat.Replies)
				fmt.Printf("  Active flags:   %d\n", stat.ActiveFlags)
				fmt.Printf("  Inactive flags: %d\n", stat.InactiveFlags)
				if stat.LastActivityAt != nil {
					fmt.Printf("  Last activity:  %v\n", stat.LastActivityAt)
				}
			})
		},
	}
	adminCommand.AddCommand(userStatsCommand)

	courseStatsCommand := &cobra.Command{
		Use:   "coursestats <course id>",
		Short: "List the most active users in a course",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a course id.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			sortKey, _ := cmd.Flags().GetString("sort")
			sort, err := forumdata.ParseStatsSort(sortKey)
			if err != nil {
				fmt.Printf("ERROR: %v\n", err)
				os.Exit(1)
			}
			withStore(func(ctx context.Context, store forumdata.Store) {
				stats, total, err := forumdata.GetCourseStats(ctx, store, forumdata.CourseStatsQuery{
					CourseID: args[0],
					Sort:     sort,
				})
				if err != nil {
					logging.Fatal().Err(err).Msg("failed to fetch course stats")
				}
				fmt.Printf("%d users with activity in course %s:\n", total, args[0])
				for _, s := range stats {
					fmt.Printf("  %-30s threads=%d responses=%d replies=%d flags=%d/%d\n",
						s.Username, s.Threads, s.Responses, s.Replies,
						s.ActiveFlags, s.InactiveFlags,
					)
				}
			})
		},
	}
	courseStatsCommand.Flags().String("sort", "", "Sort order: default, recency, or flagged")
	adminCommand.AddCommand(courseStatsCommand)

	renameUserCommand := &cobra.Command{
		Use:   "renameuser <user id> <new username>",
		Short: "Change a user's username everywhere it appears",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a user id and a new username.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			withStore(func(ctx context.Context, store forumdata.Store) {
				err := forumdata.ChangeUsername(ctx, store, args[0], args[1])
				if err != nil {
					logging.Fatal().Err(err).Msg("failed to rename user")
				}
				fmt.Printf("User %s is now known as %s\n", args[0], args[1])
			})
		},
	}
	adminCommand.AddCommand(renameUserCommand)

	retireUserCommand := &cobra.Command{
		Use:   "retireuser <user id>",
		Short: "Scrub a user's identity and authored content",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a user id.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			withStore(func(ctx context.Context, store forumdata.Store) {
				err := forumdata.RetireUser(ctx, store, args[0])
				if err != nil {
					logging.Fatal().Err(err).Msg("failed to retire user")
				}
				fmt.Printf("User %s retired\n", args[0])
			})
		},
	}
	adminCommand.AddCommand(retireUserCommand)
}
