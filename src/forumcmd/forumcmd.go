package forumcmd

import (
	"context"

	"github.com/openedx/forum/src/config"
	"github.com/openedx/forum/src/db"
	"github.com/openedx/forum/src/forumdata"
	"github.com/openedx/forum/src/logging"
	"github.com/openedx/forum/src/mongostore"
	"github.com/openedx/forum/src/oops"
	"github.com/openedx/forum/src/pgstore"
	"github.com/spf13/cobra"
)

// ForumCommand is the root of the forum CLI. Subcommands register
// themselves from their packages' init functions.
var ForumCommand = &cobra.Command{
	Use:   "forum",
	Short: "Open edX discussion forum backend",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	err := ForumCommand.Execute()
	if err != nil {
		logging.Fatal().Err(err).Msg("command failed")
	}
}

// OpenStore connects to the named storage engine using the process config.
// The returned func releases the connection.
func OpenStore(ctx context.Context, engine string) (forumdata.Store, func(), error) {
	switch engine {
	case "postgres":
		conn := db.NewConnPool()
		return pgstore.NewStore(conn), conn.Close, nil
	case "mongo":
		store, err := mongostore.Connect(ctx, config.Config.Mongo)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close(ctx) }, nil
	default:
		return nil, nil, oops.New(nil, "unknown storage engine %s", engine)
	}
}
