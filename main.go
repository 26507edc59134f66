package main

import (
	_ "github.com/openedx/forum/src/admintools"
	_ "github.com/openedx/forum/src/etl"
	_ "github.com/openedx/forum/src/migration"

	"github.com/openedx/forum/src/forumcmd"
)

func main() {
	forumcmd.Execute()
}
