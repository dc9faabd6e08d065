package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tubekeeper/internal/dbx"
	"github.com/dmitrijs2005/tubekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/tubekeeper/internal/server/repositories/channels"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Channels(db dbx.DBTX) channels.Repository
}
