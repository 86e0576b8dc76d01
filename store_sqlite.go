//go:build cgo

package docjournal

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/document/sqldoc"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

func init() {
	openers["sqlite"] = openSQLite
}

func openSQLite(
	ctx context.Context,
	u *url.URL,
	database, replica string,
) (document.Store, error) {
	if u.Path == "" {
		return nil, fmt.Errorf("invalid server endpoint %q: the path is empty", u)
	}

	var options []sqldoc.Option
	if replica != "" {
		options = append(options, sqldoc.WithReplicaID(replica))
	}

	return sqldoc.Open(ctx, "sqlite3", u.Path, database, options...)
}
