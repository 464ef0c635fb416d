package sqlite

import (
	"database/sql"
	"embed"
	"fmt"

	agsqlite "github.com/agalitsyn/sqlite"

	"github.com/agalitsyn/taskboard/internal/realtime"
)

//go:embed *.sql
var migrations embed.FS

// Open connects to the database file and brings the schema up to date.
func Open(dbPath string) (*sql.DB, error) {
	db, err := agsqlite.Connect(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	if err := agsqlite.MigrateUp(db, migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not apply migrations: %w", err)
	}

	return db, nil
}

// notifier pushes row change events to the hub after a successful write.
// A nil hub disables notifications, which keeps storages usable standalone.
type notifier struct {
	hub *realtime.Hub
}

func (n notifier) publish(typ realtime.EventType, table string, payload any) {
	if n.hub == nil {
		return
	}
	ev, err := realtime.NewEvent(typ, table, payload)
	if err != nil {
		return
	}
	n.hub.Publish(ev)
}
