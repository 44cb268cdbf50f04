package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var embedded embed.FS

// Postgres миграции для основной базы
func Postgres() fs.FS {
	return sub("postgres")
}

// SQLite миграции для локального хранилища
func SQLite() fs.FS {
	return sub("sqlite")
}

func sub(dir string) fs.FS {
	fsys, err := fs.Sub(embedded, dir)
	if err != nil {
		panic("migrations: " + err.Error())
	}
	return fsys
}
