package main

import (
	"github.com/google/wire"
	"github.com/sabicash/sabicash/store/db"
	"github.com/sabicash/sabicash/store/property"
	"github.com/sabicash/sabicash/store/session"
	"github.com/spf13/viper"
	"github.com/tsenart/nap"
)

var storeSet = wire.NewSet(
	provideDriver,
	provideDB,
	property.New,
	session.New,
)

func provideDriver(v *viper.Viper) db.Driver {
	v.SetDefault("db.driver", string(db.DriverSqlite))
	return db.Driver(v.GetString("db.driver"))
}

func provideDB(v *viper.Viper, driver db.Driver) (*nap.DB, func(), error) {
	v.SetDefault("db.dsn", "sabicash.db")

	conn, err := db.Open(driver, v.GetString("db.dsn"))
	if err != nil {
		return nil, nil, err
	}

	return conn, func() { _ = conn.Close() }, nil
}
