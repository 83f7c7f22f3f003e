// Package db opens the metadata database
package db

import (
	"bitwise74/image-api/model"
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func New() (*gorm.DB, error) {
	var dial gorm.Dialector

	switch viper.GetString("database.driver") {
	case "sqlite":
		dial = sqlite.Open(viper.GetString("database.dsn"))
	case "postgres":
		dial = postgres.Open(viper.GetString("database.dsn"))
	default:
		return nil, errors.New("invalid database driver provided")
	}

	db, err := gorm.Open(dial)
	if err != nil {
		return nil, fmt.Errorf("failed to open database, %w", err)
	}

	if viper.GetBool("database.migrate") {
		err = db.AutoMigrate(model.Image{})
		if err != nil {
			return nil, fmt.Errorf("failed to automigrate tables, %w", err)
		}
	}

	return db, nil
}
