package config

import (
	"fmt"

	"github.com/meridian-data/meridian/internal/metasrv/config"
)

func MetaStoreDsn() string {
	db := config.Config().Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.User, db.Password, db.DbName, db.SslMode)
}

const CompressDefinitions = config.CompressDefinitions
