package database

import "github.com/sitedesk-io/sitedesk/internal/config"

func testDBConfig(driver string) config.DatabaseConfig {
	port := 3306
	if driver == "postgres" {
		port = 5432
	}
	return config.DatabaseConfig{
		Driver:   driver,
		Host:     "db.local",
		Port:     port,
		Name:     "helpdesk",
		User:     "helpdesk",
		Password: "secret",
		SSLMode:  "disable",
	}
}
