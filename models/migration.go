package models

import (
	"log"

	"github.com/dragontuck/unionhall-compliance-sub001/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Mode{}, &Employer{},
		&RawHire{},
		&Run{}, &Report{}, &ReportDetail{},
		&Note{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
