package models

// All lists every persisted model in dependency order for migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserFollow{},
		&Post{},
		&PostWatch{},
		&Comment{},
		&PostContributingComment{},
		&MysteryObject{},
		&MediaFile{},
		&Vote{},
		&Notification{},
		&Report{},
		&ActivityLog{},
	}
}
