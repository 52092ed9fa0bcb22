package repository

import "log/slog"

// Repositories bundles every repository over one DB handle.
type Repositories struct {
	Tenants   TenantRepository
	Users     UserRepository
	Projects  ProjectRepository
	Tasks     TaskRepository
	Personnel PersonnelRepository
	Limits    ExposureLimitRepository
	Samples   SampleRepository
}

func NewRepositories(db *DB, logger *slog.Logger) *Repositories {
	return &Repositories{
		Tenants:   NewTenantRepository(db, logger),
		Users:     NewUserRepository(db, logger),
		Projects:  NewProjectRepository(db, logger),
		Tasks:     NewTaskRepository(db, logger),
		Personnel: NewPersonnelRepository(db, logger),
		Limits:    NewExposureLimitRepository(db, logger),
		Samples:   NewSampleRepository(db, logger),
	}
}
