package repository

import "database/sql"

// Repository содержит все репозитории
type Repository struct {
	User     *UserRepository
	Catalog  *CatalogRepository
	Training *TrainingRepository
}

// New создаёт новый экземпляр Repository
func New(db *sql.DB) *Repository {
	return &Repository{
		User:     NewUserRepository(db),
		Catalog:  NewCatalogRepository(db),
		Training: NewTrainingRepository(db),
	}
}
