package handlers

import (
	"charchive/internal/catalog"
	"charchive/internal/maintenance"
)

type Handlers struct {
	store      *catalog.Store
	maintainer *maintenance.Maintainer
}

func New(store *catalog.Store, maintainer *maintenance.Maintainer) *Handlers {
	return &Handlers{
		store:      store,
		maintainer: maintainer,
	}
}
