package controllers

import (
	"github.com/kedesh/marketplace/app/repository"
	"github.com/kedesh/marketplace/internal/pkg/reconcile"
	"github.com/kedesh/marketplace/internal/pkg/scheduler"
)

// Deps carries the services the HTTP surface delegates to. It is built once
// at startup and installed via Setup; handlers never construct services.
type Deps struct {
	Store     repository.Store
	Engine    *reconcile.Engine
	Scheduler *scheduler.Scheduler
}

var deps Deps

// Setup installs the controller dependencies.
func Setup(d Deps) {
	deps = d
}
