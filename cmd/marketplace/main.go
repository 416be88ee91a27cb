package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/kedesh/marketplace/app/controllers"
	"github.com/kedesh/marketplace/app/repository"
	"github.com/kedesh/marketplace/internal/pkg/cache"
	"github.com/kedesh/marketplace/internal/pkg/database"
	"github.com/kedesh/marketplace/internal/pkg/env"
	"github.com/kedesh/marketplace/internal/pkg/gateway"
	"github.com/kedesh/marketplace/internal/pkg/listing"
	"github.com/kedesh/marketplace/internal/pkg/notify"
	"github.com/kedesh/marketplace/internal/pkg/reconcile"
	"github.com/kedesh/marketplace/internal/pkg/router"
	"github.com/kedesh/marketplace/internal/pkg/scheduler"
	"github.com/kedesh/marketplace/internal/pkg/subscription"
)

func main() {
	app, sched := NewApplication()
	sched.Start()
	defer sched.Stop()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, *scheduler.Scheduler) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	factory := repository.NewFactory(database.GetDB())
	repository.SetGlobalFactory(factory)
	store := factory.GetStore()

	// Gateway credentials live in one explicit config struct, built here and
	// passed by reference; nothing reads them from ambient state later.
	gw := gateway.NewClient(gateway.ConfigFromEnv())

	listings := listing.NewService()
	subs := subscription.NewService()
	dispatcher := notify.NewQueueDispatcher(cache.GetClient())
	engine := reconcile.NewEngine(store, gw, listings, subs, dispatcher)

	sched := scheduler.New()
	registerJobs(sched, store, subs, dispatcher, engine)

	controllers.Setup(controllers.Deps{
		Store:     store,
		Engine:    engine,
		Scheduler: sched,
	})

	app := fiber.New(fiber.Config{
		AppName:      "marketplace-core",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app)

	return app, sched
}

func registerJobs(sched *scheduler.Scheduler, store repository.Store, subs *subscription.Service, dispatcher notify.Dispatcher, engine *reconcile.Engine) {
	jobs := []struct {
		spec string
		job  scheduler.Job
	}{
		// Expiry runs before enrollment, but correctness does not depend on
		// the ordering: the enroll job's insert-if-absent guard does.
		{env.GetEnv("JOB_EXPIRE_ACCOUNTS_CRON", "0 0 * * *"), &scheduler.ExpireAccountsJob{
			Store:        store,
			Subs:         subs,
			Dispatcher:   dispatcher,
			ReenrollFree: env.GetEnv("JOB_EXPIRE_REENROLL_FREE", "true") == "true",
		}},
		{env.GetEnv("JOB_AUTO_ENROLL_CRON", "30 0 * * *"), &scheduler.AutoEnrollJob{
			Store: store,
			Subs:  subs,
		}},
		{env.GetEnv("JOB_ACTIVATE_LISTINGS_CRON", "0 1 * * *"), &scheduler.ActivateListingsJob{
			Store: store,
		}},
		{env.GetEnv("JOB_DEACTIVATE_LISTINGS_CRON", "15 1 * * *"), &scheduler.DeactivateListingsJob{
			Store: store,
		}},
		{env.GetEnv("JOB_PURGE_PAYMENTS_CRON", "0 2 * * *"), &scheduler.PurgeStalePaymentsJob{
			Purger: engine,
			MaxAge: 24 * time.Hour,
		}},
	}

	for _, entry := range jobs {
		if err := sched.Register(entry.spec, entry.job); err != nil {
			log.Fatalf("failed to register job: %v", err)
		}
	}
}
