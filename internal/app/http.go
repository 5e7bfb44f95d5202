package app

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Dantescur/msfback/internal/catalog"
	"github.com/Dantescur/msfback/internal/config"
	"github.com/Dantescur/msfback/internal/middleware"
	"github.com/Dantescur/msfback/internal/session"
	"github.com/Dantescur/msfback/internal/wizard"
	"github.com/Dantescur/msfback/internal/wizard/handler"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, nil, err
	}

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	store := session.NewStore(infra.KV)

	engine := wizard.NewEngine(store, cat, infra.Ledger,
		wizard.WithRetryPolicy(wizard.RetryPolicy{
			Attempts:  cfg.RetryAttempts,
			BaseDelay: cfg.RetryBaseDelay,
		}),
	)

	wizardHandler := handler.NewHandler(engine, cat, store, session.CookieOptions{
		Secure: cfg.CookieSecure,
	})

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	wizardHandler.RegisterRoutes(router)

	return router, infra.Close, nil
}
