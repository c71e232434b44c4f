package httpapi

import (
	"context"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/events"
	"jobcrawl-engine/internal/logger"
	"jobcrawl-engine/internal/poll"
	"jobcrawl-engine/internal/store"
)

// Crawler is the part of poll.Runner the API drives.
type Crawler interface {
	Status() poll.Status
	Start(ctx context.Context, opts poll.Options) error
}

type Deps struct {
	Store   store.Store
	Hub     *events.Hub
	Crawler Crawler
	Log     logger.Interface

	Cfg         config.Config
	UserCfgPath string

	// BaseCtx outlives requests; crawls started over HTTP run under it.
	BaseCtx context.Context
}
