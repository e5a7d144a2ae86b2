package engine

import (
	"context"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectoinject/loglevel"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/internal/services/engine"
)

// NewContainer registers the engine service and the logger in a new
// dependency container with the given id. Container ids are process-wide and
// may only be registered once.
func NewContainer(id string, service *engine.Service, logger ectologger.Logger) (ectocontainer.DIContainer, error) {
	container, err := ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:                       id,
		AllowCaptiveDependencies: true,
		AllowMissingDependencies: false,
		LoggerConfig: &ectocontainer.DIContainerLoggerConfig{
			Prefix:   "ectoinject",
			LogLevel: loglevel.WARN,
			Enabled:  true,
			LogFunc: func(ctx context.Context, level, msg string) {
				entry := logger.WithContext(ctx).WithField("container", id)
				if level == loglevel.WARN {
					entry.Warn(msg)
					return
				}
				entry.Debug(msg)
			},
		},
	})
	if err != nil {
		return nil, err
	}

	if err := ectoinject.RegisterInstance[*engine.Service](container, service); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return nil, err
	}

	return container, nil
}
