//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/governor/internal/governor"
)

func InitializeRuntime(cfg governor.Config) (*governor.Runtime, func(), error) {
	wire.Build(governor.ProviderSet)
	return nil, nil, nil
}
