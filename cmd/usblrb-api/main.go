package main

import (
	"fmt"

	"github.com/larsks/usblrb/internal/api"
	"github.com/larsks/usblrb/internal/cli"
	_ "github.com/larsks/usblrb/internal/logsetup"
)

type apiHandler struct{}

func (h *apiHandler) Start(config cli.Configurable) error {
	cfg, ok := config.(*api.Config)
	if !ok {
		return fmt.Errorf("invalid config type")
	}

	srv, err := api.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close() //nolint:errcheck

	return srv.Start()
}

func main() {
	cli.StandardMain(
		func() cli.Configurable { return api.NewConfig() },
		&apiHandler{},
	)
}
