package main

import (
	"strings"
	"sync"

	"github.com/cvranjith/faster-whisper/internal/api"
	"github.com/cvranjith/faster-whisper/internal/config"
)

type commandContext struct {
	addrFlag   *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addrFlag, configFlag *string) *commandContext {
	return &commandContext{
		addrFlag:   addrFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// client resolves the daemon address from --addr or the configured api_bind
// and returns an HTTP client for it.
func (c *commandContext) client() (*api.Client, error) {
	addr := ""
	if c.addrFlag != nil {
		addr = strings.TrimSpace(*c.addrFlag)
	}
	if addr == "" {
		cfg, err := c.ensureConfig()
		if err != nil {
			return nil, err
		}
		addr = cfg.Paths.APIBind
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return api.NewClient(addr), nil
}
