package app

import (
	"lms_backend/internal/config"
	"lms_backend/internal/service"
	"lms_backend/pkg/logger"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func TestReloadConfigNotifiesCallbacks(t *testing.T) {
	a := &App{Config: &config.Config{}}

	var got *config.Config
	a.RegisterConfigCallback(func(cfg *config.Config) {
		got = cfg
	})

	newCfg := &config.Config{}
	newCfg.Certificate.VerifyCacheSeconds = 60
	a.ReloadConfig(newCfg)

	assert.Same(t, newCfg, a.Config)
	assert.Same(t, newCfg, got)
}

func TestReloadConfigRefreshesCertificateService(t *testing.T) {
	oldCfg := &config.Config{}
	certs := service.NewCertificateService(nil, nil, nil, nil, nil, nil, oldCfg)

	a := &App{Config: oldCfg}
	a.RegisterConfigCallback(certs.ApplyConfig)

	newCfg := &config.Config{}
	newCfg.Certificate.VerifyCacheSeconds = 300
	a.ReloadConfig(newCfg)

	assert.Same(t, newCfg, certs.Cfg)
	assert.Equal(t, 300, certs.Cfg.Certificate.VerifyCacheSeconds)
}
