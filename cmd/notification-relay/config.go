package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/diwise/service-chassis/pkg/infrastructure/env"
)

type FlagType int
type FlagMap map[FlagType]string

const (
	listenAddress FlagType = iota
	servicePort

	configPath
	opaPath

	serviceEndpoint
	serviceAPIKey

	debugEnabled
	logFormat
)

type AppConfig struct {
	relayConfig io.ReadCloser
	opaConfig   io.ReadCloser
}

func (cfg *AppConfig) Close() {
	for _, rc := range []io.ReadCloser{cfg.relayConfig, cfg.opaConfig} {
		if rc != nil {
			rc.Close()
		}
	}
}

func defaultFlags() FlagMap {
	return FlagMap{
		listenAddress: "",
		servicePort:   "8080",

		configPath: "/opt/diwise/config/relay.yaml",
		opaPath:    "/opt/diwise/config/authz.rego",

		serviceEndpoint: "http://notification-service/api/v1",

		debugEnabled: "false",
		logFormat:    "json",
	}
}

// parseExternalConfig reads settings from the environment first, then lets
// command line flags override them.
func parseExternalConfig(ctx context.Context, flags FlagMap) FlagMap {

	flags[servicePort] = env.GetVariableOrDefault(ctx, "SERVICE_PORT", flags[servicePort])
	flags[configPath] = env.GetVariableOrDefault(ctx, "RELAY_CONFIG_PATH", flags[configPath])
	flags[opaPath] = env.GetVariableOrDefault(ctx, "POLICY_PATH", flags[opaPath])
	flags[serviceEndpoint] = env.GetVariableOrDefault(ctx, "NOTIFICATION_SERVICE_ENDPOINT", flags[serviceEndpoint])
	flags[serviceAPIKey] = env.GetVariableOrDefault(ctx, "NOTIFICATION_SERVICE_API_KEY", flags[serviceAPIKey])
	flags[debugEnabled] = env.GetVariableOrDefault(ctx, "DEBUG", flags[debugEnabled])

	apply := func(f FlagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	flag.Func("config", "relay configuration file", apply(configPath))
	flag.Func("policies", "authorization policy file", apply(opaPath))
	flag.Func("port", "port to listen for connections on", apply(servicePort))
	flag.Parse()

	return flags
}

func openConfigFiles(flags FlagMap) (*AppConfig, error) {
	relayConfig, err := os.Open(flags[configPath])
	if err != nil {
		return nil, err
	}

	opaConfig, err := os.Open(flags[opaPath])
	if err != nil {
		relayConfig.Close()
		return nil, err
	}

	return &AppConfig{
		relayConfig: relayConfig,
		opaConfig:   opaConfig,
	}, nil
}
