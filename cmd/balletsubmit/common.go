package main

import (
	"pkt.systems/balletsubmit/client"
	"pkt.systems/balletsubmit/internal/appconfig"
)

func loadClient(cfgPath string) (appconfig.Config, *client.Client, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return appconfig.Config{}, nil, err
	}
	c, err := client.New(cfg.EndpointConfig(), client.WithTimeout(cfg.RequestTimeout()))
	if err != nil {
		return appconfig.Config{}, nil, err
	}
	return cfg, c, nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
