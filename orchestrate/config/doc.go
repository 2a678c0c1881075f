// Package config holds the configuration of orchestration primitives.
//
// ChainConfig follows the same lifecycle as the other configuration types in
// this module: start from DefaultChainConfig, Merge decoded overrides, then
// hand the result to workflows.ProcessChain.
//
//	cfg := config.DefaultChainConfig()
//	cfg.Merge(&loaded)
//	result, err := workflows.ProcessChain(ctx, cfg, stages, initial, step, nil)
package config
