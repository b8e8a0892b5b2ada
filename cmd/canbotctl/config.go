package main

import (
	"encoding/json"
	"fmt"
	"os"

	"canbot/pkg/canbot"
)

// loadRunRequestFromConfig reads the same keys a run writes to config.json, so a
// previous run's config can be replayed.
func loadRunRequestFromConfig(path string) (canbot.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return canbot.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return canbot.RunRequest{}, err
	}

	var req canbot.RunRequest
	if v, ok := asInt(raw["grid_width"]); ok {
		req.GridWidth = v
	}
	if v, ok := asInt(raw["grid_height"]); ok {
		req.GridHeight = v
	}
	if v, ok := asFloat64(raw["fill_probability"]); ok {
		req.FillProbability = canbot.Float64(v)
	}
	if v, ok := asInt(raw["population_size"]); ok {
		req.Population = v
	}
	if v, ok := asInt(raw["mutation_events"]); ok {
		req.MutationEvents = canbot.Int(v)
	}
	if v, ok := asInt(raw["max_steps"]); ok {
		req.MaxSteps = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = canbot.Int(v)
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if rewards, ok := raw["rewards"].(map[string]any); ok {
		cfg := canbot.DefaultRewards()
		if v, ok := asFloat64(rewards["pick_success"]); ok {
			cfg.PickSuccess = v
		}
		if v, ok := asFloat64(rewards["pick_fail"]); ok {
			cfg.PickFail = v
		}
		if v, ok := asFloat64(rewards["wall_hit"]); ok {
			cfg.WallHit = v
		}
		req.Rewards = &cfg
	}
	return req, nil
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func overrideFromFlags(req *canbot.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "width":
			req.GridWidth = v.(int)
		case "height":
			req.GridHeight = v.(int)
		case "fill":
			req.FillProbability = canbot.Float64(v.(float64))
		case "pop":
			req.Population = v.(int)
		case "mutations":
			req.MutationEvents = canbot.Int(v.(int))
		case "steps":
			req.MaxSteps = v.(int)
		case "gens":
			req.Generations = canbot.Int(v.(int))
		case "seed":
			req.Seed = v.(int64)
		case "workers":
			req.Workers = v.(int)
		case "reward-pick", "reward-miss", "reward-wall":
			if req.Rewards == nil {
				cfg := canbot.DefaultRewards()
				req.Rewards = &cfg
			}
			switch name {
			case "reward-pick":
				req.Rewards.PickSuccess = v.(float64)
			case "reward-miss":
				req.Rewards.PickFail = v.(float64)
			default:
				req.Rewards.WallHit = v.(float64)
			}
		default:
			return fmt.Errorf("unsupported override flag: %s", name)
		}
	}
	return nil
}

func loadOrDefaultRunRequest(configPath string) (canbot.RunRequest, error) {
	if configPath == "" {
		return canbot.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return canbot.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}
