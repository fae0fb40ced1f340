// Package invalidation defines model-rollout events that flush the
// prediction cache. Predictions are keyed only by input features, so a
// model deploy makes every cached entry stale at once.
package invalidation

import (
	"fmt"
	"strings"
	"time"
)

type Event struct {
	Version      int       `json:"version"`
	Op           string    `json:"op"`
	ModelVersion string    `json:"model_version,omitempty"`
	TS           time.Time `json:"ts"`
	Source       string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case "deploy":
		if strings.TrimSpace(e.ModelVersion) == "" {
			return fmt.Errorf("model_version is required for deploy")
		}
	case "flush":
	default:
		return fmt.Errorf("op must be deploy|flush")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}
