package run

import (
	"encoding/json"
	"fmt"

	"github.com/skyfleet/orchestrator/internal/jsonstrict"
)

// ConfigurationType discriminates the Configuration union on its "type" tag.
type ConfigurationType string

const (
	ConfigurationDevEnvironment ConfigurationType = "dev-environment"
	ConfigurationTask           ConfigurationType = "task"
	ConfigurationService        ConfigurationType = "service"
)

// Configuration is the discriminated union of run configuration kinds
// (spec.md §4.1). Concrete variants implement it as a marker; the actual
// type is recovered by UnmarshalJSON switching on the "type" field.
type Configuration interface {
	configurationType() ConfigurationType
}

// DevEnvironmentConfiguration launches a long-lived interactive container
// (ssh/ide access only, no fixed command).
type DevEnvironmentConfiguration struct {
	IDE string `json:"ide,omitempty"`
}

func (DevEnvironmentConfiguration) configurationType() ConfigurationType {
	return ConfigurationDevEnvironment
}

// TaskConfiguration launches one or more jobs running a fixed command to
// completion.
type TaskConfiguration struct {
	Commands []string `json:"commands"`
	Nodes    int      `json:"nodes,omitempty"`
}

func (TaskConfiguration) configurationType() ConfigurationType {
	return ConfigurationTask
}

// ServiceConfiguration launches one or more jobs behind a gateway, one per
// replica (minimum one). A failed service job is not restarted; Replicas
// only sets how many jobs are submitted.
type ServiceConfiguration struct {
	Commands []string `json:"commands"`
	Port     int      `json:"port"`
	Replicas int      `json:"replicas,omitempty"`
}

func (ServiceConfiguration) configurationType() ConfigurationType {
	return ConfigurationService
}

// configurationEnvelope is the wire shape Configuration round-trips through:
// a type tag plus the raw variant payload, matching the other self-describing
// JSON blobs this repository stores (spec.md §9).
type configurationEnvelope struct {
	Type ConfigurationType `json:"type"`
}

// UnmarshalConfiguration decodes a Configuration union value, rejecting
// unknown fields within the resolved variant and rejecting unknown "type"
// tags outright.
func UnmarshalConfiguration(raw []byte) (Configuration, error) {
	var env configurationEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding configuration envelope: %w", err)
	}
	switch env.Type {
	case ConfigurationDevEnvironment:
		var c DevEnvironmentConfiguration
		if err := jsonstrict.Unmarshal(raw, &taggedDevEnvironment{&c}); err != nil {
			return nil, fmt.Errorf("decoding dev-environment configuration: %w", err)
		}
		return c, nil
	case ConfigurationTask:
		var c TaskConfiguration
		if err := jsonstrict.Unmarshal(raw, &taggedTask{&c}); err != nil {
			return nil, fmt.Errorf("decoding task configuration: %w", err)
		}
		return c, nil
	case ConfigurationService:
		var c ServiceConfiguration
		if err := jsonstrict.Unmarshal(raw, &taggedService{&c}); err != nil {
			return nil, fmt.Errorf("decoding service configuration: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown configuration type %q", env.Type)
	}
}

// taggedX embeds the variant alongside its "type" field so DisallowUnknownFields
// sees the tag as accounted for instead of rejecting it as unknown.
type taggedDevEnvironment struct {
	*DevEnvironmentConfiguration
	Type ConfigurationType `json:"type"`
}

type taggedTask struct {
	*TaskConfiguration
	Type ConfigurationType `json:"type"`
}

type taggedService struct {
	*ServiceConfiguration
	Type ConfigurationType `json:"type"`
}

// MarshalConfiguration re-attaches the "type" tag so the stored JSON blob is
// self-describing for the next UnmarshalConfiguration call.
func MarshalConfiguration(c Configuration) ([]byte, error) {
	switch v := c.(type) {
	case DevEnvironmentConfiguration:
		return json.Marshal(taggedDevEnvironment{&v, ConfigurationDevEnvironment})
	case TaskConfiguration:
		return json.Marshal(taggedTask{&v, ConfigurationTask})
	case ServiceConfiguration:
		return json.Marshal(taggedService{&v, ConfigurationService})
	default:
		return nil, fmt.Errorf("unknown configuration value %T", c)
	}
}
