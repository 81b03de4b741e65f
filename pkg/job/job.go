// Package job implements the Job entity: a single container with its own
// command and resource requirements. A Run contains one or more Jobs.
package job

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyfleet/orchestrator/pkg/offer"
)

// Status is a Job's position in its state machine (spec.md §4.4).
type Status string

const (
	StatusSubmitted   Status = "SUBMITTED"
	StatusPending     Status = "PENDING"
	StatusProvisioning Status = "PROVISIONING"
	StatusPulling     Status = "PULLING"
	StatusRunning     Status = "RUNNING"
	StatusTerminating Status = "TERMINATING"
	StatusTerminated  Status = "TERMINATED"
	StatusAborted     Status = "ABORTED"
	StatusFailed      Status = "FAILED"
	StatusDone        Status = "DONE"
)

// Terminal reports whether a Job in this status owns no instance and will
// never transition again.
func (s Status) Terminal() bool {
	switch s {
	case StatusTerminated, StatusAborted, StatusFailed, StatusDone:
		return true
	default:
		return false
	}
}

// ErrorCode classifies why a Job ended up FAILED or TERMINATING without
// user intervention (spec.md §3).
type ErrorCode string

const (
	ErrorCodeNoCapacity            ErrorCode = "FAILED_TO_START_DUE_TO_NO_CAPACITY"
	ErrorCodeInstanceTerminated    ErrorCode = "INSTANCE_TERMINATED"
	ErrorCodeInterruptedNoCapacity ErrorCode = "INTERRUPTED_BY_NO_CAPACITY"
	ErrorCodeContainerExitedError  ErrorCode = "CONTAINER_EXITED_WITH_ERROR"
)

// PortMapping exposes a container port on the host/gateway.
type PortMapping struct {
	ContainerPort int `json:"container_port"`
	HostPort      int `json:"host_port,omitempty"`
}

// GatewayHint carries optional service-exposure configuration for a job.
type GatewayHint struct {
	GatewayName string `json:"gateway_name,omitempty"`
	Hostname    string `json:"hostname,omitempty"`
}

// Spec is the immutable configuration of a Job: image, commands, env, port
// mappings, requirements, and optional gateway hints.
type Spec struct {
	JobName      string            `json:"job_name"`
	Image        string            `json:"image"`
	Commands     []string          `json:"commands"`
	Env          map[string]string `json:"env,omitempty"`
	Ports        []PortMapping     `json:"ports,omitempty"`
	Requirements offer.Requirements `json:"requirements"`
	Gateway      *GatewayHint      `json:"gateway,omitempty"`
}

// ProvisioningData is the backend-reported launch info merged with the
// winning Offer, as produced by the Provisioner (C3) and persisted on the
// Job and its owning Instance.
type ProvisioningData struct {
	Backend      offer.BackendType `json:"backend"`
	InstanceType string            `json:"instance_type"`
	InstanceID   string            `json:"instance_id"`
	Hostname     string            `json:"hostname,omitempty"`
	Region       string            `json:"region"`
	Price        float64           `json:"price"`
	Username     string            `json:"username,omitempty"`
	SSHPort      int               `json:"ssh_port,omitempty"`
	Dockerized   bool              `json:"dockerized"`
	SSHProxy     string            `json:"ssh_proxy,omitempty"`
	BackendData  string            `json:"backend_data,omitempty"`
	PoolID       uuid.UUID         `json:"pool_id"`
}

// Job is a single container within a Run.
type Job struct {
	ID             uuid.UUID
	RunID          uuid.UUID
	JobNum         int
	SubmissionNum  int
	Spec           Spec
	Status         Status
	ErrorCode      *ErrorCode
	ProvisioningData *ProvisioningData
	InstanceID     *uuid.UUID
	LastProcessedAt *time.Time
	SubmittedAt    time.Time
}
