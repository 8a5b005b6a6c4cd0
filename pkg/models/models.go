package models

// Service is a logical AWS service grouping that a resource type is
// classified into.
type Service string

// Logical service constants, one per output bucket.
const (
	ServiceEC2 Service = "ec2"
	ServiceIAM Service = "iam"
	ServiceRDS Service = "rds"
	ServiceS3  Service = "s3"
	ServiceVPC Service = "vpc"
)

// Services lists all logical services in their fixed output order
// (alphabetical). Every envelope carries exactly these keys.
var Services = []Service{ServiceEC2, ServiceIAM, ServiceRDS, ServiceS3, ServiceVPC}

// Mode distinguishes managed resources from data sources.
type Mode string

const (
	ModeResource Mode = "resource"
	ModeData     Mode = "data"
)

// Reason explains why a declaration or file was excluded from the
// classified output.
type Reason string

const (
	ReasonNonAWSProvider      Reason = "non_aws_provider"
	ReasonUnsupportedService  Reason = "unsupported_service"
	ReasonMalformedBlock      Reason = "malformed_block"
	ReasonNonAWSProviderAlias Reason = "non_aws_provider_alias"
	ReasonParseError          Reason = "parse_error"
)

// Record is the canonical output unit for a single classified declaration.
// Field order is the serialization order. Records are never mutated after
// construction.
type Record struct {
	Address       string         `json:"address"`
	Type          string         `json:"type"`
	Name          string         `json:"name"`
	Service       Service        `json:"service"`
	Mode          Mode           `json:"mode"`
	ProviderAlias *string        `json:"provider_alias"`
	DependsOn     []string       `json:"depends_on"`
	Count         any            `json:"count"`
	ForEach       any            `json:"for_each"`
	Attributes    map[string]any `json:"attributes"`
}

// IgnoredItem is the diagnostic emitted for a declaration or file that
// could not be classified. Kind is "resource", "data" or "file".
type IgnoredItem struct {
	Kind    string `json:"kind"`
	Type    string `json:"type,omitempty"`
	Name    string `json:"name,omitempty"`
	Path    string `json:"path,omitempty"`
	Reason  Reason `json:"reason"`
	Message string `json:"message,omitempty"`
}

// ServiceBucket holds the sorted records for one logical service.
type ServiceBucket struct {
	Resources   []Record `json:"resources"`
	DataSources []Record `json:"data_sources"`
}

// Envelope is the final output document. Services always contains every
// logical service key; Ignored is non-nil exactly when diagnostics were
// requested (and may point at an empty slice).
type Envelope struct {
	Version  string                     `json:"version"`
	Provider string                     `json:"provider"`
	Services map[Service]*ServiceBucket `json:"services"`
	Ignored  *[]IgnoredItem             `json:"ignored,omitempty"`
}
