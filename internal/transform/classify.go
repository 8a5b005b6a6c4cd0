package transform

import (
	"strings"

	"github.com/tfcanon/tfcanon/pkg/models"
)

// Classification tables. These are fixed at build time and never mutated:
// two services match on a single prefix, rds matches on two, and vpc/ec2
// are explicit membership sets (their type names share no usable prefix).
const (
	awsPrefix = "aws_"
	iamPrefix = "aws_iam_"
	s3Prefix  = "aws_s3_"
)

var rdsPrefixes = []string{"aws_rds_", "aws_db_"}

var vpcTypes = map[string]struct{}{
	"aws_vpc":                             {},
	"aws_vpc_dhcp_options":                {},
	"aws_vpc_dhcp_options_association":    {},
	"aws_subnet":                          {},
	"aws_route_table":                     {},
	"aws_route":                           {},
	"aws_main_route_table_association":    {},
	"aws_route_table_association":         {},
	"aws_network_acl":                     {},
	"aws_network_acl_rule":                {},
	"aws_internet_gateway":                {},
	"aws_nat_gateway":                     {},
	"aws_eip_association":                 {},
	"aws_vpc_endpoint":                    {},
	"aws_vpc_endpoint_service":            {},
	"aws_vpc_peering_connection":          {},
	"aws_vpc_peering_connection_accepter": {},
	"aws_flow_log":                        {},
	"aws_network_interface":               {},
	"aws_network_interface_sg_attachment": {},
}

var ec2Types = map[string]struct{}{
	"aws_instance":                          {},
	"aws_ami":                               {},
	"aws_ami_copy":                          {},
	"aws_ami_from_instance":                 {},
	"aws_ebs_volume":                        {},
	"aws_ebs_snapshot":                      {},
	"aws_volume_attachment":                 {},
	"aws_snapshot_create_volume_permission": {},
	"aws_key_pair":                          {},
	"aws_launch_template":                   {},
	"aws_placement_group":                   {},
	"aws_spot_fleet_request":                {},
	"aws_eip":                               {},
}

// ServiceForType maps a resource/data type name to its logical service.
// The boolean is false for in-namespace types with no known service.
func ServiceForType(t string) (models.Service, bool) {
	if strings.HasPrefix(t, iamPrefix) {
		return models.ServiceIAM, true
	}
	if strings.HasPrefix(t, s3Prefix) {
		return models.ServiceS3, true
	}
	for _, p := range rdsPrefixes {
		if strings.HasPrefix(t, p) {
			return models.ServiceRDS, true
		}
	}
	if _, ok := vpcTypes[t]; ok {
		return models.ServiceVPC, true
	}
	if _, ok := ec2Types[t]; ok {
		return models.ServiceEC2, true
	}
	return "", false
}

// InAWSNamespace reports whether a type name is scoped to the AWS provider.
func InAWSNamespace(t string) bool {
	return strings.HasPrefix(t, awsPrefix)
}

// SupportedTypes returns every explicitly enumerated type name (prefix-matched
// families are open-ended and not listed).
func SupportedTypes() []string {
	out := make([]string, 0, len(vpcTypes)+len(ec2Types))
	for t := range vpcTypes {
		out = append(out, t)
	}
	for t := range ec2Types {
		out = append(out, t)
	}
	return out
}
