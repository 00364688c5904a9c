package resolver

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// DescribeInstancesAPI is the slice of the EC2 client the resolver needs,
// extracted so tests can substitute a fake.
type DescribeInstancesAPI interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// EC2Resolver resolves instance ids to public addresses via DescribeInstances.
type EC2Resolver struct {
	api DescribeInstancesAPI
}

// NewEC2 builds a resolver for the given region using the ambient AWS
// credential chain (env, shared config, instance role).
func NewEC2(ctx context.Context, region string) (*EC2Resolver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &EC2Resolver{api: ec2.NewFromConfig(cfg)}, nil
}

// NewEC2WithAPI builds a resolver around an existing client. Used by tests.
func NewEC2WithAPI(api DescribeInstancesAPI) *EC2Resolver {
	return &EC2Resolver{api: api}
}

// Resolve returns the instance's public IP address, preferring the assigned
// public IP and falling back to the public DNS name.
func (r *EC2Resolver) Resolve(ctx context.Context, instanceID string) (string, error) {
	out, err := r.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return "", fmt.Errorf("describe instance %s: %w", instanceID, err)
	}

	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			if addr := aws.ToString(inst.PublicIpAddress); addr != "" {
				return addr, nil
			}
			if dns := aws.ToString(inst.PublicDnsName); dns != "" {
				return dns, nil
			}
			return "", fmt.Errorf("%w: %s", ErrNoPublicAddress, instanceID)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
}
