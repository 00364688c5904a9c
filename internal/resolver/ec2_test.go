package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// fakeEC2 implements DescribeInstancesAPI with a canned response or error.
type fakeEC2 struct {
	out *ec2.DescribeInstancesOutput
	err error
}

func (f fakeEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	return f.out, f.err
}

func instancesOutput(instances ...types.Instance) *ec2.DescribeInstancesOutput {
	return &ec2.DescribeInstancesOutput{
		Reservations: []types.Reservation{{Instances: instances}},
	}
}

func TestResolvePublicIP(t *testing.T) {
	r := NewEC2WithAPI(fakeEC2{out: instancesOutput(types.Instance{
		InstanceId:      aws.String("i-0abc"),
		PublicIpAddress: aws.String("198.51.100.7"),
	})})
	addr, err := r.Resolve(context.Background(), "i-0abc")
	if err != nil {
		t.Fatal(err)
	}
	if addr != "198.51.100.7" {
		t.Fatalf("unexpected address: %s", addr)
	}
}

func TestResolveFallsBackToPublicDNS(t *testing.T) {
	r := NewEC2WithAPI(fakeEC2{out: instancesOutput(types.Instance{
		InstanceId:    aws.String("i-0abc"),
		PublicDnsName: aws.String("ec2-198-51-100-7.eu-west-1.compute.amazonaws.com"),
	})})
	addr, err := r.Resolve(context.Background(), "i-0abc")
	if err != nil {
		t.Fatal(err)
	}
	if addr != "ec2-198-51-100-7.eu-west-1.compute.amazonaws.com" {
		t.Fatalf("unexpected address: %s", addr)
	}
}

func TestResolveNoPublicAddress(t *testing.T) {
	// Instance exists (e.g. private-subnet only) but nothing is reachable.
	r := NewEC2WithAPI(fakeEC2{out: instancesOutput(types.Instance{
		InstanceId: aws.String("i-0abc"),
	})})
	_, err := r.Resolve(context.Background(), "i-0abc")
	if !errors.Is(err, ErrNoPublicAddress) {
		t.Fatalf("expected ErrNoPublicAddress, got %v", err)
	}
}

func TestResolveInstanceNotFound(t *testing.T) {
	r := NewEC2WithAPI(fakeEC2{out: &ec2.DescribeInstancesOutput{}})
	_, err := r.Resolve(context.Background(), "i-missing")
	if !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("expected ErrInstanceNotFound, got %v", err)
	}
}

func TestResolveServiceError(t *testing.T) {
	apiErr := errors.New("api error: RequestExpired")
	r := NewEC2WithAPI(fakeEC2{err: apiErr})
	_, err := r.Resolve(context.Background(), "i-0abc")
	if !errors.Is(err, apiErr) {
		t.Fatalf("expected wrapped service error, got %v", err)
	}
}
