package sshexec

import (
	"reflect"
	"testing"

	"github.com/xenitz/cloudsocks/internal/model"
)

func TestBuildShellCommandGCP(t *testing.T) {
	req := model.TunnelRequest{
		Provider: model.ProviderGCP,
		Project:  "acme-prod",
		Zone:     "europe-west1-b",
		Instance: "bastion",
	}
	bin, args := BuildShellCommand(req, "")
	if bin != "gcloud" {
		t.Fatalf("bin = %s, want gcloud", bin)
	}
	want := []string{"compute", "ssh", "--project=acme-prod", "--zone=europe-west1-b", "bastion"}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
}

func TestBuildShellCommandAWS(t *testing.T) {
	req := model.TunnelRequest{
		Provider: model.ProviderAWS,
		User:     "ec2-user",
		KeyFile:  "/home/u/.ssh/key.pem",
	}
	bin, args := BuildShellCommand(req, "203.0.113.10")
	if bin != "ssh" {
		t.Fatalf("bin = %s, want ssh", bin)
	}
	want := []string{"-i", "/home/u/.ssh/key.pem", "ec2-user@203.0.113.10"}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
}

func TestBuildShellCommandAWSDirectHost(t *testing.T) {
	req := model.TunnelRequest{
		Provider: model.ProviderAWS,
		User:     "admin",
		Host:     "bastion.example.com",
	}
	_, args := BuildShellCommand(req, "203.0.113.10")
	want := []string{"admin@bastion.example.com"}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
}
