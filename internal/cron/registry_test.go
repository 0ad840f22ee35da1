package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrder(t *testing.T) {
	registry, err := NewRegistry(&stubJob{name: "low-stock-alert"}, nil, &stubJob{name: "outbox-retention"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	names := registry.Names()
	if len(names) != 2 || names[0] != "low-stock-alert" || names[1] != "outbox-retention" {
		t.Fatalf("unexpected names %v", names)
	}
	jobs := registry.Jobs()
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	if _, err := NewRegistry(&stubJob{name: "a"}, &stubJob{name: "a"}); err == nil {
		t.Fatalf("expected duplicate name error")
	}
	var registry Registry
	if err := registry.Register(&stubJob{name: "b"}); err != nil {
		t.Fatalf("register on zero value: %v", err)
	}
}
