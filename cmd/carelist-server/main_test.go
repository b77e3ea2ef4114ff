package main

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/carelist/carelist/internal/config"
	"github.com/carelist/carelist/internal/domain/worklist"
	"github.com/carelist/carelist/internal/platform/fhir"
)

func TestBuildEngine_MemorySeeded(t *testing.T) {
	cfg := &config.Config{
		EngineMode:   "memory",
		SeedOnStart:  true,
		SeedPatients: 10,
		SeedValue:    3,
	}

	ctx := context.Background()
	engine, pool, err := buildEngine(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool != nil {
		t.Error("memory mode should not create a database pool")
	}

	total, err := engine.CountPatients(ctx, fhir.Query{})
	if err != nil {
		t.Fatalf("CountPatients: %v", err)
	}
	if total != 10 {
		t.Errorf("expected 10 seeded patients, got %d", total)
	}

	// The first generated patient is the Anna Schmidt anchor.
	p, err := engine.GetPatient(ctx, "p-0001")
	if err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	if len(p.Name) == 0 || p.Name[0].Family != "Schmidt" {
		t.Errorf("expected anchor patient Schmidt, got %+v", p.Name)
	}
}

func TestBuildEngine_MemoryUnseeded(t *testing.T) {
	cfg := &config.Config{EngineMode: "memory", SeedOnStart: false}

	ctx := context.Background()
	engine, _, err := buildEngine(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total, err := engine.CountPatients(ctx, fhir.Query{})
	if err != nil {
		t.Fatalf("CountPatients: %v", err)
	}
	if total != 0 {
		t.Errorf("expected empty engine, got %d patients", total)
	}
}

func TestBuildEngine_Rest(t *testing.T) {
	cfg := &config.Config{
		EngineMode:  "rest",
		FHIRBaseURL: "http://fhir.example.org",
	}

	engine, pool, err := buildEngine(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool != nil {
		t.Error("rest mode should not create a database pool")
	}
	if _, ok := engine.(*worklist.RestEngine); !ok {
		t.Errorf("expected *worklist.RestEngine, got %T", engine)
	}
}

func TestBuildEngine_UnknownMode(t *testing.T) {
	cfg := &config.Config{EngineMode: "sqlite"}

	_, _, err := buildEngine(context.Background(), cfg, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for unknown engine mode, got nil")
	}
	if !strings.Contains(err.Error(), "unknown engine mode") {
		t.Errorf("unexpected error message: %v", err)
	}
}
