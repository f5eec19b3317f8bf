package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"orbit/api/internal/store"
)

type scriptedCompleter struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (s *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func priorRecords() []store.KnowledgeRecord {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []store.KnowledgeRecord{
		{ID: "kb_aws", Word: "AWS", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "kb_docker", Word: "Docker", CreatedAt: base.Add(time.Hour)},
		{ID: "kb_tf", Word: "Terraform", CreatedAt: base},
	}
}

func TestInferConnectionsEmptyPriorSkipsServiceCall(t *testing.T) {
	svc := &scriptedCompleter{response: `["AWS"]`}

	if got := InferConnections(context.Background(), svc, "EKS", nil); got != nil {
		t.Fatalf("expected nil for empty prior, got %v", got)
	}
	if svc.calls != 0 {
		t.Fatalf("no prior records must mean no service call, got %d calls", svc.calls)
	}
}

func TestInferConnectionsResolvesCaseInsensitively(t *testing.T) {
	svc := &scriptedCompleter{response: `["aws", "DOCKER", "Netlify"]`}

	got := InferConnections(context.Background(), svc, "EKS", priorRecords())

	if len(got) != 2 || got[0] != "kb_aws" || got[1] != "kb_docker" {
		t.Fatalf("expected [kb_aws kb_docker], got %v", got)
	}
}

func TestInferConnectionsDeduplicates(t *testing.T) {
	svc := &scriptedCompleter{response: `["AWS", "aws", " AWS "]`}

	got := InferConnections(context.Background(), svc, "EKS", priorRecords())

	if len(got) != 1 || got[0] != "kb_aws" {
		t.Fatalf("expected single kb_aws, got %v", got)
	}
}

func TestInferConnectionsServiceFailureYieldsNone(t *testing.T) {
	svc := &scriptedCompleter{err: errors.New("quota exceeded")}

	if got := InferConnections(context.Background(), svc, "EKS", priorRecords()); got != nil {
		t.Fatalf("service failure must yield no connections, got %v", got)
	}
}

func TestInferConnectionsUnparseableResponseYieldsNone(t *testing.T) {
	svc := &scriptedCompleter{response: "AWS and Docker relate."}

	if got := InferConnections(context.Background(), svc, "EKS", priorRecords()); got != nil {
		t.Fatalf("unparseable response must yield no connections, got %v", got)
	}
}

func TestInferConnectionsWindowsNewestRecords(t *testing.T) {
	prior := make([]store.KnowledgeRecord, 0, inferenceWindow+5)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < inferenceWindow+5; i++ {
		prior = append(prior, store.KnowledgeRecord{
			ID:        "kb_" + strings.Repeat("x", i+1),
			Word:      "Term" + strings.Repeat("x", i+1),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	svc := &scriptedCompleter{response: `[]`}

	InferConnections(context.Background(), svc, "New", prior)

	if svc.calls != 1 {
		t.Fatalf("expected one call, got %d", svc.calls)
	}
	prompt := svc.prompts[0]
	if got := strings.Count(prompt, "- Term"); got != inferenceWindow {
		t.Fatalf("expected %d candidates in prompt, got %d", inferenceWindow, got)
	}
	// The oldest record falls outside the candidate window, the newest stays.
	if strings.Contains(prompt, "- "+prior[0].Word+"\n") {
		t.Fatal("oldest record must not be offered as a candidate")
	}
	if !strings.Contains(prompt, "- "+prior[len(prior)-1].Word+"\n") {
		t.Fatal("newest record must be offered as a candidate")
	}
}
