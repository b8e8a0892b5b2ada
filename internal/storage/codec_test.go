package storage

import (
	"errors"
	"testing"
	"time"

	"canbot/internal/model"
)

func TestRunCodecRoundTrip(t *testing.T) {
	run := sampleRun("run-1", time.Unix(42, 0).UTC())
	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != run.ID || decoded.Config != run.Config || !decoded.CreatedAt.Equal(run.CreatedAt) {
		t.Fatalf("unexpected decoded run: %+v", decoded)
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	run := sampleRun("run-1", time.Now())
	run.SchemaVersion = CurrentSchemaVersion + 1
	data, _ := EncodeRun(run)
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}

	genome := model.GenomeRecord{ID: "g"}
	data, _ = EncodeGenome(genome)
	if _, err := DecodeGenome(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch for unversioned genome, got %v", err)
	}
}
