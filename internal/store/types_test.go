package store

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestCheckpoint_JSONSerialization(t *testing.T) {
	original := createTestCheckpoint("run-json")
	original.Timestamp = time.Date(2025, 10, 23, 10, 30, 0, 0, time.UTC)

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Failed to marshal checkpoint: %v", err)
	}

	var restored Checkpoint
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Failed to unmarshal checkpoint: %v", err)
	}

	if restored.RunID != original.RunID {
		t.Errorf("RunID mismatch: expected %s, got %s", original.RunID, restored.RunID)
	}
	if restored.InitialValue != original.InitialValue {
		t.Errorf("InitialValue mismatch: expected %v, got %v", original.InitialValue, restored.InitialValue)
	}
	if !restored.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp mismatch: expected %v, got %v", original.Timestamp, restored.Timestamp)
	}
	for i := range original.X {
		if restored.X[i] != original.X[i] {
			t.Errorf("X[%d] mismatch: expected %f, got %f", i, original.X[i], restored.X[i])
		}
	}
	if restored.Y != nil {
		t.Errorf("Expected nil Y, got %v", restored.Y)
	}
	if restored.Config.Method != "gd" || restored.Config.Interval != 10 || restored.Config.Seed != 42 {
		t.Errorf("Config mismatch: got %+v", restored.Config)
	}
}

func TestFloat_JSON(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5, `1.5`},
		{math.NaN(), `"NaN"`},
		{math.Inf(1), `"+Inf"`},
		{math.Inf(-1), `"-Inf"`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(Float(tt.in))
		if err != nil {
			t.Fatalf("Marshal(%v) failed: %v", tt.in, err)
		}
		if string(data) != tt.want {
			t.Errorf("Marshal(%v) = %s, want %s", tt.in, data, tt.want)
		}

		var back Float
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", data, err)
		}
		if math.IsNaN(tt.in) {
			if !math.IsNaN(float64(back)) {
				t.Errorf("Unmarshal(%s) = %v, want NaN", data, back)
			}
		} else if float64(back) != tt.in {
			t.Errorf("Unmarshal(%s) = %v, want %v", data, back, tt.in)
		}
	}

	var f Float
	if err := json.Unmarshal([]byte(`"many"`), &f); err == nil {
		t.Error("Expected error for invalid float string")
	}
}

func TestCheckpoint_Validate_Valid(t *testing.T) {
	if err := createTestCheckpoint("run-valid").Validate(); err != nil {
		t.Errorf("Expected valid checkpoint, got: %v", err)
	}
}

func TestCheckpoint_Validate_Invalid(t *testing.T) {
	tests := []struct {
		field  string
		modify func(*Checkpoint)
	}{
		{"RunID", func(c *Checkpoint) { c.RunID = "" }},
		{"Config.Method", func(c *Checkpoint) { c.Config.Method = "" }},
		{"Config.Dim", func(c *Checkpoint) { c.Config.Dim = 0 }},
		{"Config.Iterations", func(c *Checkpoint) { c.Config.Iterations = 0 }},
		{"Config.Interval", func(c *Checkpoint) { c.Config.Interval = 7 }},
		{"Iteration", func(c *Checkpoint) { c.Iteration = 101 }},
		{"X", func(c *Checkpoint) { c.X = Vector{1} }},
		{"Y", func(c *Checkpoint) { c.Y = Vector{1, 2} }},
		{"Timestamp", func(c *Checkpoint) { c.Timestamp = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			c := createTestCheckpoint("run-invalid")
			tt.modify(c)

			err := c.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %T: %v", err, err)
			}
			if verr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}

func TestCheckpoint_IsCompatible(t *testing.T) {
	c := createTestCheckpoint("run-compat")

	if err := c.IsCompatible(c.Config); err != nil {
		t.Errorf("Expected compatible config, got: %v", err)
	}

	// Hyperparameters and the interval may change on resume.
	changed := c.Config
	changed.Interval = 50
	changed.Params = map[string]any{"lr": 0.2}
	if err := c.IsCompatible(changed); err != nil {
		t.Errorf("Expected compatible config, got: %v", err)
	}

	tests := []struct {
		field  string
		modify func(*RunConfig)
	}{
		{"Method", func(rc *RunConfig) { rc.Method = "agd" }},
		{"Dim", func(rc *RunConfig) { rc.Dim = 4 }},
		{"Iterations", func(rc *RunConfig) { rc.Iterations = 200 }},
		{"Suffix", func(rc *RunConfig) { rc.Suffix = "_b" }},
	}
	for _, tt := range tests {
		cfg := c.Config
		tt.modify(&cfg)
		err := c.IsCompatible(cfg)
		var cerr *CompatibilityError
		if !errors.As(err, &cerr) {
			t.Fatalf("%s: expected CompatibilityError, got %v", tt.field, err)
		}
		if cerr.Field != tt.field {
			t.Errorf("Expected field %s, got %s", tt.field, cerr.Field)
		}
		if !strings.Contains(cerr.Error(), tt.field) {
			t.Errorf("Error message should mention %s: %s", tt.field, cerr.Error())
		}
	}
}

func TestCheckpointToInfo(t *testing.T) {
	c := createTestCheckpoint("run-info")
	info := c.ToInfo()

	if info.RunID != c.RunID || info.Method != "gd" || info.Problem != "sphere" {
		t.Errorf("Unexpected info: %+v", info)
	}
	if info.MinValue != float64(c.MinValue) {
		t.Errorf("MinValue mismatch: expected %v, got %v", c.MinValue, info.MinValue)
	}
	if info.Complete() {
		t.Error("Run at iteration 50 of 100 should not be complete")
	}
	c.Iteration = 100
	if !c.ToInfo().Complete() {
		t.Error("Run at iteration 100 of 100 should be complete")
	}
}
