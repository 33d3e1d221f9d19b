package main

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{
			name: "valid config",
			cfg: Config{
				FMPAPIKey:  "apikey",
				Start:      "2003-01-01",
				End:        "2008-01-01",
				Output:     "marketgraph.svg",
				EdgeCutoff: 0.02,
			},
			wantErr: nil,
		},
		{
			name: "missing api key",
			cfg: Config{
				Start:  "2003-01-01",
				End:    "2008-01-01",
				Output: "marketgraph.svg",
			},
			wantErr: []string{"fmp api key cannot be an empty string"},
		},
		{
			name: "missing output path",
			cfg: Config{
				FMPAPIKey: "apikey",
				Start:     "2003-01-01",
				End:       "2008-01-01",
			},
			wantErr: []string{"output path cannot be an empty string"},
		},
		{
			name: "malformed window start",
			cfg: Config{
				FMPAPIKey: "apikey",
				Start:     "01/01/2003",
				End:       "2008-01-01",
				Output:    "marketgraph.svg",
			},
			wantErr: []string{"parsing window start"},
		},
		{
			name: "inverted window",
			cfg: Config{
				FMPAPIKey: "apikey",
				Start:     "2008-01-01",
				End:       "2003-01-01",
				Output:    "marketgraph.svg",
			},
			wantErr: []string{"analysis window start must precede its end"},
		},
		{
			name: "negative edge cutoff",
			cfg: Config{
				FMPAPIKey:  "apikey",
				Start:      "2003-01-01",
				End:        "2008-01-01",
				Output:     "marketgraph.svg",
				EdgeCutoff: -0.5,
			},
			wantErr: []string{"edge cutoff cannot be negative"},
		},
		{
			name: "missing api key and output path",
			cfg: Config{
				Start: "2003-01-01",
				End:   "2008-01-01",
			},
			wantErr: []string{
				"fmp api key cannot be an empty string",
				"output path cannot be an empty string",
			},
		},
	}

	for _, test := range tests {
		err := test.cfg.Validate()

		if len(test.wantErr) == 0 {
			if err != nil {
				t.Errorf("%s: unexpected validation error: %v", test.name, err)
			}
			continue
		}

		if err == nil {
			t.Errorf("%s: expected a validation error", test.name)
			continue
		}

		for _, want := range test.wantErr {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("%s: expected error to contain %q, got %v", test.name, want, err)
			}
		}
	}
}

func TestConfigWindow(t *testing.T) {
	cfg := Config{Start: "2003-01-01", End: "2008-01-01"}

	start, end, err := cfg.Window()
	if err != nil {
		t.Fatalf("unexpected window parse error: %v", err)
	}

	if start.Year() != 2003 || end.Year() != 2008 {
		t.Errorf("unexpected window: %v - %v", start, end)
	}
	if !start.Before(end) {
		t.Error("expected the window start to precede its end")
	}
}
