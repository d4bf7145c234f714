package configuration

import (
	"testing"
)

func TestResultsOptions_Extensions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"default", ".jtl", []string{".jtl"}},
		{"mixed case and spaces", " .JTL , csv ", []string{".jtl", ".csv"}},
		{"missing dot", "jtl,xml", []string{".jtl", ".xml"}},
		{"empty entries dropped", ",,.jtl,", []string{".jtl"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := ResultsOptions{AllowedExtensions: tt.raw}
			got := opts.Extensions()
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestResultsOptions_Validate(t *testing.T) {
	valid := ResultsOptions{MaxUploadSize: 1024, AllowedExtensions: ".jtl", SampleCap: 0}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid options, got %v", err)
	}

	noSize := ResultsOptions{MaxUploadSize: 0, AllowedExtensions: ".jtl"}
	if err := noSize.Validate(); err == nil {
		t.Fatal("expected error for zero MaxUploadSize")
	}

	negCap := ResultsOptions{MaxUploadSize: 1024, AllowedExtensions: ".jtl", SampleCap: -1}
	if err := negCap.Validate(); err == nil {
		t.Fatal("expected error for negative SampleCap")
	}

	noExt := ResultsOptions{MaxUploadSize: 1024, AllowedExtensions: " , "}
	if err := noExt.Validate(); err == nil {
		t.Fatal("expected error for empty extension list")
	}
}

func TestRateLimitOptions_Validate(t *testing.T) {
	ok := RateLimitOptions{Enabled: true, GlobalRPS: 100}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid options, got %v", err)
	}
	neg := RateLimitOptions{GlobalRPS: -1}
	if err := neg.Validate(); err == nil {
		t.Fatal("expected error for negative GlobalRPS")
	}
}
