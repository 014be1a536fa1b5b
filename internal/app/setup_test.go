package app

import (
	"testing"

	"github.com/calmcare/calm-agent/internal/config"
)

func TestQualifiedModel(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"gemini bare", config.ProviderGemini, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"empty provider defaults to gemini", "", "gemini-2.5-flash-lite", "googleai/gemini-2.5-flash-lite"},
		{"ollama bare", config.ProviderOllama, "llama3.3", "ollama/llama3.3"},
		{"openai bare", config.ProviderOpenAI, "gpt-4o", "openai/gpt-4o"},
		{"already qualified", config.ProviderGemini, "googleai/gemini-2.5-pro", "googleai/gemini-2.5-pro"},
		{"qualified for other provider passes through", config.ProviderOllama, "openai/gpt-4o", "openai/gpt-4o"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := qualifiedModel(tt.provider, tt.model); got != tt.want {
				t.Errorf("qualifiedModel(%q, %q) = %q, want %q", tt.provider, tt.model, got, tt.want)
			}
		})
	}
}

func TestModelNames(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want []string
	}{
		{
			name: "distinct models",
			cfg:  config.Config{ModelName: "llama3.3", IntermediateModel: "llama3.2"},
			want: []string{"llama3.3", "llama3.2"},
		},
		{
			name: "same model",
			cfg:  config.Config{ModelName: "llama3.3", IntermediateModel: "llama3.3"},
			want: []string{"llama3.3"},
		},
		{
			name: "no intermediate model",
			cfg:  config.Config{ModelName: "llama3.3"},
			want: []string{"llama3.3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := modelNames(&tt.cfg)
			if len(got) != len(tt.want) {
				t.Fatalf("modelNames() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("modelNames()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
