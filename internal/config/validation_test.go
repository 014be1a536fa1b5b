package config

import (
	"errors"
	"strings"
	"testing"
)

// validConfig returns a configuration that passes Validate().
func validConfig() *Config {
	return &Config{
		Provider:          ProviderGemini,
		ModelName:         "gemini-2.5-flash",
		IntermediateModel: "gemini-2.5-flash-lite",
		EmbedderModel:     DefaultGeminiEmbedderModel,
		Temperature:       0.65,
		Threshold:         0.65,
		MaxRetries:        2,
		DocNumber:         4,
		PostgresHost:      "localhost",
		PostgresPort:      5432,
		PostgresUser:      "calm",
		PostgresPassword:  "secret",
		PostgresDBName:    "calm",
		PostgresSSLMode:   "disable",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "bedrock" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "  " },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "empty intermediate model",
			mutate:  func(c *Config) { c.IntermediateModel = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "threshold above one",
			mutate:  func(c *Config) { c.Threshold = 1.2 },
			wantErr: ErrInvalidThreshold,
		},
		{
			name:    "threshold negative",
			mutate:  func(c *Config) { c.Threshold = -0.1 },
			wantErr: ErrInvalidThreshold,
		},
		{
			name:    "zero max retries",
			mutate:  func(c *Config) { c.MaxRetries = 0 },
			wantErr: ErrInvalidMaxRetries,
		},
		{
			name:    "doc number over cap",
			mutate:  func(c *Config) { c.DocNumber = 11 },
			wantErr: ErrInvalidDocNumber,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "bad ssl mode",
			mutate:  func(c *Config) { c.PostgresSSLMode = "mandatory" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
		{
			name:    "ollama provider requires host",
			mutate:  func(c *Config) { c.Provider = ProviderOllama; c.OllamaHost = "" },
			wantErr: ErrInvalidOllamaHost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want errors.Is(%v)", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Fatalf("Validate() on nil = %v, want ErrConfigNil", err)
	}
}

func TestMarshalJSONMasksPassword(t *testing.T) {
	cfg := validConfig()
	data, err := cfg.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error: %v", err)
	}
	if got := string(data); strings.Contains(got, "secret") {
		t.Errorf("MarshalJSON leaked password: %s", got)
	}
	if got := string(data); !strings.Contains(got, "********") {
		t.Errorf("MarshalJSON did not mask password: %s", got)
	}
}
