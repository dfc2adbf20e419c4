package config

import "testing"

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Embedding: EmbeddingConfig{
			APIKey:  "test-key",
			BaseURL: "https://api.example.com/v1/",
			Budget: BudgetConfig{
				DailyTokenLimit: 1000000,
				Action:          "invalid_action",
			},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `embedding.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	validActions := []string{"", "warn", "reject"}

	for _, action := range validActions {
		t.Run("action="+action, func(t *testing.T) {
			cfg := Config{
				HTTP: HTTPConfig{Port: 8080},
				Embedding: EmbeddingConfig{
					APIKey: "test-key",
					Budget: BudgetConfig{Action: action},
				},
			}

			err := cfg.Validate()
			if err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 0}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrsWhenEnabled(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Enabled: true,
			Addrs:   []string{},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_DisabledDatabaseNeedsNoAddrs(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled database must not require addrs: %v", err)
	}
}

func TestValidate_RankThresholdAboveExecute(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Router: RouterConfig{
			ExecuteThreshold: 0.6,
			RankThreshold:    0.8,
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error when rank_threshold exceeds execute_threshold")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Router.ExecuteThreshold != 0.7 {
		t.Errorf("expected ExecuteThreshold=0.7, got %g", cfg.Router.ExecuteThreshold)
	}
	if cfg.Router.RankThreshold != 0.55 {
		t.Errorf("expected RankThreshold=0.55, got %g", cfg.Router.RankThreshold)
	}
	if cfg.Router.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Router.TopK)
	}
	if cfg.Resolver.Threshold != 0.7 {
		t.Errorf("expected resolver Threshold=0.7, got %g", cfg.Resolver.Threshold)
	}
	if cfg.Resolver.EntityKind != "usina" {
		t.Errorf("expected EntityKind='usina', got %q", cfg.Resolver.EntityKind)
	}
	if cfg.Resolver.SnapshotTimeoutSec != 5 {
		t.Errorf("expected SnapshotTimeoutSec=5, got %d", cfg.Resolver.SnapshotTimeoutSec)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		Router:   RouterConfig{ExecuteThreshold: 0.8, RankThreshold: 0.6, TopK: 5},
		Resolver: ResolverConfig{Threshold: 0.75, EntityKind: "reservatorio"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Router.ExecuteThreshold != 0.8 || cfg.Router.RankThreshold != 0.6 || cfg.Router.TopK != 5 {
		t.Errorf("router config overridden: %+v", cfg.Router)
	}
	if cfg.Resolver.EntityKind != "reservatorio" {
		t.Errorf("expected EntityKind='reservatorio', got %q", cfg.Resolver.EntityKind)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("NEWAVE_TEST_KEY", "secret")

	out := string(expandEnvVars([]byte("api_key: ${NEWAVE_TEST_KEY}\nmodel: ${NEWAVE_TEST_MODEL:-default-model}")))
	if out != "api_key: secret\nmodel: default-model" {
		t.Errorf("unexpected expansion: %q", out)
	}
}
