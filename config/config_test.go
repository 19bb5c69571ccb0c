package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Voting.TallyMode != TallyModePositions {
		t.Errorf("TallyMode = %q, want %q", cfg.Voting.TallyMode, TallyModePositions)
	}
	if cfg.Voting.DailyLimit {
		t.Error("DailyLimit should default to off")
	}
	if cfg.Voting.DailyLimitTZ != "UTC" {
		t.Errorf("DailyLimitTZ = %q, want UTC", cfg.Voting.DailyLimitTZ)
	}
}

func TestLoadTallyMode(t *testing.T) {
	t.Setenv("VOTING_TALLY_MODE", "Actions")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Voting.TallyMode != TallyModeActions {
		t.Errorf("TallyMode = %q, want %q", cfg.Voting.TallyMode, TallyModeActions)
	}

	t.Setenv("VOTING_TALLY_MODE", "bogus")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted an invalid tally mode")
	}
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "db", Port: "5432", User: "app", Password: "pw", DBName: "openvote", SSLMode: "disable",
	}
	want := "postgres://app:pw@db:5432/openvote?sslmode=disable"
	if got := db.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	db.URL = "postgres://elsewhere/other"
	if got := db.DSN(); got != db.URL {
		t.Errorf("DSN() = %q, want the explicit URL", got)
	}
}
