package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app@localhost/squads")
	t.Setenv("JWT_SECRET_KEY", "secret")
	for _, key := range []string{
		"MODERATOR_DATABASE_URL", "SERVER_PORT", "MAX_MAPS_PER_TOURNAMENT", "PLACEMENT_POINTS",
		"POINTS_PER_KILL", "ENFORCE_CAPACITY", "AUTO_MIGRATE", "LEADERBOARD_SNAPSHOT_INTERVAL",
		"SCOREBOARD_URL_TTL", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("port = %d, want 8080", cfg.ServerPort)
	}
	if cfg.ModeratorDatabaseURL != cfg.DatabaseURL {
		t.Errorf("moderator url = %q, want fallback to DATABASE_URL", cfg.ModeratorDatabaseURL)
	}
	if cfg.MaxMapsPerTournament != 15 {
		t.Errorf("max maps = %d, want 15", cfg.MaxMapsPerTournament)
	}
	if cfg.PlacementPoints[1] != 15 || cfg.PlacementPoints[10] != 1 {
		t.Errorf("unexpected placement points %v", cfg.PlacementPoints)
	}
	if cfg.EnforceCapacity {
		t.Error("capacity enforcement should default to off")
	}
	if cfg.LeaderboardSnapshotInterval != 30*time.Second {
		t.Errorf("snapshot interval = %s", cfg.LeaderboardSnapshotInterval)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("cors origins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"port not a number", "SERVER_PORT", "http"},
		{"zero max maps", "MAX_MAPS_PER_TOURNAMENT", "0"},
		{"negative kill points", "POINTS_PER_KILL", "-1"},
		{"bad bool", "ENFORCE_CAPACITY", "maybe"},
		{"bad duration", "LEADERBOARD_SNAPSHOT_INTERVAL", "soon"},
		{"bad placement table", "PLACEMENT_POINTS", "1-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://app@localhost/squads")
			t.Setenv("JWT_SECRET_KEY", "secret")
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET_KEY", "secret")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestParsePlacementPoints(t *testing.T) {
	points, err := ParsePlacementPoints(" 1:15, 2:12.5 ,3:10")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(points) != 3 || points[2] != 12.5 {
		t.Fatalf("unexpected %v", points)
	}
	if got := FormatPlacementPoints(points); got != "1:15,2:12.5,3:10" {
		t.Errorf("format = %q", got)
	}

	for _, bad := range []string{"0:5", "a:5", "1:x", "1:5,1:6"} {
		if _, err := ParsePlacementPoints(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
