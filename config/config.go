package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultServerPort             = 8080
	defaultMaxMapsPerTournament   = 15
	defaultPointsPerKill          = 1.0
	defaultSnapshotInterval       = 30 * time.Second
	defaultScoreboardURLTTL       = 15 * time.Minute
	defaultPlacementPointsSetting = "1:15,2:12,3:10,4:8,5:6,6:5,7:4,8:3,9:2,10:1"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL string
	// ModeratorDatabaseURL is the elevated connection used only by moderator operations.
	ModeratorDatabaseURL string
	JWTSecretKey         string
	ServerPort           int
	AutoMigrate          bool
	CORSAllowedOrigins   []string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	ScoreboardURLTTL  time.Duration

	MaxMapsPerTournament int
	PlacementPoints      map[int]float64
	PointsPerKill        float64
	EnforceCapacity      bool

	LeaderboardSnapshotInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intFromEnv("SERVER_PORT", defaultServerPort)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	maxMaps, err := intFromEnv("MAX_MAPS_PER_TOURNAMENT", defaultMaxMapsPerTournament)
	if err != nil {
		return nil, err
	}
	if maxMaps < 1 {
		return nil, fmt.Errorf("MAX_MAPS_PER_TOURNAMENT must be positive, got %d", maxMaps)
	}

	placementSetting := os.Getenv("PLACEMENT_POINTS")
	if placementSetting == "" {
		placementSetting = defaultPlacementPointsSetting
	}
	placementPoints, err := ParsePlacementPoints(placementSetting)
	if err != nil {
		return nil, fmt.Errorf("invalid PLACEMENT_POINTS environment variable: %w", err)
	}

	perKill := defaultPointsPerKill
	if s := os.Getenv("POINTS_PER_KILL"); s != "" {
		perKill, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid POINTS_PER_KILL environment variable: %w", err)
		}
		if perKill < 0 {
			return nil, fmt.Errorf("POINTS_PER_KILL must not be negative, got %v", perKill)
		}
	}

	enforceCapacity, err := boolFromEnv("ENFORCE_CAPACITY", false)
	if err != nil {
		return nil, err
	}
	autoMigrate, err := boolFromEnv("AUTO_MIGRATE", false)
	if err != nil {
		return nil, err
	}

	snapshotInterval, err := durationFromEnv("LEADERBOARD_SNAPSHOT_INTERVAL", defaultSnapshotInterval)
	if err != nil {
		return nil, err
	}
	urlTTL, err := durationFromEnv("SCOREBOARD_URL_TTL", defaultScoreboardURLTTL)
	if err != nil {
		return nil, err
	}

	moderatorURL := os.Getenv("MODERATOR_DATABASE_URL")
	if moderatorURL == "" {
		moderatorURL = dbURL
	}

	cfg := &Config{
		DatabaseURL:                 dbURL,
		ModeratorDatabaseURL:        moderatorURL,
		JWTSecretKey:                jwtKey,
		ServerPort:                  port,
		AutoMigrate:                 autoMigrate,
		CORSAllowedOrigins:          splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		R2AccountID:                 os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:               os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:           os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:                os.Getenv("R2_BUCKET_NAME"),
		ScoreboardURLTTL:            urlTTL,
		MaxMapsPerTournament:        maxMaps,
		PlacementPoints:             placementPoints,
		PointsPerKill:               perKill,
		EnforceCapacity:             enforceCapacity,
		LeaderboardSnapshotInterval: snapshotInterval,
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	return cfg, nil
}

// ParsePlacementPoints parses "1:15,2:12,3:10" into placement -> points.
func ParsePlacementPoints(s string) (map[int]float64, error) {
	points := make(map[int]float64)
	for _, pair := range splitList(s) {
		placeStr, valueStr, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("entry %q must look like <placement>:<points>", pair)
		}
		place, err := strconv.Atoi(strings.TrimSpace(placeStr))
		if err != nil || place < 1 {
			return nil, fmt.Errorf("entry %q has invalid placement", pair)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q has invalid points: %w", pair, err)
		}
		if _, dup := points[place]; dup {
			return nil, fmt.Errorf("placement %d listed twice", place)
		}
		points[place] = value
	}
	return points, nil
}

// FormatPlacementPoints is the inverse of ParsePlacementPoints, ordered by placement.
func FormatPlacementPoints(points map[int]float64) string {
	places := make([]int, 0, len(points))
	for p := range points {
		places = append(places, p)
	}
	sort.Ints(places)
	parts := make([]string, 0, len(places))
	for _, p := range places {
		parts = append(parts, fmt.Sprintf("%d:%s", p, strconv.FormatFloat(points[p], 'f', -1, 64)))
	}
	return strings.Join(parts, ",")
}

func intFromEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
