package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"charucocalib/internal/board"
)

type Config struct {
	Port         int
	Password     string
	LogDirectory string
	Debug        bool
	DBPath       string

	VideoPath         string
	BoardSquaresX     int
	BoardSquaresY     int
	BoardSquareLength float64 // meters
	BoardMarkerLength float64 // meters
	BoardDictionary   string

	AcceptPolicy string  // min-corners or full-board
	MinCorners   int     // min-corners accepts frames with more corners than this
	MinMarkers   int     // detected neighbour markers needed per interpolated corner
	SubPixWindow int     // corner refinement half window, negative disables
	MinViews     int     // usable views the solver needs
	MaxRMS       float64 // reprojection error above this fails the run, 0 disables

	OutputPath   string
	OutputFormat string // xml or json
	ArtifactDir  string
	QueueSize    int
}

// Load reads an optional .env file and then the environment, falling back to defaults.
func Load() *Config {
	// a missing .env is fine, real environment variables still apply
	_ = godotenv.Load()

	return &Config{
		Port:         getEnvAsInt("PORT", 8080),
		Password:     getEnv("PASSWORD", "charuco"),
		LogDirectory: getEnv("LOG_DIR", filepath.Join(".", "logs")),
		Debug:        getEnvAsBool("DEBUG", false),
		DBPath:       getEnv("DB_PATH", filepath.Join(".", "calibrations.db")),

		VideoPath:         getEnv("VIDEO_PATH", filepath.Join("data", "1_calibration.mp4")),
		BoardSquaresX:     getEnvAsInt("BOARD_SQUARES_X", board.DefaultSquaresX),
		BoardSquaresY:     getEnvAsInt("BOARD_SQUARES_Y", board.DefaultSquaresY),
		BoardSquareLength: getEnvAsFloat("BOARD_SQUARE_LENGTH", board.DefaultSquareLength),
		BoardMarkerLength: getEnvAsFloat("BOARD_MARKER_LENGTH", board.DefaultMarkerLength),
		BoardDictionary:   getEnv("BOARD_DICTIONARY", string(board.DefaultDictionary)),

		AcceptPolicy: getEnv("ACCEPT_POLICY", "min-corners"),
		MinCorners:   getEnvAsInt("MIN_CORNERS", 3),
		MinMarkers:   getEnvAsInt("MIN_MARKERS", 2),
		SubPixWindow: getEnvAsInt("SUBPIX_WINDOW", 5),
		MinViews:     getEnvAsInt("MIN_VIEWS", 1),
		MaxRMS:       getEnvAsFloat("MAX_RMS", 0),

		OutputPath:   getEnv("OUTPUT_PATH", "calibration.xml"),
		OutputFormat: getEnv("OUTPUT_FORMAT", "xml"),
		ArtifactDir:  getEnv("ARTIFACT_DIR", filepath.Join(".", "artifacts")),
		QueueSize:    getEnvAsInt("QUEUE_SIZE", 4),
	}
}

// Board builds the board description from the configured geometry.
func (c *Config) Board() (board.Spec, error) {
	dict, ok := board.ParseDictionary(c.BoardDictionary)
	if !ok {
		return board.Spec{}, fmt.Errorf("%w: unknown dictionary %q", board.ErrInvalidBoard, c.BoardDictionary)
	}
	return board.New(c.BoardSquaresX, c.BoardSquaresY, c.BoardSquareLength, c.BoardMarkerLength, dict)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
