package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"charucocalib/internal/artifact"
	"charucocalib/internal/board"
	"charucocalib/internal/config"
	"charucocalib/internal/model"
	"charucocalib/internal/repository"
	"charucocalib/internal/repository/sqlite"
)

func main() {
	cfg := config.Load()

	artifactsDir := flag.String("artifacts", cfg.ArtifactDir, "Directory containing calibration artifacts")
	dbPath := flag.String("db", cfg.DBPath, "Database path")
	flag.Parse()

	fmt.Printf("Importing calibrations from %s into database %s\n", *artifactsDir, *dbPath)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	spec, err := cfg.Board()
	if err != nil {
		log.Fatalf("Invalid board configuration: %v", err)
	}

	repo := sqlite.NewCalibrationRepository(db)
	imported, skipped, err := importArtifacts(*artifactsDir, spec, repo)
	if err != nil {
		log.Fatalf("Failed to import calibrations: %v", err)
	}

	if imported == 0 {
		fmt.Println("No new calibrations found to import")
	} else {
		fmt.Printf("Successfully imported %d calibrations\n", imported)
	}
	if skipped > 0 {
		fmt.Printf("Skipped %d files (already imported, unreadable or invalid)\n", skipped)
	}

	total, err := repo.GetTotalCount(nil)
	if err == nil {
		fmt.Printf("\nDatabase now holds %d calibrations\n", total)
	}
	if latest, err := repo.Latest(); err == nil {
		fmt.Printf("Latest successful: #%d, RMS %.4f px, fx %.2f fy %.2f\n", latest.ID, latest.RMS, latest.Fx, latest.Fy)
	}
}

// importArtifacts records every artifact in dir that is not in the history yet.
// Artifacts carry no board description, so the configured board is assumed.
func importArtifacts(dir string, spec board.Spec, repo repository.CalibrationRepository) (imported, skipped int, err error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read artifacts directory: %w", err)
	}

	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Name()))
		if file.IsDir() || (ext != ".xml" && ext != ".json") {
			continue
		}

		path, err := filepath.Abs(filepath.Join(dir, file.Name()))
		if err != nil {
			log.Printf("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		exists, err := repo.ExistsByArtifact(path)
		if err != nil {
			return imported, skipped, err
		}
		if exists {
			skipped++
			continue
		}

		intr, err := artifact.Load(path)
		if err != nil {
			log.Printf("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		info, err := file.Info()
		if err != nil {
			log.Printf("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		c := model.Calibration{
			SquaresX:       spec.SquaresX,
			SquaresY:       spec.SquaresY,
			Policy:         "imported",
			Success:        true,
			FramesAccepted: intr.ViewsUsed,
			Width:          intr.Width,
			Height:         intr.Height,
			RMS:            intr.RMS,
			Fx:             intr.Fx(),
			Fy:             intr.Fy(),
			Cx:             intr.Cx(),
			Cy:             intr.Cy(),
			DistCoeffs:     intr.DistCoeffs,
			ArtifactPath:   path,
			CreatedAt:      info.ModTime(),
		}
		if _, err := repo.Insert(&c); err != nil {
			return imported, skipped, err
		}
		imported++
	}
	return imported, skipped, nil
}
