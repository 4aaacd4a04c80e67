package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"charucocalib/internal/config"
	"charucocalib/internal/handlers"
	logs "charucocalib/internal/logger"
	"charucocalib/internal/middleware"
	"charucocalib/internal/repository"
	"charucocalib/internal/services/websocket"
)

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers static file serving, the calibration API and the log endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(submitter handlers.Submitter, hub *websocket.HubService, calibrations repository.CalibrationRepository, frames repository.FrameRepository, cfg *config.Config, logger *logs.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// API endpoints
	mux.HandleFunc("/api/view", handlers.ViewWebsocketHandler(hub, logger))
	mux.HandleFunc("/api/calibrations", handlers.CalibrationsHandler(submitter, calibrations, logger))
	mux.HandleFunc("/api/calibrations/get", handlers.GetCalibrationHandler(calibrations, logger))
	mux.HandleFunc("/api/calibrations/latest", handlers.LatestCalibrationHandler(calibrations, logger))
	mux.HandleFunc("/api/calibrations/frames", handlers.GetCalibrationFramesHandler(calibrations, frames, logger))
	mux.HandleFunc("/api/calibrations/artifact", handlers.DownloadArtifactHandler(calibrations, logger))
	mux.HandleFunc("/api/calibrations/delete", handlers.DeleteCalibrationHandler(calibrations, logger))

	// Log endpoints
	for route, file := range map[string]string{
		"/logs/info":    logs.InfoFile,
		"/logs/warning": logs.WarningFile,
		"/logs/error":   logs.ErrorFile,
	} {
		mux.HandleFunc(route, handlers.ShowLogsHandler(cfg, file))
		mux.HandleFunc(route+"/clear", handlers.ClearLogsHandler(logger, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handlers.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handlers.LogoutHandler)

	// Automatic HTML handler mapping for example: /history -> /static/history.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.AuthMiddleware(mux)
}
