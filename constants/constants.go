package constants

import "os"

func GetListenAddr() string {
	addr := os.Getenv("LISTEN_ADDR")
	if addr != "" {
		return addr
	}
	return ":8080"
}

func GetSessionsDir() string {
	path := os.Getenv("SESSIONS_PATH")
	if path != "" {
		return path
	}
	return "./sessions"
}

// GetSessionBucket returns the S3 bucket for session artifacts,
// or "" when uploads are disabled.
func GetSessionBucket() string {
	return os.Getenv("SESSION_BUCKET")
}

func GetAllowedOrigin() string {
	origin := os.Getenv("ALLOWED_ORIGIN")
	if origin != "" {
		return origin
	}
	return "http://localhost:5173"
}

const DefaultSampleRate = 44100

const DefaultGridResolution = "8th"

const DefaultTimingThresholdMs = 30.0

// Minimum time between two detected onsets. A click and a guitar note
// closer than this merge into a single onset.
const MinOnsetIntervalSeconds = 0.05
