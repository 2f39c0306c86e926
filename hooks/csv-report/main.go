// Package main is a session hook that appends each finished session to a
// CSV report, for instructors who collect results in a spreadsheet.
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SignCount is one ranked sign of a session.
type SignCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Record mirrors the session record sent by SignAssess.
type Record struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Username     string      `json:"username"`
	TopSigns     []SignCount `json:"top_signs"`
	CreatedAt    time.Time   `json:"created_at"`
	SecondsSpent float64     `json:"seconds_spent"`
	Score        int         `json:"score"`
	Questions    int         `json:"questions"`
}

// Request represents the input from the hook executor.
type Request struct {
	Event   string          `json:"event"`
	Session *Record         `json:"session"`
	Config  json.RawMessage `json:"config"`
}

// Response represents the output to the hook executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config selects the report file. Relative paths are resolved against the
// hook directory.
type Config struct {
	File string `json:"file"`
}

var header = []string{"created_at", "session_id", "user_id", "username", "seconds_spent", "score", "questions", "top_signs"}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}
	if req.Session == nil {
		writeResponse(fmt.Errorf("event %s has no session", req.Event))
		return
	}

	cfg := Config{File: "sessions.csv"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(fmt.Errorf("invalid config: %w", err))
			return
		}
	}

	writeResponse(appendRow(cfg.File, req.Session))
}

func appendRow(path string, rec *Record) error {
	_, err := os.Stat(path)
	newFile := os.IsNotExist(err)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		w.Write(header)
	}
	w.Write(row(rec))
	w.Flush()
	return w.Error()
}

// row formats a record; signs are written as "Hello:2;V:1".
func row(rec *Record) []string {
	signs := make([]string, len(rec.TopSigns))
	for i, sc := range rec.TopSigns {
		signs[i] = sc.Label + ":" + strconv.Itoa(sc.Count)
	}
	return []string{
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.ID,
		rec.UserID,
		rec.Username,
		strconv.FormatFloat(rec.SecondsSpent, 'f', 1, 64),
		strconv.Itoa(rec.Score),
		strconv.Itoa(rec.Questions),
		strings.Join(signs, ";"),
	}
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
