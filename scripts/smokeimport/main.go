package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type summary struct {
	BatchID   string   `json:"batch_id"`
	State     string   `json:"state"`
	Status    string   `json:"status"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Conflicts int      `json:"conflicts_detected"`
	Warnings  []string `json:"warnings"`
	Errors    []string `json:"errors"`
}

type envelope struct {
	Data  *summary `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// smokeimport posts a file through the import endpoint as a dry run and
// reports the preview it would produce. Exits non-zero when the file is
// rejected, which makes it usable as a pre-deploy check against staging.
func main() {
	var (
		base     string
		token    string
		strategy string
		filePath string
		apply    bool
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&token, "token", os.Getenv("CLO_API_TOKEN"), "Bearer token (defaults to CLO_API_TOKEN)")
	flag.StringVar(&strategy, "strategy", "use_mine", "Conflict strategy")
	flag.StringVar(&filePath, "file", "", "Path to the bundle or spreadsheet to import")
	flag.BoolVar(&apply, "apply", false, "Persist the import instead of a dry run")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.Parse()

	if filePath == "" {
		log.Fatal("missing -file")
	}
	if token == "" {
		log.Fatal("missing -token (or CLO_API_TOKEN)")
	}

	client := &http.Client{Timeout: timeout}
	result, status, err := runImport(client, base, token, filePath, strategy, !apply)
	if err != nil {
		log.Fatalf("import request failed: %v", err)
	}

	printSummary(result, status)
	if result.Data == nil || result.Data.State == "REJECTED" {
		os.Exit(1)
	}
}

func runImport(client *http.Client, base, token, filePath, strategy string, dryRun bool) (*envelope, int, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, 0, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, 0, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, 0, err
	}
	if err := mw.WriteField("strategy", strategy); err != nil {
		return nil, 0, err
	}
	if err := mw.WriteField("dryRun", fmt.Sprintf("%t", dryRun)); err != nil {
		return nil, 0, err
	}
	if err := mw.Close(); err != nil {
		return nil, 0, err
	}

	url := strings.TrimRight(base, "/") + "/api/v1/imports"
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("unexpected response (%d): %s", resp.StatusCode, string(raw))
	}
	return &env, resp.StatusCode, nil
}

func printSummary(env *envelope, status int) {
	if env.Error != nil {
		fmt.Printf("error: %s (%s, HTTP %d)\n", env.Error.Message, env.Error.Code, status)
	}
	s := env.Data
	if s == nil {
		return
	}
	fmt.Printf("batch %s  state=%s status=%s\n", s.BatchID, s.State, s.Status)
	fmt.Printf("created=%d updated=%d skipped=%d conflicts=%d\n",
		s.Created, s.Updated, s.Skipped, s.Conflicts)
	for _, w := range s.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, e := range s.Errors {
		fmt.Printf("error: %s\n", e)
	}
}
