package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type probe struct {
	Name            string `json:"name"`
	TeacherID       string `json:"teacher_id"`
	Start           string `json:"start"`
	End             string `json:"end"`
	ExpectAvailable bool   `json:"expect_available"`
	Critical        bool   `json:"critical"`
}

type config struct {
	Probes []probe `json:"probes"`
}

type result struct {
	Probe     probe
	Status    int
	Available bool
	Match     bool
	Error     error
	Duration  time.Duration
}

func main() {
	var (
		base       string
		probesPath string
		timeout    time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "Fleet API base URL")
	flag.StringVar(&probesPath, "probes", filepath.Join("scripts", "availability_probe", "probes.json"), "Path to JSON probes file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	probes, err := loadProbes(probesPath)
	if err != nil {
		log.Fatalf("failed to load probes: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []result
		breaking int
		minor    int
	)

	for _, p := range probes {
		res := runProbe(client, base, p)
		if res.Error != nil || !res.Match {
			if p.Critical {
				breaking++
			} else {
				minor++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Breaking mismatches: %d, Minor mismatches: %d\n", breaking, minor)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadProbes(path string) ([]probe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Probes) == 0 {
		return nil, fmt.Errorf("no probes defined in %s", path)
	}
	return cfg.Probes, nil
}

func runProbe(client *http.Client, base string, p probe) result {
	res := result{Probe: p}

	query := url.Values{}
	query.Set("teacherId", p.TeacherID)
	query.Set("start", p.Start)
	query.Set("end", p.End)
	target := strings.TrimRight(base, "/") + "/bookings/conflict-check?" + query.Encode()

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		res.Error = err
		return res
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Error = fmt.Errorf("read body: %w", err)
		return res
	}
	if resp.StatusCode != http.StatusOK {
		res.Error = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return res
	}

	var envelope struct {
		Data struct {
			Available bool `json:"available"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		res.Error = fmt.Errorf("decode body: %w", err)
		return res
	}

	res.Available = envelope.Data.Available
	res.Match = res.Available == p.ExpectAvailable
	return res
}

func printReport(results []result) {
	fmt.Println("Availability Probe Report")
	fmt.Println("=========================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.Match {
			status = "MISMATCH"
		}
		fmt.Printf("[%s] %s teacher=%s %s..%s\n", status, res.Probe.Name, res.Probe.TeacherID, res.Probe.Start, res.Probe.End)
		fmt.Printf("  Status: %d (%s)\n", res.Status, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		} else {
			fmt.Printf("  Available: %t | Expected: %t | Critical: %t\n", res.Available, res.Probe.ExpectAvailable, res.Probe.Critical)
		}
	}
}
