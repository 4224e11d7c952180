//go:build ignore

package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cloudia/cloudia/internal/lns"
	"github.com/cloudia/cloudia/internal/logging"
	"github.com/cloudia/cloudia/internal/protocol"
)

// Statistics tracks decoding results
type Statistics struct {
	TotalUplinks   int
	TotalFiles     int
	DecodeSuccess  int
	DecodeFailure  int
	Skipped        int
	Epochs         int
	OutOfRange     int
	Ports          map[protocol.Port]int
	ErrorTypes     map[string]int
	Devices        map[string]int
	FailedUplinks  []FailedUplink
	PayloadLengths map[int]int
}

// FailedUplink stores information about decode failures
type FailedUplink struct {
	File       string
	LineNumber int
	DevEUI     string
	Port       uint8
	PayloadHex string
	Error      string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: replay_uplinks <directory-or-file>")
		fmt.Println("Example: replay_uplinks captures/")
		fmt.Println("         replay_uplinks uplinks-20240501.jsonl")
		os.Exit(1)
	}

	path := os.Args[1]

	stats := Statistics{
		Ports:          make(map[protocol.Port]int),
		ErrorTypes:     make(map[string]int),
		Devices:        make(map[string]int),
		PayloadLengths: make(map[int]int),
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Error accessing path: %v\n", err)
		os.Exit(1)
	}

	var files []string
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.jsonl"))
		if err != nil {
			fmt.Printf("Error finding JSONL files: %v\n", err)
			os.Exit(1)
		}
		if len(files) == 0 {
			fmt.Printf("No JSONL files found in %s\n", path)
			os.Exit(1)
		}
	} else {
		files = []string{path}
	}

	// CLOUDIA_LOG_LEVEL=debug enables decoder traces.
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Printf("Error configuring logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	decoder, err := protocol.NewDecoder()
	if err != nil {
		fmt.Printf("Error creating decoder: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== cloudia Uplink Replay ===\n")
	fmt.Printf("Files to process: %d\n\n", len(files))

	for _, file := range files {
		processFile(file, decoder, &stats)
	}

	printStatistics(&stats)
	if stats.DecodeFailure > 0 {
		os.Exit(2)
	}
}

func processFile(filename string, decoder *protocol.Decoder, stats *Statistics) {
	stats.TotalFiles++

	f, err := os.Open(filename)
	if err != nil {
		fmt.Printf("Error reading file %s: %v\n", filename, err)
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		up, err := lns.ParseUplink(line)
		if err != nil {
			// Join requests and other events share the capture files.
			stats.Skipped++
			continue
		}
		stats.TotalUplinks++
		stats.Devices[up.DevEUI()]++

		payload := up.Payload()
		stats.PayloadLengths[len(payload)]++
		port := protocol.Port(up.FPort())

		cur, err := decoder.Decode(port, payload, up.ReceivedAt())
		if err != nil {
			stats.DecodeFailure++
			var codecErr *protocol.CodecError
			if errors.As(err, &codecErr) {
				stats.ErrorTypes[codecErr.Type.String()]++
			} else {
				stats.ErrorTypes["other"]++
			}
			stats.FailedUplinks = append(stats.FailedUplinks, FailedUplink{
				File:       filename,
				LineNumber: lineNum,
				DevEUI:     up.DevEUI(),
				Port:       up.FPort(),
				PayloadHex: hex.EncodeToString(payload),
				Error:      err.Error(),
			})
			continue
		}
		for cur.Advance() {
		}

		stats.DecodeSuccess++
		stats.Ports[port]++
		stats.Epochs += cur.Count()
		stats.OutOfRange += cur.OutOfRange()
	}
	if err := scanner.Err(); err != nil {
		fmt.Printf("Error reading %s after line %d: %v\n", filename, lineNum, err)
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func printStatistics(stats *Statistics) {
	fmt.Printf("\n========================================\n")
	fmt.Printf("REPLAY RESULTS\n")
	fmt.Printf("========================================\n\n")

	fmt.Printf("Files Processed:    %d\n", stats.TotalFiles)
	fmt.Printf("Uplinks:            %d (%d other events skipped)\n", stats.TotalUplinks, stats.Skipped)
	fmt.Printf("Devices:            %d\n", len(stats.Devices))
	fmt.Printf("Decode Success:     %d (%.2f%%)\n", stats.DecodeSuccess, percent(stats.DecodeSuccess, stats.TotalUplinks))
	fmt.Printf("Decode Failure:     %d (%.2f%%)\n", stats.DecodeFailure, percent(stats.DecodeFailure, stats.TotalUplinks))
	fmt.Printf("Epochs Decoded:     %d\n", stats.Epochs)
	fmt.Printf("Out-of-range Values: %d\n", stats.OutOfRange)

	fmt.Printf("\n----------------------------------------\n")
	fmt.Printf("PORT DISTRIBUTION\n")
	fmt.Printf("----------------------------------------\n")
	ports := make([]protocol.Port, 0, len(stats.Ports))
	for p := range stats.Ports {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	for _, p := range ports {
		fmt.Printf("Port %-18s %d (%.2f%%)\n", p.String()+":", stats.Ports[p], percent(stats.Ports[p], stats.DecodeSuccess))
	}

	fmt.Printf("\n----------------------------------------\n")
	fmt.Printf("PAYLOAD LENGTH DISTRIBUTION\n")
	fmt.Printf("----------------------------------------\n")
	lengths := make([]int, 0, len(stats.PayloadLengths))
	for l := range stats.PayloadLengths {
		lengths = append(lengths, l)
	}
	sort.Ints(lengths)
	for _, l := range lengths {
		fmt.Printf("%d bytes: %d uplinks (%.2f%%)\n", l, stats.PayloadLengths[l], percent(stats.PayloadLengths[l], stats.TotalUplinks))
	}

	if len(stats.FailedUplinks) > 0 {
		fmt.Printf("\n----------------------------------------\n")
		fmt.Printf("DECODE FAILURES (%d total)\n", len(stats.FailedUplinks))
		fmt.Printf("----------------------------------------\n")
		for typ, count := range stats.ErrorTypes {
			fmt.Printf("%s: %d\n", typ, count)
		}

		maxShow := 10
		if len(stats.FailedUplinks) > maxShow {
			fmt.Printf("(Showing first %d of %d failures)\n", maxShow, len(stats.FailedUplinks))
		}
		for i, failed := range stats.FailedUplinks {
			if i >= maxShow {
				break
			}
			fmt.Printf("\nFailure #%d:\n", i+1)
			fmt.Printf("  File: %s (line %d)\n", failed.File, failed.LineNumber)
			fmt.Printf("  Device: %s port %d\n", failed.DevEUI, failed.Port)
			fmt.Printf("  Error: %s\n", failed.Error)
			fmt.Printf("  Payload: %s\n", failed.PayloadHex)
		}
	}

	fmt.Printf("\n========================================\n")
	if stats.DecodeFailure == 0 {
		fmt.Printf("✅ SUCCESS: All uplinks decoded successfully!\n")
	} else {
		fmt.Printf("⚠️  ISSUES FOUND: %d uplinks failed to decode\n", stats.DecodeFailure)
	}
	fmt.Printf("========================================\n")
}
