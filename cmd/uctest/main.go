// uctest runs the Markdown test suites under testdata/ against the
// in-process middle end and writes a JSON report next to them
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/xplshn/ucc/pkg/ir"
	"github.com/xplshn/ucc/pkg/testcase"
)

type CaseResult struct {
	Name        string        `json:"name"`
	Line        int           `json:"line"`
	Status      string        `json:"status"` // PASS, FAIL, ERROR
	Message     string        `json:"message,omitempty"`
	Diff        string        `json:"diff,omitempty"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	Duration    time.Duration `json:"duration"`
}

type FileTestResult struct {
	File    string       `json:"file"`
	Hash    string       `json:"hash"`
	Status  string       `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string       `json:"message,omitempty"`
	Cases   []CaseResult `json:"cases,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	testFiles   = flag.String("test-files", "testdata/*.md", "Glob pattern(s) for files to test (space-separated).")
	skipFiles   = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON  = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	jobs        = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose     = flag.Bool("v", false, "List every case, not only the failing ones.")
	useCache    = flag.Bool("cached", false, "Skip files whose content and previous result are unchanged.")
	filterCases = flag.String("run", "", "Only run cases whose name contains this substring.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	if *jobs < 1 {
		*jobs = 1
	}

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	previousResults := make(TestSuiteResults)
	if prevData, err := os.ReadFile(*outputJSON); err == nil {
		if json.Unmarshal(prevData, &previousResults) != nil {
			log.Printf("%s[WARN]%s Could not parse previous results file %s. Cache will not be used.\n", cYellow, cNone, *outputJSON)
			previousResults = make(TestSuiteResults)
		}
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan [2]string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				resultsChan <- testFile(task[0], task[1])
			}
		}()
	}

	// Files with identical content are only run once
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] || skipList[filepath.Base(file)] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Hash: fileHash, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		if prev, ok := previousResults[file]; *useCache && ok && prev.Hash == fileHash && prev.Status == "PASS" {
			cached := *prev
			cached.Status, cached.Message = "SKIP", "Unchanged since the last passing run"
			resultsChan <- &cached
			continue
		}
		tasks <- [2]string{file, fileHash}
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool { return allResults[i].File < allResults[j].File })

	printSummary(allResults)
	if hasFailures(writeJSONReport(allResults)) {
		os.Exit(1)
	}
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func testFile(file, fileHash string) *FileTestResult {
	result := &FileTestResult{File: file, Hash: fileHash, Status: "PASS"}
	cases, err := testcase.Load(file)
	if err != nil {
		result.Status, result.Message = "ERROR", err.Error()
		return result
	}

	for _, tc := range cases {
		if *filterCases != "" && !strings.Contains(tc.Name, *filterCases) {
			continue
		}
		result.Cases = append(result.Cases, runCase(tc))
	}

	var failed int
	for _, c := range result.Cases {
		switch c.Status {
		case "ERROR":
			result.Status = "ERROR"
			failed++
		case "FAIL":
			if result.Status == "PASS" {
				result.Status = "FAIL"
			}
			failed++
		}
	}
	if failed == 0 {
		result.Message = fmt.Sprintf("%d case(s) passed", len(result.Cases))
	} else {
		result.Message = fmt.Sprintf("%d of %d case(s) failed", failed, len(result.Cases))
	}
	return result
}

func runCase(tc testcase.TestCase) (res CaseResult) {
	res = CaseResult{Name: tc.Name, Line: tc.Line, Status: "PASS"}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Status, res.Message = "ERROR", fmt.Sprint(r)
		}
		res.Duration = time.Since(start)
	}()

	out, err := testcase.Run(tc)
	if err != nil {
		res.Status, res.Message = "ERROR", err.Error()
		return res
	}
	if out.Program != nil {
		res.Fingerprint = fmt.Sprintf("%016x", ir.Fingerprint(out.Program.Code()))
		for _, fn := range out.Program.Funcs {
			if err := fn.Verify(); err != nil {
				res.Status, res.Message = "FAIL", err.Error()
				return res
			}
		}
	}
	if failures := tc.Verify(out); len(failures) > 0 {
		res.Status = "FAIL"
		res.Message = fmt.Sprintf("%d assertion(s) did not match", len(failures))
		res.Diff = strings.Join(failures, "\n")
	}
	return res
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
			continue
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}

		for _, c := range result.Cases {
			if c.Status == "PASS" && !*verbose {
				continue
			}
			color := cGreen
			if c.Status != "PASS" {
				color = cRed
			}
			fmt.Printf("    [%s%s%s] %s (line %d) %s\n", color, c.Status, cNone, c.Name, c.Line, formatDuration(c.Duration))
			if c.Message != "" && c.Status != "PASS" {
				fmt.Printf("      %s\n", c.Message)
			}
			fmt.Print(formatDiff(c.Diff))
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("      --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("      " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}
	if err := os.WriteFile(*outputJSON, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, *outputJSON, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", *outputJSON)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if !seen[absFile] {
				if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, absFile)
					seen[absFile] = true
				}
			}
		}
	}
	return allFiles, nil
}
