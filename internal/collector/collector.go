package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmelnik/buildgate/internal/models"
)

// Config holds configuration for the collector
type Config struct {
	MaxConcurrency int
	Verbose        bool
	Timeout        time.Duration
}

// Collector ingests scanner output files written by earlier pipeline runs
// so reports can be rebuilt without re-scanning.
type Collector struct {
	config Config
}

// New creates a new collector with the given configuration
func New(config Config) *Collector {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}

	return &Collector{
		config: config,
	}
}

// CollectFromDirectory reads all scan output files from a directory and
// parses them into scan results
func (c *Collector) CollectFromDirectory(dir string) ([]models.ScanResult, error) {
	files, err := c.findScanFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to find scan files: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no scan output files found in directory: %s", dir)
	}

	if c.config.Verbose {
		fmt.Printf("Found %d scan file(s) to process\n", len(files))
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	return c.collectFiles(ctx, files)
}

// findScanFiles recursively finds all scan output files in a directory.
// Scanner output is named <target>-scan.json.
func (c *Collector) findScanFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || !strings.HasSuffix(path, "-scan.json") {
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// collectFiles processes files concurrently using a worker pool
func (c *Collector) collectFiles(ctx context.Context, files []string) ([]models.ScanResult, error) {
	fileCh := make(chan string, len(files))
	resultCh := make(chan *collectResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < c.config.MaxConcurrency; i++ {
		wg.Add(1)
		go c.worker(ctx, &wg, fileCh, resultCh)
	}

	go func() {
		defer close(fileCh)
		for _, file := range files {
			select {
			case fileCh <- file:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var results []models.ScanResult
	var errs []error

	for result := range resultCh {
		if result.err != nil {
			errs = append(errs, result.err)
			if c.config.Verbose {
				fmt.Printf("Error processing %s: %v\n", result.file, result.err)
			}
		} else {
			results = append(results, *result.result)
			if c.config.Verbose {
				fmt.Printf("✓ Collected: %s (%s)\n", result.result.Target, filepath.Base(result.file))
			}
		}
	}

	// Return partial results even if some files failed
	if len(errs) > 0 && len(results) == 0 {
		return nil, fmt.Errorf("all files failed to process (%d errors)", len(errs))
	}

	if len(errs) > 0 && c.config.Verbose {
		fmt.Printf("Warning: %d file(s) failed to process\n", len(errs))
	}

	// Workers finish in arbitrary order; reports need stable target order.
	sort.Slice(results, func(i, j int) bool {
		return results[i].Target < results[j].Target
	})

	return results, nil
}

// collectResult holds the result of processing a single file
type collectResult struct {
	file   string
	result *models.ScanResult
	err    error
}

// worker processes files from the work channel
func (c *Collector) worker(ctx context.Context, wg *sync.WaitGroup, fileCh <-chan string, resultCh chan<- *collectResult) {
	defer wg.Done()

	for {
		select {
		case file, ok := <-fileCh:
			if !ok {
				return
			}

			result, err := ParseScanFile(file)
			resultCh <- &collectResult{
				file:   file,
				result: result,
				err:    err,
			}

		case <-ctx.Done():
			return
		}
	}
}
