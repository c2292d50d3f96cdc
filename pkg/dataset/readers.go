package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/classifier"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/common"
)

// Seed is a URL queued for extraction with its ground-truth class.
type Seed struct {
	URL   string
	Label int
}

// ReadURLs reads one URL per line. Blank lines and lines starting with #
// are skipped; URLs without a scheme get https://.
func ReadURLs(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, common.NormalizeURL(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	if len(urls) == 0 {
		return nil, errors.New("file contained no URLs")
	}
	return urls, nil
}

// ReadPhishTank reads a PhishTank export and keeps the verified, online
// entries, all labeled phishing.
func ReadPhishTank(path string) ([]Seed, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read header row: %w", err)
	}
	colIndex, err := columns(header, "url", "verified", "online")
	if err != nil {
		return nil, err
	}

	var seeds []Seed
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV record: %w", err)
		}

		if field(record, colIndex["verified"]) != "yes" || field(record, colIndex["online"]) != "yes" {
			continue
		}
		if u := field(record, colIndex["url"]); u != "" {
			seeds = append(seeds, Seed{URL: common.NormalizeURL(u), Label: classifier.ClassPhishing})
		}
	}

	if len(seeds) == 0 {
		return nil, errors.New("file contained no verified and online phishing URLs")
	}
	return seeds, nil
}

// ReadLabeledURLs reads "url,label" rows. A first row whose label does not
// parse is treated as a header.
func ReadLabeledURLs(path string) ([]Seed, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	var seeds []Seed
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV record: %w", err)
		}

		label, err := ParseLabel(record[1])
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if u := strings.TrimSpace(record[0]); u != "" {
			seeds = append(seeds, Seed{URL: common.NormalizeURL(u), Label: label})
		}
	}

	if len(seeds) == 0 {
		return nil, errors.New("file contained no labeled URLs")
	}
	return seeds, nil
}

// ParseLabel accepts phishing/legitimate and their usual spellings.
func ParseLabel(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "phishing", "phish", "malicious", "true", "yes":
		return classifier.ClassPhishing, nil
	case "0", "legitimate", "benign", "safe", "false", "no":
		return classifier.ClassLegitimate, nil
	}
	return 0, fmt.Errorf("unrecognized label %q", s)
}

func columns(header []string, required ...string) (map[string]int, error) {
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("required column '%s' not found in CSV header", col)
		}
	}
	return colIndex, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
