package rknn

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/swdee/go-posematch"
)

// LoadPartLabels reads the body part of each model keypoint from a text file
// holding one part label per line in model output order.  Blank lines and
// lines starting with # are ignored.
func LoadPartLabels(file string) ([]posematch.Part, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var parts []posematch.Part
	seen := make(map[posematch.Part]bool)
	line := 0

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())

		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		part, err := posematch.ParsePart(text)

		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", file, line, err)
		}

		if seen[part] {
			return nil, fmt.Errorf("%s line %d: duplicate part %s", file, line, part)
		}

		seen[part] = true
		parts = append(parts, part)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return parts, nil
}
