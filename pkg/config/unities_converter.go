package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var sizeRegex = regexp.MustCompile("^([0-9]+)(kb|mb|gb|tb|pb|eb)?$")

var unitExponents = map[string]int{
	"":   0,
	"kb": 1,
	"mb": 2,
	"gb": 3,
	"tb": 4,
	"pb": 5,
	"eb": 6,
}

// ToBytes converts a size like "512", "4kb" or "2GB" into bytes, using
// powers of 1024. An empty string means zero.
func ToBytes(sizeRep string) (int64, error) {
	if sizeRep == "" {
		return 0, nil
	}

	matches := sizeRegex.FindStringSubmatch(strings.ToLower(sizeRep))
	if matches == nil {
		return 0, fmt.Errorf("invalid data size: %s", sizeRep)
	}

	size, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid data size %s: %w", sizeRep, err)
	}

	for i := 0; i < unitExponents[matches[2]]; i++ {
		if size > (1<<63-1)/1024 {
			return 0, fmt.Errorf("data size %s overflows", sizeRep)
		}
		size *= 1024
	}
	return size, nil
}
