package model

import (
	"fmt"
	"strconv"
	"time"
)

// GranularityDuration maps an OANDA-style granularity code ("M5",
// "H1", "H12", "D", "W") to its candle duration.
func GranularityDuration(granularity string) (time.Duration, error) {
	switch granularity {
	case "D":
		return 24 * time.Hour, nil
	case "W":
		return 7 * 24 * time.Hour, nil
	}
	if len(granularity) < 2 {
		return 0, fmt.Errorf("unknown granularity %q", granularity)
	}
	n, err := strconv.Atoi(granularity[1:])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unknown granularity %q", granularity)
	}
	switch granularity[0] {
	case 'S':
		return time.Duration(n) * time.Second, nil
	case 'M':
		return time.Duration(n) * time.Minute, nil
	case 'H':
		return time.Duration(n) * time.Hour, nil
	}
	return 0, fmt.Errorf("unknown granularity %q", granularity)
}
