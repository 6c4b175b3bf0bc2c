package chapterize

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/vidsum/orchestrator/pkg/errors"
)

// decodeTimestamp parses "H:MM:SS" or "MM:SS" into total seconds.
func decodeTimestamp(ts string) (int, error) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", apperrors.ErrHintDecodeFailed, ts)
		}
		nums[i] = n
	}

	switch len(nums) {
	case 2:
		return nums[0]*60 + nums[1], nil
	case 3:
		return nums[0]*3600 + nums[1]*60 + nums[2], nil
	default:
		return 0, fmt.Errorf("%w: %q", apperrors.ErrHintDecodeFailed, ts)
	}
}

// encodeTimestamp renders total seconds as "HH:mm:ss".
func encodeTimestamp(totalSeconds int) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
