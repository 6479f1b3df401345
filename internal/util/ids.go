package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns "<prefix>_<unixnano>_<random>". The random suffix keeps two
// IDs minted in the same clock tick apart.
func NewID(prefix string) string {
	rnd := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), rnd[:12])
}
