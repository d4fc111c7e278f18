package transfer

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const correlationSuffixLength = 9

// NewCorrelationID 生成形如 transfer_<unix 毫秒>_<随机后缀> 的 ID，仅保证进程内唯一。
func NewCorrelationID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:correlationSuffixLength]
	return "transfer_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}
