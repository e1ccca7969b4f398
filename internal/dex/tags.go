package dex

import (
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/jxskiss/base62"
)

var tagCounter uint32

// NewOrderTag 生成一个紧凑的客户端订单标签, 随挂单附到链上,
// 便于把成交回报匹配回网格槽位。纳秒时间戳加进程内计数器保证唯一。
func NewOrderTag() string {
	var buf [12]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint32(buf[8:], atomic.AddUint32(&tagCounter, 1))
	return base62.EncodeToString(buf[:])
}
