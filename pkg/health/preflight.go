package health

import (
	"fmt"
	"net"
	"time"

	"example.com/DeployTools/pkg/logger"
	ping "github.com/prometheus-community/pro-bing"
)

// Preflight 在建立 SSH 连接前确认目标主机可达
// 先尝试一次 ICMP,失败不致命(很多环境禁 ping),
// 再用 TCP 连接目标端口做权威判断
func Preflight(host string, port uint16, timeout time.Duration) error {
	pinger, err := ping.NewPinger(host)
	if err == nil {
		pinger.Count = 1
		pinger.Timeout = timeout
		// ICMP raw socket 需要 root,无权限时退化为 UDP ping
		pinger.SetPrivileged(false)
		if runErr := pinger.Run(); runErr != nil {
			logger.Logger.Warn("preflight icmp failed", "host", host, "err", runErr)
		} else if stats := pinger.Statistics(); stats.PacketsRecv == 0 {
			// 丢包要让用户看见,但不拦截部署,TCP 结果才是权威
			logger.Logger.Warn("preflight icmp no reply", "host", host,
				"sent", stats.PacketsSent)
		} else {
			logger.Logger.Debug("preflight icmp ok", "host", host, "rtt", stats.AvgRtt)
		}
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("host unreachable on %s: %w", addr, err)
	}
	conn.Close()
	return nil
}
